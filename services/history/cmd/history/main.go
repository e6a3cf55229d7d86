package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/streaming-platform/internal/platform/db"
	"github.com/example/streaming-platform/internal/platform/logging"
	"github.com/example/streaming-platform/internal/platform/natsconn"
	"github.com/example/streaming-platform/internal/platform/run"
	"github.com/example/streaming-platform/services/history/internal/config"
	"github.com/example/streaming-platform/services/history/internal/consumer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx)
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("db migrate", zap.Error(err))
		run.Exit(1)
	}

	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		run.Exit(1)
	}
	defer nc.Close()

	c, err := consumer.New(nc, pool, cfg.BatchSize, cfg.BatchIntervalMs, log)
	if err != nil {
		log.Error("consumer init", zap.Error(err))
		run.Exit(1)
	}

	log.Info("history consumer started")
	c.Run(ctx)
	log.Info("history consumer stopped")
	run.Exit(0)
}
