package config

import (
	"os"
	"strings"

	platformconfig "github.com/example/streaming-platform/internal/platform/config"
)

type Config struct {
	LogLevel        string
	NATSURL         string
	BatchSize       int
	BatchIntervalMs int
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:        platformconfig.String("LOG_LEVEL", "info"),
		NATSURL:         strings.TrimSpace(os.Getenv("NATS_URL")),
		BatchSize:       platformconfig.Int("NATS_BATCH_SIZE", 64),
		BatchIntervalMs: platformconfig.Int("NATS_BATCH_INTERVAL_MS", 2000),
	}
	return cfg, nil
}
