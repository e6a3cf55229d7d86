// Package consumer manages the JetStream pull consumer for the history service.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/streaming-platform/internal/platform/analytics"
	"github.com/example/streaming-platform/internal/platform/metrics"
)

const (
	analyticsStream = "ANALYTICS"
	historyConsumer = "history_recorder"
)

// Consumer drains analytics events into the append-only playback_events
// table. Events carry their own ids, so replays and redeliveries are
// deduplicated at insert time.
type Consumer struct {
	sub       *nats.Subscription
	db        *pgxpool.Pool
	batchSize int
	maxWait   time.Duration
	log       *zap.Logger
}

// New creates the ANALYTICS JetStream stream if needed and returns a
// Consumer ready to call Run.
func New(nc *nats.Conn, db *pgxpool.Pool, batchSize, batchIntervalMs int, log *zap.Logger) (*Consumer, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	ensureStream(js, log)

	sub, err := js.PullSubscribe(">", historyConsumer, nats.BindStream(analyticsStream))
	if err != nil {
		return nil, err
	}

	return &Consumer{
		sub:       sub,
		db:        db,
		batchSize: batchSize,
		maxWait:   time.Duration(batchIntervalMs) * time.Millisecond,
		log:       log,
	}, nil
}

// Run processes messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.sub.Fetch(c.batchSize, nats.MaxWait(c.maxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			c.log.Error("history consumer: fetch", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			if err := c.record(ctx, msg); err != nil {
				c.log.Error("history consumer: record", zap.Error(err))
				metrics.HistoryEventsTotal.WithLabelValues("error").Inc()
				if err := msg.Nak(); err != nil {
					c.log.Warn("history consumer: nak", zap.Error(err))
				}
				continue
			}
			if err := msg.Ack(); err != nil {
				c.log.Warn("history consumer: ack", zap.Error(err))
			}
		}
	}
}

// record writes one event row. Unparseable messages are recorded as
// skipped and acked; retrying them cannot succeed.
func (c *Consumer) record(ctx context.Context, msg *nats.Msg) error {
	var ev analytics.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		c.log.Warn("history consumer: bad payload", zap.String("subject", msg.Subject), zap.Error(err))
		metrics.HistoryEventsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	eventID, err := uuid.Parse(ev.EventID)
	if err != nil {
		c.log.Warn("history consumer: bad event id", zap.String("event_id", ev.EventID))
		metrics.HistoryEventsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	var userID any
	if uid, err := uuid.Parse(ev.UserID); err == nil {
		userID = uid
	}
	payload, err := json.Marshal(ev.Properties)
	if err != nil {
		payload = []byte("{}")
	}

	q := `
INSERT INTO playback_events (event_id, event_name, user_id, occurred_at, payload)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (event_id) DO NOTHING;
`
	tag, err := c.db.Exec(ctx, q, eventID, ev.EventName, userID, ev.OccurredAt, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		metrics.HistoryEventsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}
	metrics.HistoryEventsTotal.WithLabelValues("recorded").Inc()
	return nil
}

// ensureStream creates the ANALYTICS JetStream stream if it doesn't exist.
func ensureStream(js nats.JetStreamContext, log *zap.Logger) {
	cfg := &nats.StreamConfig{
		Name:      analyticsStream,
		Subjects:  []string{"analytics.>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
	}

	_, err := js.AddStream(cfg)
	if err == nil {
		log.Info("history: stream created", zap.String("stream", analyticsStream))
		return
	}

	if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		if _, updateErr := js.UpdateStream(cfg); updateErr != nil {
			log.Warn("history: stream update failed (may already be up to date)", zap.Error(updateErr))
		}
	}
}
