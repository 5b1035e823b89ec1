package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"offerlens/internal/config"
	"offerlens/internal/model"
)

const maxAttempts = 3

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends enriched rows to a kafka topic, one message per row keyed
// by customer id so a customer's rows land on the same partition.
type Publisher struct {
	writer    messageWriter
	batchSize int
	backoff   time.Duration
	logger    *slog.Logger
}

// NewPublisher returns nil when kafka publishing is disabled.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	if !cfg.Enabled {
		if logger != nil {
			logger.Info("kafka publish disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("kafka publish enabled", "brokers", cfg.Brokers, "topic", cfg.Topic, "batch_size", cfg.BatchSize)
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(writer, cfg.BatchSize, logger)
}

func newPublisher(w messageWriter, batchSize int, logger *slog.Logger) *Publisher {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Publisher{writer: w, batchSize: batchSize, backoff: 200 * time.Millisecond, logger: logger}
}

// Publish writes rows in batches. It returns the number of rows written
// before the first failed batch.
func (p *Publisher) Publish(ctx context.Context, rows []model.EnrichedRow) (int, error) {
	if p == nil || len(rows) == 0 {
		return 0, nil
	}
	sent := 0
	batch := make([]kafka.Message, 0, p.batchSize)
	for start := 0; start < len(rows); start += p.batchSize {
		end := min(start+p.batchSize, len(rows))
		batch = batch[:0]
		for _, row := range rows[start:end] {
			msg, err := encode(row)
			if err != nil {
				return sent, err
			}
			batch = append(batch, msg)
		}
		if err := p.write(ctx, batch); err != nil {
			return sent, fmt.Errorf("publish rows %d-%d: %w", start, end-1, err)
		}
		sent += len(batch)
	}
	if p.logger != nil {
		p.logger.Info("rows published", "count", sent)
	}
	return sent, nil
}

func (p *Publisher) write(ctx context.Context, batch []kafka.Message) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = p.writer.WriteMessages(ctx, batch...); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.logger != nil {
			p.logger.Warn("kafka write error", "attempt", attempt, "err", err)
		}
		if attempt < maxAttempts && !backoffSleep(ctx, p.backoff*time.Duration(attempt)) {
			return ctx.Err()
		}
	}
	return err
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encode(row model.EnrichedRow) (kafka.Message, error) {
	value, err := json.Marshal(row)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode row %d: %w", row.GlobalIndex, err)
	}
	return kafka.Message{Key: []byte(row.CustomerID), Value: value}, nil
}

func backoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
