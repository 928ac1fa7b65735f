// Package events publishes amendment events to Kafka. Publishing is
// best-effort: a broker failure is logged and never blocks the write path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"amendtrail/internal/types"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Config represents event publishing configuration
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AmendmentEvent is the message published for each recorded amendment
type AmendmentEvent struct {
	EventType   string           `json:"event_type"`
	AmendmentID string           `json:"amendment_id"`
	EntityID    string           `json:"entity_id"`
	EntityType  types.EntityType `json:"entity_type"`
	AmendedBy   string           `json:"amended_by"`
	AmendedAt   time.Time        `json:"amended_at"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Publisher publishes amendment events
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates new event publisher
func NewPublisher(cfg *Config, logger *zap.Logger) (*Publisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka configuration is nil or empty")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "amendtrail.amendments"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishRecorded publishes an amendment.recorded event keyed by entity
func (p *Publisher) PublishRecorded(ctx context.Context, record *types.AmendmentRecord) error {
	event := AmendmentEvent{
		EventType:   "amendment.recorded",
		AmendmentID: record.ID,
		EntityID:    record.EntityID,
		EntityType:  record.EntityType,
		AmendedBy:   record.AmendedBy,
		AmendedAt:   record.AmendedAt,
		Timestamp:   time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.EntityID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug("published amendment event",
		zap.String("amendment_id", record.ID),
		zap.String("entity_id", record.EntityID))
	return nil
}

// Close closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
