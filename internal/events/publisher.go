// Package events publishes feed lifecycle events to Kafka.
//
// Publishing is optional: when disabled in configuration, the no-op
// publisher is used and the rest of the service never has to check a flag.
// Events are fire-and-forget from the batch drivers' point of view; a
// publish failure is logged, never propagated.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/skimlabs/curation-service/internal/config"
	"github.com/skimlabs/curation-service/internal/domain"
)

// Publisher emits domain events to an external bus.
type Publisher interface {
	// Publish sends an event. The event's aggregate ID is used as the
	// partition key so events for one paper stay ordered.
	Publish(ctx context.Context, event *domain.Event) error

	// Close flushes and releases the underlying transport.
	Close() error
}

// NewFromConfig returns a Kafka publisher when enabled, otherwise a no-op.
func NewFromConfig(cfg config.KafkaConfig, logger zerolog.Logger) Publisher {
	if !cfg.Enabled {
		logger.Debug().Msg("event publishing disabled")
		return NewNoop()
	}
	return NewKafkaPublisher(cfg, logger)
}

// KafkaPublisher publishes events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher backed by a kafka-go writer.
func NewKafkaPublisher(cfg config.KafkaConfig, logger zerolog.Logger) *KafkaPublisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends an event to the configured topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil: %w", domain.ErrInvalidInput)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_version", Value: []byte(strconv.Itoa(event.EventVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}

	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards all events.
type NoopPublisher struct{}

// NewNoop creates a publisher that does nothing.
func NewNoop() *NoopPublisher {
	return &NoopPublisher{}
}

// Publish discards the event.
func (p *NoopPublisher) Publish(ctx context.Context, event *domain.Event) error {
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}
