// Package events publishes domain events to Kafka and consumes them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-ranking-service/internal/domain"
	"github.com/helixir/paper-ranking-service/internal/observability"
)

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// NoopPublisher drops every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, *domain.Event) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// KafkaPublisher writes events as JSON messages keyed by correlation ID,
// falling back to the event ID.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic. metrics may
// be nil.
func NewKafkaPublisher(cfg KafkaConfig, logger zerolog.Logger, metrics *observability.Metrics) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, cfg.Topic, logger, metrics), nil
}

func newKafkaPublisher(w messageWriter, topic string, logger zerolog.Logger, metrics *observability.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		topic:   topic,
		logger:  logger.With().Str("component", "event_publisher").Str("topic", topic).Logger(),
		metrics: metrics,
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return errors.New("kafka: nil event")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	key := event.CorrelationID
	if key == "" {
		key = event.EventID
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
	if p.metrics != nil {
		p.metrics.RecordEventPublished(event.EventType, err)
	}
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.EventType).Str("event_id", event.EventID).Msg("failed to publish event")
		return fmt.Errorf("kafka: publish %s: %w", event.EventType, err)
	}

	p.logger.Debug().Str("event_type", event.EventType).Str("event_id", event.EventID).Msg("event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
