package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// Message header keys set on every published event
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderAggregateType = "aggregate_type"
)

var (
	ErrNoBrokers = errors.New("event: no Kafka brokers configured")
	ErrNoTopic   = errors.New("event: no Kafka topic configured")
)

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes domain events to one Kafka topic.
// Messages are keyed by aggregate id so events of one order stay ordered.
type KafkaPublisher struct {
	writer     messageWriter
	serializer *EventSerializer
	topic      string
	logger     *zap.Logger
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer
func NewKafkaPublisher(cfg config.EventsConfig, serializer *EventSerializer, log *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return newKafkaPublisher(w, cfg.Topic, serializer, log), nil
}

func newKafkaPublisher(w messageWriter, topic string, serializer *EventSerializer, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, serializer: serializer, topic: topic, logger: log}
}

// Publish writes every event in one batch
func (p *KafkaPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := p.serializer.Serialize(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.AggregateID()),
			Value: value,
			Time:  e.OccurredAt(),
			Headers: []kafka.Header{
				{Key: HeaderEventType, Value: []byte(e.EventType())},
				{Key: HeaderEventID, Value: []byte(e.EventID().String())},
				{Key: HeaderAggregateType, Value: []byte(e.AggregateType())},
			},
		})
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}
	logger.Or(ctx, p.logger).Debug("events published",
		zap.String("topic", p.topic),
		zap.Int("count", len(msgs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ shared.EventPublisher = (*KafkaPublisher)(nil)
