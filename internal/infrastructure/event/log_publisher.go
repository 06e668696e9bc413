package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// LogPublisher writes events to the log instead of a broker.
// It is used when events.enabled is false.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{logger: log}
}

// Publish logs one line per event
func (p *LogPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	log := logger.Or(ctx, p.logger)
	for _, e := range events {
		log.Info("domain event",
			zap.String("event_type", e.EventType()),
			zap.String("event_id", e.EventID().String()),
			zap.String("aggregate_type", e.AggregateType()),
			zap.String("aggregate_id", e.AggregateID()),
		)
	}
	return nil
}

// Close does nothing
func (p *LogPublisher) Close() error {
	return nil
}

var _ shared.EventPublisher = (*LogPublisher)(nil)
