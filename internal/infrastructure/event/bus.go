package event

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
)

// Dispatcher implements shared.EventPublisher.
// Events go to in-process handlers first (metrics, logging) and are then
// forwarded to the downstream publisher, usually Kafka.
// Handler failures are logged and never reach the caller; downstream failures are returned.
type Dispatcher struct {
	registry   *HandlerRegistry
	downstream shared.EventPublisher
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher; downstream may be nil
func NewDispatcher(downstream shared.EventPublisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry:   NewHandlerRegistry(),
		downstream: downstream,
		logger:     logger,
	}
}

// Subscribe registers a handler, defaulting to the types it declares
func (d *Dispatcher) Subscribe(handler Handler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	d.registry.Register(handler, eventTypes...)
	d.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Publish dispatches events to local handlers synchronously, then downstream
func (d *Dispatcher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range d.registry.GetHandlers(event.EventType()) {
			if err := d.dispatchToHandler(ctx, handler, event); err != nil {
				d.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}

	if d.downstream == nil || len(events) == 0 {
		return nil
	}
	if err := d.downstream.Publish(ctx, events...); err != nil {
		return fmt.Errorf("failed to publish %d event(s): %w", len(events), err)
	}
	return nil
}

// Close closes the downstream publisher
func (d *Dispatcher) Close() error {
	if d.downstream == nil {
		return nil
	}
	return d.downstream.Close()
}

// dispatchToHandler runs one handler and turns a panic into an error
func (d *Dispatcher) dispatchToHandler(ctx context.Context, handler Handler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventPublisher = (*Dispatcher)(nil)
