package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/marketing"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
)

// EnvelopeVersion is bumped when the envelope layout changes
const EnvelopeVersion = 1

// Envelope is the wire form of a published event.
// Consumers route on Type and decode Data into the matching payload.
type Envelope struct {
	Version       int             `json:"version"`
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}

// EventSerializer encodes domain events into envelopes and decodes them back
type EventSerializer struct {
	source   string
	mu       sync.RWMutex
	registry map[string]reflect.Type // eventType -> Go type
}

// NewEventSerializer creates a serializer stamping envelopes with source
func NewEventSerializer(source string) *EventSerializer {
	return &EventSerializer{
		source:   source,
		registry: make(map[string]reflect.Type),
	}
}

// NewStorefrontSerializer returns a serializer that knows every storefront event
func NewStorefrontSerializer(source string) *EventSerializer {
	s := NewEventSerializer(source)
	s.Register(sales.EventTypeOrderPlaced, &sales.OrderPlacedEvent{})
	s.Register(payment.EventTypePaymentConfirmed, &payment.PaymentEvent{})
	s.Register(payment.EventTypePaymentFailed, &payment.PaymentEvent{})
	s.Register(marketing.EventTypeSubscribed, &marketing.SubscribedEvent{})
	return s
}

// Register records the Go type used to decode eventType
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize wraps the event in an Envelope and encodes it
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return json.Marshal(Envelope{
		Version:       EnvelopeVersion,
		ID:            event.EventID(),
		Type:          event.EventType(),
		Source:        s.source,
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt().UTC(),
		Data:          data,
	})
}

// Deserialize decodes an envelope into the registered event type
func (s *EventSerializer) Deserialize(raw []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.Version)
	}

	s.mu.RLock()
	t, ok := s.registry[env.Type]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}
