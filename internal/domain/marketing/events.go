package marketing

import "github.com/storefront/backend/internal/domain/shared"

const (
	AggregateTypeSubscriber = "Subscriber"
	EventTypeSubscribed     = "newsletter.subscribed"
)

// SubscribedEvent is raised after a new subscriber was accepted
type SubscribedEvent struct {
	shared.BaseDomainEvent
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

// NewSubscribedEvent creates a SubscribedEvent keyed by email
func NewSubscribedEvent(s *Subscriber) *SubscribedEvent {
	return &SubscribedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscribed, AggregateTypeSubscriber, s.Email),
		Email:           s.Email,
		FirstName:       s.FirstName,
	}
}
