package marketing

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// ErrAlreadySubscribed is returned when the email is already on the list
var ErrAlreadySubscribed = errors.New("newsletter: email is already subscribed")

// SubscriberStatus mirrors the status values of The Newsletter Plugin
type SubscriberStatus string

const (
	SubscriberStatusConfirmed   SubscriberStatus = "confirmed"
	SubscriberStatusUnconfirmed SubscriberStatus = "not_confirmed"
)

// Subscriber is a newsletter subscriber
type Subscriber struct {
	ID        int64
	Email     string
	FirstName string
	Status    SubscriberStatus
}

// NewSubscriber validates and normalizes a subscription request
func NewSubscriber(email, firstName string) (*Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, shared.NewDomainError("INVALID_INPUT", "Email is invalid")
	}
	return &Subscriber{
		Email:     email,
		FirstName: strings.TrimSpace(firstName),
	}, nil
}

// NewsletterGateway is the port to the mailing list
type NewsletterGateway interface {
	// Subscribe adds the subscriber; returns ErrAlreadySubscribed when already listed
	Subscribe(ctx context.Context, subscriber Subscriber) (*Subscriber, error)
}
