package marketing

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/marketing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// ErrAlreadySubscribed is the client-facing form of marketing.ErrAlreadySubscribed
var ErrAlreadySubscribed = shared.NewDomainError("ALREADY_EXISTS", "This email is already subscribed")

// SubscribeRequest is the newsletter signup form
type SubscribeRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	FirstName string `json:"first_name" binding:"omitempty,max=100"`
}

// SubscriberResponse is returned after a successful signup
type SubscriberResponse struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	Status    string `json:"status"`
}

// NewsletterService handles newsletter signups
type NewsletterService struct {
	gateway   marketing.NewsletterGateway
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewNewsletterService creates a new NewsletterService
func NewNewsletterService(gateway marketing.NewsletterGateway, log *zap.Logger) *NewsletterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NewsletterService{gateway: gateway, logger: log}
}

// SetEventPublisher sets the event publisher for domain events
func (s *NewsletterService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Subscribe adds an email to the mailing list
func (s *NewsletterService) Subscribe(ctx context.Context, req SubscribeRequest) (*SubscriberResponse, error) {
	subscriber, err := marketing.NewSubscriber(req.Email, req.FirstName)
	if err != nil {
		return nil, err
	}

	created, err := s.gateway.Subscribe(ctx, *subscriber)
	if err != nil {
		if errors.Is(err, marketing.ErrAlreadySubscribed) {
			return nil, ErrAlreadySubscribed
		}
		return nil, integration.ToDomainError(err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, marketing.NewSubscribedEvent(created)); err != nil {
			logger.Or(ctx, s.logger).Warn("Failed to publish subscription event", zap.Error(err))
		}
	}

	return &SubscriberResponse{
		Email:     created.Email,
		FirstName: created.FirstName,
		Status:    string(created.Status),
	}, nil
}
