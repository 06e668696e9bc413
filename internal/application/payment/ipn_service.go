package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

var (
	// ErrNotificationSignature is returned when a notification fails signature verification
	ErrNotificationSignature = shared.NewDomainError("UNAUTHORIZED", "Payment notification signature is invalid")
	// ErrNotificationMalformed is returned when a signed notification cannot be understood
	ErrNotificationMalformed = shared.NewDomainError("INVALID_INPUT", "Payment notification is malformed")
)

// IPNResult is what the notification endpoint answers the gateway with
type IPNResult struct {
	ContentType string
	Body        []byte
	// Duplicate is true when the notification had already been processed
	Duplicate    bool
	Notification *payment.Notification
	// AmountMismatch is true when the paid amount differed from the order total
	AmountMismatch bool
}

// BrowserReturnResponse is the verified payment outcome shown after the payment form
type BrowserReturnResponse struct {
	OrderID         string          `json:"order_id"`
	Status          string          `json:"status"`
	GatewayStatus   string          `json:"gateway_status"`
	Paid            bool            `json:"paid"`
	TransactionUUID string          `json:"transaction_uuid"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// IPNServiceConfig holds the collaborators of IPNService
type IPNServiceConfig struct {
	Gateway     payment.Gateway
	Orders      sales.OrderGateway
	Journal     payment.TransactionRepository
	Idempotency shared.IdempotencyStore
	// IdempotencyTTL defaults to shared.DefaultIdempotencyConfig().TTL
	IdempotencyTTL time.Duration
	// CurrencyDecimals is the number of minor digits amounts are compared at
	CurrencyDecimals int32
	Logger           *zap.Logger
}

// IPNService applies verified payment notifications to platform orders.
// The notification is recorded in the journal before the order is touched,
// and a failure releases the idempotency key so the gateway's retry is processed.
type IPNService struct {
	gateway     payment.Gateway
	orders      sales.OrderGateway
	journal     payment.TransactionRepository
	idempotency shared.IdempotencyStore
	ttl         time.Duration
	decimals    int32
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewIPNService creates a new IPNService
func NewIPNService(cfg IPNServiceConfig) *IPNService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &IPNService{
		gateway:     cfg.Gateway,
		orders:      cfg.Orders,
		journal:     cfg.Journal,
		idempotency: cfg.Idempotency,
		ttl:         ttl,
		decimals:    cfg.CurrencyDecimals,
		logger:      log,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *IPNService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// HandleIPN verifies a server-to-server notification and applies it to the order
func (s *IPNService) HandleIPN(ctx context.Context, fields payment.SignedFields) (*IPNResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "handle_ipn",
		telemetry.WithAttribute(telemetry.SpanAttrGateway, s.gateway.GatewayType().String()))
	defer span.End()
	log := logger.Or(ctx, s.logger)

	n, err := s.gateway.VerifyNotification(ctx, fields)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Payment notification rejected", zap.Error(err))
		return nil, verificationError(err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, n.OrderID)
	telemetry.SetAttribute(span, telemetry.SpanAttrPayStatus, n.Status.String())

	log = log.With(
		zap.String("order_id", n.OrderID),
		zap.String("transaction_uuid", n.TransactionUUID),
		zap.String("gateway_status", n.GatewayStatus))
	log.Info("Payment notification received")

	key := n.IdempotencyKey()
	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.ttl)
		if err != nil {
			// without the store a replay is still safe: order updates check the current status
			log.Warn("Idempotency check failed, processing anyway", zap.Error(err))
		} else if !fresh {
			log.Info("Duplicate payment notification acknowledged")
			return s.ack(n, true, false), nil
		}
	}

	mismatch, err := s.process(ctx, n, log)
	if err != nil {
		telemetry.RecordError(span, err)
		s.forget(ctx, key, log)
		log.Error("Failed to process payment notification", zap.Error(err))
		return nil, err
	}
	return s.ack(n, false, mismatch), nil
}

func (s *IPNService) process(ctx context.Context, n *payment.Notification, log *zap.Logger) (bool, error) {
	if s.journal != nil {
		if err := s.journal.Save(ctx, payment.NewTransaction(n)); err != nil {
			return false, fmt.Errorf("record payment transaction: %w", err)
		}
	}

	mismatch, err := s.applyToOrder(ctx, n, log)
	if err != nil {
		return false, err
	}
	if n.Status != payment.StatusPending {
		s.publish(ctx, payment.NewPaymentEvent(n, mismatch), log)
	}
	return mismatch, nil
}

// applyToOrder moves the platform order according to the payment status
func (s *IPNService) applyToOrder(ctx context.Context, n *payment.Notification, log *zap.Logger) (bool, error) {
	orderID, err := strconv.ParseInt(n.OrderID, 10, 64)
	if err != nil || orderID <= 0 {
		log.Warn("Notification order id is not a platform order id")
		return false, nil
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, integration.ErrPlatformNotFound) {
			log.Warn("Notification references an unknown order")
			return false, nil
		}
		return false, fmt.Errorf("load order %d: %w", orderID, err)
	}

	switch n.Status {
	case payment.StatusPaid:
		return s.markPaid(ctx, order, n, log)

	case payment.StatusFailed:
		if order.Status != sales.OrderStatusPending {
			log.Info("Payment failure ignored for order", zap.String("order_status", order.Status.String()))
			return false, nil
		}
		failed := sales.OrderStatusFailed
		if _, err := s.orders.UpdateOrder(ctx, orderID, sales.OrderUpdate{Status: &failed}); err != nil {
			return false, fmt.Errorf("mark order %d failed: %w", orderID, err)
		}
		s.note(ctx, orderID, fmt.Sprintf("Izipay payment refused (%s).", detailed(n)), log)
		log.Info("Order marked failed")

	case payment.StatusCancelled:
		s.note(ctx, orderID, fmt.Sprintf("Izipay payment abandoned by the shopper (%s).", detailed(n)), log)

	default:
		log.Debug("Payment still in progress")
	}
	return false, nil
}

func (s *IPNService) markPaid(ctx context.Context, order *sales.Order, n *payment.Notification, log *zap.Logger) (bool, error) {
	if !order.Status.CanBeMarkedPaid() {
		log.Info("Order already past payment", zap.String("order_status", order.Status.String()))
		return false, nil
	}

	if paid, due := s.minorUnits(n.Amount), s.minorUnits(order.Total); paid != due {
		onHold := sales.OrderStatusOnHold
		if _, err := s.orders.UpdateOrder(ctx, order.ID, sales.OrderUpdate{Status: &onHold}); err != nil {
			return true, fmt.Errorf("hold order %d: %w", order.ID, err)
		}
		s.note(ctx, order.ID, fmt.Sprintf(
			"Izipay reported %s %s paid but the order total is %s %s. Transaction %s needs review.",
			n.Amount.StringFixed(s.decimals), n.Currency,
			order.Total.StringFixed(s.decimals), order.Currency, n.TransactionUUID), log)
		log.Warn("Paid amount does not match order total",
			zap.Int64("paid_minor", paid), zap.Int64("due_minor", due))
		return true, nil
	}

	processing := sales.OrderStatusProcessing
	setPaid := true
	txID := n.TransactionUUID
	if _, err := s.orders.UpdateOrder(ctx, order.ID, sales.OrderUpdate{
		Status:        &processing,
		SetPaid:       &setPaid,
		TransactionID: &txID,
	}); err != nil {
		return false, fmt.Errorf("mark order %d paid: %w", order.ID, err)
	}
	log.Info("Order marked paid")
	return false, nil
}

// VerifyBrowserReturn verifies the answer the payment form hands to the browser.
// It never changes the order; the server notification does that.
func (s *IPNService) VerifyBrowserReturn(ctx context.Context, fields payment.SignedFields) (*BrowserReturnResponse, error) {
	n, err := s.gateway.VerifyBrowserReturn(ctx, fields)
	if err != nil {
		logger.Or(ctx, s.logger).Warn("Browser payment return rejected", zap.Error(err))
		return nil, verificationError(err)
	}
	return &BrowserReturnResponse{
		OrderID:         n.OrderID,
		Status:          n.Status.String(),
		GatewayStatus:   n.GatewayStatus,
		Paid:            n.Status == payment.StatusPaid,
		TransactionUUID: n.TransactionUUID,
		Amount:          n.Amount,
		Currency:        n.Currency,
	}, nil
}

func (s *IPNService) minorUnits(d decimal.Decimal) int64 {
	return d.Shift(s.decimals).Round(0).IntPart()
}

func (s *IPNService) ack(n *payment.Notification, duplicate, mismatch bool) *IPNResult {
	contentType, body := s.gateway.NotificationResponse(true)
	return &IPNResult{
		ContentType:    contentType,
		Body:           body,
		Duplicate:      duplicate,
		Notification:   n,
		AmountMismatch: mismatch,
	}
}

func (s *IPNService) forget(ctx context.Context, key string, log *zap.Logger) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Forget(ctx, key); err != nil {
		log.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

func (s *IPNService) note(ctx context.Context, orderID int64, note string, log *zap.Logger) {
	if err := s.orders.AddOrderNote(ctx, orderID, note, false); err != nil {
		log.Warn("Failed to add order note", zap.Error(err))
	}
}

func (s *IPNService) publish(ctx context.Context, event shared.DomainEvent, log *zap.Logger) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish domain event", zap.String("event_type", event.EventType()), zap.Error(err))
	}
}

func detailed(n *payment.Notification) string {
	if n.DetailedStatus != "" {
		return n.DetailedStatus
	}
	return n.GatewayStatus
}

func verificationError(err error) error {
	if errors.Is(err, payment.ErrGatewayInvalidCallback) || errors.Is(err, payment.ErrGatewayUnsupportedHash) {
		return ErrNotificationSignature
	}
	return ErrNotificationMalformed
}
