package payment

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypePayment = "Payment"

// Event type constants
const (
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentFailed    = "payment.failed"
)

// PaymentEvent is raised after a verified notification was applied to an order
type PaymentEvent struct {
	shared.BaseDomainEvent
	OrderID         string          `json:"order_id"`
	Gateway         GatewayType     `json:"gateway"`
	TransactionUUID string          `json:"transaction_uuid"`
	Status          Status          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	// AmountMismatch is true when the paid amount differs from the order total
	AmountMismatch bool `json:"amount_mismatch,omitempty"`
}

// NewPaymentEvent creates the event matching the notification status
func NewPaymentEvent(n *Notification, amountMismatch bool) *PaymentEvent {
	eventType := EventTypePaymentFailed
	if n.Status == StatusPaid {
		eventType = EventTypePaymentConfirmed
	}
	return &PaymentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePayment, n.OrderID),
		OrderID:         n.OrderID,
		Gateway:         n.GatewayType,
		TransactionUUID: n.TransactionUUID,
		Status:          n.Status,
		Amount:          n.Amount,
		Currency:        n.Currency,
		AmountMismatch:  amountMismatch,
	}
}
