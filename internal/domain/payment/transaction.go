package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a journal entry for every verified payment notification.
// The platform order stays the source of truth; the journal exists for
// support and reconciliation.
type Transaction struct {
	ID              uuid.UUID
	OrderID         int64
	GatewayType     GatewayType
	TransactionUUID string
	Status          Status
	GatewayStatus   string
	DetailedStatus  string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   string
	RawAnswer       string
	CreatedAt       time.Time
}

// NewTransaction creates a journal entry from a verified notification
func NewTransaction(n *Notification) *Transaction {
	orderID, _ := strconv.ParseInt(n.OrderID, 10, 64)
	return &Transaction{
		ID:              uuid.New(),
		OrderID:         orderID,
		GatewayType:     n.GatewayType,
		TransactionUUID: n.TransactionUUID,
		Status:          n.Status,
		GatewayStatus:   n.GatewayStatus,
		DetailedStatus:  n.DetailedStatus,
		Amount:          n.Amount,
		Currency:        n.Currency,
		PaymentMethod:   n.PaymentMethod,
		RawAnswer:       n.RawAnswer,
		CreatedAt:       time.Now().UTC(),
	}
}

// TransactionRepository stores the payment journal
type TransactionRepository interface {
	// Save inserts the entry, or updates the entry with the same transaction uuid
	Save(ctx context.Context, tx *Transaction) error
	// ListByOrder returns the entries of an order, newest first
	ListByOrder(ctx context.Context, orderID int64) ([]Transaction, error)
	// FindByTransactionUUID returns the entry or shared.ErrNotFound
	FindByTransactionUUID(ctx context.Context, transactionUUID string) (*Transaction, error)
}
