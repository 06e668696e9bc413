package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
)

// PaymentTransactionModel is the GORM model for the payment journal
type PaymentTransactionModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     int64     `gorm:"not null;index"`
	GatewayType string    `gorm:"column:gateway;type:varchar(20);not null"`
	// TransactionUUID is NULL for notifications without a gateway transaction;
	// NULLs never collide under the unique index.
	TransactionUUID *string         `gorm:"type:varchar(64);uniqueIndex"`
	Status          string          `gorm:"type:varchar(20);not null"`
	GatewayStatus   string          `gorm:"type:varchar(40)"`
	DetailedStatus  string          `gorm:"type:varchar(40)"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	PaymentMethod   string          `gorm:"column:payment_method_type;type:varchar(40)"`
	RawAnswer       string          `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"not null;index"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for the model
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToEntity converts the model to a domain entity
func (m *PaymentTransactionModel) ToEntity() *payment.Transaction {
	tx := &payment.Transaction{
		ID:             m.ID,
		OrderID:        m.OrderID,
		GatewayType:    payment.GatewayType(m.GatewayType),
		Status:         payment.Status(m.Status),
		GatewayStatus:  m.GatewayStatus,
		DetailedStatus: m.DetailedStatus,
		Amount:         m.Amount,
		Currency:       m.Currency,
		PaymentMethod:  m.PaymentMethod,
		RawAnswer:      m.RawAnswer,
		CreatedAt:      m.CreatedAt.UTC(),
	}
	if m.TransactionUUID != nil {
		tx.TransactionUUID = *m.TransactionUUID
	}
	return tx
}

// PaymentTransactionModelFromEntity creates a model from a domain entity
func PaymentTransactionModelFromEntity(e *payment.Transaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{
		ID:             e.ID,
		OrderID:        e.OrderID,
		GatewayType:    string(e.GatewayType),
		Status:         string(e.Status),
		GatewayStatus:  e.GatewayStatus,
		DetailedStatus: e.DetailedStatus,
		Amount:         e.Amount,
		Currency:       e.Currency,
		PaymentMethod:  e.PaymentMethod,
		RawAnswer:      e.RawAnswer,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.CreatedAt,
	}
	if e.TransactionUUID != "" {
		ref := e.TransactionUUID
		m.TransactionUUID = &ref
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
		m.UpdatedAt = m.CreatedAt
	}
	return m
}

// PaymentTransactionRepository implements payment.TransactionRepository with GORM
type PaymentTransactionRepository struct {
	db *gorm.DB
}

// NewPaymentTransactionRepository creates a new payment journal repository
func NewPaymentTransactionRepository(db *gorm.DB) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

// Save inserts the entry. An entry with the same transaction uuid is updated
// in place, so the journal keeps the latest state of every gateway transaction.
func (r *PaymentTransactionRepository) Save(ctx context.Context, tx *payment.Transaction) error {
	model := PaymentTransactionModelFromEntity(tx)
	model.UpdatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transaction_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "gateway_status", "detailed_status", "amount",
			"currency", "payment_method_type", "raw_answer", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save payment transaction: %w", err)
	}
	return nil
}

// ListByOrder returns the entries of an order, newest first
func (r *PaymentTransactionRepository) ListByOrder(ctx context.Context, orderID int64) ([]payment.Transaction, error) {
	var models []PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}

	out := make([]payment.Transaction, 0, len(models))
	for i := range models {
		out = append(out, *models[i].ToEntity())
	}
	return out, nil
}

// FindByTransactionUUID returns the entry or shared.ErrNotFound
func (r *PaymentTransactionRepository) FindByTransactionUUID(ctx context.Context, transactionUUID string) (*payment.Transaction, error) {
	var model PaymentTransactionModel
	err := r.db.WithContext(ctx).Where("transaction_uuid = ?", transactionUUID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment transaction: %w", err)
	}
	return model.ToEntity(), nil
}

var _ payment.TransactionRepository = (*PaymentTransactionRepository)(nil)
