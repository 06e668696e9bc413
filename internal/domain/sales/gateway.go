package sales

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderGateway is the port to the platform that owns orders.
// Implementations return integration sentinel errors.
type OrderGateway interface {
	// CreateOrder creates an order; the platform prices lines and applies coupons
	CreateOrder(ctx context.Context, order NewOrder) (*Order, error)
	// GetOrder returns an order by id
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// UpdateOrder changes the status, paid flag or transaction id of an order
	UpdateOrder(ctx context.Context, id int64, update OrderUpdate) (*Order, error)
	// AddOrderNote appends a note; customer notes are emailed to the shopper
	AddOrderNote(ctx context.Context, id int64, note string, customerNote bool) error
	// ListOrderNotes returns the notes of an order, optionally only customer notes
	ListOrderNotes(ctx context.Context, id int64, customerOnly bool) ([]OrderNote, error)
}

// CouponSource is the port for coupon lookup
type CouponSource interface {
	// FindCouponByCode returns the coupon or ErrCouponNotFound
	FindCouponByCode(ctx context.Context, code string) (*Coupon, error)
}

// ShippingSource is the port for shipping zone configuration
type ShippingSource interface {
	// FreeShippingMinAmount returns the minimum amount of the zone's enabled
	// free shipping method. ok is false when the zone has no such method.
	FreeShippingMinAmount(ctx context.Context, zoneID int64) (amount decimal.Decimal, ok bool, err error)
}
