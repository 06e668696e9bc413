package sales

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced = "order.placed"
)

// OrderPlacedEvent is raised after checkout created an order on the platform
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"item_count"`
	Coupons     []string        `json:"coupons,omitempty"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(order *Order) *OrderPlacedEvent {
	items := 0
	for _, l := range order.Lines {
		items += l.Quantity
	}
	coupons := make([]string, 0, len(order.CouponLines))
	for _, c := range order.CouponLines {
		coupons = append(coupons, c.Code)
	}
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, strconv.FormatInt(order.ID, 10)),
		OrderID:         order.ID,
		OrderNumber:     order.Number,
		Total:           order.Total,
		Currency:        order.Currency,
		ItemCount:       items,
		Coupons:         coupons,
	}
}
