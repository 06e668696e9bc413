package sales

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Cart quantity bounds per line
const (
	MinLineQuantity = 1
	MaxLineQuantity = 999
)

// CartItem is what the shopper asks for; prices are never taken from it
type CartItem struct {
	ProductID   int64
	VariationID int64
	Quantity    int
}

// Validate checks the item's identifiers and quantity
func (i CartItem) Validate() error {
	if i.ProductID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Product ID must be positive")
	}
	if i.VariationID < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Variation ID cannot be negative")
	}
	if i.Quantity < MinLineQuantity || i.Quantity > MaxLineQuantity {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be between 1 and 999")
	}
	return nil
}

// CartLine is a cart item priced from the catalog
type CartLine struct {
	ProductID    int64
	VariationID  int64
	Name         string
	SKU          string
	ImageSrc     string
	Quantity     int
	UnitPrice    decimal.Decimal
	RegularPrice decimal.Decimal
	OnSale       bool
	CategoryIDs  []int64
	// Discount accumulates the discounts of every applied coupon
	Discount decimal.Decimal
}

// Subtotal returns unit price times quantity
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total returns the line subtotal minus its discount
func (l *CartLine) Total() decimal.Decimal {
	return l.Subtotal().Sub(l.Discount)
}

// Cart is a priced, request-scoped cart
type Cart struct {
	Lines    []CartLine
	Currency string
	// Decimals is the number of currency minor digits amounts are rounded to
	Decimals int32
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Subtotal returns the sum of line subtotals
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Subtotal())
	}
	return total
}

// DiscountTotal returns the sum of line discounts
func (c *Cart) DiscountTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Discount)
	}
	return total
}

// ItemCount returns the number of units in the cart
func (c *Cart) ItemCount() int {
	n := 0
	for i := range c.Lines {
		n += c.Lines[i].Quantity
	}
	return n
}
