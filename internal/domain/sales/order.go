package sales

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the WooCommerce order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusDraft      OrderStatus = "checkout-draft"
)

// IsValid returns true if the status is a known WooCommerce status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOnHold, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed, OrderStatusDraft:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true if the order will not change status on its own
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// CanStartPayment returns true if the shopper may (re)open a payment form
func (s OrderStatus) CanStartPayment() bool {
	return s == OrderStatusPending || s == OrderStatusFailed
}

// CanBeMarkedPaid returns true if a gateway confirmation may move the order to processing
func (s OrderStatus) CanBeMarkedPaid() bool {
	return s == OrderStatusPending || s == OrderStatusOnHold || s == OrderStatusFailed
}

// Address is a billing or shipping address
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	State     string
	Postcode  string
	Country   string
	Email     string
	Phone     string
}

// FullName joins first and last name
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// IsZero returns true if no field is set
func (a Address) IsZero() bool {
	return a == Address{}
}

// OrderLine is a line item of a placed order
type OrderLine struct {
	ID          int64
	ProductID   int64
	VariationID int64
	Name        string
	SKU         string
	Quantity    int
	Price       decimal.Decimal
	Subtotal    decimal.Decimal
	Total       decimal.Decimal
	ImageSrc    string
}

// CouponLine is a coupon recorded on an order
type CouponLine struct {
	ID       int64
	Code     string
	Discount decimal.Decimal
}

// ShippingLine is a shipping charge recorded on an order
type ShippingLine struct {
	ID          int64
	MethodID    ShippingMethod
	MethodTitle string
	Total       decimal.Decimal
}

// Order is a WooCommerce order
type Order struct {
	ID                 int64
	Number             string
	OrderKey           string
	Status             OrderStatus
	Currency           string
	DateCreated        time.Time
	DatePaid           *time.Time
	Total              decimal.Decimal
	TotalTax           decimal.Decimal
	DiscountTotal      decimal.Decimal
	ShippingTotal      decimal.Decimal
	Billing            Address
	Shipping           Address
	Lines              []OrderLine
	CouponLines        []CouponLine
	ShippingLines      []ShippingLine
	PaymentMethod      string
	PaymentMethodTitle string
	TransactionID      string
	CustomerNote       string
}

// Subtotal returns the sum of line subtotals before discounts
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// BillingEmailMatches compares email with the billing email, ignoring case and surrounding space
func (o *Order) BillingEmailMatches(email string) bool {
	want := strings.ToLower(strings.TrimSpace(o.Billing.Email))
	got := strings.ToLower(strings.TrimSpace(email))
	return want != "" && want == got
}

// OrderNote is a note attached to an order
type OrderNote struct {
	ID           int64
	Note         string
	CustomerNote bool
	DateCreated  time.Time
}

// NewOrderLine asks the platform for a product; the platform prices it
type NewOrderLine struct {
	ProductID   int64
	VariationID int64
	Quantity    int
}

// NewOrder is the order the storefront asks the platform to create
type NewOrder struct {
	Status             OrderStatus
	Currency           string
	PaymentMethod      string
	PaymentMethodTitle string
	SetPaid            bool
	Billing            Address
	Shipping           Address
	Lines              []NewOrderLine
	CouponCodes        []string
	ShippingLines      []ShippingLine
	CustomerNote       string
	MetaData           map[string]string
}

// OrderUpdate changes selected fields of an order; nil fields are left alone
type OrderUpdate struct {
	Status        *OrderStatus
	SetPaid       *bool
	TransactionID *string
}
