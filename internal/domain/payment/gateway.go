package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Request errors
	ErrPaymentInvalidOrderID  = errors.New("payment: invalid order ID")
	ErrPaymentInvalidAmount   = errors.New("payment: invalid payment amount")
	ErrPaymentInvalidCurrency = errors.New("payment: invalid currency")
	ErrPaymentInvalidEmail    = errors.New("payment: customer email is required")

	// Gateway errors
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback signature")
	ErrGatewayUnsupportedHash = errors.New("payment: unsupported callback hash algorithm")
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// GatewayType represents the type of payment gateway
type GatewayType string

const (
	// GatewayTypeIzipay represents the Izipay (Lyra) gateway
	GatewayTypeIzipay GatewayType = "IZIPAY"
)

// String returns the string representation of GatewayType
func (t GatewayType) String() string {
	return string(t)
}

// Status represents the status of a payment as reported by the gateway
type Status string

const (
	// StatusPending indicates the shopper has not finished paying
	StatusPending Status = "PENDING"
	// StatusPaid indicates the payment was captured or authorised
	StatusPaid Status = "PAID"
	// StatusFailed indicates the payment was refused
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the shopper abandoned the payment
	StatusCancelled Status = "CANCELLED"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsFinal returns true if the status will not change any more
func (s Status) IsFinal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCancelled
}

// ---------------------------------------------------------------------------
// Requests and notifications
// ---------------------------------------------------------------------------

// Customer identifies the payer for the gateway's fraud checks
type Customer struct {
	Email     string
	Reference string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	City      string
	State     string
	Postcode  string
	Country   string
}

// FormTokenRequest asks the gateway for an embedded payment form
type FormTokenRequest struct {
	// OrderID is the platform order id, sent to the gateway as orderId
	OrderID     int64
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Customer    Customer
	// NotifyURL overrides the IPN URL configured in the merchant back office
	NotifyURL string
	Metadata  map[string]string
}

// Validate validates the form token request
func (r *FormTokenRequest) Validate() error {
	if r.OrderID <= 0 {
		return ErrPaymentInvalidOrderID
	}
	if !r.Amount.IsPositive() {
		return ErrPaymentInvalidAmount
	}
	if len(r.Currency) != 3 {
		return ErrPaymentInvalidCurrency
	}
	if strings.TrimSpace(r.Customer.Email) == "" {
		return ErrPaymentInvalidEmail
	}
	return nil
}

// FormToken is what the browser needs to render the gateway's payment form
type FormToken struct {
	Token     string
	PublicKey string
	// Mode is TEST or PRODUCTION
	Mode      string
	ExpiresAt *time.Time
}

// SignedFields are the fields a gateway posts back, signed with an HMAC
type SignedFields struct {
	Answer        string
	Hash          string
	HashAlgorithm string
	HashKey       string
	AnswerType    string
}

// Notification is a verified payment notification
type Notification struct {
	GatewayType GatewayType
	// OrderID is the platform order id the payment belongs to
	OrderID         string
	Status          Status
	GatewayStatus   string
	DetailedStatus  string
	TransactionUUID string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   string
	PaidAt          *time.Time
	// RawAnswer is the signed payload exactly as the gateway sent it
	RawAnswer string
}

// IdempotencyKey identifies the notification for duplicate detection
func (n *Notification) IdempotencyKey() string {
	ref := n.TransactionUUID
	if ref == "" {
		ref = "order-" + n.OrderID
	}
	return string(n.GatewayType) + ":" + ref + ":" + n.GatewayStatus
}

// ---------------------------------------------------------------------------
// Port
// ---------------------------------------------------------------------------

// Gateway is the port to a hosted payment form provider
type Gateway interface {
	// GatewayType returns the type of this payment gateway
	GatewayType() GatewayType

	// CreateFormToken registers a payment and returns a form token for the browser
	CreateFormToken(ctx context.Context, req *FormTokenRequest) (*FormToken, error)

	// VerifyNotification verifies and parses a server-to-server notification
	VerifyNotification(ctx context.Context, fields SignedFields) (*Notification, error)

	// VerifyBrowserReturn verifies and parses the answer handed to the browser
	VerifyBrowserReturn(ctx context.Context, fields SignedFields) (*Notification, error)

	// NotificationResponse returns the body to acknowledge a notification with
	NotificationResponse(success bool) (contentType string, body []byte)
}
