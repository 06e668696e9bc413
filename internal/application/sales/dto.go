package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
)

// =============================================================================
// Requests
// =============================================================================

// CartItemRequest is one cart line as the browser sends it; prices are never accepted
type CartItemRequest struct {
	ProductID   int64 `json:"product_id" binding:"required,min=1"`
	VariationID int64 `json:"variation_id" binding:"omitempty,min=0"`
	Quantity    int   `json:"quantity" binding:"required,min=1,max=999"`
}

// QuoteCartRequest is the body of POST /cart/quote
type QuoteCartRequest struct {
	Items   []CartItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
	Coupons []string          `json:"coupons" binding:"omitempty,max=10,dive,max=100"`
	Email   string            `json:"email" binding:"omitempty,email"`
}

// ValidateCouponRequest is the body of POST /coupons/validate
type ValidateCouponRequest struct {
	Code  string            `json:"code" binding:"required,min=1,max=100"`
	Items []CartItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
	Email string            `json:"email" binding:"omitempty,email"`
}

// AddressRequest is a billing or shipping address
type AddressRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Company   string `json:"company" binding:"omitempty,max=100"`
	Address1  string `json:"address_1" binding:"required,max=200"`
	Address2  string `json:"address_2" binding:"omitempty,max=200"`
	City      string `json:"city" binding:"required,max=100"`
	State     string `json:"state" binding:"omitempty,max=100"`
	Postcode  string `json:"postcode" binding:"omitempty,max=20"`
	Country   string `json:"country" binding:"required,len=2"`
	Email     string `json:"email" binding:"omitempty,email,max=200"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
}

// BillingRequest is the billing address; email and phone are mandatory
type BillingRequest struct {
	AddressRequest
	Email string `json:"email" binding:"required,email,max=200"`
	Phone string `json:"phone" binding:"required,min=6,max=30"`
}

// CheckoutRequest is the body of POST /checkout
type CheckoutRequest struct {
	Items        []CartItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
	Coupons      []string          `json:"coupons" binding:"omitempty,max=10,dive,max=100"`
	Billing      BillingRequest    `json:"billing" binding:"required"`
	Shipping     *AddressRequest   `json:"shipping"`
	CustomerNote string            `json:"customer_note" binding:"omitempty,max=1000"`
}

// TrackOrderRequest is the body of POST /orders/track
type TrackOrderRequest struct {
	OrderID int64  `json:"order_id" binding:"required,min=1"`
	Email   string `json:"email" binding:"required,email"`
}

func toCartItems(items []CartItemRequest) []sales.CartItem {
	out := make([]sales.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, sales.CartItem{ProductID: it.ProductID, VariationID: it.VariationID, Quantity: it.Quantity})
	}
	return out
}

func (a AddressRequest) toAddress() sales.Address {
	return sales.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func (b BillingRequest) toAddress() sales.Address {
	addr := b.AddressRequest.toAddress()
	addr.Email = b.Email
	addr.Phone = b.Phone
	return addr
}

// =============================================================================
// Responses
// =============================================================================

// CartLineResponse is a priced cart line
type CartLineResponse struct {
	ProductID    int64           `json:"product_id"`
	VariationID  int64           `json:"variation_id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Image        string          `json:"image"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	OnSale       bool            `json:"on_sale"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// AppliedCouponResponse is a coupon that was applied
type AppliedCouponResponse struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"free_shipping"`
}

// CouponErrorResponse explains why a coupon was refused
type CouponErrorResponse struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ShippingResponse is the shipping part of a quote
type ShippingResponse struct {
	Method        string          `json:"method"`
	Title         string          `json:"title"`
	Cost          decimal.Decimal `json:"cost"`
	Free          bool            `json:"free"`
	CouponGranted bool            `json:"coupon_granted"`
	Threshold     decimal.Decimal `json:"threshold"`
	Remaining     decimal.Decimal `json:"remaining"`
	Progress      int             `json:"progress"`
}

// QuoteResponse is a priced cart
type QuoteResponse struct {
	Currency      string                  `json:"currency"`
	Lines         []CartLineResponse      `json:"lines"`
	Coupons       []AppliedCouponResponse `json:"coupons"`
	CouponErrors  []CouponErrorResponse   `json:"coupon_errors"`
	Shipping      ShippingResponse        `json:"shipping"`
	ItemCount     int                     `json:"item_count"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	DiscountTotal decimal.Decimal         `json:"discount_total"`
	ShippingTotal decimal.Decimal         `json:"shipping_total"`
	Total         decimal.Decimal         `json:"total"`
}

// CouponValidationResponse is the answer of POST /coupons/validate
type CouponValidationResponse struct {
	Valid        bool            `json:"valid"`
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"free_shipping"`
	Reason       string          `json:"reason,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// ShopSettingsResponse is what the storefront needs to render prices and shipping banners
type ShopSettingsResponse struct {
	Currency              string          `json:"currency"`
	CurrencyDecimals      int32           `json:"currency_decimals"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	FreeShippingEnabled   bool            `json:"free_shipping_enabled"`
	IgnoreDiscounts       bool            `json:"free_shipping_ignore_discounts"`
	FlatRate              decimal.Decimal `json:"flat_rate"`
	FlatRateTitle         string          `json:"flat_rate_title"`
}

// AddressResponse is an order address
type AddressResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OrderLineResponse is an order line
type OrderLineResponse struct {
	ProductID   int64           `json:"product_id"`
	VariationID int64           `json:"variation_id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Image       string          `json:"image"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
}

// OrderCouponResponse is a coupon recorded on an order
type OrderCouponResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// OrderShippingResponse is a shipping charge recorded on an order
type OrderShippingResponse struct {
	Method string          `json:"method"`
	Title  string          `json:"title"`
	Total  decimal.Decimal `json:"total"`
}

// OrderResponse is the shopper's view of an order
type OrderResponse struct {
	ID                 int64                   `json:"id"`
	Number             string                  `json:"number"`
	Status             string                  `json:"status"`
	Currency           string                  `json:"currency"`
	DateCreated        time.Time               `json:"date_created"`
	DatePaid           *time.Time              `json:"date_paid"`
	Subtotal           decimal.Decimal         `json:"subtotal"`
	DiscountTotal      decimal.Decimal         `json:"discount_total"`
	ShippingTotal      decimal.Decimal         `json:"shipping_total"`
	TotalTax           decimal.Decimal         `json:"total_tax"`
	Total              decimal.Decimal         `json:"total"`
	Billing            AddressResponse         `json:"billing"`
	Shipping           AddressResponse         `json:"shipping"`
	Lines              []OrderLineResponse     `json:"lines"`
	Coupons            []OrderCouponResponse   `json:"coupons"`
	ShippingLines      []OrderShippingResponse `json:"shipping_lines"`
	PaymentMethod      string                  `json:"payment_method"`
	PaymentMethodTitle string                  `json:"payment_method_title"`
	CustomerNote       string                  `json:"customer_note"`
	CanPay             bool                    `json:"can_pay"`
}

// OrderNoteResponse is a customer visible order note
type OrderNoteResponse struct {
	ID          int64     `json:"id"`
	Note        string    `json:"note"`
	DateCreated time.Time `json:"date_created"`
}

// PaymentFormResponse is what the browser needs to open the payment form.
// Error is set instead when the gateway could not issue a form token.
type PaymentFormResponse struct {
	Gateway   string     `json:"gateway"`
	FormToken string     `json:"form_token,omitempty"`
	PublicKey string     `json:"public_key,omitempty"`
	Mode      string     `json:"mode,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// OrderTokenResponse is a tracking token for an order
type OrderTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckoutResponse is the answer of POST /checkout
type CheckoutResponse struct {
	Order   OrderResponse       `json:"order"`
	Token   OrderTokenResponse  `json:"order_token"`
	Payment PaymentFormResponse `json:"payment"`
}

// TrackOrderResponse is the answer of POST /orders/track
type TrackOrderResponse struct {
	Order OrderResponse      `json:"order"`
	Token OrderTokenResponse `json:"order_token"`
}

// PaymentTransactionResponse is a journal entry seen by the shopper
type PaymentTransactionResponse struct {
	TransactionUUID string          `json:"transaction_uuid"`
	Gateway         string          `json:"gateway"`
	Status          string          `json:"status"`
	GatewayStatus   string          `json:"gateway_status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method"`
	CreatedAt       time.Time       `json:"created_at"`
}

// =============================================================================
// Converters
// =============================================================================

func toAddressResponse(a sales.Address) AddressResponse {
	return AddressResponse{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *sales.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Name:        l.Name,
			SKU:         l.SKU,
			Image:       l.ImageSrc,
			Quantity:    l.Quantity,
			Price:       l.Price,
			Subtotal:    l.Subtotal,
			Total:       l.Total,
		})
	}
	coupons := make([]OrderCouponResponse, 0, len(o.CouponLines))
	for _, c := range o.CouponLines {
		coupons = append(coupons, OrderCouponResponse{Code: c.Code, Discount: c.Discount})
	}
	shipping := make([]OrderShippingResponse, 0, len(o.ShippingLines))
	for _, s := range o.ShippingLines {
		shipping = append(shipping, OrderShippingResponse{Method: string(s.MethodID), Title: s.MethodTitle, Total: s.Total})
	}
	return OrderResponse{
		ID:                 o.ID,
		Number:             o.Number,
		Status:             o.Status.String(),
		Currency:           o.Currency,
		DateCreated:        o.DateCreated,
		DatePaid:           o.DatePaid,
		Subtotal:           o.Subtotal(),
		DiscountTotal:      o.DiscountTotal,
		ShippingTotal:      o.ShippingTotal,
		TotalTax:           o.TotalTax,
		Total:              o.Total,
		Billing:            toAddressResponse(o.Billing),
		Shipping:           toAddressResponse(o.Shipping),
		Lines:              lines,
		Coupons:            coupons,
		ShippingLines:      shipping,
		PaymentMethod:      o.PaymentMethod,
		PaymentMethodTitle: o.PaymentMethodTitle,
		CustomerNote:       o.CustomerNote,
		CanPay:             o.Status.CanStartPayment(),
	}
}

// ToQuoteResponse converts a domain quote
func ToQuoteResponse(q *sales.Quote) QuoteResponse {
	lines := make([]CartLineResponse, 0, len(q.Cart.Lines))
	for i := range q.Cart.Lines {
		l := &q.Cart.Lines[i]
		lines = append(lines, CartLineResponse{
			ProductID:    l.ProductID,
			VariationID:  l.VariationID,
			Name:         l.Name,
			SKU:          l.SKU,
			Image:        l.ImageSrc,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			RegularPrice: l.RegularPrice,
			OnSale:       l.OnSale,
			Subtotal:     l.Subtotal(),
			Discount:     l.Discount,
			Total:        l.Total(),
		})
	}
	coupons := make([]AppliedCouponResponse, 0, len(q.Coupons))
	for _, c := range q.Coupons {
		coupons = append(coupons, AppliedCouponResponse{
			Code:         c.Code,
			DiscountType: c.DiscountType.String(),
			Discount:     c.Discount,
			FreeShipping: c.FreeShipping,
		})
	}
	rejections := make([]CouponErrorResponse, 0, len(q.Rejections))
	for _, r := range q.Rejections {
		rejections = append(rejections, toCouponError(r.Code, r.Err))
	}
	return QuoteResponse{
		Currency:     q.Cart.Currency,
		Lines:        lines,
		Coupons:      coupons,
		CouponErrors: rejections,
		Shipping: ShippingResponse{
			Method:        string(q.Shipping.Method),
			Title:         q.Shipping.Title,
			Cost:          q.Shipping.Cost,
			Free:          q.Shipping.Free,
			CouponGranted: q.Shipping.CouponGranted,
			Threshold:     q.Shipping.Threshold,
			Remaining:     q.Shipping.Remaining,
			Progress:      q.Shipping.Progress,
		},
		ItemCount:     q.Cart.ItemCount(),
		Subtotal:      q.Subtotal,
		DiscountTotal: q.DiscountTotal,
		ShippingTotal: q.ShippingTotal,
		Total:         q.Total,
	}
}

// ToPaymentTransactionResponse converts a journal entry
func ToPaymentTransactionResponse(tx *payment.Transaction) PaymentTransactionResponse {
	return PaymentTransactionResponse{
		TransactionUUID: tx.TransactionUUID,
		Gateway:         tx.GatewayType.String(),
		Status:          tx.Status.String(),
		GatewayStatus:   tx.GatewayStatus,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		PaymentMethod:   tx.PaymentMethod,
		CreatedAt:       tx.CreatedAt,
	}
}
