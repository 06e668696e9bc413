package woocommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Scalar helpers
// ---------------------------------------------------------------------------

// Money decodes WooCommerce amounts, which arrive as strings ("12.50", "")
// or as numbers depending on the resource. Empty and null become zero.
type Money struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

// MarshalJSON writes the amount as a string, as WooCommerce expects on input
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.String())
}

// flexBool accepts true/false as well as the "parent" marker variations use
// for manage_stock; anything other than a JSON true or "yes" decodes as false
type flexBool bool

// UnmarshalJSON implements json.Unmarshaler
func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "yes", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// gmtTime decodes the *_gmt timestamps, which carry no zone designator
type gmtTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *gmtTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339} {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return &time.ParseError{Layout: "2006-01-02T15:04:05", Value: raw}
}

// ptr returns a pointer to the time or nil when unset
func (t gmtTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ---------------------------------------------------------------------------
// Catalog resources
// ---------------------------------------------------------------------------

type wcImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type wcTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type wcAttribute struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Options   []string `json:"options"`
	Option    string   `json:"option"`
	Variation bool     `json:"variation"`
}

type wcProduct struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	Slug             string        `json:"slug"`
	Permalink        string        `json:"permalink"`
	Type             string        `json:"type"`
	Status           string        `json:"status"`
	Featured         bool          `json:"featured"`
	SKU              string        `json:"sku"`
	Price            Money         `json:"price"`
	RegularPrice     Money         `json:"regular_price"`
	SalePrice        Money         `json:"sale_price"`
	ShortDescription string        `json:"short_description"`
	Description      string        `json:"description"`
	Images           []wcImage     `json:"images"`
	Categories       []wcTerm      `json:"categories"`
	Tags             []wcTerm      `json:"tags"`
	Attributes       []wcAttribute `json:"attributes"`
	StockStatus      string        `json:"stock_status"`
	ManageStock      flexBool      `json:"manage_stock"`
	StockQuantity    *int          `json:"stock_quantity"`
	Backorders       string        `json:"backorders"`
	AverageRating    string        `json:"average_rating"`
	RatingCount      int           `json:"rating_count"`
	RelatedIDs       []int64       `json:"related_ids"`
	Variations       []int64       `json:"variations"`
}

type wcVariation struct {
	ID            int64         `json:"id"`
	SKU           string        `json:"sku"`
	Status        string        `json:"status"`
	Price         Money         `json:"price"`
	RegularPrice  Money         `json:"regular_price"`
	SalePrice     Money         `json:"sale_price"`
	StockStatus   string        `json:"stock_status"`
	ManageStock   flexBool      `json:"manage_stock"`
	StockQuantity *int          `json:"stock_quantity"`
	Backorders    string        `json:"backorders"`
	Attributes    []wcAttribute `json:"attributes"`
	Image         *wcImage      `json:"image"`
}

type wcCategory struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Parent      int64    `json:"parent"`
	Description string   `json:"description"`
	Display     string   `json:"display"`
	Image       *wcImage `json:"image"`
	MenuOrder   int      `json:"menu_order"`
	Count       int      `json:"count"`
}

type wcReview struct {
	ID             int64   `json:"id,omitempty"`
	DateCreatedGMT gmtTime `json:"date_created_gmt"`
	ProductID      int64   `json:"product_id"`
	Status         string  `json:"status,omitempty"`
	Reviewer       string  `json:"reviewer"`
	ReviewerEmail  string  `json:"reviewer_email,omitempty"`
	Review         string  `json:"review"`
	Rating         int     `json:"rating"`
	Verified       bool    `json:"verified"`
}

// wcReviewCreate is the write payload; it leaves out read-only fields
type wcReviewCreate struct {
	ProductID     int64  `json:"product_id"`
	Review        string `json:"review"`
	Reviewer      string `json:"reviewer"`
	ReviewerEmail string `json:"reviewer_email"`
	Rating        int    `json:"rating"`
	Status        string `json:"status"`
}

// ---------------------------------------------------------------------------
// Sales resources
// ---------------------------------------------------------------------------

type wcCoupon struct {
	ID                        int64    `json:"id"`
	Code                      string   `json:"code"`
	Amount                    Money    `json:"amount"`
	DiscountType              string   `json:"discount_type"`
	Description               string   `json:"description"`
	DateExpiresGMT            gmtTime  `json:"date_expires_gmt"`
	UsageCount                int      `json:"usage_count"`
	IndividualUse             bool     `json:"individual_use"`
	ProductIDs                []int64  `json:"product_ids"`
	ExcludedProductIDs        []int64  `json:"excluded_product_ids"`
	UsageLimit                *int     `json:"usage_limit"`
	UsageLimitPerUser         *int     `json:"usage_limit_per_user"`
	FreeShipping              bool     `json:"free_shipping"`
	ProductCategories         []int64  `json:"product_categories"`
	ExcludedProductCategories []int64  `json:"excluded_product_categories"`
	ExcludeSaleItems          bool     `json:"exclude_sale_items"`
	MinimumAmount             Money    `json:"minimum_amount"`
	MaximumAmount             Money    `json:"maximum_amount"`
	EmailRestrictions         []string `json:"email_restrictions"`
	UsedBy                    []string `json:"used_by"`
}

type wcAddress struct {
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

type wcLineItem struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ProductID   int64    `json:"product_id"`
	VariationID int64    `json:"variation_id"`
	Quantity    int      `json:"quantity"`
	Subtotal    Money    `json:"subtotal"`
	Total       Money    `json:"total"`
	SKU         string   `json:"sku"`
	Price       Money    `json:"price"`
	Image       *wcImage `json:"image"`
}

type wcCouponLine struct {
	ID       int64  `json:"id,omitempty"`
	Code     string `json:"code"`
	Discount *Money `json:"discount,omitempty"`
}

type wcShippingLine struct {
	ID          int64  `json:"id,omitempty"`
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       Money  `json:"total"`
}

type wcMeta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type wcOrder struct {
	ID                 int64            `json:"id"`
	Number             string           `json:"number"`
	OrderKey           string           `json:"order_key"`
	Status             string           `json:"status"`
	Currency           string           `json:"currency"`
	DateCreatedGMT     gmtTime          `json:"date_created_gmt"`
	DatePaidGMT        gmtTime          `json:"date_paid_gmt"`
	Total              Money            `json:"total"`
	TotalTax           Money            `json:"total_tax"`
	DiscountTotal      Money            `json:"discount_total"`
	ShippingTotal      Money            `json:"shipping_total"`
	Billing            wcAddress        `json:"billing"`
	Shipping           wcAddress        `json:"shipping"`
	LineItems          []wcLineItem     `json:"line_items"`
	CouponLines        []wcCouponLine   `json:"coupon_lines"`
	ShippingLines      []wcShippingLine `json:"shipping_lines"`
	PaymentMethod      string           `json:"payment_method"`
	PaymentMethodTitle string           `json:"payment_method_title"`
	TransactionID      string           `json:"transaction_id"`
	CustomerNote       string           `json:"customer_note"`
}

type wcOrderLineCreate struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id,omitempty"`
	Quantity    int   `json:"quantity"`
}

type wcOrderCreate struct {
	Status             string              `json:"status"`
	Currency           string              `json:"currency,omitempty"`
	PaymentMethod      string              `json:"payment_method"`
	PaymentMethodTitle string              `json:"payment_method_title"`
	SetPaid            bool                `json:"set_paid"`
	Billing            wcAddress           `json:"billing"`
	Shipping           wcAddress           `json:"shipping"`
	LineItems          []wcOrderLineCreate `json:"line_items"`
	CouponLines        []wcCouponLine      `json:"coupon_lines,omitempty"`
	ShippingLines      []wcShippingLine    `json:"shipping_lines,omitempty"`
	CustomerNote       string              `json:"customer_note,omitempty"`
	MetaData           []wcMeta            `json:"meta_data,omitempty"`
}

type wcOrderUpdate struct {
	Status        *string `json:"status,omitempty"`
	SetPaid       *bool   `json:"set_paid,omitempty"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

type wcOrderNote struct {
	ID             int64   `json:"id"`
	Note           string  `json:"note"`
	CustomerNote   bool    `json:"customer_note"`
	DateCreatedGMT gmtTime `json:"date_created_gmt"`
}

type wcOrderNoteCreate struct {
	Note         string `json:"note"`
	CustomerNote bool   `json:"customer_note"`
}

type wcSettingValue struct {
	Value any `json:"value"`
}

type wcShippingMethod struct {
	InstanceID int64                     `json:"instance_id"`
	MethodID   string                    `json:"method_id"`
	Enabled    bool                      `json:"enabled"`
	Settings   map[string]wcSettingValue `json:"settings"`
}
