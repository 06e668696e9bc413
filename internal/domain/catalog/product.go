package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductType mirrors the WooCommerce product type
type ProductType string

const (
	ProductTypeSimple   ProductType = "simple"
	ProductTypeVariable ProductType = "variable"
	ProductTypeGrouped  ProductType = "grouped"
	ProductTypeExternal ProductType = "external"
)

// IsValid returns true if the product type is known
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeSimple, ProductTypeVariable, ProductTypeGrouped, ProductTypeExternal:
		return true
	default:
		return false
	}
}

// StockStatus mirrors the WooCommerce stock status
type StockStatus string

const (
	StockStatusInStock     StockStatus = "instock"
	StockStatusOutOfStock  StockStatus = "outofstock"
	StockStatusOnBackorder StockStatus = "onbackorder"
)

// IsValid returns true if the stock status is known
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusInStock, StockStatusOutOfStock, StockStatusOnBackorder:
		return true
	default:
		return false
	}
}

// ProductStatusPublish is the only status the storefront ever shows
const ProductStatusPublish = "publish"

// hundred is used for percentage arithmetic
var hundred = decimal.NewFromInt(100)

// Pricing is the normalized price block of a product or variation.
// WooCommerce sends prices as strings where an empty string means "not set".
type Pricing struct {
	// Price is the price the customer pays now
	Price decimal.Decimal
	// RegularPrice is the list price
	RegularPrice decimal.Decimal
	// SalePrice is the discounted price; equals RegularPrice when not on sale
	SalePrice decimal.Decimal
	// Currency is the ISO 4217 code of all amounts
	Currency string
	// OnSale is true when the sale price is below the regular price
	OnSale bool
	// DiscountPercentage is the whole-percent saving, 0 when not on sale
	DiscountPercentage int
}

// NewPricing builds a Pricing from the three WooCommerce price fields.
// A zero sale price falls back to the regular price, and a zero price
// falls back to the effective sale price.
func NewPricing(price, regular, sale decimal.Decimal, currency string) Pricing {
	if regular.IsZero() {
		regular = price
	}
	if sale.IsZero() {
		sale = regular
	}
	if price.IsZero() {
		price = sale
	}

	p := Pricing{
		Price:        price,
		RegularPrice: regular,
		SalePrice:    sale,
		Currency:     currency,
	}
	if regular.IsPositive() && sale.LessThan(regular) {
		p.OnSale = true
		p.DiscountPercentage = int(regular.Sub(sale).Div(regular).Mul(hundred).Round(0).IntPart())
	}
	return p
}

// Image is a product or category image
type Image struct {
	ID  int64
	Src string
	Alt string
}

// TermRef references a taxonomy term such as a category or tag
type TermRef struct {
	ID   int64
	Name string
	Slug string
}

// Attribute is a product attribute with its selectable options
type Attribute struct {
	Name      string
	Options   []string
	Variation bool
}

// Product represents a published WooCommerce product
type Product struct {
	ID               int64
	Name             string
	Slug             string
	Permalink        string
	Type             ProductType
	Status           string
	Featured         bool
	SKU              string
	ShortDescription string
	Description      string
	Pricing          Pricing
	Images           []Image
	Categories       []TermRef
	Tags             []TermRef
	Attributes       []Attribute
	StockStatus      StockStatus
	ManageStock      bool
	// StockQuantity is nil when stock is not managed
	StockQuantity     *int
	BackordersAllowed bool
	AverageRating     string
	RatingCount       int
	RelatedIDs        []int64
	VariationIDs      []int64
}

// IsPurchasable returns true if the product can be put in a cart
func (p *Product) IsPurchasable() bool {
	if p.Status != "" && p.Status != ProductStatusPublish {
		return false
	}
	if p.Type == ProductTypeGrouped || p.Type == ProductTypeExternal {
		return false
	}
	return p.StockStatus != StockStatusOutOfStock
}

// HasStockFor returns true if quantity units can be sold
func (p *Product) HasStockFor(quantity int) bool {
	return hasStockFor(p.ManageStock, p.StockQuantity, p.BackordersAllowed, quantity)
}

// CategoryIDs returns the ids of the categories the product belongs to
func (p *Product) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// VariationAttribute is the attribute option that identifies a variation
type VariationAttribute struct {
	Name   string
	Option string
}

// Variation represents one purchasable variant of a variable product
type Variation struct {
	ID                int64
	ParentID          int64
	SKU               string
	Status            string
	Pricing           Pricing
	StockStatus       StockStatus
	ManageStock       bool
	StockQuantity     *int
	BackordersAllowed bool
	Attributes        []VariationAttribute
	Image             *Image
}

// IsPurchasable returns true if the variation can be put in a cart
func (v *Variation) IsPurchasable() bool {
	if v.Status != "" && v.Status != ProductStatusPublish {
		return false
	}
	return v.StockStatus != StockStatusOutOfStock
}

// HasStockFor returns true if quantity units can be sold
func (v *Variation) HasStockFor(quantity int) bool {
	return hasStockFor(v.ManageStock, v.StockQuantity, v.BackordersAllowed, quantity)
}

// Label joins the attribute options, e.g. "Red / XL"
func (v *Variation) Label() string {
	parts := make([]string, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		if a.Option != "" {
			parts = append(parts, a.Option)
		}
	}
	return strings.Join(parts, " / ")
}

func hasStockFor(manage bool, qty *int, backorders bool, quantity int) bool {
	if !manage || qty == nil || backorders {
		return true
	}
	return *qty >= quantity
}
