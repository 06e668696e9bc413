package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product listing bounds
const (
	DefaultPerPage = 12
	MaxPerPage     = 100
)

// ProductOrderBy is a sort key accepted by the WooCommerce products endpoint
type ProductOrderBy string

const (
	OrderByDate       ProductOrderBy = "date"
	OrderByPrice      ProductOrderBy = "price"
	OrderByPopularity ProductOrderBy = "popularity"
	OrderByRating     ProductOrderBy = "rating"
	OrderByTitle      ProductOrderBy = "title"
	OrderByID         ProductOrderBy = "id"
	OrderByMenuOrder  ProductOrderBy = "menu_order"
)

// IsValid returns true if the sort key is accepted upstream
func (o ProductOrderBy) IsValid() bool {
	switch o {
	case OrderByDate, OrderByPrice, OrderByPopularity, OrderByRating,
		OrderByTitle, OrderByID, OrderByMenuOrder:
		return true
	default:
		return false
	}
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	Page        int
	PerPage     int
	CategoryID  int64
	TagID       int64
	Slug        string
	Search      string
	OrderBy     ProductOrderBy
	Order       string
	Featured    *bool
	OnSale      *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Include     []int64
	StockStatus StockStatus
}

// Normalize clamps paging values into the accepted range
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = ""
	}
	if !f.OrderBy.IsValid() {
		f.OrderBy = ""
	}
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products   []Product
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ReviewPage is one page of product reviews
type ReviewPage struct {
	Reviews    []Review
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ProductSource is the port to the platform that owns the catalog.
// Implementations return integration sentinel errors.
type ProductSource interface {
	// ListProducts returns published products matching the filter
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	// GetProduct returns a single product by id
	GetProduct(ctx context.Context, id int64) (*Product, error)
	// ListVariations returns every variation of a variable product
	ListVariations(ctx context.Context, productID int64) ([]Variation, error)
	// GetVariation returns one variation of a variable product
	GetVariation(ctx context.Context, productID, variationID int64) (*Variation, error)
}

// CategorySource is the port for product categories
type CategorySource interface {
	// ListCategories returns every product category, unordered
	ListCategories(ctx context.Context) ([]Category, error)
}

// ReviewSource is the port for product reviews
type ReviewSource interface {
	// ListReviews returns approved reviews of a product
	ListReviews(ctx context.Context, productID int64, page, perPage int) (*ReviewPage, error)
	// CreateReview submits a review for moderation
	CreateReview(ctx context.Context, review NewReview) (*Review, error)
}
