package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
)

// ListProductsQuery is the query string of GET /products.
// Category accepts an id or a slug; Include is a comma separated id list.
type ListProductsQuery struct {
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PerPage     int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Category    string `form:"category" binding:"omitempty,max=200"`
	Tag         int64  `form:"tag" binding:"omitempty,min=1"`
	Search      string `form:"search" binding:"omitempty,max=200"`
	OrderBy     string `form:"orderby" binding:"omitempty,oneof=date price popularity rating title id menu_order"`
	Order       string `form:"order" binding:"omitempty,oneof=asc desc"`
	Featured    *bool  `form:"featured"`
	OnSale      *bool  `form:"on_sale"`
	MinPrice    string `form:"min_price" binding:"omitempty,numeric"`
	MaxPrice    string `form:"max_price" binding:"omitempty,numeric"`
	Include     string `form:"include" binding:"omitempty,max=1000"`
	StockStatus string `form:"stock_status" binding:"omitempty,oneof=instock outofstock onbackorder"`
}

// CreateReviewRequest is the body of POST /products/:id/reviews
type CreateReviewRequest struct {
	Reviewer      string `json:"reviewer" binding:"required,min=1,max=100"`
	ReviewerEmail string `json:"reviewer_email" binding:"required,email,max=200"`
	Review        string `json:"review" binding:"required,min=1,max=5000"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
}

// PricingResponse is the normalized price block
type PricingResponse struct {
	Price              decimal.Decimal `json:"price"`
	RegularPrice       decimal.Decimal `json:"regular_price"`
	SalePrice          decimal.Decimal `json:"sale_price"`
	Currency           string          `json:"currency"`
	OnSale             bool            `json:"on_sale"`
	DiscountPercentage int             `json:"discount_percentage"`
}

// ImageResponse is a product or category image
type ImageResponse struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// TermResponse is a category or tag reference
type TermResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// AttributeResponse is a product attribute
type AttributeResponse struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// ProductResponse is a product in API responses
type ProductResponse struct {
	ID               int64               `json:"id"`
	Name             string              `json:"name"`
	Slug             string              `json:"slug"`
	Permalink        string              `json:"permalink"`
	Type             string              `json:"type"`
	Status           string              `json:"status"`
	Featured         bool                `json:"featured"`
	SKU              string              `json:"sku"`
	ShortDescription string              `json:"short_description"`
	Description      string              `json:"description"`
	Pricing          PricingResponse     `json:"pricing"`
	Images           []ImageResponse     `json:"images"`
	Categories       []TermResponse      `json:"categories"`
	Tags             []TermResponse      `json:"tags"`
	Attributes       []AttributeResponse `json:"attributes"`
	StockStatus      string              `json:"stock_status"`
	StockQuantity    *int                `json:"stock_quantity"`
	AverageRating    string              `json:"average_rating"`
	RatingCount      int                 `json:"rating_count"`
	RelatedIDs       []int64             `json:"related_ids"`
	Variations       []int64             `json:"variations"`
}

// VariationAttributeResponse is the option that identifies a variation
type VariationAttributeResponse struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

// VariationResponse is a product variation in API responses
type VariationResponse struct {
	ID            int64                        `json:"id"`
	SKU           string                       `json:"sku"`
	Label         string                       `json:"label"`
	Pricing       PricingResponse              `json:"pricing"`
	StockStatus   string                       `json:"stock_status"`
	StockQuantity *int                         `json:"stock_quantity"`
	Attributes    []VariationAttributeResponse `json:"attributes"`
	Image         *ImageResponse               `json:"image"`
}

// CategoryResponse is a flat category
type CategoryResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Parent      int64          `json:"parent"`
	Description string         `json:"description"`
	Image       *ImageResponse `json:"image"`
	MenuOrder   int            `json:"menu_order"`
	Count       int            `json:"count"`
}

// CategoryNodeResponse is a category placed in the tree
type CategoryNodeResponse struct {
	CategoryResponse
	Depth    int                     `json:"depth"`
	Children []*CategoryNodeResponse `json:"children"`
}

// CategoryTreeResponse is the tree plus its depth-first flattening for menus
type CategoryTreeResponse struct {
	Tree []*CategoryNodeResponse `json:"tree"`
	Flat []CategoryNodeResponse  `json:"flat"`
}

// ReviewResponse is an approved review
type ReviewResponse struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	Reviewer    string    `json:"reviewer"`
	Review      string    `json:"review"`
	Rating      int       `json:"rating"`
	Verified    bool      `json:"verified"`
	DateCreated time.Time `json:"date_created"`
}

// PageMeta describes one page of a listing
type PageMeta struct {
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
}

// ProductListResponse is one page of products
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Meta     PageMeta          `json:"meta"`
}

// ReviewListResponse is one page of reviews
type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Meta    PageMeta         `json:"meta"`
}

// ToPricingResponse converts domain pricing
func ToPricingResponse(p catalog.Pricing) PricingResponse {
	return PricingResponse{
		Price:              p.Price,
		RegularPrice:       p.RegularPrice,
		SalePrice:          p.SalePrice,
		Currency:           p.Currency,
		OnSale:             p.OnSale,
		DiscountPercentage: p.DiscountPercentage,
	}
}

func toImageResponse(img *catalog.Image) *ImageResponse {
	if img == nil {
		return nil
	}
	return &ImageResponse{ID: img.ID, Src: img.Src, Alt: img.Alt}
}

func toTermResponses(terms []catalog.TermRef) []TermResponse {
	out := make([]TermResponse, 0, len(terms))
	for _, t := range terms {
		out = append(out, TermResponse{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return out
}

// ToProductResponse converts a domain product
func ToProductResponse(p *catalog.Product) ProductResponse {
	images := make([]ImageResponse, 0, len(p.Images))
	for i := range p.Images {
		images = append(images, *toImageResponse(&p.Images[i]))
	}
	attrs := make([]AttributeResponse, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		attrs = append(attrs, AttributeResponse{Name: a.Name, Options: a.Options})
	}
	related := p.RelatedIDs
	if related == nil {
		related = []int64{}
	}
	variations := p.VariationIDs
	if variations == nil {
		variations = []int64{}
	}
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Permalink:        p.Permalink,
		Type:             string(p.Type),
		Status:           p.Status,
		Featured:         p.Featured,
		SKU:              p.SKU,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Pricing:          ToPricingResponse(p.Pricing),
		Images:           images,
		Categories:       toTermResponses(p.Categories),
		Tags:             toTermResponses(p.Tags),
		Attributes:       attrs,
		StockStatus:      string(p.StockStatus),
		StockQuantity:    p.StockQuantity,
		AverageRating:    p.AverageRating,
		RatingCount:      p.RatingCount,
		RelatedIDs:       related,
		Variations:       variations,
	}
}

// ToProductResponses converts a list of domain products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, ToProductResponse(&products[i]))
	}
	return out
}

// ToVariationResponse converts a domain variation
func ToVariationResponse(v *catalog.Variation) VariationResponse {
	attrs := make([]VariationAttributeResponse, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		attrs = append(attrs, VariationAttributeResponse{Name: a.Name, Option: a.Option})
	}
	return VariationResponse{
		ID:            v.ID,
		SKU:           v.SKU,
		Label:         v.Label(),
		Pricing:       ToPricingResponse(v.Pricing),
		StockStatus:   string(v.StockStatus),
		StockQuantity: v.StockQuantity,
		Attributes:    attrs,
		Image:         toImageResponse(v.Image),
	}
}

// ToCategoryResponse converts a domain category
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Parent:      c.ParentID,
		Description: c.Description,
		Image:       toImageResponse(c.Image),
		MenuOrder:   c.MenuOrder,
		Count:       c.Count,
	}
}

// ToCategoryNodeResponses converts a category tree
func ToCategoryNodeResponses(nodes []*catalog.CategoryNode) []*CategoryNodeResponse {
	out := make([]*CategoryNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &CategoryNodeResponse{
			CategoryResponse: ToCategoryResponse(&n.Category),
			Depth:            n.Depth,
			Children:         ToCategoryNodeResponses(n.Children),
		})
	}
	return out
}

// ToReviewResponse converts a domain review
func ToReviewResponse(r *catalog.Review) ReviewResponse {
	return ReviewResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		Reviewer:    r.Reviewer,
		Review:      r.Review,
		Rating:      r.Rating,
		Verified:    r.Verified,
		DateCreated: r.DateCreated,
	}
}
