package woocommerce

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/sales"
)

// Adapter implements the catalog and sales ports on top of the WooCommerce REST API
type Adapter struct {
	client   *Client
	currency string
}

var (
	_ catalog.ProductSource  = (*Adapter)(nil)
	_ catalog.CategorySource = (*Adapter)(nil)
	_ catalog.ReviewSource   = (*Adapter)(nil)
	_ sales.CouponSource     = (*Adapter)(nil)
	_ sales.OrderGateway     = (*Adapter)(nil)
	_ sales.ShippingSource   = (*Adapter)(nil)
)

// NewAdapter creates an adapter; currency labels the prices of products,
// which WooCommerce sends without a currency
func NewAdapter(client *Client, currency string) *Adapter {
	return &Adapter{client: client, currency: currency}
}

// Ping checks that the store answers
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ListProducts returns published products matching the filter
func (a *Adapter) ListProducts(ctx context.Context, filter catalog.ProductFilter) (*catalog.ProductPage, error) {
	filter.Normalize()
	q := url.Values{}
	q.Set("status", catalog.ProductStatusPublish)
	q.Set("page", strconv.Itoa(filter.Page))
	q.Set("per_page", strconv.Itoa(filter.PerPage))
	if filter.CategoryID > 0 {
		q.Set("category", formatID(filter.CategoryID))
	}
	if filter.TagID > 0 {
		q.Set("tag", formatID(filter.TagID))
	}
	if filter.Slug != "" {
		q.Set("slug", filter.Slug)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.OrderBy != "" {
		q.Set("orderby", string(filter.OrderBy))
	}
	if filter.Order != "" {
		q.Set("order", filter.Order)
	}
	if filter.Featured != nil {
		q.Set("featured", strconv.FormatBool(*filter.Featured))
	}
	if filter.OnSale != nil {
		q.Set("on_sale", strconv.FormatBool(*filter.OnSale))
	}
	if filter.MinPrice != nil {
		q.Set("min_price", filter.MinPrice.String())
	}
	if filter.MaxPrice != nil {
		q.Set("max_price", filter.MaxPrice.String())
	}
	if len(filter.Include) > 0 {
		q.Set("include", idList(filter.Include))
	}
	if filter.StockStatus != "" {
		q.Set("stock_status", string(filter.StockStatus))
	}

	var raw []wcProduct
	paging, err := a.client.Get(ctx, "products", q, &raw)
	if err != nil {
		return nil, err
	}

	page := &catalog.ProductPage{
		Products:   make([]catalog.Product, 0, len(raw)),
		Total:      paging.Total,
		TotalPages: paging.TotalPages,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	}
	for i := range raw {
		page.Products = append(page.Products, toProduct(&raw[i], a.currency))
	}
	return page, nil
}

// GetProduct returns a published product by id
func (a *Adapter) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	var raw wcProduct
	if _, err := a.client.Get(ctx, "products/"+formatID(id), nil, &raw); err != nil {
		return nil, err
	}
	if raw.Status != "" && raw.Status != catalog.ProductStatusPublish {
		return nil, fmt.Errorf("%w: product %d is not published", integration.ErrPlatformNotFound, id)
	}
	p := toProduct(&raw, a.currency)
	return &p, nil
}

// ListVariations returns every variation of a variable product
func (a *Adapter) ListVariations(ctx context.Context, productID int64) ([]catalog.Variation, error) {
	raw, err := ListAll[wcVariation](ctx, a.client, "products/"+formatID(productID)+"/variations", nil)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Variation, 0, len(raw))
	for i := range raw {
		out = append(out, toVariation(&raw[i], productID, a.currency))
	}
	return out, nil
}

// GetVariation returns one variation of a variable product
func (a *Adapter) GetVariation(ctx context.Context, productID, variationID int64) (*catalog.Variation, error) {
	var raw wcVariation
	path := "products/" + formatID(productID) + "/variations/" + formatID(variationID)
	if _, err := a.client.Get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	v := toVariation(&raw, productID, a.currency)
	return &v, nil
}

// ---------------------------------------------------------------------------
// Categories and reviews
// ---------------------------------------------------------------------------

// ListCategories returns every product category
func (a *Adapter) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	raw, err := ListAll[wcCategory](ctx, a.client, "products/categories", nil)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Category, 0, len(raw))
	for i := range raw {
		out = append(out, toCategory(&raw[i]))
	}
	return out, nil
}

// ListReviews returns approved reviews of a product
func (a *Adapter) ListReviews(ctx context.Context, productID int64, page, perPage int) (*catalog.ReviewPage, error) {
	q := url.Values{}
	q.Set("product", formatID(productID))
	q.Set("status", "approved")
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var raw []wcReview
	paging, err := a.client.Get(ctx, "products/reviews", q, &raw)
	if err != nil {
		return nil, err
	}
	out := &catalog.ReviewPage{
		Reviews:    make([]catalog.Review, 0, len(raw)),
		Total:      paging.Total,
		TotalPages: paging.TotalPages,
		Page:       page,
		PerPage:    perPage,
	}
	for i := range raw {
		out.Reviews = append(out.Reviews, toReview(&raw[i]))
	}
	return out, nil
}

// CreateReview submits a review for moderation
func (a *Adapter) CreateReview(ctx context.Context, review catalog.NewReview) (*catalog.Review, error) {
	req := wcReviewCreate{
		ProductID:     review.ProductID,
		Review:        review.Review,
		Reviewer:      review.Reviewer,
		ReviewerEmail: review.ReviewerEmail,
		Rating:        review.Rating,
		Status:        review.Status,
	}
	var raw wcReview
	if err := a.client.Post(ctx, "products/reviews", req, &raw); err != nil {
		return nil, err
	}
	r := toReview(&raw)
	return &r, nil
}

// ---------------------------------------------------------------------------
// Coupons and shipping
// ---------------------------------------------------------------------------

// FindCouponByCode returns the coupon with the given code or sales.ErrCouponNotFound
func (a *Adapter) FindCouponByCode(ctx context.Context, code string) (*sales.Coupon, error) {
	code = sales.NormalizeCouponCode(code)
	q := url.Values{}
	q.Set("code", code)

	var raw []wcCoupon
	if _, err := a.client.Get(ctx, "coupons", q, &raw); err != nil {
		return nil, err
	}
	for i := range raw {
		if sales.NormalizeCouponCode(raw[i].Code) == code {
			c := toCoupon(&raw[i])
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", sales.ErrCouponNotFound, code)
}

// FreeShippingMinAmount reads min_amount from the zone's enabled free shipping method
func (a *Adapter) FreeShippingMinAmount(ctx context.Context, zoneID int64) (decimal.Decimal, bool, error) {
	var methods []wcShippingMethod
	if _, err := a.client.Get(ctx, "shipping/zones/"+formatID(zoneID)+"/methods", nil, &methods); err != nil {
		return decimal.Zero, false, err
	}
	for _, m := range methods {
		if m.MethodID != string(sales.ShippingMethodFree) || !m.Enabled {
			continue
		}
		setting, ok := m.Settings["min_amount"]
		if !ok || setting.Value == nil {
			return decimal.Zero, true, nil
		}
		raw := strings.TrimSpace(fmt.Sprint(setting.Value))
		if raw == "" {
			return decimal.Zero, true, nil
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("%w: free shipping min_amount %q", integration.ErrPlatformInvalidResponse, raw)
		}
		return amount, true, nil
	}
	return decimal.Zero, false, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// CreateOrder creates an order
func (a *Adapter) CreateOrder(ctx context.Context, order sales.NewOrder) (*sales.Order, error) {
	var raw wcOrder
	if err := a.client.Post(ctx, "orders", fromNewOrder(order), &raw); err != nil {
		return nil, err
	}
	return toOrder(&raw), nil
}

// GetOrder returns an order by id
func (a *Adapter) GetOrder(ctx context.Context, id int64) (*sales.Order, error) {
	var raw wcOrder
	if _, err := a.client.Get(ctx, "orders/"+formatID(id), nil, &raw); err != nil {
		return nil, err
	}
	return toOrder(&raw), nil
}

// UpdateOrder changes the status, paid flag or transaction id of an order
func (a *Adapter) UpdateOrder(ctx context.Context, id int64, update sales.OrderUpdate) (*sales.Order, error) {
	req := wcOrderUpdate{
		SetPaid:       update.SetPaid,
		TransactionID: update.TransactionID,
	}
	if update.Status != nil {
		s := string(*update.Status)
		req.Status = &s
	}
	var raw wcOrder
	if err := a.client.Put(ctx, "orders/"+formatID(id), req, &raw); err != nil {
		return nil, err
	}
	return toOrder(&raw), nil
}

// AddOrderNote appends a note to an order
func (a *Adapter) AddOrderNote(ctx context.Context, id int64, note string, customerNote bool) error {
	req := wcOrderNoteCreate{Note: note, CustomerNote: customerNote}
	return a.client.Post(ctx, "orders/"+formatID(id)+"/notes", req, nil)
}

// ListOrderNotes returns the notes of an order
func (a *Adapter) ListOrderNotes(ctx context.Context, id int64, customerOnly bool) ([]sales.OrderNote, error) {
	q := url.Values{}
	if customerOnly {
		q.Set("type", "customer")
	}
	var raw []wcOrderNote
	if _, err := a.client.Get(ctx, "orders/"+formatID(id)+"/notes", q, &raw); err != nil {
		return nil, err
	}
	notes := make([]sales.OrderNote, 0, len(raw))
	for _, n := range raw {
		if customerOnly && !n.CustomerNote {
			continue
		}
		notes = append(notes, sales.OrderNote{
			ID:           n.ID,
			Note:         n.Note,
			CustomerNote: n.CustomerNote,
			DateCreated:  n.DateCreatedGMT.Time,
		})
	}
	return notes, nil
}
