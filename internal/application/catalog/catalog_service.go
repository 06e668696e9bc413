package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/shared"
)

// Cache key prefixes
const (
	CachePrefix         = "catalog:"
	keyProducts         = CachePrefix + "products:list:"
	keyProduct          = CachePrefix + "product:"
	keyProductSlug      = CachePrefix + "product:slug:"
	keyCategories       = CachePrefix + "categories"
	keyReviews          = CachePrefix + "reviews:"
	metricsCacheCatalog = "catalog"
)

// Related product limits
const (
	DefaultRelatedLimit = 4
	MaxRelatedLimit     = 20
)

// CacheMetrics observes catalog cache lookups
type CacheMetrics interface {
	CacheHit(ctx context.Context, name string)
	CacheMiss(ctx context.Context, name string)
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) CacheHit(context.Context, string)  {}
func (noopCacheMetrics) CacheMiss(context.Context, string) {}

// CacheTTL holds the lifetimes of cached catalog reads
type CacheTTL struct {
	Products   time.Duration
	Categories time.Duration
}

// CatalogService serves products, categories and reviews from the store,
// reading through the cache when one is configured.
type CatalogService struct {
	products   catalog.ProductSource
	categories catalog.CategorySource
	reviews    catalog.ReviewSource
	cache      *readThrough
}

// NewCatalogService creates a new CatalogService. A nil cache disables caching.
func NewCatalogService(
	products catalog.ProductSource,
	categories catalog.CategorySource,
	reviews catalog.ReviewSource,
	cache shared.Cache,
	ttl CacheTTL,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		products:   products,
		categories: categories,
		reviews:    reviews,
		cache: &readThrough{
			cache:   cache,
			ttl:     ttl,
			metrics: noopCacheMetrics{},
			logger:  logger,
		},
	}
}

// SetCacheMetrics sets the observer of cache hits and misses
func (s *CatalogService) SetCacheMetrics(m CacheMetrics) {
	if m == nil {
		m = noopCacheMetrics{}
	}
	s.cache.metrics = m
}

// ListProducts returns one page of published products
func (s *CatalogService) ListProducts(ctx context.Context, q ListProductsQuery) (*ProductListResponse, error) {
	filter, err := s.buildFilter(ctx, q)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		// unknown category slug
		page := q.Page
		if page < 1 {
			page = 1
		}
		perPage := q.PerPage
		if perPage < 1 {
			perPage = catalog.DefaultPerPage
		}
		return &ProductListResponse{
			Products: []ProductResponse{},
			Meta:     PageMeta{Page: page, PerPage: perPage},
		}, nil
	}

	result, err := s.listProducts(ctx, *filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResponse{
		Products: ToProductResponses(result.Products),
		Meta: PageMeta{
			Total:      result.Total,
			TotalPages: result.TotalPages,
			Page:       result.Page,
			PerPage:    result.PerPage,
		},
	}, nil
}

func (s *CatalogService) listProducts(ctx context.Context, filter catalog.ProductFilter) (*catalog.ProductPage, error) {
	filter.Normalize()
	page, err := cached(ctx, s.cache, keyProducts+filterKey(filter), s.cache.ttl.Products, func() (*catalog.ProductPage, error) {
		return s.products.ListProducts(ctx, filter)
	})
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	return page, nil
}

// buildFilter translates the query string into a product filter.
// A nil filter means the category slug matched nothing.
func (s *CatalogService) buildFilter(ctx context.Context, q ListProductsQuery) (*catalog.ProductFilter, error) {
	filter := &catalog.ProductFilter{
		Page:        q.Page,
		PerPage:     q.PerPage,
		TagID:       q.Tag,
		Search:      FoldSearch(q.Search),
		OrderBy:     catalog.ProductOrderBy(q.OrderBy),
		Order:       q.Order,
		Featured:    q.Featured,
		OnSale:      q.OnSale,
		StockStatus: catalog.StockStatus(q.StockStatus),
	}

	if c := strings.TrimSpace(q.Category); c != "" {
		if id, err := strconv.ParseInt(c, 10, 64); err == nil && id > 0 {
			filter.CategoryID = id
		} else {
			cat, err := s.findCategory(ctx, c)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, nil
				}
				return nil, err
			}
			filter.CategoryID = cat.ID
		}
	}

	var err error
	if filter.MinPrice, err = parsePrice(q.MinPrice, "min_price"); err != nil {
		return nil, err
	}
	if filter.MaxPrice, err = parsePrice(q.MaxPrice, "max_price"); err != nil {
		return nil, err
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, shared.NewDomainError("INVALID_INPUT", "min_price cannot be greater than max_price")
	}
	if filter.Include, err = ParseIDList(q.Include); err != nil {
		return nil, err
	}
	return filter, nil
}

func parsePrice(raw, field string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", field+" must be a non-negative number")
	}
	return &d, nil
}

// ParseIDList parses a comma separated list of positive ids
func ParseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("invalid id %q in include", p))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetProduct returns a published product by id
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*ProductResponse, error) {
	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

func (s *CatalogService) getProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	p, err := cached(ctx, s.cache, keyProduct+strconv.FormatInt(id, 10), s.cache.ttl.Products, func() (*catalog.Product, error) {
		return s.products.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	if p.Status != "" && p.Status != catalog.ProductStatusPublish {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// GetProductBySlug returns the published product with the given slug
func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*ProductResponse, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, shared.ErrNotFound
	}
	p, err := cached(ctx, s.cache, keyProductSlug+slug, s.cache.ttl.Products, func() (*catalog.Product, error) {
		page, err := s.products.ListProducts(ctx, catalog.ProductFilter{Slug: slug, Page: 1, PerPage: 1})
		if err != nil {
			return nil, err
		}
		if len(page.Products) == 0 {
			return nil, shared.ErrNotFound
		}
		return &page.Products[0], nil
	})
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// ListRelated returns up to limit products related to the given one
func (s *CatalogService) ListRelated(ctx context.Context, id int64, limit int) ([]ProductResponse, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if limit > MaxRelatedLimit {
		limit = MaxRelatedLimit
	}

	p, err := s.getProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := p.RelatedIDs
	if len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return []ProductResponse{}, nil
	}

	page, err := s.listProducts(ctx, catalog.ProductFilter{Include: ids, Page: 1, PerPage: len(ids)})
	if err != nil {
		return nil, err
	}
	return ToProductResponses(page.Products), nil
}

// ListVariations returns the variations of a variable product
func (s *CatalogService) ListVariations(ctx context.Context, productID int64) ([]VariationResponse, error) {
	if _, err := s.getProduct(ctx, productID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s%d:variations", keyProduct, productID)
	variations, err := cached(ctx, s.cache, key, s.cache.ttl.Products, func() ([]catalog.Variation, error) {
		return s.products.ListVariations(ctx, productID)
	})
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	out := make([]VariationResponse, 0, len(variations))
	for i := range variations {
		out = append(out, ToVariationResponse(&variations[i]))
	}
	return out, nil
}

func (s *CatalogService) allCategories(ctx context.Context) ([]catalog.Category, error) {
	cats, err := cached(ctx, s.cache, keyCategories, s.cache.ttl.Categories, func() ([]catalog.Category, error) {
		return s.categories.ListCategories(ctx)
	})
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	return cats, nil
}

func (s *CatalogService) findCategory(ctx context.Context, slug string) (*catalog.Category, error) {
	cats, err := s.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if strings.EqualFold(cats[i].Slug, slug) {
			return &cats[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// ListCategories returns every category, flat
func (s *CatalogService) ListCategories(ctx context.Context) ([]CategoryResponse, error) {
	cats, err := s.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, ToCategoryResponse(&cats[i]))
	}
	return out, nil
}

// GetCategoryTree returns the category tree and its flattened form
func (s *CatalogService) GetCategoryTree(ctx context.Context, hideEmpty bool) (*CategoryTreeResponse, error) {
	cats, err := s.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	tree := catalog.BuildCategoryTree(cats, hideEmpty)
	flat := catalog.FlattenTree(tree)

	resp := &CategoryTreeResponse{
		Tree: ToCategoryNodeResponses(tree),
		Flat: make([]CategoryNodeResponse, 0, len(flat)),
	}
	for i := range flat {
		resp.Flat = append(resp.Flat, CategoryNodeResponse{
			CategoryResponse: ToCategoryResponse(&flat[i].Category),
			Depth:            flat[i].Depth,
			Children:         []*CategoryNodeResponse{},
		})
	}
	return resp, nil
}

// GetCategoryBySlug returns the category with the given slug
func (s *CatalogService) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	cat, err := s.findCategory(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(cat)
	return &resp, nil
}

// GetCategoryBreadcrumb returns the path from the root down to the category
func (s *CatalogService) GetCategoryBreadcrumb(ctx context.Context, slug string) ([]CategoryResponse, error) {
	cats, err := s.allCategories(ctx)
	if err != nil {
		return nil, err
	}
	path := catalog.FindPath(catalog.BuildCategoryTree(cats, false), strings.TrimSpace(slug))
	if len(path) == 0 {
		return nil, shared.ErrNotFound
	}
	out := make([]CategoryResponse, 0, len(path))
	for i := range path {
		out = append(out, ToCategoryResponse(&path[i]))
	}
	return out, nil
}

// ListReviews returns one page of approved reviews of a product
func (s *CatalogService) ListReviews(ctx context.Context, productID int64, page, perPage int) (*ReviewListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > catalog.MaxPerPage {
		perPage = catalog.MaxPerPage
	}

	key := fmt.Sprintf("%s%d:%d:%d", keyReviews, productID, page, perPage)
	result, err := cached(ctx, s.cache, key, s.cache.ttl.Products, func() (*catalog.ReviewPage, error) {
		return s.reviews.ListReviews(ctx, productID, page, perPage)
	})
	if err != nil {
		return nil, integration.ToDomainError(err)
	}

	reviews := make([]ReviewResponse, 0, len(result.Reviews))
	for i := range result.Reviews {
		reviews = append(reviews, ToReviewResponse(&result.Reviews[i]))
	}
	return &ReviewListResponse{
		Reviews: reviews,
		Meta: PageMeta{
			Total:      result.Total,
			TotalPages: result.TotalPages,
			Page:       page,
			PerPage:    perPage,
		},
	}, nil
}

// CreateReview submits a review; it is held for moderation
func (s *CatalogService) CreateReview(ctx context.Context, productID int64, req CreateReviewRequest) (*ReviewResponse, error) {
	review, err := catalog.NewProductReview(productID, req.Reviewer, req.ReviewerEmail, req.Review, req.Rating)
	if err != nil {
		return nil, err
	}
	if _, err := s.getProduct(ctx, productID); err != nil {
		return nil, err
	}

	created, err := s.reviews.CreateReview(ctx, *review)
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	resp := ToReviewResponse(created)
	return &resp, nil
}

// PurgeCatalog drops every cached catalog entry and returns how many were removed
func (s *CatalogService) PurgeCatalog(ctx context.Context) (int, error) {
	if s.cache.cache == nil {
		return 0, nil
	}
	n, err := s.cache.cache.DeletePrefix(ctx, CachePrefix)
	if err != nil {
		return 0, fmt.Errorf("purge catalog cache: %w", err)
	}
	s.cache.logger.Info("Catalog cache purged", zap.Int("keys", n))
	return n, nil
}

// filterKey renders a filter as a stable, sorted query string
func filterKey(f catalog.ProductFilter) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("per_page", strconv.Itoa(f.PerPage))
	if f.CategoryID > 0 {
		v.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.TagID > 0 {
		v.Set("tag", strconv.FormatInt(f.TagID, 10))
	}
	if f.Slug != "" {
		v.Set("slug", f.Slug)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.OrderBy != "" {
		v.Set("orderby", string(f.OrderBy))
	}
	if f.Order != "" {
		v.Set("order", f.Order)
	}
	if f.Featured != nil {
		v.Set("featured", strconv.FormatBool(*f.Featured))
	}
	if f.OnSale != nil {
		v.Set("on_sale", strconv.FormatBool(*f.OnSale))
	}
	if f.MinPrice != nil {
		v.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("max_price", f.MaxPrice.String())
	}
	if len(f.Include) > 0 {
		ids := make([]string, len(f.Include))
		for i, id := range f.Include {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set("include", strings.Join(ids, ","))
	}
	if f.StockStatus != "" {
		v.Set("stock_status", string(f.StockStatus))
	}
	return v.Encode()
}
