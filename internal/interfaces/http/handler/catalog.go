package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// CatalogHandler serves products, categories and reviews
type CatalogHandler struct {
	BaseHandler
	catalogService *catalogapp.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *catalogapp.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListProducts serves GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q catalogapp.ListProductsQuery
	if !h.bindQuery(c, &q) {
		return
	}

	page, err := h.catalogService.ListProducts(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Products, page.Meta.Total, page.Meta.Page, page.Meta.PerPage, page.Meta.TotalPages)
}

// GetProduct serves GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetProductBySlug serves GET /products/slug/:slug
func (h *CatalogHandler) GetProductBySlug(c *gin.Context) {
	product, err := h.catalogService.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ListRelated serves GET /products/:id/related
func (h *CatalogHandler) ListRelated(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	products, err := h.catalogService.ListRelated(c.Request.Context(), id, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// ListVariations serves GET /products/:id/variations
func (h *CatalogHandler) ListVariations(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	variations, err := h.catalogService.ListVariations(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, variations)
}

// ListReviews serves GET /products/:id/reviews
func (h *CatalogHandler) ListReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	reviews, err := h.catalogService.ListReviews(c.Request.Context(), id, page, perPage)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, reviews.Reviews, reviews.Meta.Total, reviews.Meta.Page, reviews.Meta.PerPage, reviews.Meta.TotalPages)
}

// CreateReview serves POST /products/:id/reviews
// Reviews are held for moderation by WooCommerce.
func (h *CatalogHandler) CreateReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.CreateReviewRequest
	if !h.bind(c, &req) {
		return
	}

	review, err := h.catalogService.CreateReview(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, review)
}

// ListCategories serves GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, categories)
}

// GetCategoryTree serves GET /categories/tree
func (h *CatalogHandler) GetCategoryTree(c *gin.Context) {
	hideEmpty, _ := strconv.ParseBool(c.Query("hide_empty"))

	tree, err := h.catalogService.GetCategoryTree(c.Request.Context(), hideEmpty)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// GetCategoryBySlug serves GET /categories/slug/:slug
func (h *CatalogHandler) GetCategoryBySlug(c *gin.Context) {
	category, err := h.catalogService.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// GetCategoryBreadcrumb serves GET /categories/slug/:slug/breadcrumb
func (h *CatalogHandler) GetCategoryBreadcrumb(c *gin.Context) {
	crumbs, err := h.catalogService.GetCategoryBreadcrumb(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, crumbs)
}
