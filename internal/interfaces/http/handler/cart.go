package handler

import (
	"github.com/gin-gonic/gin"

	salesapp "github.com/storefront/backend/internal/application/sales"
)

// CartHandler prices carts and checks coupons. The cart itself lives in the browser.
type CartHandler struct {
	BaseHandler
	cartService *salesapp.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *salesapp.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// QuoteCart serves POST /cart/quote
// Prices come from WooCommerce; refused coupons are listed in coupon_errors.
func (h *CartHandler) QuoteCart(c *gin.Context) {
	var req salesapp.QuoteCartRequest
	if !h.bind(c, &req) {
		return
	}
	quote, err := h.cartService.QuoteCart(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// ValidateCoupon serves POST /coupons/validate
func (h *CartHandler) ValidateCoupon(c *gin.Context) {
	var req salesapp.ValidateCouponRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.cartService.ValidateCoupon(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetShopSettings serves GET /shop/settings
func (h *CartHandler) GetShopSettings(c *gin.Context) {
	h.Success(c, h.cartService.GetShopSettings(c.Request.Context()))
}
