package router

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// Handlers holds every storefront handler the route table needs
type Handlers struct {
	System     *handler.SystemHandler
	Catalog    *handler.CatalogHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	Payment    *handler.PaymentHandler
	Newsletter *handler.NewsletterHandler
	Webhook    *handler.WebhookHandler
}

// RegisterStorefront mounts the storefront API. limit guards the endpoints
// that reveal whether an email or order exists; nil disables it.
func RegisterStorefront(r *Router, h Handlers, limit gin.HandlerFunc) {
	guarded := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		if limit == nil {
			return handlers
		}
		return append([]gin.HandlerFunc{limit}, handlers...)
	}

	products := NewDomainGroup("catalog", "/products").
		GET("", h.Catalog.ListProducts).
		GET("/slug/:slug", h.Catalog.GetProductBySlug).
		GET("/:id", h.Catalog.GetProduct).
		GET("/:id/related", h.Catalog.ListRelated).
		GET("/:id/variations", h.Catalog.ListVariations).
		GET("/:id/reviews", h.Catalog.ListReviews).
		POST("/:id/reviews", guarded(h.Catalog.CreateReview)...)

	categories := NewDomainGroup("catalog", "/categories").
		GET("", h.Catalog.ListCategories).
		GET("/tree", h.Catalog.GetCategoryTree).
		GET("/slug/:slug", h.Catalog.GetCategoryBySlug).
		GET("/slug/:slug/breadcrumb", h.Catalog.GetCategoryBreadcrumb)

	cart := NewDomainGroup("cart", "").
		POST("/cart/quote", h.Cart.QuoteCart).
		POST("/coupons/validate", h.Cart.ValidateCoupon).
		GET("/shop/settings", h.Cart.GetShopSettings)

	orders := NewDomainGroup("orders", "").
		POST("/checkout", h.Order.Checkout).
		POST("/orders/track", guarded(h.Order.TrackOrder)...).
		GET("/orders/:id", h.Order.GetOrder).
		GET("/orders/:id/notes", h.Order.ListOrderNotes).
		GET("/orders/:id/payments", h.Order.ListOrderPayments).
		POST("/orders/:id/payment", h.Order.CreatePayment)

	payments := NewDomainGroup("payments", "/payments/izipay").
		POST("/ipn", h.Payment.HandleIPN).
		POST("/verify", h.Payment.VerifyBrowserReturn)

	newsletter := NewDomainGroup("newsletter", "/newsletter").
		POST("/subscribe", guarded(h.Newsletter.Subscribe)...)

	webhooks := NewDomainGroup("webhooks", "/webhooks").
		POST("/woocommerce", h.Webhook.HandleWooCommerce)

	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	health := NewDomainGroup("health", "/health").
		GET("", h.System.Health).
		GET("/live", h.System.Live)

	r.Register(products, categories, cart, orders, payments, newsletter, webhooks, system)
	r.RegisterRoot(health)
}
