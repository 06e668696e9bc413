package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/woocommerce"
)

// topics whose deliveries invalidate cached catalog reads
var purgeTopicPrefixes = []string{"product.", "product_cat.", "product_tag.", "coupon."}

// WebhookAck is the body returned to WooCommerce
type WebhookAck struct {
	Topic  string `json:"topic,omitempty"`
	Purged int    `json:"purged"`
	Ping   bool   `json:"ping,omitempty"`
}

// WebhookHandler receives WooCommerce webhook deliveries
type WebhookHandler struct {
	BaseHandler
	catalogService *catalogapp.CatalogService
	secret         string
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(catalogService *catalogapp.CatalogService, secret string) *WebhookHandler {
	return &WebhookHandler{catalogService: catalogService, secret: secret}
}

// isPing reports whether a delivery is the unsigned test WooCommerce sends on webhook creation
func isPing(c *gin.Context, body []byte) bool {
	return c.GetHeader(woocommerce.HeaderWebhookTopic) == "" &&
		strings.HasPrefix(string(body), "webhook_id=")
}

// HandleWooCommerce serves POST /webhooks/woocommerce
// Catalog and coupon topics purge the catalog cache. Other topics are acknowledged.
func (h *WebhookHandler) HandleWooCommerce(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.bindError(c, err)
			return
		}
		h.BadRequest(c, "Failed to read webhook body")
		return
	}

	log := logger.GetGinLogger(c)
	if isPing(c, body) {
		log.Info("WooCommerce webhook ping acknowledged")
		h.Success(c, WebhookAck{Ping: true})
		return
	}

	if err := woocommerce.VerifyWebhookSignature(h.secret, body, c.GetHeader(woocommerce.HeaderWebhookSignature)); err != nil {
		log.Warn("WooCommerce webhook rejected", zap.Error(err))
		h.Unauthorized(c, "Webhook signature is invalid")
		return
	}

	topic := c.GetHeader(woocommerce.HeaderWebhookTopic)
	ack := WebhookAck{Topic: topic}
	if purges(topic) {
		n, err := h.catalogService.PurgeCatalog(c.Request.Context())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		ack.Purged = n
	}
	log.Info("WooCommerce webhook processed", zap.String("topic", topic), zap.Int("purged", ack.Purged))
	h.Success(c, ack)
}

func purges(topic string) bool {
	for _, prefix := range purgeTopicPrefixes {
		if strings.HasPrefix(topic, prefix) {
			return true
		}
	}
	return false
}
