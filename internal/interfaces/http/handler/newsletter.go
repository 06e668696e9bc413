package handler

import (
	"github.com/gin-gonic/gin"

	marketingapp "github.com/storefront/backend/internal/application/marketing"
)

// NewsletterHandler handles mailing list signups
type NewsletterHandler struct {
	BaseHandler
	newsletterService *marketingapp.NewsletterService
}

// NewNewsletterHandler creates a new NewsletterHandler
func NewNewsletterHandler(newsletterService *marketingapp.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{newsletterService: newsletterService}
}

// Subscribe serves POST /newsletter/subscribe
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	var req marketingapp.SubscribeRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.newsletterService.Subscribe(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
