package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	salesapp "github.com/storefront/backend/internal/application/sales"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles checkout and guest order tracking
type OrderHandler struct {
	BaseHandler
	orderService *salesapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *salesapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// orderToken reads X-Order-Token, also accepting "Bearer <token>" in Authorization
func orderToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(middleware.OrderTokenHeader)); token != "" {
		return token
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// Checkout serves POST /checkout
// The order is created pending. When the form token cannot be created
// the order is still returned with payment.error set.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req salesapp.CheckoutRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.orderService.Checkout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// TrackOrder serves POST /orders/track
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	var req salesapp.TrackOrderRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.orderService.TrackOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetOrder serves GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id, orderToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ListOrderNotes serves GET /orders/:id/notes
func (h *OrderHandler) ListOrderNotes(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	notes, err := h.orderService.ListOrderNotes(c.Request.Context(), id, orderToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, notes)
}

// ListOrderPayments serves GET /orders/:id/payments
func (h *OrderHandler) ListOrderPayments(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	payments, err := h.orderService.ListOrderPayments(c.Request.Context(), id, orderToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// CreatePayment serves POST /orders/:id/payment
func (h *OrderHandler) CreatePayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	form, err := h.orderService.CreatePaymentForOrder(c.Request.Context(), id, orderToken(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, form)
}
