package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
)

// Izipay posts these form fields with every signed answer
const (
	fieldAnswer        = "kr-answer"
	fieldHash          = "kr-hash"
	fieldHashAlgorithm = "kr-hash-algorithm"
	fieldHashKey       = "kr-hash-key"
	fieldAnswerType    = "kr-answer-type"
)

// PaymentHandler handles Izipay callbacks. These endpoints are called by
// the gateway and the browser without authentication; the HMAC is the credential.
type PaymentHandler struct {
	BaseHandler
	ipnService *paymentapp.IPNService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(ipnService *paymentapp.IPNService) *PaymentHandler {
	return &PaymentHandler{ipnService: ipnService}
}

// VerifyRequest is the JSON form of the browser return
type VerifyRequest struct {
	Answer        string `json:"kr-answer" binding:"required"`
	Hash          string `json:"kr-hash" binding:"required"`
	HashAlgorithm string `json:"kr-hash-algorithm"`
	HashKey       string `json:"kr-hash-key"`
	AnswerType    string `json:"kr-answer-type"`
}

func signedFieldsFromForm(c *gin.Context) payment.SignedFields {
	return payment.SignedFields{
		Answer:        c.PostForm(fieldAnswer),
		Hash:          c.PostForm(fieldHash),
		HashAlgorithm: c.PostForm(fieldHashAlgorithm),
		HashKey:       c.PostForm(fieldHashKey),
		AnswerType:    c.PostForm(fieldAnswerType),
	}
}

// HandleIPN serves POST /payments/izipay/ipn
func (h *PaymentHandler) HandleIPN(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.bindError(c, err)
			return
		}
		h.BadRequest(c, "Notification body is not a form")
		return
	}

	result, err := h.ipnService.HandleIPN(c.Request.Context(), signedFieldsFromForm(c))
	if err != nil {
		// any non-2xx makes Izipay retry the notification
		h.HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, result.ContentType, result.Body)
}

// VerifyBrowserReturn serves POST /payments/izipay/verify
// Accepts the kr-* fields as a form or as JSON. The order is not changed.
func (h *PaymentHandler) VerifyBrowserReturn(c *gin.Context) {
	var fields payment.SignedFields
	if c.ContentType() == "application/json" {
		var req VerifyRequest
		if !h.bind(c, &req) {
			return
		}
		fields = payment.SignedFields{
			Answer:        req.Answer,
			Hash:          req.Hash,
			HashAlgorithm: req.HashAlgorithm,
			HashKey:       req.HashKey,
			AnswerType:    req.AnswerType,
		}
	} else {
		fields = signedFieldsFromForm(c)
	}

	resp, err := h.ipnService.VerifyBrowserReturn(c.Request.Context(), fields)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
