package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

var signedForm = payment.SignedFields{
	Answer:        `{"orderStatus":"PAID"}`,
	Hash:          "c2lnbmF0dXJl",
	HashAlgorithm: "sha256_hmac",
	HashKey:       "password",
	AnswerType:    "V4/Payment",
}

func formBody(f payment.SignedFields) *strings.Reader {
	v := url.Values{}
	v.Set(fieldAnswer, f.Answer)
	v.Set(fieldHash, f.Hash)
	v.Set(fieldHashAlgorithm, f.HashAlgorithm)
	v.Set(fieldHashKey, f.HashKey)
	v.Set(fieldAnswerType, f.AnswerType)
	return strings.NewReader(v.Encode())
}

func newPaymentHandler(gateway *MockGateway, orders *MockOrderGateway) *PaymentHandler {
	return NewPaymentHandler(paymentapp.NewIPNService(paymentapp.IPNServiceConfig{
		Gateway:          gateway,
		Orders:           orders,
		CurrencyDecimals: 2,
	}))
}

func TestPaymentHandler_HandleIPN(t *testing.T) {
	t.Run("acknowledges a verified notification", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyNotification", mock.Anything, signedForm).Return(&payment.Notification{
			OrderID:         "storefront-test",
			Status:          payment.StatusPending,
			TransactionUUID: "tx-1",
			Amount:          decimal.RequireFromString("10.00"),
			Currency:        "PEN",
		}, nil)
		h := newPaymentHandler(gateway, new(MockOrderGateway))

		w := serve(http.MethodPost, "/ipn", "/ipn", formBody(signedForm),
			"application/x-www-form-urlencoded", h.HandleIPN)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		gateway.AssertExpectations(t)
	})

	t.Run("bad signature is unauthorized so the gateway retries", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyNotification", mock.Anything, mock.Anything).Return(nil, payment.ErrGatewayInvalidCallback)
		h := newPaymentHandler(gateway, new(MockOrderGateway))

		w := serve(http.MethodPost, "/ipn", "/ipn", formBody(signedForm),
			"application/x-www-form-urlencoded", h.HandleIPN)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Error.Code)
	})
}

func TestPaymentHandler_VerifyBrowserReturn(t *testing.T) {
	paid := &payment.Notification{
		OrderID:         "42",
		Status:          payment.StatusPaid,
		GatewayStatus:   "PAID",
		TransactionUUID: "tx-1",
		Amount:          decimal.RequireFromString("99.90"),
		Currency:        "PEN",
	}

	t.Run("json body", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyBrowserReturn", mock.Anything, signedForm).Return(paid, nil)
		h := newPaymentHandler(gateway, new(MockOrderGateway))

		body := `{"kr-answer":"{\"orderStatus\":\"PAID\"}","kr-hash":"c2lnbmF0dXJl",` +
			`"kr-hash-algorithm":"sha256_hmac","kr-hash-key":"password","kr-answer-type":"V4/Payment"}`
		w := serve(http.MethodPost, "/verify", "/verify", jsonBody(body), "application/json", h.VerifyBrowserReturn)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data, ok := decodeResponse(t, w).Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, data["paid"])
		assert.Equal(t, "42", data["order_id"])
	})

	t.Run("form body", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyBrowserReturn", mock.Anything, signedForm).Return(paid, nil)
		h := newPaymentHandler(gateway, new(MockOrderGateway))

		w := serve(http.MethodPost, "/verify", "/verify", formBody(signedForm),
			"application/x-www-form-urlencoded", h.VerifyBrowserReturn)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("json without hash", func(t *testing.T) {
		h := newPaymentHandler(new(MockGateway), new(MockOrderGateway))

		w := serve(http.MethodPost, "/verify", "/verify", jsonBody(`{"kr-answer":"{}"}`),
			"application/json", h.VerifyBrowserReturn)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("tampered answer", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyBrowserReturn", mock.Anything, mock.Anything).Return(nil, payment.ErrGatewayInvalidCallback)
		h := newPaymentHandler(gateway, new(MockOrderGateway))

		w := serve(http.MethodPost, "/verify", "/verify", formBody(signedForm),
			"application/x-www-form-urlencoded", h.VerifyBrowserReturn)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
