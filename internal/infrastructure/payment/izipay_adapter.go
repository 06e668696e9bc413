package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

const (
	izipayCreatePaymentPath = "/api-payment/V4/Charge/CreatePayment"
	izipayMaxResponseSize   = 1 << 20
)

// zeroDecimalCurrencies are charged in whole units
var zeroDecimalCurrencies = map[string]bool{
	"CLP": true,
	"JPY": true,
	"KRW": true,
	"PYG": true,
}

// IzipayAdapter implements the payment Gateway interface for Izipay
type IzipayAdapter struct {
	config     *IzipayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIzipayAdapter creates a new Izipay adapter.
// A nil httpClient gets a client with the configured timeout.
func NewIzipayAdapter(config IzipayConfig, httpClient *http.Client, log *zap.Logger) (*IzipayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IzipayAdapter{
		config:     &config,
		httpClient: httpClient,
		logger:     log.Named("izipay"),
	}, nil
}

// GatewayType returns the gateway type
func (a *IzipayAdapter) GatewayType() domain.GatewayType {
	return domain.GatewayTypeIzipay
}

// CreateFormToken registers the payment with Izipay and returns the form token
func (a *IzipayAdapter) CreateFormToken(ctx context.Context, req *domain.FormTokenRequest) (*domain.FormToken, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(req.Currency)

	body := izipayCreatePaymentRequest{
		Amount:   ToMinorUnits(req.Amount, currency),
		Currency: currency,
		OrderID:  strconv.FormatInt(req.OrderID, 10),
		Customer: izipayCustomer{
			Email:     req.Customer.Email,
			Reference: req.Customer.Reference,
			BillingDetails: izipayBillingDetails{
				FirstName:   req.Customer.FirstName,
				LastName:    req.Customer.LastName,
				PhoneNumber: req.Customer.Phone,
				Address:     req.Customer.Address,
				City:        req.Customer.City,
				State:       req.Customer.State,
				ZipCode:     req.Customer.Postcode,
				Country:     req.Customer.Country,
			},
		},
		IPNTargetURL: a.config.IPNURL,
		Metadata:     req.Metadata,
	}
	if req.NotifyURL != "" {
		body.IPNTargetURL = req.NotifyURL
	}
	if req.OrderNumber != "" {
		if body.Metadata == nil {
			body.Metadata = map[string]string{}
		}
		body.Metadata["orderNumber"] = req.OrderNumber
	}

	resp, err := a.doRequest(ctx, izipayCreatePaymentPath, body)
	if err != nil {
		return nil, err
	}

	if resp.Status != izipayStatusSuccess {
		var answer izipayErrorAnswer
		_ = json.Unmarshal(resp.Answer, &answer)
		logger.Or(ctx, a.logger).Warn("izipay refused to create the payment",
			zap.String("order_id", body.OrderID),
			zap.String("error_code", answer.ErrorCode),
			zap.String("detailed_error_code", answer.DetailedErrorCode),
		)
		return nil, fmt.Errorf("%w: %s %s", domain.ErrGatewayRequestFailed, answer.ErrorCode, answer.ErrorMessage)
	}

	var answer izipayFormTokenAnswer
	if err := json.Unmarshal(resp.Answer, &answer); err != nil || answer.FormToken == "" {
		return nil, fmt.Errorf("%w: answer carries no form token", domain.ErrGatewayInvalidResponse)
	}

	mode := resp.Mode
	if mode == "" {
		mode = a.config.Mode
	}
	return &domain.FormToken{
		Token:     answer.FormToken,
		PublicKey: a.config.PublicKey,
		Mode:      mode,
	}, nil
}

// VerifyNotification verifies and parses an IPN.
// The key is chosen by kr-hash-key: the API password or the HMAC-SHA-256 key.
func (a *IzipayAdapter) VerifyNotification(ctx context.Context, fields domain.SignedFields) (*domain.Notification, error) {
	var key string
	switch strings.ToLower(fields.HashKey) {
	case izipayHashKeyPassword:
		key = a.config.Password
	case izipayHashKeyHMAC, "":
		key = a.config.HMACKey
	default:
		return nil, fmt.Errorf("%w: unknown hash key %q", domain.ErrGatewayInvalidCallback, fields.HashKey)
	}
	return a.verify(fields, key)
}

// VerifyBrowserReturn verifies and parses the answer the embedded form hands to the browser.
// Browser answers are always signed with the HMAC-SHA-256 key.
func (a *IzipayAdapter) VerifyBrowserReturn(ctx context.Context, fields domain.SignedFields) (*domain.Notification, error) {
	return a.verify(fields, a.config.HMACKey)
}

// NotificationResponse returns the plain text acknowledgement Izipay expects
func (a *IzipayAdapter) NotificationResponse(success bool) (string, []byte) {
	if success {
		return "text/plain; charset=utf-8", []byte("OK")
	}
	return "text/plain; charset=utf-8", []byte("KO")
}

func (a *IzipayAdapter) verify(fields domain.SignedFields, key string) (*domain.Notification, error) {
	if fields.Answer == "" || fields.Hash == "" {
		return nil, fmt.Errorf("%w: kr-answer and kr-hash are required", domain.ErrGatewayInvalidCallback)
	}
	if algo := strings.ToLower(fields.HashAlgorithm); algo != izipayHashAlgorithm {
		return nil, fmt.Errorf("%w: %q", domain.ErrGatewayUnsupportedHash, fields.HashAlgorithm)
	}
	if !VerifyHash(key, fields.Answer, fields.Hash) {
		return nil, domain.ErrGatewayInvalidCallback
	}
	if fields.AnswerType != "" && fields.AnswerType != izipayAnswerType {
		return nil, fmt.Errorf("%w: unexpected answer type %s", domain.ErrGatewayInvalidResponse, fields.AnswerType)
	}

	var p izipayPayment
	if err := json.Unmarshal([]byte(fields.Answer), &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse kr-answer: %v", domain.ErrGatewayInvalidResponse, err)
	}
	if p.OrderDetails.OrderID == "" {
		return nil, fmt.Errorf("%w: answer has no orderId", domain.ErrGatewayInvalidResponse)
	}
	return toNotification(&p, fields.Answer), nil
}

func toNotification(p *izipayPayment, raw string) *domain.Notification {
	n := &domain.Notification{
		GatewayType:   domain.GatewayTypeIzipay,
		OrderID:       p.OrderDetails.OrderID,
		Status:        mapIzipayOrderStatus(p.OrderStatus),
		GatewayStatus: p.OrderStatus,
		Currency:      p.OrderDetails.OrderCurrency,
		RawAnswer:     raw,
	}
	minor := p.OrderDetails.OrderTotalAmount

	// the last transaction is the attempt that settled the order
	if len(p.Transactions) > 0 {
		tx := p.Transactions[len(p.Transactions)-1]
		n.TransactionUUID = tx.UUID
		n.DetailedStatus = tx.DetailedStatus
		n.PaymentMethod = tx.PaymentMethodType
		if tx.Currency != "" {
			n.Currency = tx.Currency
		}
		if tx.Amount > 0 {
			minor = tx.Amount
		}
		if n.Status == domain.StatusPaid && tx.CreationDate != "" {
			if t, err := time.Parse(time.RFC3339, tx.CreationDate); err == nil {
				t = t.UTC()
				n.PaidAt = &t
			}
		}
	}
	n.Amount = FromMinorUnits(minor, n.Currency)
	return n
}

func (a *IzipayAdapter) doRequest(ctx context.Context, path string, body any) (*izipayResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("izipay: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("izipay: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(a.config.ShopID, a.config.Password)

	log := logger.Or(ctx, a.logger)
	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Debug("izipay request failed", zap.String("path", path), zap.Error(err))
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: timed out: %v", domain.ErrGatewayUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	log.Debug("izipay request",
		zap.String("method", http.MethodPost),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, izipayMaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Error("izipay rejected the API credentials", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrGatewayRequestFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrGatewayRequestFailed, resp.StatusCode)
	}

	var out izipayResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayInvalidResponse, err)
	}
	return &out, nil
}

// ComputeHash returns the hex HMAC-SHA256 of answer, the kr-hash Izipay sends
func ComputeHash(key, answer string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(answer))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHash compares hash with the expected kr-hash in constant time
func VerifyHash(key, answer, hash string) bool {
	if key == "" {
		return false
	}
	expected := ComputeHash(key, answer)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(hash)))
}

// ToMinorUnits converts an amount to the integer the gateway expects, e.g. 12.34 PEN is 1234
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(currencyExponent(currency)).Round(0).IntPart()
}

// FromMinorUnits converts a gateway integer amount back to a decimal
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -currencyExponent(currency))
}

func currencyExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// mapIzipayOrderStatus maps the Izipay order status to our status
func mapIzipayOrderStatus(status string) domain.Status {
	switch status {
	case izipayOrderStatusPaid:
		return domain.StatusPaid
	case izipayOrderStatusUnpaid:
		return domain.StatusFailed
	case izipayOrderStatusAbandoned:
		return domain.StatusCancelled
	case izipayOrderStatusRunning, izipayOrderStatusPartiallyPaid:
		return domain.StatusPending
	default:
		return domain.StatusPending
	}
}

// Ensure IzipayAdapter implements the Gateway interface
var _ domain.Gateway = (*IzipayAdapter)(nil)
