package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// Order meta and payment method written on checkout
const (
	MetaQuoteTotal     = "_storefront_quote_total"
	PaymentMethodID    = "izipay"
	PaymentMethodTitle = "Izipay"
)

// OrderTokens issues and verifies order tracking tokens
type OrderTokens interface {
	Issue(orderID int64, email string) (*auth.OrderToken, error)
	VerifyFor(token string, orderID int64) (*auth.OrderClaims, error)
}

var _ OrderTokens = (*auth.OrderTokenService)(nil)

// OrderService places orders and lets shoppers follow them
type OrderService struct {
	cart      *CartService
	orders    sales.OrderGateway
	gateway   payment.Gateway
	tokens    OrderTokens
	journal   payment.TransactionRepository
	publisher shared.EventPublisher
	notifyURL string
	logger    *zap.Logger
}

// OrderServiceConfig holds the collaborators of OrderService
type OrderServiceConfig struct {
	Cart    *CartService
	Orders  sales.OrderGateway
	Gateway payment.Gateway
	Tokens  OrderTokens
	// Journal may be nil; payments then list as empty
	Journal payment.TransactionRepository
	// NotifyURL overrides the IPN URL configured at the gateway
	NotifyURL string
	Logger    *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(cfg OrderServiceConfig) *OrderService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		cart:      cfg.Cart,
		orders:    cfg.Orders,
		gateway:   cfg.Gateway,
		tokens:    cfg.Tokens,
		journal:   cfg.Journal,
		notifyURL: cfg.NotifyURL,
		logger:    log,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Checkout re-quotes the cart strictly, creates a pending order and opens a payment form.
// A payment form failure does not undo the order; the shopper can retry the payment.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order",
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, len(req.Items)),
		telemetry.WithAttribute(telemetry.SpanAttrCouponCount, len(req.Coupons)))
	defer span.End()
	log := logger.Or(ctx, s.logger)

	billing := req.Billing.toAddress()
	quote, err := s.cart.Quote(ctx, toCartItems(req.Items), req.Coupons, billing.Email, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, s.newOrder(quote, billing, req))
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Failed to create order", zap.Error(err))
		return nil, integration.ToDomainError(err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, order.ID)

	if !order.Total.Equal(quote.Total) {
		log.Warn("Order total differs from quote",
			zap.Int64("order_id", order.ID),
			zap.String("order_total", order.Total.String()),
			zap.String("quote_total", quote.Total.String()))
	}

	token, err := s.tokens.Issue(order.ID, billing.Email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("issue order token: %w", err)
	}

	form := s.paymentForm(ctx, order)
	s.publish(ctx, sales.NewOrderPlacedEvent(order))

	log.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.Total.String()),
		zap.Bool("payment_ready", form.Error == ""))

	return &CheckoutResponse{
		Order:   ToOrderResponse(order),
		Token:   OrderTokenResponse{Token: token.Token, ExpiresAt: token.ExpiresAt},
		Payment: form,
	}, nil
}

func (s *OrderService) newOrder(quote *sales.Quote, billing sales.Address, req CheckoutRequest) sales.NewOrder {
	shipping := billing
	shipping.Email, shipping.Phone = "", ""
	if req.Shipping != nil {
		shipping = req.Shipping.toAddress()
	}

	lines := make([]sales.NewOrderLine, 0, len(quote.Cart.Lines))
	for _, l := range quote.Cart.Lines {
		lines = append(lines, sales.NewOrderLine{ProductID: l.ProductID, VariationID: l.VariationID, Quantity: l.Quantity})
	}
	codes := make([]string, 0, len(quote.Coupons))
	for _, c := range quote.Coupons {
		codes = append(codes, c.Code)
	}
	var shippingLines []sales.ShippingLine
	if quote.Shipping.Method != "" {
		shippingLines = append(shippingLines, sales.ShippingLine{
			MethodID:    quote.Shipping.Method,
			MethodTitle: quote.Shipping.Title,
			Total:       quote.ShippingTotal,
		})
	}

	return sales.NewOrder{
		Status:             sales.OrderStatusPending,
		Currency:           quote.Cart.Currency,
		PaymentMethod:      PaymentMethodID,
		PaymentMethodTitle: PaymentMethodTitle,
		SetPaid:            false,
		Billing:            billing,
		Shipping:           shipping,
		Lines:              lines,
		CouponCodes:        codes,
		ShippingLines:      shippingLines,
		CustomerNote:       req.CustomerNote,
		MetaData: map[string]string{
			MetaQuoteTotal: quote.Total.StringFixed(quote.Cart.Decimals),
		},
	}
}

// paymentForm asks the gateway for a form token. Failures are reported in the response.
func (s *OrderService) paymentForm(ctx context.Context, order *sales.Order) PaymentFormResponse {
	form, err := s.createFormToken(ctx, order)
	if err != nil {
		logger.Or(ctx, s.logger).Error("Failed to create payment form token",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return PaymentFormResponse{
			Gateway: s.gateway.GatewayType().String(),
			Error:   "The payment form could not be opened. Please retry from your order page.",
		}
	}
	return *form
}

func (s *OrderService) createFormToken(ctx context.Context, order *sales.Order) (*PaymentFormResponse, error) {
	req := &payment.FormTokenRequest{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Amount:      order.Total,
		Currency:    order.Currency,
		Customer: payment.Customer{
			Email:     order.Billing.Email,
			Reference: strconv.FormatInt(order.ID, 10),
			FirstName: order.Billing.FirstName,
			LastName:  order.Billing.LastName,
			Phone:     order.Billing.Phone,
			Address:   order.Billing.Address1,
			City:      order.Billing.City,
			State:     order.Billing.State,
			Postcode:  order.Billing.Postcode,
			Country:   order.Billing.Country,
		},
		NotifyURL: s.notifyURL,
		Metadata:  map[string]string{"order_key": order.OrderKey},
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	token, err := s.gateway.CreateFormToken(ctx, req)
	if err != nil {
		return nil, err
	}
	return &PaymentFormResponse{
		Gateway:   s.gateway.GatewayType().String(),
		FormToken: token.Token,
		PublicKey: token.PublicKey,
		Mode:      token.Mode,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// TrackOrder looks an order up by id and billing email and hands out a fresh token.
// A wrong email answers not found so order ids cannot be probed.
func (s *OrderService) TrackOrder(ctx context.Context, req TrackOrderRequest) (*TrackOrderResponse, error) {
	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	if !order.BillingEmailMatches(req.Email) {
		logger.Or(ctx, s.logger).Info("Order tracking email mismatch", zap.Int64("order_id", req.OrderID))
		return nil, shared.ErrNotFound
	}
	token, err := s.tokens.Issue(order.ID, order.Billing.Email)
	if err != nil {
		return nil, fmt.Errorf("issue order token: %w", err)
	}
	return &TrackOrderResponse{
		Order: ToOrderResponse(order),
		Token: OrderTokenResponse{Token: token.Token, ExpiresAt: token.ExpiresAt},
	}, nil
}

// authorizedOrder verifies the token and loads the order it grants access to
func (s *OrderService) authorizedOrder(ctx context.Context, orderID int64, token string) (*sales.Order, error) {
	if token == "" {
		return nil, ErrInvalidOrderToken
	}
	claims, err := s.tokens.VerifyFor(token, orderID)
	if err != nil {
		logger.Or(ctx, s.logger).Info("Order token rejected", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, ErrInvalidOrderToken
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	if !claims.MatchesEmail(order.Billing.Email) {
		return nil, ErrInvalidOrderToken
	}
	return order, nil
}

// GetOrder returns the order the token was issued for
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, token string) (*OrderResponse, error) {
	order, err := s.authorizedOrder(ctx, orderID, token)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ListOrderNotes returns the customer visible notes of an order
func (s *OrderService) ListOrderNotes(ctx context.Context, orderID int64, token string) ([]OrderNoteResponse, error) {
	if _, err := s.authorizedOrder(ctx, orderID, token); err != nil {
		return nil, err
	}
	notes, err := s.orders.ListOrderNotes(ctx, orderID, true)
	if err != nil {
		return nil, integration.ToDomainError(err)
	}
	out := make([]OrderNoteResponse, 0, len(notes))
	for _, n := range notes {
		if !n.CustomerNote {
			continue
		}
		out = append(out, OrderNoteResponse{ID: n.ID, Note: n.Note, DateCreated: n.DateCreated})
	}
	return out, nil
}

// ListOrderPayments returns the payment journal of an order
func (s *OrderService) ListOrderPayments(ctx context.Context, orderID int64, token string) ([]PaymentTransactionResponse, error) {
	if _, err := s.authorizedOrder(ctx, orderID, token); err != nil {
		return nil, err
	}
	out := []PaymentTransactionResponse{}
	if s.journal == nil {
		return out, nil
	}
	txs, err := s.journal.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for i := range txs {
		out = append(out, ToPaymentTransactionResponse(&txs[i]))
	}
	return out, nil
}

// CreatePaymentForOrder opens a new payment form for a pending or failed order
func (s *OrderService) CreatePaymentForOrder(ctx context.Context, orderID int64, token string) (*PaymentFormResponse, error) {
	order, err := s.authorizedOrder(ctx, orderID, token)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanStartPayment() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Order %s is %s and cannot be paid", order.Number, order.Status))
	}
	form, err := s.createFormToken(ctx, order)
	if err != nil {
		logger.Or(ctx, s.logger).Error("Failed to create payment form token",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return nil, gatewayError(err)
	}
	return form, nil
}

// gatewayError translates payment gateway failures into domain errors
func gatewayError(err error) error {
	switch {
	case errors.Is(err, payment.ErrPaymentInvalidAmount),
		errors.Is(err, payment.ErrPaymentInvalidCurrency),
		errors.Is(err, payment.ErrPaymentInvalidEmail),
		errors.Is(err, payment.ErrPaymentInvalidOrderID):
		return shared.NewDomainError("INVALID_STATE", "Order cannot be paid: "+err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return shared.ErrUpstreamTimeout
	default:
		return shared.NewDomainError("UPSTREAM_ERROR", "Payment gateway is unavailable")
	}
}

func (s *OrderService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish domain event",
			zap.String("event_type", event.EventType()), zap.Error(err))
	}
}
