package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/marketing"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
)

// =============================================================================
// Mock Ports
// =============================================================================

type MockProductSource struct {
	mock.Mock
}

func (m *MockProductSource) ListProducts(ctx context.Context, filter catalog.ProductFilter) (*catalog.ProductPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductPage), args.Error(1)
}

func (m *MockProductSource) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductSource) ListVariations(ctx context.Context, productID int64) ([]catalog.Variation, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Variation), args.Error(1)
}

func (m *MockProductSource) GetVariation(ctx context.Context, productID, variationID int64) (*catalog.Variation, error) {
	args := m.Called(ctx, productID, variationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Variation), args.Error(1)
}

type MockCategorySource struct {
	mock.Mock
}

func (m *MockCategorySource) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

type MockReviewSource struct {
	mock.Mock
}

func (m *MockReviewSource) ListReviews(ctx context.Context, productID int64, page, perPage int) (*catalog.ReviewPage, error) {
	args := m.Called(ctx, productID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ReviewPage), args.Error(1)
}

func (m *MockReviewSource) CreateReview(ctx context.Context, review catalog.NewReview) (*catalog.Review, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Review), args.Error(1)
}

type MockCouponSource struct {
	mock.Mock
}

func (m *MockCouponSource) FindCouponByCode(ctx context.Context, code string) (*sales.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Coupon), args.Error(1)
}

type MockOrderGateway struct {
	mock.Mock
}

func (m *MockOrderGateway) CreateOrder(ctx context.Context, order sales.NewOrder) (*sales.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func (m *MockOrderGateway) GetOrder(ctx context.Context, id int64) (*sales.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func (m *MockOrderGateway) UpdateOrder(ctx context.Context, id int64, update sales.OrderUpdate) (*sales.Order, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func (m *MockOrderGateway) AddOrderNote(ctx context.Context, id int64, note string, customerNote bool) error {
	return m.Called(ctx, id, note, customerNote).Error(0)
}

func (m *MockOrderGateway) ListOrderNotes(ctx context.Context, id int64, customerOnly bool) ([]sales.OrderNote, error) {
	args := m.Called(ctx, id, customerOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.OrderNote), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GatewayType() payment.GatewayType {
	return payment.GatewayTypeIzipay
}

func (m *MockGateway) CreateFormToken(ctx context.Context, req *payment.FormTokenRequest) (*payment.FormToken, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.FormToken), args.Error(1)
}

func (m *MockGateway) VerifyNotification(ctx context.Context, fields payment.SignedFields) (*payment.Notification, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Notification), args.Error(1)
}

func (m *MockGateway) VerifyBrowserReturn(ctx context.Context, fields payment.SignedFields) (*payment.Notification, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Notification), args.Error(1)
}

func (m *MockGateway) NotificationResponse(success bool) (string, []byte) {
	if success {
		return "text/plain; charset=utf-8", []byte("OK")
	}
	return "text/plain; charset=utf-8", []byte("KO")
}

type MockNewsletterGateway struct {
	mock.Mock
}

func (m *MockNewsletterGateway) Subscribe(ctx context.Context, subscriber marketing.Subscriber) (*marketing.Subscriber, error) {
	args := m.Called(ctx, subscriber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketing.Subscriber), args.Error(1)
}

// =============================================================================
// Helpers
// =============================================================================

// serve runs a single request through a router holding one route
func serve(method, route, target string, body io.Reader, contentType string, h gin.HandlerFunc, headers ...string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func product(id int64, price string) *catalog.Product {
	return &catalog.Product{
		ID:          id,
		Name:        "Alpaca scarf",
		Slug:        "alpaca-scarf",
		Type:        catalog.ProductTypeSimple,
		Status:      catalog.ProductStatusPublish,
		StockStatus: catalog.StockStatusInStock,
		Pricing:     catalog.Pricing{Price: decimal.RequireFromString(price), RegularPrice: decimal.RequireFromString(price)},
	}
}
