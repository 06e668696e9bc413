package sales

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
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

type MockShippingSource struct {
	mock.Mock
}

func (m *MockShippingSource) FreeShippingMinAmount(ctx context.Context, zoneID int64) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, zoneID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
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
	args := m.Called(ctx, id, note, customerNote)
	return args.Error(0)
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
	return "text/plain", []byte("OK")
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *payment.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) ListByOrder(ctx context.Context, orderID int64) ([]payment.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByTransactionUUID(ctx context.Context, transactionUUID string) (*payment.Transaction, error) {
	args := m.Called(ctx, transactionUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// couponRecorder counts coupon rejections
type couponRecorder struct {
	errs []error
}

func (r *couponRecorder) CouponRejected(_ context.Context, err error) {
	r.errs = append(r.errs, err)
}
