package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
)

// =============================================================================
// Mocks
// =============================================================================

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

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

// brokenStore fails every call
type brokenStore struct{}

func (brokenStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (brokenStore) IsProcessed(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (brokenStore) Forget(context.Context, string) error {
	return errors.New("redis down")
}

func (brokenStore) Close() error {
	return nil
}

// =============================================================================
// Fixtures
// =============================================================================

type ipnFixture struct {
	gateway   *MockGateway
	orders    *MockOrderGateway
	journal   *MockTransactionRepository
	store     shared.IdempotencyStore
	publisher *recordingPublisher
	service   *IPNService
}

func newIPNFixture(t *testing.T, store shared.IdempotencyStore) *ipnFixture {
	t.Helper()
	f := &ipnFixture{
		gateway:   new(MockGateway),
		orders:    new(MockOrderGateway),
		journal:   new(MockTransactionRepository),
		store:     store,
		publisher: &recordingPublisher{},
	}
	f.service = NewIPNService(IPNServiceConfig{
		Gateway:          f.gateway,
		Orders:           f.orders,
		Journal:          f.journal,
		Idempotency:      store,
		CurrencyDecimals: 2,
	})
	f.service.SetEventPublisher(f.publisher)
	return f
}

func memoryStore(t *testing.T) *cache.InMemoryIdempotencyStore {
	t.Helper()
	s := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var signed = payment.SignedFields{
	Answer:        `{"orderStatus":"PAID"}`,
	Hash:          "abc",
	HashAlgorithm: "sha256_hmac",
	HashKey:       "password",
	AnswerType:    "V4/Payment",
}

func notification(status payment.Status, gatewayStatus, amount string) *payment.Notification {
	return &payment.Notification{
		GatewayType:     payment.GatewayTypeIzipay,
		OrderID:         "1001",
		Status:          status,
		GatewayStatus:   gatewayStatus,
		TransactionUUID: "tx-1",
		Amount:          decimal.RequireFromString(amount),
		Currency:        "PEN",
		RawAnswer:       signed.Answer,
	}
}

func order(status sales.OrderStatus, total string) *sales.Order {
	return &sales.Order{
		ID:       1001,
		Status:   status,
		Currency: "PEN",
		Total:    decimal.RequireFromString(total),
	}
}

func statusPtr(s sales.OrderStatus) *sales.OrderStatus { return &s }

// =============================================================================
// HandleIPN
// =============================================================================

func TestIPNService_HandleIPN_Paid(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.MatchedBy(func(tx *payment.Transaction) bool {
		return tx.OrderID == 1001 && tx.TransactionUUID == "tx-1" && tx.Status == payment.StatusPaid
	})).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60"), nil)
	f.orders.On("UpdateOrder", mock.Anything, int64(1001), mock.MatchedBy(func(u sales.OrderUpdate) bool {
		return *u.Status == sales.OrderStatusProcessing && *u.SetPaid && *u.TransactionID == "tx-1"
	})).Return(order(sales.OrderStatusProcessing, "60"), nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(result.Body))
	assert.Equal(t, "text/plain; charset=utf-8", result.ContentType)
	assert.False(t, result.Duplicate)
	assert.False(t, result.AmountMismatch)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0].(*payment.PaymentEvent)
	assert.Equal(t, payment.EventTypePaymentConfirmed, event.EventType())
	assert.False(t, event.AmountMismatch)

	f.orders.AssertExpectations(t)
	f.journal.AssertExpectations(t)
}

func TestIPNService_HandleIPN_Duplicate(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil).Once()
	f.orders.On("UpdateOrder", mock.Anything, int64(1001), mock.Anything).Return(order(sales.OrderStatusProcessing, "60.00"), nil).Once()

	_, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, "OK", string(result.Body))

	f.orders.AssertNumberOfCalls(t, "UpdateOrder", 1)
	f.journal.AssertNumberOfCalls(t, "Save", 1)
	assert.Len(t, f.publisher.events, 1)
}

func TestIPNService_HandleIPN_AmountMismatch(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "59.99")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil)
	f.orders.On("UpdateOrder", mock.Anything, int64(1001), sales.OrderUpdate{Status: statusPtr(sales.OrderStatusOnHold)}).
		Return(order(sales.OrderStatusOnHold, "60.00"), nil)
	f.orders.On("AddOrderNote", mock.Anything, int64(1001), mock.MatchedBy(func(note string) bool {
		return assert.Contains(t, note, "59.99 PEN") && assert.Contains(t, note, "60.00 PEN")
	}), false).Return(nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.True(t, result.AmountMismatch)

	require.Len(t, f.publisher.events, 1)
	assert.True(t, f.publisher.events[0].(*payment.PaymentEvent).AmountMismatch)
	f.orders.AssertExpectations(t)
}

func TestIPNService_HandleIPN_RoundsToMinorUnits(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	// 60.004 rounds to 6000 minor units, same as the order
	n := notification(payment.StatusPaid, "PAID", "60.004")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60"), nil)
	f.orders.On("UpdateOrder", mock.Anything, int64(1001), mock.MatchedBy(func(u sales.OrderUpdate) bool {
		return *u.Status == sales.OrderStatusProcessing
	})).Return(order(sales.OrderStatusProcessing, "60"), nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.False(t, result.AmountMismatch)
}

func TestIPNService_HandleIPN_PaidOnFinishedOrder(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusCompleted, "60.00"), nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(result.Body))
	f.orders.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestIPNService_HandleIPN_Failed(t *testing.T) {
	t.Run("pending order is marked failed", func(t *testing.T) {
		f := newIPNFixture(t, memoryStore(t))
		n := notification(payment.StatusFailed, "UNPAID", "60.00")
		n.DetailedStatus = "REFUSED"

		f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
		f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil)
		f.orders.On("UpdateOrder", mock.Anything, int64(1001), sales.OrderUpdate{Status: statusPtr(sales.OrderStatusFailed)}).
			Return(order(sales.OrderStatusFailed, "60.00"), nil)
		f.orders.On("AddOrderNote", mock.Anything, int64(1001), "Izipay payment refused (REFUSED).", false).Return(nil)

		_, err := f.service.HandleIPN(context.Background(), signed)
		require.NoError(t, err)
		f.orders.AssertExpectations(t)

		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, payment.EventTypePaymentFailed, f.publisher.events[0].EventType())
	})

	t.Run("paid order is left alone", func(t *testing.T) {
		f := newIPNFixture(t, memoryStore(t))
		n := notification(payment.StatusFailed, "UNPAID", "60.00")

		f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
		f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusProcessing, "60.00"), nil)

		_, err := f.service.HandleIPN(context.Background(), signed)
		require.NoError(t, err)
		f.orders.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestIPNService_HandleIPN_CancelledAddsNote(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusCancelled, "ABANDONED", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil)
	f.orders.On("AddOrderNote", mock.Anything, int64(1001), "Izipay payment abandoned by the shopper (ABANDONED).", false).Return(nil)

	_, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	f.orders.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertExpectations(t)
}

func TestIPNService_HandleIPN_PendingPublishesNothing(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPending, "RUNNING", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil)

	_, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.Empty(t, f.publisher.events)
}

func TestIPNService_HandleIPN_VerificationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bad signature", payment.ErrGatewayInvalidCallback, ErrNotificationSignature},
		{"unsupported hash", payment.ErrGatewayUnsupportedHash, ErrNotificationSignature},
		{"unparseable answer", payment.ErrGatewayInvalidResponse, ErrNotificationMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIPNFixture(t, memoryStore(t))
			f.gateway.On("VerifyNotification", mock.Anything, signed).
				Return(nil, fmt.Errorf("%w: detail", tt.err))

			_, err := f.service.HandleIPN(context.Background(), signed)
			assert.ErrorIs(t, err, tt.want)
			f.journal.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestIPNService_HandleIPN_UnknownOrderIsAcknowledged(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).
		Return(nil, fmt.Errorf("%w: order 1001", integration.ErrPlatformNotFound))

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(result.Body))
}

func TestIPNService_HandleIPN_NonNumericOrderIsAcknowledged(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "60.00")
	n.OrderID = "test-order"

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(result.Body))
	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestIPNService_HandleIPN_FailureReleasesKey(t *testing.T) {
	store := memoryStore(t)
	f := newIPNFixture(t, store)
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).
		Return(nil, fmt.Errorf("%w: 503", integration.ErrPlatformUnavailable)).Once()

	_, err := f.service.HandleIPN(context.Background(), signed)
	require.Error(t, err)

	processed, err := store.IsProcessed(context.Background(), n.IdempotencyKey())
	require.NoError(t, err)
	assert.False(t, processed, "retry must be processed again")

	// the retry goes through
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil)
	f.orders.On("UpdateOrder", mock.Anything, int64(1001), mock.Anything).Return(order(sales.OrderStatusProcessing, "60.00"), nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
}

func TestIPNService_HandleIPN_JournalFailure(t *testing.T) {
	store := memoryStore(t)
	f := newIPNFixture(t, store)
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := f.service.HandleIPN(context.Background(), signed)
	require.Error(t, err)
	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)

	processed, _ := store.IsProcessed(context.Background(), n.IdempotencyKey())
	assert.False(t, processed)
}

func TestIPNService_HandleIPN_BrokenStoreStillProcesses(t *testing.T) {
	f := newIPNFixture(t, brokenStore{})
	n := notification(payment.StatusPaid, "PAID", "60.00")

	f.gateway.On("VerifyNotification", mock.Anything, signed).Return(n, nil)
	f.journal.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetOrder", mock.Anything, int64(1001)).Return(order(sales.OrderStatusPending, "60.00"), nil)
	f.orders.On("UpdateOrder", mock.Anything, int64(1001), mock.Anything).Return(order(sales.OrderStatusProcessing, "60.00"), nil)

	result, err := f.service.HandleIPN(context.Background(), signed)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	f.orders.AssertExpectations(t)
}

// =============================================================================
// VerifyBrowserReturn
// =============================================================================

func TestIPNService_VerifyBrowserReturn(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	n := notification(payment.StatusPaid, "PAID", "60.00")
	f.gateway.On("VerifyBrowserReturn", mock.Anything, signed).Return(n, nil)

	resp, err := f.service.VerifyBrowserReturn(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "1001", resp.OrderID)
	assert.Equal(t, "PAID", resp.Status)
	assert.True(t, resp.Paid)
	assert.True(t, resp.Amount.Equal(decimal.RequireFromString("60")))

	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	f.journal.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestIPNService_VerifyBrowserReturn_BadSignature(t *testing.T) {
	f := newIPNFixture(t, memoryStore(t))
	f.gateway.On("VerifyBrowserReturn", mock.Anything, signed).Return(nil, payment.ErrGatewayInvalidCallback)

	_, err := f.service.VerifyBrowserReturn(context.Background(), signed)
	assert.ErrorIs(t, err, ErrNotificationSignature)
}
