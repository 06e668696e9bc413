package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/marketing"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
)

// ErrMeterNil is returned when no meter is given to NewBusinessMetrics
var ErrMeterNil = errors.New("telemetry: meter is nil")

// BusinessMetrics records storefront counters.
// Order, payment and newsletter counters are fed from domain events through
// Handle; coupon and cache counters are recorded by the services directly.
type BusinessMetrics struct {
	logger *zap.Logger

	ordersPlaced      *Counter
	orderAmountMinor  *Counter
	payments          *Counter
	couponRejections  *Counter
	cacheHits         *Counter
	cacheMisses       *Counter
	newsletterSignups *Counter
}

// NewBusinessMetrics creates the storefront counters on meter
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}
	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.ordersPlaced, "storefront_orders_placed_total", "Orders created through checkout", "{orders}"},
		{&bm.orderAmountMinor, "storefront_order_amount_minor_total", "Order totals in hundredths of the currency unit", "{cents}"},
		{&bm.payments, "storefront_payments_total", "Verified payment notifications by status", "{payments}"},
		{&bm.couponRejections, "storefront_coupon_rejections_total", "Coupons refused during quoting", "{coupons}"},
		{&bm.cacheHits, "storefront_cache_hits_total", "Response cache hits", "{hits}"},
		{&bm.cacheMisses, "storefront_cache_misses_total", "Response cache misses", "{misses}"},
		{&bm.newsletterSignups, "storefront_newsletter_signups_total", "Accepted newsletter subscriptions", "{subscribers}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}
	return bm, nil
}

// EventTypes lists the domain events the metrics consume
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		sales.EventTypeOrderPlaced,
		payment.EventTypePaymentConfirmed,
		payment.EventTypePaymentFailed,
		marketing.EventTypeSubscribed,
	}
}

// Handle records the counters matching a domain event
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.OrderPlacedEvent:
		currency := AttrCurrency.String(e.Currency)
		bm.ordersPlaced.Inc(ctx, currency)
		bm.orderAmountMinor.Add(ctx, e.Total.Shift(2).Round(0).IntPart(), currency)
	case *payment.PaymentEvent:
		bm.payments.Inc(ctx,
			AttrGateway.String(e.Gateway.String()),
			AttrPaymentStatus.String(string(e.Status)),
			AttrMismatch.Bool(e.AmountMismatch),
		)
	case *marketing.SubscribedEvent:
		bm.newsletterSignups.Inc(ctx)
	default:
		bm.logger.Debug("metrics ignored event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// CouponRejected counts a refused coupon under a reason label derived from err
func (bm *BusinessMetrics) CouponRejected(ctx context.Context, err error) {
	bm.couponRejections.Inc(ctx, AttrCouponReason.String(CouponReason(err)))
}

// CacheHit counts a hit in the named cache
func (bm *BusinessMetrics) CacheHit(ctx context.Context, name string) {
	bm.cacheHits.Inc(ctx, AttrCacheName.String(name))
}

// CacheMiss counts a miss in the named cache
func (bm *BusinessMetrics) CacheMiss(ctx context.Context, name string) {
	bm.cacheMisses.Inc(ctx, AttrCacheName.String(name))
}

var couponReasons = []struct {
	err    error
	reason string
}{
	{sales.ErrCouponNotFound, "not_found"},
	{sales.ErrCouponExpired, "expired"},
	{sales.ErrCouponUsageLimitReached, "usage_limit"},
	{sales.ErrCouponMinimumNotMet, "minimum_amount"},
	{sales.ErrCouponMaximumExceeded, "maximum_amount"},
	{sales.ErrCouponEmailNotAllowed, "email"},
	{sales.ErrCouponIndividualUse, "individual_use"},
	{sales.ErrCouponDuplicate, "duplicate"},
	{sales.ErrCouponNotApplicable, "not_applicable"},
	{sales.ErrCouponInvalidType, "invalid_type"},
}

// CouponReason turns a coupon error into a low-cardinality label
func CouponReason(err error) string {
	for _, r := range couponReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
