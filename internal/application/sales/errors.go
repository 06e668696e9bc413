package sales

import (
	"errors"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// Error codes returned by the sales services
const (
	CodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	CodeCouponInvalid      = "COUPON_INVALID"
)

var (
	// ErrProductUnavailable is returned when a cart item cannot be sold
	ErrProductUnavailable = shared.NewDomainError(CodeProductUnavailable, "Product is not available")
	// ErrInvalidOrderToken is returned when an order token is missing, expired or for another order
	ErrInvalidOrderToken = shared.NewDomainError("UNAUTHORIZED", "Order token is invalid or expired")
)

func productUnavailable(name string, productID int64, reason string) error {
	if name == "" {
		name = fmt.Sprintf("Product %d", productID)
	}
	return shared.NewDomainError(CodeProductUnavailable, fmt.Sprintf("%s %s", name, reason))
}

var couponMessages = []struct {
	err     error
	message string
}{
	{sales.ErrCouponNotFound, "Coupon %q does not exist"},
	{sales.ErrCouponExpired, "Coupon %q has expired"},
	{sales.ErrCouponUsageLimitReached, "Coupon %q has reached its usage limit"},
	{sales.ErrCouponMinimumNotMet, "Coupon %q needs a larger order"},
	{sales.ErrCouponMaximumExceeded, "Coupon %q is not valid for orders this large"},
	{sales.ErrCouponEmailNotAllowed, "Coupon %q is not valid for your email address"},
	{sales.ErrCouponIndividualUse, "Coupon %q cannot be combined with other coupons"},
	{sales.ErrCouponDuplicate, "Coupon %q is already applied"},
	{sales.ErrCouponNotApplicable, "Coupon %q does not apply to the products in your cart"},
	{sales.ErrCouponInvalidType, "Coupon %q cannot be used in this store"},
}

// CouponMessage returns a shopper facing explanation of a coupon rejection
func CouponMessage(code string, err error) string {
	for _, m := range couponMessages {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := fmt.Sprintf(m.message, code)
		// wrapped rejections carry a detail such as "the minimum spend is 50.00"
		if detail := strings.TrimPrefix(err.Error(), m.err.Error()+": "); detail != err.Error() && detail != "" {
			msg += ": " + detail
		}
		return msg + "."
	}
	return fmt.Sprintf("Coupon %q could not be applied.", code)
}

func toCouponError(code string, err error) CouponErrorResponse {
	return CouponErrorResponse{
		Code:    code,
		Reason:  telemetry.CouponReason(err),
		Message: CouponMessage(code, err),
	}
}
