package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AppliedCoupon is a coupon that was accepted for the cart
type AppliedCoupon struct {
	Code         string
	DiscountType DiscountType
	// Discount is what this coupon took off the cart
	Discount     decimal.Decimal
	FreeShipping bool
}

// CouponRejection explains why a coupon was not applied
type CouponRejection struct {
	Code string
	Err  error
}

// ApplyOptions carries the context coupon rules depend on
type ApplyOptions struct {
	// Email is the billing email, empty before checkout
	Email string
	Now   time.Time
}

// ValidateCoupon checks a coupon's cart-level rules against the priced cart.
// It does not look at the other coupons in the cart.
func ValidateCoupon(coupon *Coupon, cart *Cart, opts ApplyOptions) error {
	if !coupon.DiscountType.IsValid() {
		return fmt.Errorf("%w: %s", ErrCouponInvalidType, coupon.DiscountType)
	}
	if coupon.IsExpired(opts.Now) {
		return ErrCouponExpired
	}
	if coupon.UsageExhausted() || coupon.UsageExhaustedFor(opts.Email) {
		return ErrCouponUsageLimitReached
	}

	subtotal := cart.Subtotal()
	if coupon.MinimumAmount.IsPositive() && subtotal.LessThan(coupon.MinimumAmount) {
		return fmt.Errorf("%w: the minimum spend is %s", ErrCouponMinimumNotMet, coupon.MinimumAmount.StringFixed(cart.Decimals))
	}
	if coupon.MaximumAmount.IsPositive() && subtotal.GreaterThan(coupon.MaximumAmount) {
		return fmt.Errorf("%w: the maximum spend is %s", ErrCouponMaximumExceeded, coupon.MaximumAmount.StringFixed(cart.Decimals))
	}
	if !coupon.AllowsEmail(opts.Email) {
		return ErrCouponEmailNotAllowed
	}
	if len(eligibleLines(coupon, cart)) == 0 {
		return ErrCouponNotApplicable
	}
	return nil
}

// ApplyCoupons applies coupons to the cart in the given order.
//
// Each coupon works on what the previous coupons left of every line, and no
// line ever drops below zero. Line discounts are accumulated on the cart
// lines themselves. Coupons that fail validation are returned as rejections
// and leave the cart untouched.
func ApplyCoupons(cart *Cart, coupons []Coupon, opts ApplyOptions) ([]AppliedCoupon, []CouponRejection) {
	var applied []AppliedCoupon
	var rejected []CouponRejection
	seen := make(map[string]bool, len(coupons))
	individualApplied := false

	for i := range coupons {
		coupon := &coupons[i]
		code := NormalizeCouponCode(coupon.Code)

		if seen[code] {
			rejected = append(rejected, CouponRejection{Code: code, Err: ErrCouponDuplicate})
			continue
		}
		seen[code] = true

		if individualApplied || (coupon.IndividualUse && len(applied) > 0) {
			rejected = append(rejected, CouponRejection{Code: code, Err: ErrCouponIndividualUse})
			continue
		}
		if err := ValidateCoupon(coupon, cart, opts); err != nil {
			rejected = append(rejected, CouponRejection{Code: code, Err: err})
			continue
		}

		discount := applyCoupon(coupon, cart)
		applied = append(applied, AppliedCoupon{
			Code:         code,
			DiscountType: coupon.DiscountType,
			Discount:     discount,
			FreeShipping: coupon.FreeShipping,
		})
		if coupon.IndividualUse {
			individualApplied = true
		}
	}
	return applied, rejected
}

func eligibleLines(coupon *Coupon, cart *Cart) []int {
	var idx []int
	for i := range cart.Lines {
		if coupon.AppliesTo(&cart.Lines[i]) {
			idx = append(idx, i)
		}
	}
	return idx
}

// applyCoupon adds the coupon's discount to the eligible lines and returns the total taken off
func applyCoupon(coupon *Coupon, cart *Cart) decimal.Decimal {
	lines := eligibleLines(coupon, cart)
	places := cart.Decimals
	total := decimal.Zero

	switch coupon.DiscountType {
	case DiscountTypePercent:
		rate := decimal.Min(coupon.Amount, hundred).Div(hundred)
		for _, i := range lines {
			line := &cart.Lines[i]
			d := capAt(line.Total().Mul(rate).Round(places), line.Total())
			line.Discount = line.Discount.Add(d)
			total = total.Add(d)
		}

	case DiscountTypeFixedProduct:
		for _, i := range lines {
			line := &cart.Lines[i]
			d := capAt(coupon.Amount.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(places), line.Total())
			line.Discount = line.Discount.Add(d)
			total = total.Add(d)
		}

	case DiscountTypeFixedCart:
		remaining := decimal.Zero
		var open []int
		for _, i := range lines {
			if t := cart.Lines[i].Total(); t.IsPositive() {
				remaining = remaining.Add(t)
				open = append(open, i)
			}
		}
		budget := decimal.Min(coupon.Amount.Round(places), remaining)
		if !budget.IsPositive() {
			return decimal.Zero
		}
		// shares round down so their sum never passes the budget
		spent := decimal.Zero
		for n, i := range open {
			line := &cart.Lines[i]
			var d decimal.Decimal
			if n == len(open)-1 {
				d = budget.Sub(spent)
			} else {
				d = budget.Mul(line.Total()).Div(remaining).RoundFloor(places)
			}
			d = capAt(decimal.Min(d, budget.Sub(spent)), line.Total())
			line.Discount = line.Discount.Add(d)
			spent = spent.Add(d)
		}
		// what a full last line could not take goes to earlier lines with room left
		for n := len(open) - 2; n >= 0 && spent.LessThan(budget); n-- {
			line := &cart.Lines[open[n]]
			d := capAt(budget.Sub(spent), line.Total())
			line.Discount = line.Discount.Add(d)
			spent = spent.Add(d)
		}
		total = spent
	}
	return total
}

func capAt(v, limit decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(limit) {
		return limit
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
