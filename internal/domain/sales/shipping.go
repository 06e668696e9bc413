package sales

import "github.com/shopspring/decimal"

// ShippingMethod identifies the WooCommerce shipping method of an order
type ShippingMethod string

const (
	ShippingMethodFree     ShippingMethod = "free_shipping"
	ShippingMethodFlatRate ShippingMethod = "flat_rate"
)

// ShippingPolicy holds the shop's shipping rules
type ShippingPolicy struct {
	// FreeShippingThreshold is the spend that unlocks free shipping; zero disables it
	FreeShippingThreshold decimal.Decimal
	// IgnoreDiscounts compares the threshold against the subtotal before coupons
	IgnoreDiscounts bool
	FlatRate        decimal.Decimal
	FlatRateTitle   string
	FreeTitle       string
}

// ShippingQuote is the shipping part of a cart quote
type ShippingQuote struct {
	Method ShippingMethod
	Title  string
	Cost   decimal.Decimal
	Free   bool
	// CouponGranted is true when a coupon, not the threshold, made shipping free
	CouponGranted bool
	Threshold     decimal.Decimal
	// Remaining is how much more the shopper must spend to reach the threshold
	Remaining decimal.Decimal
	// Progress is the percentage of the threshold reached, 0 to 100
	Progress int
}

// Quote computes shipping for a cart with the given subtotal and discount.
// An empty cart ships nothing and costs nothing.
func (p ShippingPolicy) Quote(subtotal, discount decimal.Decimal, couponFree, empty bool) ShippingQuote {
	q := ShippingQuote{
		Cost:      decimal.Zero,
		Threshold: p.FreeShippingThreshold,
		Remaining: decimal.Zero,
	}

	basis := subtotal
	if !p.IgnoreDiscounts {
		basis = subtotal.Sub(discount)
	}
	if basis.IsNegative() {
		basis = decimal.Zero
	}

	thresholdReached := false
	if p.FreeShippingThreshold.IsPositive() {
		thresholdReached = basis.GreaterThanOrEqual(p.FreeShippingThreshold)
		if !thresholdReached {
			q.Remaining = p.FreeShippingThreshold.Sub(basis)
		}
		progress := basis.Div(p.FreeShippingThreshold).Mul(hundred).Floor().IntPart()
		if progress > 100 {
			progress = 100
		}
		q.Progress = int(progress)
	}

	if empty {
		return q
	}

	switch {
	case thresholdReached || couponFree:
		q.Free = true
		q.CouponGranted = couponFree && !thresholdReached
		q.Method = ShippingMethodFree
		q.Title = p.FreeTitle
		if q.Title == "" {
			q.Title = "Free shipping"
		}
	default:
		q.Method = ShippingMethodFlatRate
		q.Cost = p.FlatRate
		q.Title = p.FlatRateTitle
		if q.Title == "" {
			q.Title = "Flat rate"
		}
	}
	return q
}
