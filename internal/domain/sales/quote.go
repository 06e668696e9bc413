package sales

import "github.com/shopspring/decimal"

// Quote is a fully priced cart: lines, coupons, shipping and totals
type Quote struct {
	Cart          Cart
	Coupons       []AppliedCoupon
	Rejections    []CouponRejection
	Shipping      ShippingQuote
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	ShippingTotal decimal.Decimal
	Total         decimal.Decimal
}

// BuildQuote applies coupons and shipping rules to a priced cart.
// The caller's cart lines are left untouched.
func BuildQuote(cart Cart, coupons []Coupon, policy ShippingPolicy, opts ApplyOptions) *Quote {
	cart.Lines = append([]CartLine(nil), cart.Lines...)
	applied, rejected := ApplyCoupons(&cart, coupons, opts)

	couponFree := false
	for _, c := range applied {
		if c.FreeShipping {
			couponFree = true
			break
		}
	}

	subtotal := cart.Subtotal()
	discount := cart.DiscountTotal()
	shipping := policy.Quote(subtotal, discount, couponFree, cart.IsEmpty())

	total := subtotal.Sub(discount).Add(shipping.Cost)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Quote{
		Cart:          cart,
		Coupons:       applied,
		Rejections:    rejected,
		Shipping:      shipping,
		Subtotal:      subtotal,
		DiscountTotal: discount,
		ShippingTotal: shipping.Cost,
		Total:         total.Round(cart.Decimals),
	}
}

// HasRejections returns true if any requested coupon was refused
func (q *Quote) HasRejections() bool {
	return len(q.Rejections) > 0
}
