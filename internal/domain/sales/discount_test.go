package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testCart holds a regular-priced shirt (100 x 1) and a discounted shoe (50 x 2)
func testCart() Cart {
	return Cart{
		Currency: "PEN",
		Decimals: 2,
		Lines: []CartLine{
			{ProductID: 1, Name: "Shirt", Quantity: 1, UnitPrice: dec("100"), RegularPrice: dec("100"), CategoryIDs: []int64{10}},
			{ProductID: 2, Name: "Shoe", Quantity: 2, UnitPrice: dec("50"), RegularPrice: dec("60"), OnSale: true, CategoryIDs: []int64{20}},
		},
	}
}

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func applyOne(t *testing.T, cart *Cart, coupon Coupon) AppliedCoupon {
	t.Helper()
	applied, rejected := ApplyCoupons(cart, []Coupon{coupon}, ApplyOptions{Now: testNow})
	require.Empty(t, rejected)
	require.Len(t, applied, 1)
	return applied[0]
}

func TestApplyCoupons_Percent(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "TEN", DiscountType: DiscountTypePercent, Amount: dec("10")})

	assert.Equal(t, "ten", a.Code)
	assert.True(t, a.Discount.Equal(dec("20")))
	assert.True(t, cart.Lines[0].Discount.Equal(dec("10")))
	assert.True(t, cart.Lines[1].Discount.Equal(dec("10")))
}

func TestApplyCoupons_PercentCappedAtFullPrice(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "ALL", DiscountType: DiscountTypePercent, Amount: dec("150")})

	assert.True(t, a.Discount.Equal(dec("200")))
	assert.True(t, cart.Lines[0].Total().IsZero())
}

func TestApplyCoupons_FixedProduct(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "SHOE5", DiscountType: DiscountTypeFixedProduct, Amount: dec("5"), ProductIDs: []int64{2}})

	assert.True(t, a.Discount.Equal(dec("10")))
	assert.True(t, cart.Lines[0].Discount.IsZero())
	assert.True(t, cart.Lines[1].Discount.Equal(dec("10")))
}

func TestApplyCoupons_FixedProductCappedAtLine(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "BIG", DiscountType: DiscountTypeFixedProduct, Amount: dec("80")})

	// the shirt loses 80 of 100; 80 per shoe exceeds the shoe line, which drops to zero
	assert.True(t, a.Discount.Equal(dec("180")))
	assert.True(t, cart.Lines[0].Total().Equal(dec("20")))
	assert.True(t, cart.Lines[1].Total().IsZero())
}

func TestApplyCoupons_FixedCartSpreadsProportionally(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "THIRTY", DiscountType: DiscountTypeFixedCart, Amount: dec("30")})

	assert.True(t, a.Discount.Equal(dec("30")))
	assert.True(t, cart.Lines[0].Discount.Equal(dec("15")))
	assert.True(t, cart.Lines[1].Discount.Equal(dec("15")))
}

func TestApplyCoupons_FixedCartLastLineAbsorbsRounding(t *testing.T) {
	cart := Cart{Decimals: 2, Lines: []CartLine{
		{ProductID: 1, Quantity: 1, UnitPrice: dec("10")},
		{ProductID: 2, Quantity: 1, UnitPrice: dec("10")},
		{ProductID: 3, Quantity: 1, UnitPrice: dec("10")},
	}}
	a := applyOne(t, &cart, Coupon{Code: "TEN", DiscountType: DiscountTypeFixedCart, Amount: dec("10")})

	assert.True(t, a.Discount.Equal(dec("10")))
	assert.True(t, cart.Lines[0].Discount.Equal(dec("3.33")))
	assert.True(t, cart.Lines[1].Discount.Equal(dec("3.33")))
	assert.True(t, cart.Lines[2].Discount.Equal(dec("3.34")))
}

func TestApplyCoupons_FixedCartNeverExceedsAmount(t *testing.T) {
	equalLines := func(n int, price string) []CartLine {
		lines := make([]CartLine, n)
		for i := range lines {
			lines[i] = CartLine{ProductID: int64(i + 1), Quantity: 1, UnitPrice: dec(price)}
		}
		return lines
	}

	tests := []struct {
		name     string
		decimals int32
		price    string
		amount   string
	}{
		{name: "two decimals", decimals: 2, price: "1.00", amount: "0.03"},
		{name: "two decimals many lines", decimals: 2, price: "0.10", amount: "0.07"},
		{name: "zero decimals", decimals: 0, price: "100", amount: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := Cart{Decimals: tt.decimals, Lines: equalLines(5, tt.price)}
			a := applyOne(t, &cart, Coupon{Code: "SMALL", DiscountType: DiscountTypeFixedCart, Amount: dec(tt.amount)})

			assert.True(t, a.Discount.Equal(dec(tt.amount)), "discount %s", a.Discount)
			assert.True(t, cart.DiscountTotal().Equal(dec(tt.amount)), "cart discount %s", cart.DiscountTotal())
			for _, line := range cart.Lines {
				assert.False(t, line.Discount.IsNegative())
				assert.False(t, line.Total().IsNegative())
			}
		})
	}
}

func TestApplyCoupons_FixedCartLeftoverMovesToEarlierLines(t *testing.T) {
	// the last line is too small to absorb the remainder of the floored shares
	cart := Cart{Decimals: 0, Lines: []CartLine{
		{ProductID: 1, Quantity: 1, UnitPrice: dec("10")},
		{ProductID: 2, Quantity: 1, UnitPrice: dec("10")},
		{ProductID: 3, Quantity: 1, UnitPrice: dec("10")},
		{ProductID: 4, Quantity: 1, UnitPrice: dec("10")},
		{ProductID: 5, Quantity: 1, UnitPrice: dec("1")},
	}}
	a := applyOne(t, &cart, Coupon{Code: "SEVEN", DiscountType: DiscountTypeFixedCart, Amount: dec("7")})

	assert.True(t, a.Discount.Equal(dec("7")))
	assert.True(t, cart.DiscountTotal().Equal(dec("7")))
	assert.True(t, cart.Lines[4].Total().IsZero())
	assert.True(t, cart.Lines[3].Discount.Equal(dec("3")))
}

func TestApplyCoupons_FixedCartNeverExceedsCart(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "HUGE", DiscountType: DiscountTypeFixedCart, Amount: dec("1000")})

	assert.True(t, a.Discount.Equal(dec("200")))
	assert.True(t, cart.DiscountTotal().Equal(cart.Subtotal()))
}

func TestApplyCoupons_FixedCartExcludingSaleItems(t *testing.T) {
	cart := testCart()
	a := applyOne(t, &cart, Coupon{Code: "NOSALE", DiscountType: DiscountTypeFixedCart, Amount: dec("50"), ExcludeSaleItems: true})

	assert.True(t, a.Discount.Equal(dec("50")))
	assert.True(t, cart.Lines[0].Discount.Equal(dec("50")))
	assert.True(t, cart.Lines[1].Discount.IsZero())
}

func TestApplyCoupons_Sequential(t *testing.T) {
	cart := testCart()
	applied, rejected := ApplyCoupons(&cart, []Coupon{
		{Code: "TEN", DiscountType: DiscountTypePercent, Amount: dec("10")},
		{Code: "EIGHTEEN", DiscountType: DiscountTypeFixedCart, Amount: dec("18")},
	}, ApplyOptions{Now: testNow})

	require.Empty(t, rejected)
	require.Len(t, applied, 2)
	assert.True(t, applied[0].Discount.Equal(dec("20")))
	assert.True(t, applied[1].Discount.Equal(dec("18")))
	assert.True(t, cart.Lines[0].Discount.Equal(dec("19")))
	assert.True(t, cart.Lines[1].Discount.Equal(dec("19")))
	assert.True(t, cart.DiscountTotal().Equal(dec("38")))
}

func TestApplyCoupons_Rejections(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)

	tests := []struct {
		name    string
		coupon  Coupon
		email   string
		wantErr error
	}{
		{
			name:    "expired",
			coupon:  Coupon{Code: "OLD", DiscountType: DiscountTypePercent, Amount: dec("10"), DateExpires: &yesterday},
			wantErr: ErrCouponExpired,
		},
		{
			name:    "usage limit reached",
			coupon:  Coupon{Code: "USED", DiscountType: DiscountTypePercent, Amount: dec("10"), UsageLimit: 3, UsageCount: 3},
			wantErr: ErrCouponUsageLimitReached,
		},
		{
			name:    "minimum spend",
			coupon:  Coupon{Code: "MIN", DiscountType: DiscountTypePercent, Amount: dec("10"), MinimumAmount: dec("300")},
			wantErr: ErrCouponMinimumNotMet,
		},
		{
			name:    "maximum spend",
			coupon:  Coupon{Code: "MAX", DiscountType: DiscountTypePercent, Amount: dec("10"), MaximumAmount: dec("150")},
			wantErr: ErrCouponMaximumExceeded,
		},
		{
			name:    "email restriction",
			coupon:  Coupon{Code: "STAFF", DiscountType: DiscountTypePercent, Amount: dec("10"), EmailRestrictions: []string{"*@acme.com"}},
			email:   "bob@other.com",
			wantErr: ErrCouponEmailNotAllowed,
		},
		{
			name:    "no eligible item",
			coupon:  Coupon{Code: "OTHER", DiscountType: DiscountTypePercent, Amount: dec("10"), ProductIDs: []int64{99}},
			wantErr: ErrCouponNotApplicable,
		},
		{
			name:    "unsupported type",
			coupon:  Coupon{Code: "WEIRD", DiscountType: "recurring_percent", Amount: dec("10")},
			wantErr: ErrCouponInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := testCart()
			applied, rejected := ApplyCoupons(&cart, []Coupon{tt.coupon}, ApplyOptions{Email: tt.email, Now: testNow})

			assert.Empty(t, applied)
			require.Len(t, rejected, 1)
			assert.ErrorIs(t, rejected[0].Err, tt.wantErr)
			assert.True(t, cart.DiscountTotal().IsZero(), "a rejected coupon must not touch the cart")
		})
	}
}

func TestApplyCoupons_MinimumSpendMessage(t *testing.T) {
	cart := testCart()
	_, rejected := ApplyCoupons(&cart, []Coupon{
		{Code: "MIN", DiscountType: DiscountTypePercent, Amount: dec("10"), MinimumAmount: dec("300")},
	}, ApplyOptions{Now: testNow})

	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Err.Error(), "300.00")
}

func TestApplyCoupons_Duplicate(t *testing.T) {
	cart := testCart()
	applied, rejected := ApplyCoupons(&cart, []Coupon{
		{Code: "SAVE10", DiscountType: DiscountTypePercent, Amount: dec("10")},
		{Code: " save10", DiscountType: DiscountTypePercent, Amount: dec("10")},
	}, ApplyOptions{Now: testNow})

	require.Len(t, applied, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, "save10", rejected[0].Code)
	assert.ErrorIs(t, rejected[0].Err, ErrCouponDuplicate)
}

func TestApplyCoupons_IndividualUse(t *testing.T) {
	regular := Coupon{Code: "REGULAR", DiscountType: DiscountTypePercent, Amount: dec("5")}
	solo := Coupon{Code: "SOLO", DiscountType: DiscountTypeFixedCart, Amount: dec("20"), IndividualUse: true}

	t.Run("individual coupon after another", func(t *testing.T) {
		cart := testCart()
		applied, rejected := ApplyCoupons(&cart, []Coupon{regular, solo}, ApplyOptions{Now: testNow})
		require.Len(t, applied, 1)
		assert.Equal(t, "regular", applied[0].Code)
		require.Len(t, rejected, 1)
		assert.ErrorIs(t, rejected[0].Err, ErrCouponIndividualUse)
	})

	t.Run("coupon after an individual one", func(t *testing.T) {
		cart := testCart()
		applied, rejected := ApplyCoupons(&cart, []Coupon{solo, regular}, ApplyOptions{Now: testNow})
		require.Len(t, applied, 1)
		assert.Equal(t, "solo", applied[0].Code)
		require.Len(t, rejected, 1)
		assert.Equal(t, "regular", rejected[0].Code)
	})
}
