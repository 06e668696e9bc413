package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "summer10", NormalizeCouponCode("  SUMMER10 "))
	assert.Equal(t, "", NormalizeCouponCode("   "))
}

func TestDiscountType_IsValid(t *testing.T) {
	assert.True(t, DiscountTypePercent.IsValid())
	assert.True(t, DiscountTypeFixedCart.IsValid())
	assert.True(t, DiscountTypeFixedProduct.IsValid())
	assert.False(t, DiscountType("sign_up_fee").IsValid())
}

func TestCoupon_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	assert.False(t, (&Coupon{}).IsExpired(now))
	assert.True(t, (&Coupon{DateExpires: &yesterday}).IsExpired(now))
	assert.False(t, (&Coupon{DateExpires: &tomorrow}).IsExpired(now))
}

func TestCoupon_Usage(t *testing.T) {
	t.Run("unlimited", func(t *testing.T) {
		c := Coupon{UsageCount: 1000}
		assert.False(t, c.UsageExhausted())
	})

	t.Run("global limit reached", func(t *testing.T) {
		c := Coupon{UsageCount: 5, UsageLimit: 5}
		assert.True(t, c.UsageExhausted())
	})

	t.Run("per user limit", func(t *testing.T) {
		c := Coupon{UsageLimitPerUser: 1, UsedBy: []string{"Ana@Example.com", "42"}}
		assert.True(t, c.UsageExhaustedFor("ana@example.com"))
		assert.False(t, c.UsageExhaustedFor("luis@example.com"))
		assert.False(t, c.UsageExhaustedFor(""))
	})
}

func TestCoupon_AllowsEmail(t *testing.T) {
	c := Coupon{EmailRestrictions: []string{"*@acme.com", "vip@example.com"}}

	assert.True(t, c.AllowsEmail("buyer@ACME.com"))
	assert.True(t, c.AllowsEmail(" vip@example.com"))
	assert.False(t, c.AllowsEmail("buyer@other.com"))
	assert.False(t, c.AllowsEmail("buyer@acme.com.evil.io"))
	assert.True(t, c.AllowsEmail(""), "restrictions are deferred until an email is known")
	assert.True(t, (&Coupon{}).AllowsEmail("anyone@anywhere.com"))
}

func TestCoupon_AppliesTo(t *testing.T) {
	shirt := CartLine{ProductID: 1, CategoryIDs: []int64{10}}
	saleShoe := CartLine{ProductID: 2, VariationID: 21, CategoryIDs: []int64{20}, OnSale: true}

	tests := []struct {
		name   string
		coupon Coupon
		line   CartLine
		want   bool
	}{
		{"unrestricted", Coupon{}, shirt, true},
		{"product match", Coupon{ProductIDs: []int64{1}}, shirt, true},
		{"product mismatch", Coupon{ProductIDs: []int64{3}}, shirt, false},
		{"variation matches by variation id", Coupon{ProductIDs: []int64{21}}, saleShoe, true},
		{"variation matches by parent id", Coupon{ProductIDs: []int64{2}}, saleShoe, true},
		{"category match", Coupon{ProductCategories: []int64{20}}, saleShoe, true},
		{"category mismatch", Coupon{ProductCategories: []int64{30}}, shirt, false},
		{"excluded product", Coupon{ExcludedProductIDs: []int64{1}}, shirt, false},
		{"excluded category", Coupon{ExcludedProductCategories: []int64{20}}, saleShoe, false},
		{"sale items excluded", Coupon{ExcludeSaleItems: true}, saleShoe, false},
		{"sale exclusion ignores regular items", Coupon{ExcludeSaleItems: true}, shirt, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := tt.line
			assert.Equal(t, tt.want, tt.coupon.AppliesTo(&line))
		})
	}
}

func TestWildcardMatch(t *testing.T) {
	assert.True(t, wildcardMatch("*", "anything"))
	assert.True(t, wildcardMatch("a*c", "abc"))
	assert.True(t, wildcardMatch("a*b*c", "axxbyyc"))
	assert.False(t, wildcardMatch("a*a", "a"))
	assert.False(t, wildcardMatch("abc", "abcd"))
	assert.True(t, wildcardMatch("abc", "abc"))
}

func TestCartLine_Totals(t *testing.T) {
	l := CartLine{UnitPrice: decimal.RequireFromString("12.50"), Quantity: 3, Discount: decimal.RequireFromString("5")}
	assert.Equal(t, "37.5", l.Subtotal().String())
	assert.Equal(t, "32.5", l.Total().String())
}

func TestCartItem_Validate(t *testing.T) {
	assert.NoError(t, CartItem{ProductID: 1, Quantity: 1}.Validate())
	assert.NoError(t, CartItem{ProductID: 1, VariationID: 5, Quantity: 999}.Validate())
	assert.Error(t, CartItem{ProductID: 0, Quantity: 1}.Validate())
	assert.Error(t, CartItem{ProductID: 1, VariationID: -1, Quantity: 1}.Validate())
	assert.Error(t, CartItem{ProductID: 1, Quantity: 0}.Validate())
	assert.Error(t, CartItem{ProductID: 1, Quantity: 1000}.Validate())
}
