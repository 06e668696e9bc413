package sales

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Coupon Errors
// ---------------------------------------------------------------------------

var (
	ErrCouponNotFound          = errors.New("coupon: coupon does not exist")
	ErrCouponExpired           = errors.New("coupon: coupon has expired")
	ErrCouponUsageLimitReached = errors.New("coupon: usage limit has been reached")
	ErrCouponMinimumNotMet     = errors.New("coupon: minimum spend not met")
	ErrCouponMaximumExceeded   = errors.New("coupon: maximum spend exceeded")
	ErrCouponEmailNotAllowed   = errors.New("coupon: not valid for this email address")
	ErrCouponIndividualUse     = errors.New("coupon: cannot be combined with other coupons")
	ErrCouponDuplicate         = errors.New("coupon: already applied")
	ErrCouponNotApplicable     = errors.New("coupon: not applicable to the items in the cart")
	ErrCouponInvalidType       = errors.New("coupon: unsupported discount type")
)

// DiscountType is the WooCommerce coupon discount type
type DiscountType string

const (
	// DiscountTypePercent takes a percentage off eligible lines
	DiscountTypePercent DiscountType = "percent"
	// DiscountTypeFixedCart takes a fixed amount off the eligible part of the cart
	DiscountTypeFixedCart DiscountType = "fixed_cart"
	// DiscountTypeFixedProduct takes a fixed amount off each eligible unit
	DiscountTypeFixedProduct DiscountType = "fixed_product"
)

// IsValid returns true if the discount type is supported
func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercent, DiscountTypeFixedCart, DiscountTypeFixedProduct:
		return true
	default:
		return false
	}
}

// String returns the string representation of DiscountType
func (t DiscountType) String() string {
	return string(t)
}

// Coupon is a WooCommerce coupon and its restrictions
type Coupon struct {
	ID           int64
	Code         string
	DiscountType DiscountType
	// Amount is a percentage for percent coupons and a currency amount otherwise
	Amount decimal.Decimal
	// DateExpires is nil for coupons that never expire
	DateExpires *time.Time
	// UsageLimit and UsageLimitPerUser are 0 when unlimited
	UsageCount                int
	UsageLimit                int
	UsageLimitPerUser         int
	UsedBy                    []string
	IndividualUse             bool
	ProductIDs                []int64
	ExcludedProductIDs        []int64
	ProductCategories         []int64
	ExcludedProductCategories []int64
	ExcludeSaleItems          bool
	// MinimumAmount and MaximumAmount are zero when unset
	MinimumAmount     decimal.Decimal
	MaximumAmount     decimal.Decimal
	FreeShipping      bool
	EmailRestrictions []string
	Description       string
}

// NormalizeCouponCode returns the canonical form of a coupon code.
// WooCommerce stores coupon codes in lower case.
func NormalizeCouponCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// IsExpired returns true if the coupon expired before now
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.DateExpires != nil && now.UTC().After(c.DateExpires.UTC())
}

// UsageExhausted returns true if the global usage limit was reached
func (c *Coupon) UsageExhausted() bool {
	return c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit
}

// UsageExhaustedFor returns true if email already used the coupon as often as allowed
func (c *Coupon) UsageExhaustedFor(email string) bool {
	if c.UsageLimitPerUser <= 0 || email == "" {
		return false
	}
	email = strings.ToLower(strings.TrimSpace(email))
	uses := 0
	for _, u := range c.UsedBy {
		if strings.ToLower(strings.TrimSpace(u)) == email {
			uses++
		}
	}
	return uses >= c.UsageLimitPerUser
}

// AllowsEmail returns true if email satisfies the email restrictions.
// Restrictions may contain "*" wildcards such as "*@example.com".
// An empty email is allowed so restrictions can be checked at checkout.
func (c *Coupon) AllowsEmail(email string) bool {
	if len(c.EmailRestrictions) == 0 || email == "" {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, pattern := range c.EmailRestrictions {
		if wildcardMatch(strings.ToLower(strings.TrimSpace(pattern)), email) {
			return true
		}
	}
	return false
}

// HasItemRestrictions returns true if the coupon limits which products it applies to
func (c *Coupon) HasItemRestrictions() bool {
	return len(c.ProductIDs) > 0 || len(c.ProductCategories) > 0 ||
		len(c.ExcludedProductIDs) > 0 || len(c.ExcludedProductCategories) > 0 ||
		c.ExcludeSaleItems
}

// AppliesTo returns true if the cart line is eligible for the coupon.
// A variation line matches on both its variation id and its parent product id.
func (c *Coupon) AppliesTo(line *CartLine) bool {
	ids := []int64{line.ProductID}
	if line.VariationID > 0 {
		ids = append(ids, line.VariationID)
	}

	if len(c.ProductIDs) > 0 && !containsAny(c.ProductIDs, ids) {
		return false
	}
	if len(c.ProductCategories) > 0 && !containsAny(c.ProductCategories, line.CategoryIDs) {
		return false
	}
	if containsAny(c.ExcludedProductIDs, ids) {
		return false
	}
	if containsAny(c.ExcludedProductCategories, line.CategoryIDs) {
		return false
	}
	if c.ExcludeSaleItems && line.OnSale {
		return false
	}
	return true
}

func containsAny(set, values []int64) bool {
	for _, s := range set {
		for _, v := range values {
			if s == v {
				return true
			}
		}
	}
	return false
}

// wildcardMatch matches s against a pattern where "*" matches any run of characters
func wildcardMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, last)
}
