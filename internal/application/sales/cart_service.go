package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/integration"
	"github.com/storefront/backend/internal/domain/sales"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// The zone threshold lives under the catalog prefix so webhook purges refresh it too
const (
	keyShippingZone  = "catalog:shipping:zone:"
	shippingZoneTTL  = 15 * time.Minute
	freeShippingName = "Free shipping"
)

// CouponMetrics observes coupon rejections
type CouponMetrics interface {
	CouponRejected(ctx context.Context, err error)
}

type noopCouponMetrics struct{}

func (noopCouponMetrics) CouponRejected(context.Context, error) {}

// CartService prices carts from the catalog and applies coupons and shipping rules.
// Carts are never stored; every quote is computed from the request.
type CartService struct {
	products catalog.ProductSource
	coupons  sales.CouponSource
	shipping sales.ShippingSource
	cache    shared.Cache
	shop     config.ShopConfig
	metrics  CouponMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewCartService creates a new CartService. cache and shipping may be nil.
func NewCartService(
	products catalog.ProductSource,
	coupons sales.CouponSource,
	shipping sales.ShippingSource,
	cache shared.Cache,
	shop config.ShopConfig,
	logger *zap.Logger,
) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		products: products,
		coupons:  coupons,
		shipping: shipping,
		cache:    cache,
		shop:     shop,
		metrics:  noopCouponMetrics{},
		logger:   logger,
		now:      time.Now,
	}
}

// SetCouponMetrics sets the observer of coupon rejections
func (s *CartService) SetCouponMetrics(m CouponMetrics) {
	if m == nil {
		m = noopCouponMetrics{}
	}
	s.metrics = m
}

// QuoteCart prices the cart and reports which coupons were refused
func (s *CartService) QuoteCart(ctx context.Context, req QuoteCartRequest) (*QuoteResponse, error) {
	quote, err := s.Quote(ctx, toCartItems(req.Items), req.Coupons, req.Email, false)
	if err != nil {
		return nil, err
	}
	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// Quote prices items from the catalog and applies coupons and shipping.
// In strict mode any refused coupon fails the quote.
func (s *CartService) Quote(ctx context.Context, items []sales.CartItem, couponCodes []string, email string, strict bool) (*sales.Quote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "quote",
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, len(items)),
		telemetry.WithAttribute(telemetry.SpanAttrCouponCount, len(couponCodes)))
	defer span.End()

	cart, err := s.PriceCart(ctx, items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	coupons, missing, err := s.loadCoupons(ctx, couponCodes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	quote := sales.BuildQuote(*cart, coupons, s.shippingPolicy(ctx), sales.ApplyOptions{Email: email, Now: s.now()})
	quote.Rejections = append(missing, quote.Rejections...)
	for _, r := range quote.Rejections {
		s.metrics.CouponRejected(ctx, r.Err)
	}

	if strict && quote.HasRejections() {
		r := quote.Rejections[0]
		return nil, shared.NewDomainError(CodeCouponInvalid, CouponMessage(r.Code, r.Err))
	}
	return quote, nil
}

// PriceCart turns cart items into lines priced from the catalog.
// Repeated items are merged before stock is checked.
func (s *CartService) PriceCart(ctx context.Context, items []sales.CartItem) (*sales.Cart, error) {
	cart := &sales.Cart{Currency: s.shop.Currency, Decimals: s.shop.CurrencyDecimals}

	merged := make([]sales.CartItem, 0, len(items))
	index := make(map[[2]int64]int, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		k := [2]int64{it.ProductID, it.VariationID}
		if i, ok := index[k]; ok {
			merged[i].Quantity += it.Quantity
			if err := merged[i].Validate(); err != nil {
				return nil, err
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, it)
	}

	for _, it := range merged {
		line, err := s.priceItem(ctx, it)
		if err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, *line)
	}
	return cart, nil
}

func (s *CartService) priceItem(ctx context.Context, it sales.CartItem) (*sales.CartLine, error) {
	product, err := s.products.GetProduct(ctx, it.ProductID)
	if err != nil {
		if errors.Is(err, integration.ErrPlatformNotFound) {
			return nil, productUnavailable("", it.ProductID, "no longer exists")
		}
		return nil, integration.ToDomainError(err)
	}
	if !product.IsPurchasable() {
		return nil, productUnavailable(product.Name, product.ID, "is not available")
	}

	line := &sales.CartLine{
		ProductID:   product.ID,
		Name:        product.Name,
		SKU:         product.SKU,
		Quantity:    it.Quantity,
		CategoryIDs: product.CategoryIDs(),
		Discount:    decimal.Zero,
	}
	if len(product.Images) > 0 {
		line.ImageSrc = product.Images[0].Src
	}

	if it.VariationID == 0 {
		if product.Type == catalog.ProductTypeVariable {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s requires choosing an option", product.Name))
		}
		if !product.HasStockFor(it.Quantity) {
			return nil, productUnavailable(product.Name, product.ID, "does not have enough stock")
		}
		line.UnitPrice = product.Pricing.Price
		line.RegularPrice = product.Pricing.RegularPrice
		line.OnSale = product.Pricing.OnSale
		return line, nil
	}

	variation, err := s.products.GetVariation(ctx, product.ID, it.VariationID)
	if err != nil {
		if errors.Is(err, integration.ErrPlatformNotFound) {
			return nil, productUnavailable(product.Name, product.ID, "option no longer exists")
		}
		return nil, integration.ToDomainError(err)
	}
	name := product.Name
	if label := variation.Label(); label != "" {
		name += " - " + label
	}
	if !variation.IsPurchasable() {
		return nil, productUnavailable(name, product.ID, "is not available")
	}
	if !variation.HasStockFor(it.Quantity) {
		return nil, productUnavailable(name, product.ID, "does not have enough stock")
	}

	line.VariationID = variation.ID
	line.Name = name
	if variation.SKU != "" {
		line.SKU = variation.SKU
	}
	if variation.Image != nil {
		line.ImageSrc = variation.Image.Src
	}
	line.UnitPrice = variation.Pricing.Price
	line.RegularPrice = variation.Pricing.RegularPrice
	line.OnSale = variation.Pricing.OnSale
	return line, nil
}

// loadCoupons looks up every code; unknown codes come back as rejections
func (s *CartService) loadCoupons(ctx context.Context, codes []string) ([]sales.Coupon, []sales.CouponRejection, error) {
	var coupons []sales.Coupon
	var missing []sales.CouponRejection
	found := make(map[string]*sales.Coupon, len(codes))

	for _, raw := range codes {
		code := sales.NormalizeCouponCode(raw)
		if code == "" {
			continue
		}
		if c, ok := found[code]; ok {
			coupons = append(coupons, *c)
			continue
		}
		c, err := s.coupons.FindCouponByCode(ctx, code)
		switch {
		case errors.Is(err, sales.ErrCouponNotFound):
			missing = append(missing, sales.CouponRejection{Code: code, Err: sales.ErrCouponNotFound})
			continue
		case err != nil:
			return nil, nil, integration.ToDomainError(err)
		}
		found[code] = c
		coupons = append(coupons, *c)
	}
	return coupons, missing, nil
}

// ValidateCoupon checks one coupon against a cart without failing on refusal
func (s *CartService) ValidateCoupon(ctx context.Context, req ValidateCouponRequest) (*CouponValidationResponse, error) {
	code := sales.NormalizeCouponCode(req.Code)
	resp := &CouponValidationResponse{Code: code, Discount: decimal.Zero}

	cart, err := s.PriceCart(ctx, toCartItems(req.Items))
	if err != nil {
		return nil, err
	}
	coupons, missing, err := s.loadCoupons(ctx, []string{code})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		s.metrics.CouponRejected(ctx, missing[0].Err)
		return rejected(resp, missing[0]), nil
	}

	quote := sales.BuildQuote(*cart, coupons, s.shippingPolicy(ctx), sales.ApplyOptions{Email: req.Email, Now: s.now()})
	if quote.HasRejections() {
		s.metrics.CouponRejected(ctx, quote.Rejections[0].Err)
		return rejected(resp, quote.Rejections[0]), nil
	}
	applied := quote.Coupons[0]
	resp.Valid = true
	resp.DiscountType = applied.DiscountType.String()
	resp.Discount = applied.Discount
	resp.FreeShipping = applied.FreeShipping
	return resp, nil
}

func rejected(resp *CouponValidationResponse, r sales.CouponRejection) *CouponValidationResponse {
	e := toCouponError(r.Code, r.Err)
	resp.Reason = e.Reason
	resp.Message = e.Message
	return resp
}

// GetShopSettings returns currency and shipping settings for the storefront
func (s *CartService) GetShopSettings(ctx context.Context) *ShopSettingsResponse {
	policy := s.shippingPolicy(ctx)
	return &ShopSettingsResponse{
		Currency:              s.shop.Currency,
		CurrencyDecimals:      s.shop.CurrencyDecimals,
		FreeShippingThreshold: policy.FreeShippingThreshold,
		FreeShippingEnabled:   policy.FreeShippingThreshold.IsPositive(),
		IgnoreDiscounts:       policy.IgnoreDiscounts,
		FlatRate:              policy.FlatRate,
		FlatRateTitle:         policy.FlatRateTitle,
	}
}

func (s *CartService) shippingPolicy(ctx context.Context) sales.ShippingPolicy {
	return sales.ShippingPolicy{
		FreeShippingThreshold: s.freeShippingThreshold(ctx),
		IgnoreDiscounts:       s.shop.FreeShippingIgnoreDiscounts,
		FlatRate:              s.shop.FlatRateShipping,
		FlatRateTitle:         s.shop.FlatRateTitle,
		FreeTitle:             freeShippingName,
	}
}

// freeShippingThreshold prefers the zone's free shipping minimum and falls
// back to the configured threshold when the zone cannot be read.
func (s *CartService) freeShippingThreshold(ctx context.Context) decimal.Decimal {
	fallback := s.shop.FreeShippingThreshold
	zoneID := s.shop.FreeShippingZoneID
	if zoneID <= 0 || s.shipping == nil {
		return fallback
	}
	log := logger.Or(ctx, s.logger)
	key := keyShippingZone + strconv.FormatInt(zoneID, 10)

	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			if d, err := decimal.NewFromString(string(raw)); err == nil {
				return d
			}
		} else if err != nil {
			log.Warn("Shipping zone cache read failed", zap.Error(err))
		}
	}

	amount, ok, err := s.shipping.FreeShippingMinAmount(ctx, zoneID)
	if err != nil {
		log.Warn("Free shipping zone lookup failed, using configured threshold",
			zap.Int64("zone_id", zoneID), zap.Error(err))
		return fallback
	}
	if !ok {
		amount = fallback
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(amount.String()), shippingZoneTTL); err != nil {
			log.Warn("Shipping zone cache write failed", zap.Error(err))
		}
	}
	return amount
}
