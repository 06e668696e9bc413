package woocommerce

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/sales"
)

func toImage(img *wcImage) *catalog.Image {
	if img == nil || img.Src == "" {
		return nil
	}
	return &catalog.Image{ID: img.ID, Src: img.Src, Alt: img.Alt}
}

func toTerms(terms []wcTerm) []catalog.TermRef {
	out := make([]catalog.TermRef, 0, len(terms))
	for _, t := range terms {
		out = append(out, catalog.TermRef{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return out
}

func toProduct(p *wcProduct, currency string) catalog.Product {
	images := make([]catalog.Image, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, catalog.Image{ID: img.ID, Src: img.Src, Alt: img.Alt})
	}
	attrs := make([]catalog.Attribute, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		attrs = append(attrs, catalog.Attribute{Name: a.Name, Options: a.Options, Variation: a.Variation})
	}
	rating := p.AverageRating
	if rating == "" {
		rating = "0.00"
	}

	return catalog.Product{
		ID:                p.ID,
		Name:              p.Name,
		Slug:              p.Slug,
		Permalink:         p.Permalink,
		Type:              catalog.ProductType(p.Type),
		Status:            p.Status,
		Featured:          p.Featured,
		SKU:               p.SKU,
		ShortDescription:  p.ShortDescription,
		Description:       p.Description,
		Pricing:           catalog.NewPricing(p.Price.Decimal, p.RegularPrice.Decimal, p.SalePrice.Decimal, currency),
		Images:            images,
		Categories:        toTerms(p.Categories),
		Tags:              toTerms(p.Tags),
		Attributes:        attrs,
		StockStatus:       catalog.StockStatus(p.StockStatus),
		ManageStock:       bool(p.ManageStock),
		StockQuantity:     p.StockQuantity,
		BackordersAllowed: p.Backorders != "" && p.Backorders != "no",
		AverageRating:     rating,
		RatingCount:       p.RatingCount,
		RelatedIDs:        nonNil(p.RelatedIDs),
		VariationIDs:      nonNil(p.Variations),
	}
}

func toVariation(v *wcVariation, parentID int64, currency string) catalog.Variation {
	attrs := make([]catalog.VariationAttribute, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		attrs = append(attrs, catalog.VariationAttribute{Name: a.Name, Option: a.Option})
	}
	return catalog.Variation{
		ID:                v.ID,
		ParentID:          parentID,
		SKU:               v.SKU,
		Status:            v.Status,
		Pricing:           catalog.NewPricing(v.Price.Decimal, v.RegularPrice.Decimal, v.SalePrice.Decimal, currency),
		StockStatus:       catalog.StockStatus(v.StockStatus),
		ManageStock:       bool(v.ManageStock),
		StockQuantity:     v.StockQuantity,
		BackordersAllowed: v.Backorders != "" && v.Backorders != "no",
		Attributes:        attrs,
		Image:             toImage(v.Image),
	}
}

func toCategory(c *wcCategory) catalog.Category {
	return catalog.Category{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		ParentID:    c.Parent,
		Description: c.Description,
		Display:     c.Display,
		Image:       toImage(c.Image),
		MenuOrder:   c.MenuOrder,
		Count:       c.Count,
	}
}

func toReview(r *wcReview) catalog.Review {
	return catalog.Review{
		ID:          r.ID,
		ProductID:   r.ProductID,
		Reviewer:    r.Reviewer,
		Review:      r.Review,
		Rating:      r.Rating,
		Verified:    r.Verified,
		DateCreated: r.DateCreatedGMT.Time,
	}
}

func toCoupon(c *wcCoupon) sales.Coupon {
	coupon := sales.Coupon{
		ID:                        c.ID,
		Code:                      sales.NormalizeCouponCode(c.Code),
		DiscountType:              sales.DiscountType(c.DiscountType),
		Amount:                    c.Amount.Decimal,
		DateExpires:               c.DateExpiresGMT.ptr(),
		UsageCount:                c.UsageCount,
		UsedBy:                    c.UsedBy,
		IndividualUse:             c.IndividualUse,
		ProductIDs:                c.ProductIDs,
		ExcludedProductIDs:        c.ExcludedProductIDs,
		ProductCategories:         c.ProductCategories,
		ExcludedProductCategories: c.ExcludedProductCategories,
		ExcludeSaleItems:          c.ExcludeSaleItems,
		MinimumAmount:             c.MinimumAmount.Decimal,
		MaximumAmount:             c.MaximumAmount.Decimal,
		FreeShipping:              c.FreeShipping,
		EmailRestrictions:         c.EmailRestrictions,
		Description:               c.Description,
	}
	if c.UsageLimit != nil {
		coupon.UsageLimit = *c.UsageLimit
	}
	if c.UsageLimitPerUser != nil {
		coupon.UsageLimitPerUser = *c.UsageLimitPerUser
	}
	return coupon
}

func toAddress(a wcAddress) sales.Address {
	return sales.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func fromAddress(a sales.Address) wcAddress {
	return wcAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func toOrder(o *wcOrder) *sales.Order {
	order := &sales.Order{
		ID:                 o.ID,
		Number:             o.Number,
		OrderKey:           o.OrderKey,
		Status:             sales.OrderStatus(o.Status),
		Currency:           o.Currency,
		DateCreated:        o.DateCreatedGMT.Time,
		DatePaid:           o.DatePaidGMT.ptr(),
		Total:              o.Total.Decimal,
		TotalTax:           o.TotalTax.Decimal,
		DiscountTotal:      o.DiscountTotal.Decimal,
		ShippingTotal:      o.ShippingTotal.Decimal,
		Billing:            toAddress(o.Billing),
		Shipping:           toAddress(o.Shipping),
		PaymentMethod:      o.PaymentMethod,
		PaymentMethodTitle: o.PaymentMethodTitle,
		TransactionID:      o.TransactionID,
		CustomerNote:       o.CustomerNote,
	}
	if order.Number == "" {
		order.Number = formatID(o.ID)
	}
	for _, li := range o.LineItems {
		line := sales.OrderLine{
			ID:          li.ID,
			ProductID:   li.ProductID,
			VariationID: li.VariationID,
			Name:        li.Name,
			SKU:         li.SKU,
			Quantity:    li.Quantity,
			Price:       li.Price.Decimal,
			Subtotal:    li.Subtotal.Decimal,
			Total:       li.Total.Decimal,
		}
		if li.Image != nil {
			line.ImageSrc = li.Image.Src
		}
		order.Lines = append(order.Lines, line)
	}
	for _, cl := range o.CouponLines {
		discount := decimal.Zero
		if cl.Discount != nil {
			discount = cl.Discount.Decimal
		}
		order.CouponLines = append(order.CouponLines, sales.CouponLine{ID: cl.ID, Code: cl.Code, Discount: discount})
	}
	for _, sl := range o.ShippingLines {
		order.ShippingLines = append(order.ShippingLines, sales.ShippingLine{
			ID:          sl.ID,
			MethodID:    sales.ShippingMethod(sl.MethodID),
			MethodTitle: sl.MethodTitle,
			Total:       sl.Total.Decimal,
		})
	}
	return order
}

func fromNewOrder(o sales.NewOrder) wcOrderCreate {
	req := wcOrderCreate{
		Status:             string(o.Status),
		Currency:           o.Currency,
		PaymentMethod:      o.PaymentMethod,
		PaymentMethodTitle: o.PaymentMethodTitle,
		SetPaid:            o.SetPaid,
		Billing:            fromAddress(o.Billing),
		Shipping:           fromAddress(o.Shipping),
		CustomerNote:       o.CustomerNote,
	}
	for _, l := range o.Lines {
		req.LineItems = append(req.LineItems, wcOrderLineCreate{
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Quantity:    l.Quantity,
		})
	}
	for _, code := range o.CouponCodes {
		req.CouponLines = append(req.CouponLines, wcCouponLine{Code: code})
	}
	for _, sl := range o.ShippingLines {
		req.ShippingLines = append(req.ShippingLines, wcShippingLine{
			MethodID:    string(sl.MethodID),
			MethodTitle: sl.MethodTitle,
			Total:       Money{sl.Total},
		})
	}
	keys := make([]string, 0, len(o.MetaData))
	for k := range o.MetaData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.MetaData = append(req.MetaData, wcMeta{Key: k, Value: o.MetaData[k]})
	}
	return req
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
