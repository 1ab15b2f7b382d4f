package cart

import (
	"github.com/shopspring/decimal"

	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
)

// Source names who is authoritative for subtotal and discount.
type Source int

const (
	// SourceLocal derives all monetary fields from the in-memory lines.
	SourceLocal Source = iota
	// SourceServer takes subtotal, discount, and pre-shipping total
	// verbatim from the server snapshot; only shipping stays client-owned.
	SourceServer
)

// ServerTotals are the authoritative monetary fields of a synced cart.
// Total is the server's subtotal minus discount, before shipping.
type ServerTotals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Totals is the fully resolved pricing of a cart snapshot.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Pricing holds the client-owned pricing policy: shipping is free at or
// above the threshold, otherwise the flat fee applies.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricing returns the storefront's stock shipping policy.
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(100000),
		ShippingFee:           decimal.NewFromInt(15000),
	}
}

// ShippingFor returns the shipping fee owed for the given subtotal.
func (p Pricing) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Resolve computes totals from a single explicit source rather than
// branching ad hoc per field. With SourceServer the server's monetary
// fields win and only shipping is computed here; with SourceLocal
// everything is derived from the lines and the active coupon.
func (p Pricing) Resolve(src Source, items []LineItem, c *coupon.Coupon, server *ServerTotals) Totals {
	if src == SourceServer && server != nil {
		shipping := decimal.Zero
		if !server.Subtotal.IsZero() {
			shipping = p.ShippingFor(server.Subtotal)
		}
		return Totals{
			Subtotal: server.Subtotal,
			Discount: server.Discount,
			Shipping: shipping,
			Total:    server.Total.Add(shipping),
		}
	}

	if len(items) == 0 {
		return Totals{
			Subtotal: decimal.Zero,
			Discount: decimal.Zero,
			Shipping: decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.Subtotal())
	}

	discount := decimal.Zero
	if c != nil {
		discount = c.DiscountFor(subtotal)
	}

	shipping := p.ShippingFor(subtotal)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal.Sub(discount).Add(shipping),
	}
}
