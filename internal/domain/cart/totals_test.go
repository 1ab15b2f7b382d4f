package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
)

func lineOf(id string, price int64, qty int) LineItem {
	return LineItem{Product: newTestProduct(id, price), Quantity: qty}
}

func TestShippingFor_Boundary(t *testing.T) {
	p := DefaultPricing()

	assert.True(t, decimal.NewFromInt(15000).Equal(p.ShippingFor(decimal.NewFromInt(99999))))
	assert.True(t, decimal.Zero.Equal(p.ShippingFor(decimal.NewFromInt(100000))))
	assert.True(t, decimal.Zero.Equal(p.ShippingFor(decimal.NewFromInt(100001))))
}

func TestResolve_EmptyCartOwesNothing(t *testing.T) {
	totals := DefaultPricing().Resolve(SourceLocal, nil, nil, nil)

	assert.True(t, decimal.Zero.Equal(totals.Shipping))
	assert.True(t, decimal.Zero.Equal(totals.Total))

	server := &ServerTotals{Subtotal: decimal.Zero, Discount: decimal.Zero, Total: decimal.Zero}
	totals = DefaultPricing().Resolve(SourceServer, nil, nil, server)

	assert.True(t, decimal.Zero.Equal(totals.Shipping))
	assert.True(t, decimal.Zero.Equal(totals.Total))
}

func TestResolve_LocalFreeShippingScenario(t *testing.T) {
	// Empty cart, add product A (price 50000) qty 2: subtotal 100000,
	// shipping free, total 100000.
	totals := DefaultPricing().Resolve(SourceLocal, []LineItem{lineOf("a", 50000, 2)}, nil, nil)

	assert.True(t, decimal.NewFromInt(100000).Equal(totals.Subtotal))
	assert.True(t, decimal.Zero.Equal(totals.Discount))
	assert.True(t, decimal.Zero.Equal(totals.Shipping))
	assert.True(t, decimal.NewFromInt(100000).Equal(totals.Total))
}

func TestResolve_LocalPercentageCouponScenario(t *testing.T) {
	// Subtotal 80000 with KILLA10 (10%): discount 8000, shipping 15000
	// (below threshold), total 87000.
	c := &coupon.Coupon{Code: "KILLA10", Kind: coupon.KindPercentage, Value: decimal.NewFromInt(10)}

	totals := DefaultPricing().Resolve(SourceLocal, []LineItem{lineOf("a", 80000, 1)}, c, nil)

	assert.True(t, decimal.NewFromInt(80000).Equal(totals.Subtotal))
	assert.True(t, decimal.NewFromInt(8000).Equal(totals.Discount))
	assert.True(t, decimal.NewFromInt(15000).Equal(totals.Shipping))
	assert.True(t, decimal.NewFromInt(87000).Equal(totals.Total))
}

func TestResolve_FixedCouponCappedAtSubtotal(t *testing.T) {
	c := &coupon.Coupon{Code: "BIG", Kind: coupon.KindFixed, Value: decimal.NewFromInt(500000)}

	totals := DefaultPricing().Resolve(SourceLocal, []LineItem{lineOf("a", 30000, 1)}, c, nil)

	assert.True(t, decimal.NewFromInt(30000).Equal(totals.Discount))
	// Total never goes negative: 30000 - 30000 + 15000 shipping.
	assert.True(t, decimal.NewFromInt(15000).Equal(totals.Total))
}

func TestResolve_ServerSourceWins(t *testing.T) {
	server := &ServerTotals{
		Subtotal: decimal.NewFromInt(120000),
		Discount: decimal.NewFromInt(12000),
		Total:    decimal.NewFromInt(108000),
	}
	// Local lines deliberately disagree with the server; the server wins.
	items := []LineItem{lineOf("stale", 999, 1)}

	totals := DefaultPricing().Resolve(SourceServer, items, nil, server)

	assert.True(t, decimal.NewFromInt(120000).Equal(totals.Subtotal))
	assert.True(t, decimal.NewFromInt(12000).Equal(totals.Discount))
	assert.True(t, decimal.Zero.Equal(totals.Shipping))
	assert.True(t, decimal.NewFromInt(108000).Equal(totals.Total))
}

func TestResolve_ServerSourceStillPaysShippingBelowThreshold(t *testing.T) {
	server := &ServerTotals{
		Subtotal: decimal.NewFromInt(50000),
		Discount: decimal.Zero,
		Total:    decimal.NewFromInt(50000),
	}

	totals := DefaultPricing().Resolve(SourceServer, nil, nil, server)

	assert.True(t, decimal.NewFromInt(15000).Equal(totals.Shipping))
	assert.True(t, decimal.NewFromInt(65000).Equal(totals.Total))
}

func TestAttributes_CanonicalSortsKeys(t *testing.T) {
	a := Attributes{"size": "L", "color": "black"}
	b := Attributes{"color": "black", "size": "L"}

	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, KeyOf("p1", a), KeyOf("p1", b))
	assert.NotEqual(t, KeyOf("p1", a), KeyOf("p1", Attributes{"size": "M", "color": "black"}))
	assert.Equal(t, "", Attributes(nil).Canonical())
}
