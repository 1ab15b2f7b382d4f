package cart

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

// Attributes holds the variant options chosen for a line item, e.g.
// {"size": "L", "color": "black"}.
type Attributes map[string]string

// Canonical serializes the attributes with sorted keys so that two
// structurally equal maps always produce the same string. This is what
// makes line-item identity independent of map iteration order.
func (a Attributes) Canonical() string {
	if len(a) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range a.SortedKeys() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(a[k])
	}
	return b.String()
}

// SortedKeys returns the attribute names in lexical order.
func (a Attributes) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a Attributes) clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ItemKey is the composite identity of a cart line: the same product with
// different variant attributes coexists as separate lines.
type ItemKey struct {
	ProductID  string
	Attributes string
}

// KeyOf builds the identity key for a product and its chosen attributes.
func KeyOf(productID string, attrs Attributes) ItemKey {
	return ItemKey{ProductID: productID, Attributes: attrs.Canonical()}
}

// LineItem is one entry in the cart. Invariant: Quantity >= 1; an update
// that would drive the quantity to zero removes the line entirely.
type LineItem struct {
	Product    product.Product
	Quantity   int
	Attributes Attributes
}

// Key returns the line's identity key.
func (li LineItem) Key() ItemKey {
	return KeyOf(li.Product.ID, li.Attributes)
}

// Subtotal returns unit price times quantity for this line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// WishlistEntry is a product snapshot kept independent of live catalog
// data. Its lifecycle is device-scoped and independent of authentication.
type WishlistEntry struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Image     string
	Slug      string
}

// EntryOf snapshots a product into a wishlist entry.
func EntryOf(p product.Product) WishlistEntry {
	return WishlistEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Slug:      p.Slug,
	}
}

// Product rebuilds a product reference from the snapshot, used when moving
// a wishlist entry back into the cart.
func (w WishlistEntry) Product() product.Product {
	return product.Product{
		ID:    w.ProductID,
		Slug:  w.Slug,
		Name:  w.Name,
		Price: w.Price,
		Image: w.Image,
	}
}
