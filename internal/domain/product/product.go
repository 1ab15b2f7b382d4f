package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item as the storefront sees it: enough to
// render a listing, build a cart line, or snapshot into a wishlist entry.
type Product struct {
	ID       string
	Slug     string
	Name     string
	Price    decimal.Decimal
	Image    string
	Category string
}

// ListParams narrows a catalog listing.
type ListParams struct {
	Category string
	Query    string
	Page     int
	PerPage  int
}

// Catalog defines read operations over the remote product catalog.
type Catalog interface {
	List(ctx context.Context, params ListParams) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Featured(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
}
