package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

// Compile-time check: the client serves as the remote product catalog.
var _ product.Catalog = (*Client)(nil)

type productDTO struct {
	ID       string          `json:"id"`
	Slug     string          `json:"slug"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Category string          `json:"category"`
}

func (d productDTO) domain() product.Product {
	return product.Product{
		ID:       d.ID,
		Slug:     d.Slug,
		Name:     d.Name,
		Price:    d.Price,
		Image:    d.Image,
		Category: d.Category,
	}
}

func domainProducts(dtos []productDTO) []product.Product {
	out := make([]product.Product, len(dtos))
	for i, d := range dtos {
		out[i] = d.domain()
	}
	return out
}

// List fetches a page of the product catalog.
func (c *Client) List(ctx context.Context, params product.ListParams) ([]product.Product, error) {
	query := url.Values{}
	if params.Category != "" {
		query.Set("category", params.Category)
	}
	if params.Query != "" {
		query.Set("q", params.Query)
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}

	var dtos []productDTO
	if err := c.do(ctx, http.MethodGet, "/products", query, "", nil, &dtos); err != nil {
		return nil, err
	}
	return domainProducts(dtos), nil
}

// GetByID fetches a single product by its id.
func (c *Client) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var dto productDTO
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, "", nil, &dto); err != nil {
		if IsNotFound(err) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	p := dto.domain()
	return &p, nil
}

// GetBySlug fetches a single product by its URL slug.
func (c *Client) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	var dto productDTO
	if err := c.do(ctx, http.MethodGet, "/products/slug/"+url.PathEscape(slug), nil, "", nil, &dto); err != nil {
		if IsNotFound(err) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	p := dto.domain()
	return &p, nil
}

// Featured fetches the curated featured-products selection.
func (c *Client) Featured(ctx context.Context) ([]product.Product, error) {
	var dtos []productDTO
	if err := c.do(ctx, http.MethodGet, "/products/featured", nil, "", nil, &dtos); err != nil {
		return nil, err
	}
	return domainProducts(dtos), nil
}

// Search performs a full-text product search.
func (c *Client) Search(ctx context.Context, queryStr string) ([]product.Product, error) {
	query := url.Values{"q": []string{queryStr}}
	var dtos []productDTO
	if err := c.do(ctx, http.MethodGet, "/products/search", query, "", nil, &dtos); err != nil {
		return nil, err
	}
	return domainProducts(dtos), nil
}
