package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

// ProductInput holds the writable product fields for the admin surface.
type ProductInput struct {
	Slug     string          `json:"slug"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
	Stock    int             `json:"stock"`
}

// Category is a catalog category.
type Category struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CategoryInput holds the writable category fields.
type CategoryInput struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// DashboardMetrics are the back-office landing page aggregates.
type DashboardMetrics struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	OrderCount    int             `json:"order_count"`
	PendingOrders int             `json:"pending_orders"`
	UserCount     int             `json:"user_count"`
	ProductCount  int             `json:"product_count"`
}

// AdminListProducts lists products including unpublished ones.
func (c *Client) AdminListProducts(ctx context.Context, token string) ([]product.Product, error) {
	var dtos []productDTO
	if err := c.do(ctx, http.MethodGet, "/admin/products", nil, token, nil, &dtos); err != nil {
		return nil, err
	}
	return domainProducts(dtos), nil
}

// AdminCreateProduct creates a product.
func (c *Client) AdminCreateProduct(ctx context.Context, token string, input ProductInput) (*product.Product, error) {
	var dto productDTO
	if err := c.do(ctx, http.MethodPost, "/admin/products", nil, token, input, &dto); err != nil {
		return nil, err
	}
	p := dto.domain()
	return &p, nil
}

// AdminUpdateProduct updates a product.
func (c *Client) AdminUpdateProduct(ctx context.Context, token, id string, input ProductInput) (*product.Product, error) {
	var dto productDTO
	if err := c.do(ctx, http.MethodPut, "/admin/products/"+url.PathEscape(id), nil, token, input, &dto); err != nil {
		return nil, err
	}
	p := dto.domain()
	return &p, nil
}

// AdminDeleteProduct deletes a product.
func (c *Client) AdminDeleteProduct(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/products/"+url.PathEscape(id), nil, token, nil, nil)
}

// AdminListCategories lists all categories.
func (c *Client) AdminListCategories(ctx context.Context, token string) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, "/admin/categories", nil, token, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// AdminCreateCategory creates a category.
func (c *Client) AdminCreateCategory(ctx context.Context, token string, input CategoryInput) (Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodPost, "/admin/categories", nil, token, input, &category); err != nil {
		return Category{}, err
	}
	return category, nil
}

// AdminUpdateCategory updates a category.
func (c *Client) AdminUpdateCategory(ctx context.Context, token, id string, input CategoryInput) (Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodPut, "/admin/categories/"+url.PathEscape(id), nil, token, input, &category); err != nil {
		return Category{}, err
	}
	return category, nil
}

// AdminDeleteCategory deletes a category.
func (c *Client) AdminDeleteCategory(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/categories/"+url.PathEscape(id), nil, token, nil, nil)
}

// AdminOrders lists every order in the system.
func (c *Client) AdminOrders(ctx context.Context, token string) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/admin/orders", nil, token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AdminUpdateOrderStatus moves an order through its server-side lifecycle.
func (c *Client) AdminUpdateOrderStatus(ctx context.Context, token, id, status string) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodPatch, "/admin/orders/"+url.PathEscape(id), nil, token,
		map[string]string{"status": status}, &order)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// AdminListUsers lists accounts.
func (c *Client) AdminListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AdminDeleteUser deletes an account.
func (c *Client) AdminDeleteUser(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, token, nil, nil)
}

// Dashboard fetches the back-office dashboard aggregates.
func (c *Client) Dashboard(ctx context.Context, token string) (DashboardMetrics, error) {
	var metrics DashboardMetrics
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard", nil, token, nil, &metrics); err != nil {
		return DashboardMetrics{}, err
	}
	return metrics, nil
}
