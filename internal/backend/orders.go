package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one purchased line on an order.
type OrderItem struct {
	ProductID  string            `json:"product_id"`
	Name       string            `json:"name"`
	Price      decimal.Decimal   `json:"price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Order is a placed order as the commerce API reports it. The order
// lifecycle (payment, fulfilment, status transitions) is entirely
// server-side.
type Order struct {
	ID        string          `json:"id"`
	Items     []OrderItem     `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderInput holds checkout details; the server builds the order from the
// session's synced cart.
type OrderInput struct {
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Notes       string `json:"notes,omitempty"`
}

// PlaceOrder checks out the session's cart into an order.
func (c *Client) PlaceOrder(ctx context.Context, token string, input OrderInput) (Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, token, input, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Orders lists the session's order history.
func (c *Client) Orders(ctx context.Context, token string) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderByID fetches one of the session's orders.
func (c *Client) OrderByID(ctx context.Context, token, id string) (Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, token, nil, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}
