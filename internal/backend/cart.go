package backend

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rowanlk/storefront-gateway/internal/domain/cart"
	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
)

type couponDTO struct {
	Code        string          `json:"code"`
	Kind        string          `json:"kind"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description,omitempty"`
}

func (d couponDTO) domain() *coupon.Coupon {
	return &coupon.Coupon{
		Code:        d.Code,
		Kind:        coupon.Kind(d.Kind),
		Value:       d.Value,
		Description: d.Description,
	}
}

type cartItemDTO struct {
	Product    productDTO        `json:"product"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type cartDTO struct {
	Items    []cartItemDTO   `json:"items"`
	Coupon   *couponDTO      `json:"coupon,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func (d cartDTO) snapshot() *cart.ServerSnapshot {
	items := make([]cart.LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = cart.LineItem{
			Product:    it.Product.domain(),
			Quantity:   it.Quantity,
			Attributes: cart.Attributes(it.Attributes),
		}
	}
	var c *coupon.Coupon
	if d.Coupon != nil {
		c = d.Coupon.domain()
	}
	return &cart.ServerSnapshot{
		Items:  items,
		Coupon: c,
		Totals: cart.ServerTotals{
			Subtotal: d.Subtotal,
			Discount: d.Discount,
			Total:    d.Total,
		},
	}
}

type cartItemReq struct {
	ProductID  string            `json:"product_id"`
	Quantity   int               `json:"quantity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// CartSession binds the client to one authenticated session's server cart.
// It satisfies the cart store's Remote contract.
type CartSession struct {
	c     *Client
	token string
}

var _ cart.Remote = (*CartSession)(nil)

// CartSession returns the server cart bound to the given auth token.
func (c *Client) CartSession(token string) *CartSession {
	return &CartSession{c: c, token: token}
}

// Fetch retrieves the full cart snapshot for the session.
func (s *CartSession) Fetch(ctx context.Context) (*cart.ServerSnapshot, error) {
	var dto cartDTO
	if err := s.c.do(ctx, http.MethodGet, "/cart", nil, s.token, nil, &dto); err != nil {
		return nil, err
	}
	return dto.snapshot(), nil
}

// Add adds quantity of a product line to the server cart.
func (s *CartSession) Add(ctx context.Context, productID string, quantity int, attrs cart.Attributes) error {
	return s.c.do(ctx, http.MethodPost, "/cart/items", nil, s.token, cartItemReq{
		ProductID:  productID,
		Quantity:   quantity,
		Attributes: attrs,
	}, nil)
}

// Update replaces a line's quantity on the server cart.
func (s *CartSession) Update(ctx context.Context, productID string, quantity int, attrs cart.Attributes) error {
	return s.c.do(ctx, http.MethodPut, "/cart/items", nil, s.token, cartItemReq{
		ProductID:  productID,
		Quantity:   quantity,
		Attributes: attrs,
	}, nil)
}

// Remove deletes a line from the server cart.
func (s *CartSession) Remove(ctx context.Context, productID string, attrs cart.Attributes) error {
	return s.c.do(ctx, http.MethodDelete, "/cart/items", nil, s.token, cartItemReq{
		ProductID:  productID,
		Attributes: attrs,
	}, nil)
}

// Clear empties the server cart, including its coupon and discount state.
func (s *CartSession) Clear(ctx context.Context) error {
	return s.c.do(ctx, http.MethodDelete, "/cart", nil, s.token, nil, nil)
}

// ApplyCoupon asks the server to validate and attach a coupon code. The
// returned coupon is the server's, trusted verbatim.
func (s *CartSession) ApplyCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	var dto couponDTO
	err := s.c.do(ctx, http.MethodPost, "/cart/coupon", nil, s.token, map[string]string{"code": code}, &dto)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == http.StatusUnprocessableEntity {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, err
	}
	return dto.domain(), nil
}

// RemoveCoupon detaches any active coupon from the server cart.
func (s *CartSession) RemoveCoupon(ctx context.Context) error {
	return s.c.do(ctx, http.MethodDelete, "/cart/coupon", nil, s.token, nil, nil)
}
