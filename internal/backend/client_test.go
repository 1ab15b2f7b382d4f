package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/not/absolute"}, zap.NewNop())
	require.Error(t, err)
}

func TestLogin_ReturnsTokenAndUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ana@example.com", creds.Email)

		_ = json.NewEncoder(w).Encode(loginResponse{
			Token: "tok-123",
			User:  User{ID: "u1", Email: creds.Email, Name: "Ana", Role: "customer"},
		})
	}))

	token, user, err := c.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "u1", user.ID)
}

func TestLogin_UnauthorizedMapsToAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 401, "message": "bad credentials"})
	}))

	_, _, err := c.Login(context.Background(), Credentials{Email: "x", Password: "y"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "bad credentials", apiErr.Message)
}

func TestCartSession_FetchMapsSnapshot(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/cart", r.URL.Path)

		_ = json.NewEncoder(w).Encode(cartDTO{
			Items: []cartItemDTO{{
				Product:    productDTO{ID: "p1", Name: "Widget", Price: decimal.NewFromInt(40000)},
				Quantity:   2,
				Attributes: map[string]string{"size": "L"},
			}},
			Coupon:   &couponDTO{Code: "KILLA10", Kind: "percentage", Value: decimal.NewFromInt(10)},
			Subtotal: decimal.NewFromInt(80000),
			Discount: decimal.NewFromInt(8000),
			Total:    decimal.NewFromInt(72000),
		})
	}))

	snap, err := c.CartSession("tok-1").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "p1", snap.Items[0].Product.ID)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, "L", snap.Items[0].Attributes["size"])
	require.NotNil(t, snap.Coupon)
	assert.Equal(t, coupon.KindPercentage, snap.Coupon.Kind)
	assert.True(t, decimal.NewFromInt(72000).Equal(snap.Totals.Total))
}

func TestCartSession_ApplyCouponRejection(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 422, "message": "invalid coupon code"})
	}))

	_, err := c.CartSession("tok-1").ApplyCoupon(context.Background(), "BOGUS")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestGetByID_NotFoundMapsToDomainError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 404, "message": "product missing not found"})
	}))

	_, err := c.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestBreaker_OpensAfterConsecutiveBackendFaults(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	for range 5 {
		err := c.Ping(ctx)
		require.Error(t, err)
		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	}

	// Sixth call fails fast without reaching the backend.
	err := c.Ping(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestList_PassesQueryParams(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sneakers", r.URL.Query().Get("category"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode([]productDTO{{ID: "p1"}, {ID: "p2"}})
	}))

	products, err := c.List(context.Background(), product.ListParams{Category: "sneakers", Page: 2})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
