package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/backend"
	"github.com/rowanlk/storefront-gateway/internal/domain/cart"
	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

const maxRequestBytes = 1 << 20

// readBody reads and bounds the request body.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeJSON encodes a response body with the given encode function.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	writeRaw(w, status, e.Bytes())
}

// writeValue marshals passthrough payloads that already carry JSON tags.
func writeValue(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeRaw(w, status, body)
}

// writeError emits the error envelope: {"code":N,"message":"..."}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// mapError translates domain and upstream failures into HTTP responses.
func (h *Handler) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		writeError(w, apiErr.Status, apiErr.Message)
	case errors.Is(err, backend.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "commerce service unavailable")
	case errors.Is(err, coupon.ErrInvalidCoupon):
		writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusUnprocessableEntity, "quantity must be positive")
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item not in cart")
	case errors.Is(err, cart.ErrNotInWishlist):
		writeError(w, http.StatusNotFound, "item not in wishlist")
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func encDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

func encProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encDecimal(e, p.Price)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("category")
	e.Str(p.Category)
	e.ObjEnd()
}

func encProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		encProduct(e, p)
	}
	e.ArrEnd()
}

func encCoupon(e *jx.Encoder, c *coupon.Coupon) {
	if c == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("kind")
	e.Str(string(c.Kind))
	e.FieldStart("value")
	encDecimal(e, c.Value)
	e.ObjEnd()
}

func encTotals(e *jx.Encoder, t cart.Totals) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encDecimal(e, t.Subtotal)
	e.FieldStart("discount")
	encDecimal(e, t.Discount)
	e.FieldStart("shipping")
	encDecimal(e, t.Shipping)
	e.FieldStart("total")
	encDecimal(e, t.Total)
	e.ObjEnd()
}

func encAttributes(e *jx.Encoder, attrs cart.Attributes) {
	e.ObjStart()
	for _, k := range attrs.SortedKeys() {
		e.FieldStart(k)
		e.Str(attrs[k])
	}
	e.ObjEnd()
}

func encSnapshot(e *jx.Encoder, snap cart.Snapshot) {
	e.ObjStart()
	e.FieldStart("mode")
	e.Str(snap.Mode.String())
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range snap.Items {
		e.ObjStart()
		e.FieldStart("product")
		encProduct(e, it.Product)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("attributes")
		encAttributes(e, it.Attributes)
		e.FieldStart("subtotal")
		encDecimal(e, it.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("coupon")
	encCoupon(e, snap.Coupon)
	e.FieldStart("totals")
	encTotals(e, snap.Totals)
	e.ObjEnd()
}

func encWishlist(e *jx.Encoder, entries []cart.WishlistEntry) {
	e.ArrStart()
	for _, entry := range entries {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(entry.ProductID)
		e.FieldStart("name")
		e.Str(entry.Name)
		e.FieldStart("price")
		encDecimal(e, entry.Price)
		e.FieldStart("image")
		e.Str(entry.Image)
		e.FieldStart("slug")
		e.Str(entry.Slug)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encUser(e *jx.Encoder, u backend.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("role")
	e.Str(u.Role)
	e.ObjEnd()
}
