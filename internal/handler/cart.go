package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/rowanlk/storefront-gateway/internal/domain/cart"
)

type cartItemRequest struct {
	ProductID  string
	Quantity   int
	Attributes cart.Attributes
}

func decodeCartItemRequest(r *http.Request) (cartItemRequest, error) {
	var req cartItemRequest
	data, err := readBody(r)
	if err != nil {
		return req, err
	}

	d := jx.DecodeBytes(data)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Str()
			req.ProductID = v
			return err
		case "quantity":
			v, err := d.Int()
			req.Quantity = v
			return err
		case "attributes":
			req.Attributes = make(cart.Attributes)
			return d.Obj(func(d *jx.Decoder, k string) error {
				v, err := d.Str()
				req.Attributes[k] = v
				return err
			})
		default:
			return d.Skip()
		}
	})
	return req, err
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(r).Store().Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCartItemRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing product_id")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	store := h.currentSession(r).Store()
	if err := store.AddItem(r.Context(), *p, req.Quantity, req.Attributes); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCartItemRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing product_id")
		return
	}

	store := h.currentSession(r).Store()
	if err := store.UpdateQuantity(r.Context(), req.ProductID, req.Quantity, req.Attributes); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCartItemRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing product_id")
		return
	}

	store := h.currentSession(r).Store()
	if err := store.RemoveItem(r.Context(), req.ProductID, req.Attributes); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	store := h.currentSession(r).Store()
	if err := store.Clear(r.Context()); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func decodeCouponCode(r *http.Request) (string, error) {
	data, err := readBody(r)
	if err != nil {
		return "", err
	}
	var code string
	d := jx.DecodeBytes(data)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		v, err := d.Str()
		code = v
		return err
	})
	return code, err
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	code, err := decodeCouponCode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing coupon code")
		return
	}

	store := h.currentSession(r).Store()
	if err := store.ApplyCoupon(r.Context(), code); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	store := h.currentSession(r).Store()
	if err := store.RemoveCoupon(r.Context()); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}
