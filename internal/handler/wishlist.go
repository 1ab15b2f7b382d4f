package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	snap := h.currentSession(r).Store().Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encWishlist(e, snap.Wishlist) })
}

func (h *Handler) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var productID string
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "product_id" {
			return d.Skip()
		}
		v, err := d.Str()
		productID = v
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if productID == "" {
		writeError(w, http.StatusBadRequest, "missing product_id")
		return
	}

	p, err := h.catalog.GetByID(r.Context(), productID)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	store := h.currentSession(r).Store()
	added, err := store.ToggleWishlist(r.Context(), *p)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("added")
		e.Bool(added)
		e.FieldStart("wishlist")
		encWishlist(e, snap.Wishlist)
		e.ObjEnd()
	})
}

func (h *Handler) moveToCart(w http.ResponseWriter, r *http.Request) {
	store := h.currentSession(r).Store()
	if err := store.MoveToCart(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.mapError(w, r, err)
		return
	}
	snap := store.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encSnapshot(e, snap) })
}
