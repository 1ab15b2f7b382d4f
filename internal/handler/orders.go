package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/backend"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var input backend.OrderInput
	if err := json.Unmarshal(data, &input); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	order, err := h.api.PlaceOrder(r.Context(), token, input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	// The server empties the cart on checkout; pull the fresh state so the
	// session reflects it immediately.
	sess := h.currentSession(r)
	if err := sess.Store().Activate(r.Context(), h.api.CartSession(token)); err != nil {
		zctx.From(r.Context()).Warn("cart refresh after checkout failed", zap.Error(err))
	}

	writeValue(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	orders, err := h.api.Orders(r.Context(), token)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, orders)
}

func (h *Handler) orderByID(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	order, err := h.api.OrderByID(r.Context(), token, chi.URLParam(r, "id"))
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, order)
}
