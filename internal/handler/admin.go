package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/rowanlk/storefront-gateway/internal/backend"
)

// Admin routes relay to the commerce API with the session's token; the
// server is the authority on who is an admin. Catalog writes invalidate
// the gateway's cached listings.

func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	metrics, err := h.api.Dashboard(r.Context(), token)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, metrics)
}

func (h *Handler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	products, err := h.api.AdminListProducts(r.Context(), token)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encProducts(e, products) })
}

func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	var input backend.ProductInput
	if !h.decodeInput(w, r, &input) {
		return
	}
	p, err := h.api.AdminCreateProduct(r.Context(), token, input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	h.catalog.InvalidateListings(r.Context())
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encProduct(e, *p) })
}

func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	var input backend.ProductInput
	if !h.decodeInput(w, r, &input) {
		return
	}
	p, err := h.api.AdminUpdateProduct(r.Context(), token, chi.URLParam(r, "id"), input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	h.catalog.InvalidateListings(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encProduct(e, *p) })
}

func (h *Handler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	if err := h.api.AdminDeleteProduct(r.Context(), token, chi.URLParam(r, "id")); err != nil {
		h.mapError(w, r, err)
		return
	}
	h.catalog.InvalidateListings(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminListCategories(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	categories, err := h.api.AdminListCategories(r.Context(), token)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, categories)
}

func (h *Handler) adminCreateCategory(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	var input backend.CategoryInput
	if !h.decodeInput(w, r, &input) {
		return
	}
	category, err := h.api.AdminCreateCategory(r.Context(), token, input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	h.catalog.InvalidateListings(r.Context())
	writeValue(w, http.StatusCreated, category)
}

func (h *Handler) adminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	var input backend.CategoryInput
	if !h.decodeInput(w, r, &input) {
		return
	}
	category, err := h.api.AdminUpdateCategory(r.Context(), token, chi.URLParam(r, "id"), input)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	h.catalog.InvalidateListings(r.Context())
	writeValue(w, http.StatusOK, category)
}

func (h *Handler) adminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	if err := h.api.AdminDeleteCategory(r.Context(), token, chi.URLParam(r, "id")); err != nil {
		h.mapError(w, r, err)
		return
	}
	h.catalog.InvalidateListings(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	orders, err := h.api.AdminOrders(r.Context(), token)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, orders)
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	var input struct {
		Status string `json:"status"`
	}
	if !h.decodeInput(w, r, &input) {
		return
	}
	order, err := h.api.AdminUpdateOrderStatus(r.Context(), token, chi.URLParam(r, "id"), input.Status)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, order)
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	users, err := h.api.AdminListUsers(r.Context(), token)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeValue(w, http.StatusOK, users)
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	token, ok := h.requireToken(w, r)
	if !ok {
		return
	}
	if err := h.api.AdminDeleteUser(r.Context(), token, chi.URLParam(r, "id")); err != nil {
		h.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeInput reads and unmarshals a JSON body, writing a 400 on failure.
func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
