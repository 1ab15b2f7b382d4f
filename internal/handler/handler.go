// Package handler exposes the gateway's HTTP API: catalog reads, the
// per-device cart and wishlist, auth, orders, and the admin passthrough.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/backend"
	"github.com/rowanlk/storefront-gateway/internal/catalog"
	"github.com/rowanlk/storefront-gateway/internal/session"
)

// Handler wires HTTP routes to the session manager, catalog, and the
// commerce API client.
type Handler struct {
	catalog  *catalog.Service
	sessions *session.Manager
	api      *backend.Client
	lg       *zap.Logger
}

// New constructs a Handler.
func New(cat *catalog.Service, sessions *session.Manager, api *backend.Client, lg *zap.Logger) *Handler {
	return &Handler{
		catalog:  cat,
		sessions: sessions,
		api:      api,
		lg:       lg.Named("handler"),
	}
}

// Routes builds the API router. Every route runs behind the device cookie
// middleware, so each request resolves to a session.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(DeviceCookie)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/featured", h.featuredProducts)
		r.Get("/search", h.searchProducts)
		r.Get("/slug/{slug}", h.productBySlug)
		r.Get("/{id}", h.productByID)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addCartItem)
		r.Put("/items", h.updateCartItem)
		r.Delete("/items", h.removeCartItem)
		r.Post("/coupon", h.applyCoupon)
		r.Delete("/coupon", h.removeCoupon)
	})

	r.Route("/wishlist", func(r chi.Router) {
		r.Get("/", h.getWishlist)
		r.Post("/toggle", h.toggleWishlist)
		r.Post("/{id}/move-to-cart", h.moveToCart)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/me", h.profile)
		r.Put("/me", h.updateProfile)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.placeOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.orderByID)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", h.adminDashboard)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.adminListProducts)
			r.Post("/", h.adminCreateProduct)
			r.Put("/{id}", h.adminUpdateProduct)
			r.Delete("/{id}", h.adminDeleteProduct)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.adminListCategories)
			r.Post("/", h.adminCreateCategory)
			r.Put("/{id}", h.adminUpdateCategory)
			r.Delete("/{id}", h.adminDeleteCategory)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.adminListOrders)
			r.Patch("/{id}/status", h.adminUpdateOrderStatus)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.adminListUsers)
			r.Delete("/{id}", h.adminDeleteUser)
		})
	})

	return r
}

// currentSession resolves the request's device to its live session.
func (h *Handler) currentSession(r *http.Request) *session.Session {
	return h.sessions.Session(r.Context(), DeviceIDFromContext(r.Context()))
}

// requireToken returns the session's auth token or writes a 401.
func (h *Handler) requireToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := h.currentSession(r).Token()
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return token, true
}
