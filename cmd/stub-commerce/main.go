// Command stub-commerce runs a small in-memory commerce API for local
// development and the integration suite. It speaks the subset of the real
// API the gateway consumes: catalog, auth, server carts, coupons, orders.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type product struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Image    string `json:"image"`
	Category string `json:"category"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type account struct {
	user     user
	password string
}

type line struct {
	Product    product           `json:"product"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type couponRule struct {
	Code  string `json:"code"`
	Kind  string `json:"kind"`
	Value int64  `json:"value"`
}

type serverCart struct {
	items  []line
	coupon *couponRule
}

type order struct {
	ID       string `json:"id"`
	Items    []line `json:"items"`
	Subtotal int64  `json:"subtotal"`
	Discount int64  `json:"discount"`
	Total    int64  `json:"total"`
	Status   string `json:"status"`
}

type stub struct {
	mu       sync.Mutex
	products []product
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> email
	carts    map[string]*serverCart
	orders   map[string][]order // by email
	coupons  map[string]couponRule
}

func newStub() *stub {
	s := &stub{
		products: []product{
			{ID: "p-tee", Slug: "classic-tee", Name: "Classic Tee", Price: 80000, Category: "apparel"},
			{ID: "p-mug", Slug: "enamel-mug", Name: "Enamel Mug", Price: 50000, Category: "home"},
			{ID: "p-cap", Slug: "canvas-cap", Name: "Canvas Cap", Price: 65000, Category: "apparel"},
			{ID: "p-bag", Slug: "tote-bag", Name: "Tote Bag", Price: 120000, Category: "accessories"},
		},
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		carts:    make(map[string]*serverCart),
		orders:   make(map[string][]order),
		coupons: map[string]couponRule{
			"KILLA10":  {Code: "KILLA10", Kind: "percentage", Value: 10},
			"HEMAT20K": {Code: "HEMAT20K", Kind: "fixed", Value: 20000},
		},
	}
	s.accounts["demo@example.com"] = &account{
		user:     user{ID: "u-demo", Email: "demo@example.com", Name: "Demo User", Role: "customer"},
		password: "password",
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "message": msg})
}

func (s *stub) auth(r *http.Request) (string, *serverCart, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	email, ok := s.tokens[token]
	if !ok {
		return "", nil, false
	}
	c, ok := s.carts[token]
	if !ok {
		c = &serverCart{}
		s.carts[token] = c
	}
	return email, c, true
}

func (c *serverCart) totals() (subtotal, discount int64) {
	for _, it := range c.items {
		subtotal += it.Product.Price * int64(it.Quantity)
	}
	if c.coupon != nil {
		switch c.coupon.Kind {
		case "percentage":
			discount = subtotal * c.coupon.Value / 100
		case "fixed":
			discount = min(c.coupon.Value, subtotal)
		}
	}
	return subtotal, discount
}

func (c *serverCart) body() map[string]any {
	subtotal, discount := c.totals()
	items := c.items
	if items == nil {
		items = []line{}
	}
	body := map[string]any{
		"items":    items,
		"subtotal": subtotal,
		"discount": discount,
		"total":    subtotal - discount,
	}
	if c.coupon != nil {
		body["coupon"] = c.coupon
	}
	return body
}

func (s *stub) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		category := r.URL.Query().Get("category")
		out := []product{}
		for _, p := range s.products {
			if category == "" || p.Category == category {
				out = append(out, p)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/products/featured", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := min(len(s.products), 3)
		writeJSON(w, http.StatusOK, s.products[:n])
	})
	r.Get("/products/search", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		q := strings.ToLower(r.URL.Query().Get("q"))
		out := []product{}
		for _, p := range s.products {
			if strings.Contains(strings.ToLower(p.Name), q) {
				out = append(out, p)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/products/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, p := range s.products {
			if p.Slug == chi.URLParam(r, "slug") {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeErr(w, http.StatusNotFound, "product not found")
	})
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, p := range s.products {
			if p.ID == chi.URLParam(r, "id") {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeErr(w, http.StatusNotFound, "product not found")
	})

	r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			writeErr(w, http.StatusBadRequest, "invalid body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.accounts[req.Email]; exists {
			writeErr(w, http.StatusConflict, "email already registered")
			return
		}
		acct := &account{
			user:     user{ID: "u-" + uuid.NewString()[:8], Email: req.Email, Name: req.Name, Role: "customer"},
			password: req.Password,
		}
		s.accounts[req.Email] = acct
		writeJSON(w, http.StatusCreated, acct.user)
	})

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		acct, ok := s.accounts[req.Email]
		if !ok || acct.password != req.Password {
			writeErr(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		token := uuid.NewString()
		s.tokens[token] = req.Email
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct.user})
	})

	r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		email, _, ok := s.auth(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, s.accounts[email].user)
	})

	r.Route("/cart", func(r chi.Router) {
		withCart := func(next func(w http.ResponseWriter, r *http.Request, c *serverCart)) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				s.mu.Lock()
				defer s.mu.Unlock()
				_, c, ok := s.auth(r)
				if !ok {
					writeErr(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				next(w, r, c)
			}
		}

		r.Get("/", withCart(func(w http.ResponseWriter, _ *http.Request, c *serverCart) {
			writeJSON(w, http.StatusOK, c.body())
		}))
		r.Delete("/", withCart(func(w http.ResponseWriter, _ *http.Request, c *serverCart) {
			c.items = nil
			c.coupon = nil
			writeJSON(w, http.StatusOK, c.body())
		}))

		type itemReq struct {
			ProductID  string            `json:"product_id"`
			Quantity   int               `json:"quantity"`
			Attributes map[string]string `json:"attributes"`
		}
		sameLine := func(l line, req itemReq) bool {
			return l.Product.ID == req.ProductID && fmt.Sprint(l.Attributes) == fmt.Sprint(req.Attributes)
		}

		r.Post("/items", withCart(func(w http.ResponseWriter, r *http.Request, c *serverCart) {
			var req itemReq
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
				writeErr(w, http.StatusUnprocessableEntity, "invalid item")
				return
			}
			var found *product
			for i := range s.products {
				if s.products[i].ID == req.ProductID {
					found = &s.products[i]
				}
			}
			if found == nil {
				writeErr(w, http.StatusNotFound, "product not found")
				return
			}
			for i := range c.items {
				if sameLine(c.items[i], req) {
					c.items[i].Quantity += req.Quantity
					writeJSON(w, http.StatusOK, c.body())
					return
				}
			}
			c.items = append(c.items, line{Product: *found, Quantity: req.Quantity, Attributes: req.Attributes})
			writeJSON(w, http.StatusOK, c.body())
		}))

		r.Put("/items", withCart(func(w http.ResponseWriter, r *http.Request, c *serverCart) {
			var req itemReq
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid body")
				return
			}
			for i := range c.items {
				if sameLine(c.items[i], req) {
					if req.Quantity <= 0 {
						c.items = append(c.items[:i], c.items[i+1:]...)
					} else {
						c.items[i].Quantity = req.Quantity
					}
					writeJSON(w, http.StatusOK, c.body())
					return
				}
			}
			writeErr(w, http.StatusNotFound, "item not in cart")
		}))

		r.Delete("/items", withCart(func(w http.ResponseWriter, r *http.Request, c *serverCart) {
			var req itemReq
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid body")
				return
			}
			for i := range c.items {
				if sameLine(c.items[i], req) {
					c.items = append(c.items[:i], c.items[i+1:]...)
					break
				}
			}
			writeJSON(w, http.StatusOK, c.body())
		}))

		r.Post("/coupon", withCart(func(w http.ResponseWriter, r *http.Request, c *serverCart) {
			var req struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid body")
				return
			}
			rule, ok := s.coupons[strings.ToUpper(strings.TrimSpace(req.Code))]
			if !ok {
				writeErr(w, http.StatusUnprocessableEntity, "invalid coupon code")
				return
			}
			c.coupon = &rule
			writeJSON(w, http.StatusOK, rule)
		}))

		r.Delete("/coupon", withCart(func(w http.ResponseWriter, _ *http.Request, c *serverCart) {
			c.coupon = nil
			writeJSON(w, http.StatusOK, c.body())
		}))
	})

	r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		email, c, ok := s.auth(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if len(c.items) == 0 {
			writeErr(w, http.StatusUnprocessableEntity, "cart is empty")
			return
		}
		subtotal, discount := c.totals()
		o := order{
			ID:       "o-" + uuid.NewString()[:8],
			Items:    c.items,
			Subtotal: subtotal,
			Discount: discount,
			Total:    subtotal - discount,
			Status:   "pending",
		}
		s.orders[email] = append(s.orders[email], o)
		c.items = nil
		c.coupon = nil
		writeJSON(w, http.StatusCreated, o)
	})

	r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		email, _, ok := s.auth(r)
		if !ok {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		out := s.orders[email]
		if out == nil {
			out = []order{}
		}
		writeJSON(w, http.StatusOK, out)
	})

	return r
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "0.0.0.0:9090", "listen address")
	flag.Parse()
	if v := os.Getenv("PORT"); v != "" {
		addr = "0.0.0.0:" + v
	}

	slog.Info("stub commerce API listening", "addr", addr)
	if err := http.ListenAndServe(addr, newStub().router()); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
