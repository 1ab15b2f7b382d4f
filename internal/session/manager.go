// Package session maps device identities to live cart stores and drives
// the local/synced mode transitions around login and logout.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/backend"
	"github.com/rowanlk/storefront-gateway/internal/domain/cart"
	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
)

// Gateway is what the session layer needs from the commerce API.
type Gateway interface {
	Login(ctx context.Context, creds backend.Credentials) (string, backend.User, error)
	Register(ctx context.Context, input backend.RegisterInput) (backend.User, error)
	Profile(ctx context.Context, token string) (backend.User, error)
	Remote(token string) cart.Remote
}

// WrapClient adapts a commerce API client into a Gateway.
func WrapClient(c *backend.Client) Gateway {
	return clientGateway{c}
}

type clientGateway struct {
	c *backend.Client
}

func (g clientGateway) Login(ctx context.Context, creds backend.Credentials) (string, backend.User, error) {
	return g.c.Login(ctx, creds)
}

func (g clientGateway) Register(ctx context.Context, input backend.RegisterInput) (backend.User, error) {
	return g.c.Register(ctx, input)
}

func (g clientGateway) Profile(ctx context.Context, token string) (backend.User, error) {
	return g.c.Profile(ctx, token)
}

func (g clientGateway) Remote(token string) cart.Remote {
	return g.c.CartSession(token)
}

// TokenStore retains auth tokens per device across gateway restarts.
type TokenStore interface {
	Get(ctx context.Context, deviceID string) (string, error)
	Put(ctx context.Context, deviceID, token string) error
	Delete(ctx context.Context, deviceID string) error
}

// WishlistSource provides per-device wishlist storage.
type WishlistSource interface {
	ForDevice(deviceID string) cart.WishlistStorage
}

// Session is one device's live state: its cart store plus the retained
// auth token and account, when authenticated.
type Session struct {
	deviceID string
	store    *cart.Store

	initOnce sync.Once

	mu       sync.Mutex
	token    string
	user     *backend.User
	lastSeen time.Time
}

// DeviceID returns the device identity this session belongs to.
func (s *Session) DeviceID() string { return s.deviceID }

// Store returns the session's cart store.
func (s *Session) Store() *cart.Store { return s.store }

// Token returns the retained auth token, or "" for anonymous sessions.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the authenticated account, or nil.
func (s *Session) User() *backend.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether the session holds an auth token.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// hydrateTimeout bounds first-sight hydration once it is detached from
// the request's own deadline.
const hydrateTimeout = 10 * time.Second

// Config tunes the session manager.
type Config struct {
	// IdleTTL is how long an untouched session stays resident. Evicted
	// local carts are lost, matching the reference behaviour of an
	// anonymous cart not surviving a reload; synced carts and wishlists
	// are durable elsewhere and simply re-hydrate.
	IdleTTL time.Duration
	Pricing cart.Pricing
}

// Manager owns all live sessions. It is constructed once at application
// start and handed to the HTTP layer by reference; nothing here is a
// package-level global.
type Manager struct {
	gateway Gateway
	tokens  TokenStore
	wishes  WishlistSource
	coupons coupon.Validator
	cfg     Config
	lg      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager with the given collaborators.
func NewManager(gateway Gateway, tokens TokenStore, wishes WishlistSource, coupons coupon.Validator, cfg Config, lg *zap.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Manager{
		gateway:  gateway,
		tokens:   tokens,
		wishes:   wishes,
		coupons:  coupons,
		cfg:      cfg,
		lg:       lg.Named("session"),
		sessions: make(map[string]*Session),
	}
}

// Session returns the live session for the device, creating and hydrating
// it on first sight: the durable wishlist is loaded, and a retained token
// resumes synced mode.
func (m *Manager) Session(ctx context.Context, deviceID string) *Session {
	now := time.Now()

	m.mu.Lock()
	s, ok := m.sessions[deviceID]
	if !ok {
		s = &Session{
			deviceID: deviceID,
			store:    cart.New(m.cfg.Pricing, m.coupons, m.wishes.ForDevice(deviceID), m.lg),
			lastSeen: now,
		}
		m.sessions[deviceID] = s
	}
	m.mu.Unlock()

	s.touch(now)
	s.initOnce.Do(func() {
		// Hydration runs once per resident session; detach it from the
		// triggering request so a cancelled first request does not cost
		// the device its wishlist and synced-mode resume.
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hydrateTimeout)
		defer cancel()
		m.hydrate(hctx, s)
	})
	return s
}

// hydrate restores durable device state. Failures degrade to an empty
// local session rather than blocking the request.
func (m *Manager) hydrate(ctx context.Context, s *Session) {
	if err := s.store.LoadWishlist(ctx); err != nil {
		m.lg.Warn("wishlist hydration failed", zap.String("device_id", s.deviceID), zap.Error(err))
	}

	token, err := m.tokens.Get(ctx, s.deviceID)
	if err != nil {
		m.lg.Warn("token lookup failed", zap.String("device_id", s.deviceID), zap.Error(err))
		return
	}
	if token == "" {
		return
	}

	if err := s.store.Activate(ctx, m.gateway.Remote(token)); err != nil {
		if backend.IsUnauthorized(err) {
			// The retained token expired server-side; forget it.
			if delErr := m.tokens.Delete(ctx, s.deviceID); delErr != nil {
				m.lg.Warn("stale token cleanup failed", zap.String("device_id", s.deviceID), zap.Error(delErr))
			}
			return
		}
		m.lg.Warn("synced mode resume failed", zap.String("device_id", s.deviceID), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Login authenticates the device against the commerce API and transitions
// its store into synced mode. On any failure the session stays as it was.
func (m *Manager) Login(ctx context.Context, s *Session, creds backend.Credentials) (backend.User, error) {
	token, user, err := m.gateway.Login(ctx, creds)
	if err != nil {
		return backend.User{}, err
	}

	if err := s.store.Activate(ctx, m.gateway.Remote(token)); err != nil {
		return backend.User{}, errors.Wrap(err, "activate synced cart")
	}

	// Best effort: a keystore outage only costs token retention across
	// restarts, not this login.
	if err := m.tokens.Put(ctx, s.deviceID, token); err != nil {
		m.lg.Warn("token retention failed", zap.String("device_id", s.deviceID), zap.Error(err))
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	return user, nil
}

// Logout drops the retained token and returns the store to local mode
// with cleared cart state.
func (m *Manager) Logout(ctx context.Context, s *Session) {
	if err := m.tokens.Delete(ctx, s.deviceID); err != nil {
		m.lg.Warn("token deletion failed", zap.String("device_id", s.deviceID), zap.Error(err))
	}

	s.store.Deactivate()

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// Register creates an account with the commerce API. It does not log the
// device in; callers chain Login for that.
func (m *Manager) Register(ctx context.Context, input backend.RegisterInput) (backend.User, error) {
	return m.gateway.Register(ctx, input)
}

// Profile fetches the account behind the session's token.
func (m *Manager) Profile(ctx context.Context, s *Session) (backend.User, error) {
	token := s.Token()
	if token == "" {
		return backend.User{}, errors.New("not authenticated")
	}
	return m.gateway.Profile(ctx, token)
}

// Count returns the number of resident sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartEviction launches a background goroutine that drops sessions idle
// beyond the configured TTL. It stops when ctx is cancelled.
func (m *Manager) StartEviction(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.evictIdle(now)
			}
		}
	}()
}

func (m *Manager) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if now.Sub(s.seen()) >= m.cfg.IdleTTL {
			delete(m.sessions, id)
		}
	}
}
