package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

// Mode names the store's persistence mode.
type Mode int

const (
	// ModeLocal keeps the cart in memory only; used for anonymous sessions.
	ModeLocal Mode = iota
	// ModeSynced delegates cart persistence to the remote service; every
	// mutation issues a remote call and then re-fetches the full snapshot.
	ModeSynced
)

func (m Mode) String() string {
	if m == ModeSynced {
		return "synced"
	}
	return "local"
}

// Sentinel errors for store operations.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrNotInWishlist   = errors.New("product not in wishlist")
)

// ServerSnapshot is the remote service's view of a synced cart. It is the
// single source of truth whenever a session is authenticated.
type ServerSnapshot struct {
	Items  []LineItem
	Coupon *coupon.Coupon
	Totals ServerTotals
}

// Remote is the server-side cart contract used in synced mode.
type Remote interface {
	Fetch(ctx context.Context) (*ServerSnapshot, error)
	Add(ctx context.Context, productID string, quantity int, attrs Attributes) error
	Update(ctx context.Context, productID string, quantity int, attrs Attributes) error
	Remove(ctx context.Context, productID string, attrs Attributes) error
	Clear(ctx context.Context) error
	ApplyCoupon(ctx context.Context, code string) (*coupon.Coupon, error)
	RemoveCoupon(ctx context.Context) error
}

// WishlistStorage persists the wishlist across sessions, independent of
// authentication state.
type WishlistStorage interface {
	Load(ctx context.Context) ([]WishlistEntry, error)
	Save(ctx context.Context, entries []WishlistEntry) error
}

// Snapshot is a consistent read of the whole store.
type Snapshot struct {
	Mode     Mode
	Items    []LineItem
	Wishlist []WishlistEntry
	Coupon   *coupon.Coupon
	Totals   Totals
}

// Store holds one device's cart, wishlist, and active coupon, and
// reconciles between an anonymous local-only mode and an authenticated
// server-synced mode. It is safe for concurrent use; overlapping synced
// snapshot re-fetches are collapsed into one remote call.
//
// A failed operation leaves the previous in-memory state unchanged and
// surfaces as a returned error; the store never panics on business
// failures.
type Store struct {
	pricing Pricing
	coupons coupon.Validator
	wishes  WishlistStorage
	lg      *zap.Logger

	fetches singleflight.Group

	mu       sync.Mutex
	mode     Mode
	remote   Remote
	items    []LineItem
	wishlist []WishlistEntry
	coupon   *coupon.Coupon
	server   *ServerTotals
}

// New creates a Store in local mode. The wishlist is loaded separately via
// LoadWishlist so that a storage outage does not block store construction.
func New(pricing Pricing, coupons coupon.Validator, wishes WishlistStorage, lg *zap.Logger) *Store {
	return &Store{
		pricing: pricing,
		coupons: coupons,
		wishes:  wishes,
		lg:      lg.Named("cart"),
	}
}

// LoadWishlist restores the durable wishlist into memory.
func (s *Store) LoadWishlist(ctx context.Context) error {
	entries, err := s.wishes.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load wishlist")
	}

	s.mu.Lock()
	s.wishlist = entries
	s.mu.Unlock()
	return nil
}

// Activate transitions the store from local to synced mode after a
// successful authentication. The server's cart unconditionally replaces
// the in-memory one; pre-auth local line items are discarded. On fetch
// failure the store stays in local mode, untouched.
func (s *Store) Activate(ctx context.Context, remote Remote) error {
	snap, err := remote.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch server cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeSynced
	s.remote = remote
	s.applySnapshotLocked(snap)
	return nil
}

// Deactivate transitions back to local mode on logout. Cart and coupon
// state is cleared; the wishlist survives, it is device-scoped.
func (s *Store) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeLocal
	s.remote = nil
	s.items = nil
	s.coupon = nil
	s.server = nil
}

// AddItem adds quantity of a product with the chosen variant attributes,
// merging into an existing line with the same identity key.
func (s *Store) AddItem(ctx context.Context, p product.Product, quantity int, attrs Attributes) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	if s.mode == ModeLocal {
		key := KeyOf(p.ID, attrs)
		for i := range s.items {
			if s.items[i].Key() == key {
				s.items[i].Quantity += quantity
				s.mu.Unlock()
				return nil
			}
		}
		s.items = append(s.items, LineItem{Product: p, Quantity: quantity, Attributes: attrs.clone()})
		s.mu.Unlock()
		return nil
	}
	remote := s.remote
	s.mu.Unlock()

	if err := remote.Add(ctx, p.ID, quantity, attrs); err != nil {
		s.lg.Warn("remote add failed", zap.String("product_id", p.ID), zap.Error(err))
		return errors.Wrap(err, "add item")
	}
	return s.refetch(ctx, remote)
}

// RemoveItem removes the line matching (productID, attrs). Removing an
// absent line is a no-op in local mode.
func (s *Store) RemoveItem(ctx context.Context, productID string, attrs Attributes) error {
	s.mu.Lock()
	if s.mode == ModeLocal {
		key := KeyOf(productID, attrs)
		kept := s.items[:0]
		for _, li := range s.items {
			if li.Key() != key {
				kept = append(kept, li)
			}
		}
		s.items = kept
		s.mu.Unlock()
		return nil
	}
	remote := s.remote
	s.mu.Unlock()

	if err := remote.Remove(ctx, productID, attrs); err != nil {
		s.lg.Warn("remote remove failed", zap.String("product_id", productID), zap.Error(err))
		return errors.Wrap(err, "remove item")
	}
	return s.refetch(ctx, remote)
}

// UpdateQuantity replaces the matching line's quantity. A quantity of zero
// or less is equivalent to removal.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int, attrs Attributes) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID, attrs)
	}

	s.mu.Lock()
	if s.mode == ModeLocal {
		key := KeyOf(productID, attrs)
		for i := range s.items {
			if s.items[i].Key() == key {
				s.items[i].Quantity = quantity
				s.mu.Unlock()
				return nil
			}
		}
		s.mu.Unlock()
		return ErrItemNotFound
	}
	remote := s.remote
	s.mu.Unlock()

	if err := remote.Update(ctx, productID, quantity, attrs); err != nil {
		s.lg.Warn("remote update failed", zap.String("product_id", productID), zap.Error(err))
		return errors.Wrap(err, "update quantity")
	}
	return s.refetch(ctx, remote)
}

// Clear empties all line items and drops any active coupon.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.mode == ModeLocal {
		s.items = nil
		s.coupon = nil
		s.mu.Unlock()
		return nil
	}
	remote := s.remote
	s.mu.Unlock()

	if err := remote.Clear(ctx); err != nil {
		s.lg.Warn("remote clear failed", zap.Error(err))
		return errors.Wrap(err, "clear cart")
	}
	return s.refetch(ctx, remote)
}

// ApplyCoupon validates a code and stores the resulting coupon, replacing
// any existing one. Unknown codes fail with coupon.ErrInvalidCoupon and
// cause no mutation.
func (s *Store) ApplyCoupon(ctx context.Context, code string) error {
	s.mu.Lock()
	mode, remote := s.mode, s.remote
	s.mu.Unlock()

	if mode == ModeLocal {
		c, err := s.coupons.Validate(ctx, code)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.coupon = c
		s.mu.Unlock()
		return nil
	}

	c, err := remote.ApplyCoupon(ctx, code)
	if err != nil {
		return err
	}
	if err := s.refetch(ctx, remote); err != nil {
		return err
	}

	// The snapshot is authoritative, but guard against servers that apply
	// the coupon before reflecting it in the cart payload.
	s.mu.Lock()
	if s.coupon == nil {
		s.coupon = c
	}
	s.mu.Unlock()
	return nil
}

// RemoveCoupon clears the active coupon. In synced mode the server is told
// as well, so client and server never disagree about the discount.
func (s *Store) RemoveCoupon(ctx context.Context) error {
	s.mu.Lock()
	if s.mode == ModeLocal {
		s.coupon = nil
		s.mu.Unlock()
		return nil
	}
	remote := s.remote
	s.mu.Unlock()

	if err := remote.RemoveCoupon(ctx); err != nil {
		s.lg.Warn("remote coupon removal failed", zap.Error(err))
		return errors.Wrap(err, "remove coupon")
	}
	return s.refetch(ctx, remote)
}

// ToggleWishlist adds the product to the wishlist if absent, removes it if
// present, and persists the result before committing. It reports whether
// the product ended up in the wishlist.
func (s *Store) ToggleWishlist(ctx context.Context, p product.Product) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]WishlistEntry, 0, len(s.wishlist)+1)
	for _, e := range s.wishlist {
		if e.ProductID != p.ID {
			next = append(next, e)
		}
	}
	if added = len(next) == len(s.wishlist); added {
		next = append(next, EntryOf(p))
	}

	if err := s.wishes.Save(ctx, next); err != nil {
		s.lg.Warn("wishlist save failed", zap.String("product_id", p.ID), zap.Error(err))
		return false, errors.Wrap(err, "save wishlist")
	}
	s.wishlist = next
	return added, nil
}

// MoveToCart removes a wishlist entry and adds the product to the cart as
// a fresh line with quantity 1 and no attributes.
func (s *Store) MoveToCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	var entry *WishlistEntry
	for i := range s.wishlist {
		if s.wishlist[i].ProductID == productID {
			entry = &s.wishlist[i]
			break
		}
	}
	s.mu.Unlock()
	if entry == nil {
		return ErrNotInWishlist
	}

	if err := s.AddItem(ctx, entry.Product(), 1, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]WishlistEntry, 0, len(s.wishlist))
	for _, e := range s.wishlist {
		if e.ProductID != productID {
			next = append(next, e)
		}
	}
	if err := s.wishes.Save(ctx, next); err != nil {
		// The product is already in the cart; keep the wishlist entry
		// rather than losing it to a storage failure.
		s.lg.Warn("wishlist save failed after move", zap.String("product_id", productID), zap.Error(err))
		return errors.Wrap(err, "save wishlist")
	}
	s.wishlist = next
	return nil
}

// InWishlist reports wishlist membership by product id.
func (s *Store) InWishlist(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.wishlist {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

// WishlistCount returns the number of wishlist entries.
func (s *Store) WishlistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wishlist)
}

// ItemCount returns the sum of quantities across all line items.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, li := range s.items {
		total += li.Quantity
	}
	return total
}

// Mode returns the current persistence mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Totals resolves the cart's pricing from the authoritative source for the
// current mode.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsLocked()
}

// Snapshot returns a consistent copy of the whole store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]LineItem, len(s.items))
	for i, li := range s.items {
		li.Attributes = li.Attributes.clone()
		items[i] = li
	}
	wishlist := make([]WishlistEntry, len(s.wishlist))
	copy(wishlist, s.wishlist)

	var c *coupon.Coupon
	if s.coupon != nil {
		cc := *s.coupon
		c = &cc
	}

	return Snapshot{
		Mode:     s.mode,
		Items:    items,
		Wishlist: wishlist,
		Coupon:   c,
		Totals:   s.totalsLocked(),
	}
}

func (s *Store) totalsLocked() Totals {
	src := SourceLocal
	if s.mode == ModeSynced && s.server != nil {
		src = SourceServer
	}
	return s.pricing.Resolve(src, s.items, s.coupon, s.server)
}

// refetch replaces the in-memory snapshot with the server's, collapsing
// overlapping calls so rapid successive mutations do not interleave
// re-fetches.
func (s *Store) refetch(ctx context.Context, remote Remote) error {
	v, err, _ := s.fetches.Do("cart", func() (interface{}, error) {
		return remote.Fetch(ctx)
	})
	if err != nil {
		s.lg.Warn("cart re-fetch failed", zap.Error(err))
		return errors.Wrap(err, "fetch cart")
	}
	snap := v.(*ServerSnapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote != remote {
		// Logged out (or re-authenticated) while the fetch was in flight;
		// do not resurrect stale state.
		return nil
	}
	s.applySnapshotLocked(snap)
	return nil
}

func (s *Store) applySnapshotLocked(snap *ServerSnapshot) {
	items := make([]LineItem, len(snap.Items))
	for i, li := range snap.Items {
		li.Attributes = li.Attributes.clone()
		items[i] = li
	}
	s.items = items

	s.coupon = nil
	if snap.Coupon != nil {
		c := *snap.Coupon
		s.coupon = &c
	}

	totals := snap.Totals
	s.server = &totals
}
