package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

// --- Fakes ---

type fakeWishes struct {
	mu      sync.Mutex
	entries []WishlistEntry
	saveErr error
	saves   int
}

func (f *fakeWishes) Load(_ context.Context) ([]WishlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WishlistEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeWishes) Save(_ context.Context, entries []WishlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.entries = make([]WishlistEntry, len(entries))
	copy(f.entries, entries)
	f.saves++
	return nil
}

// fakeRemote mimics a server cart: mutations mutate server-side state and
// Fetch returns a snapshot with server-computed totals.
type fakeRemote struct {
	mu       sync.Mutex
	items    []LineItem
	coupon   *coupon.Coupon
	catalog  map[string]product.Product
	failNext error
	fetches  int
}

func newFakeRemote(products ...product.Product) *fakeRemote {
	catalog := make(map[string]product.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return &fakeRemote{catalog: catalog}
}

func (f *fakeRemote) takeErr() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeRemote) Fetch(_ context.Context) (*ServerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	f.fetches++

	subtotal := decimal.Zero
	items := make([]LineItem, len(f.items))
	for i, li := range f.items {
		items[i] = li
		subtotal = subtotal.Add(li.Subtotal())
	}
	discount := decimal.Zero
	if f.coupon != nil {
		discount = f.coupon.DiscountFor(subtotal)
	}
	var c *coupon.Coupon
	if f.coupon != nil {
		cc := *f.coupon
		c = &cc
	}
	return &ServerSnapshot{
		Items:  items,
		Coupon: c,
		Totals: ServerTotals{
			Subtotal: subtotal,
			Discount: discount,
			Total:    subtotal.Sub(discount),
		},
	}, nil
}

func (f *fakeRemote) Add(_ context.Context, productID string, quantity int, attrs Attributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	key := KeyOf(productID, attrs)
	for i := range f.items {
		if f.items[i].Key() == key {
			f.items[i].Quantity += quantity
			return nil
		}
	}
	f.items = append(f.items, LineItem{Product: f.catalog[productID], Quantity: quantity, Attributes: attrs})
	return nil
}

func (f *fakeRemote) Update(_ context.Context, productID string, quantity int, attrs Attributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	key := KeyOf(productID, attrs)
	for i := range f.items {
		if f.items[i].Key() == key {
			f.items[i].Quantity = quantity
			return nil
		}
	}
	return errors.New("no such item")
}

func (f *fakeRemote) Remove(_ context.Context, productID string, attrs Attributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	key := KeyOf(productID, attrs)
	kept := f.items[:0]
	for _, li := range f.items {
		if li.Key() != key {
			kept = append(kept, li)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeRemote) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	f.items = nil
	f.coupon = nil
	return nil
}

func (f *fakeRemote) ApplyCoupon(_ context.Context, code string) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	c := coupon.Coupon{Code: code, Kind: coupon.KindPercentage, Value: decimal.NewFromInt(10)}
	f.coupon = &c
	return &c, nil
}

func (f *fakeRemote) RemoveCoupon(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return err
	}
	f.coupon = nil
	return nil
}

// --- Helpers ---

func newTestProduct(id string, price int64) product.Product {
	return product.Product{
		ID:    id,
		Slug:  id,
		Name:  "Product " + id,
		Price: decimal.NewFromInt(price),
		Image: id + ".jpg",
	}
}

func newLocalStore(t *testing.T) *Store {
	t.Helper()
	return New(DefaultPricing(), coupon.NewTableValidator(coupon.DefaultTable()), &fakeWishes{}, zap.NewNop())
}

// --- Local mode ---

func TestAddItem_MergesByIdentityKey(t *testing.T) {
	s := newLocalStore(t)
	p := newTestProduct("p1", 50000)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, p, 1, Attributes{"size": "L", "color": "black"}))
	require.NoError(t, s.AddItem(ctx, p, 2, Attributes{"color": "black", "size": "L"}))
	require.NoError(t, s.AddItem(ctx, p, 1, Attributes{"size": "M"}))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, 1, snap.Items[1].Quantity)
	assert.Equal(t, 4, s.ItemCount())
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	s := newLocalStore(t)

	err := s.AddItem(context.Background(), newTestProduct("p1", 1000), 0, nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, s.ItemCount())
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	attrs := Attributes{"size": "L"}

	require.NoError(t, s.AddItem(ctx, newTestProduct("p1", 1000), 2, attrs))
	require.NoError(t, s.UpdateQuantity(ctx, "p1", 0, attrs))

	assert.Empty(t, s.Snapshot().Items)
}

func TestUpdateQuantity_ReplacesQuantity(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, newTestProduct("p1", 1000), 2, nil))
	require.NoError(t, s.UpdateQuantity(ctx, "p1", 5, nil))

	assert.Equal(t, 5, s.ItemCount())
}

func TestUpdateQuantity_UnknownLine(t *testing.T) {
	s := newLocalStore(t)

	err := s.UpdateQuantity(context.Background(), "ghost", 3, nil)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_DistinguishesAttributes(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	p := newTestProduct("p1", 1000)

	require.NoError(t, s.AddItem(ctx, p, 1, Attributes{"size": "L"}))
	require.NoError(t, s.AddItem(ctx, p, 1, Attributes{"size": "M"}))
	require.NoError(t, s.RemoveItem(ctx, "p1", Attributes{"size": "L"}))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "M", snap.Items[0].Attributes["size"])
}

func TestClear_DropsItemsAndCoupon(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, newTestProduct("p1", 90000), 1, nil))
	require.NoError(t, s.ApplyCoupon(ctx, "KILLA10"))
	require.NoError(t, s.Clear(ctx))

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.Coupon)
}

func TestApplyCoupon_LocalTable(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddItem(ctx, newTestProduct("p1", 80000), 1, nil))

	require.NoError(t, s.ApplyCoupon(ctx, "killa10"))

	snap := s.Snapshot()
	require.NotNil(t, snap.Coupon)
	assert.Equal(t, "KILLA10", snap.Coupon.Code)
	assert.True(t, decimal.NewFromInt(8000).Equal(snap.Totals.Discount))
}

func TestApplyCoupon_UnknownCodeLeavesStateUnchanged(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, s.ApplyCoupon(ctx, "KILLA10"))

	err := s.ApplyCoupon(ctx, "NOPE")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	snap := s.Snapshot()
	require.NotNil(t, snap.Coupon)
	assert.Equal(t, "KILLA10", snap.Coupon.Code)
}

func TestRemoveCoupon_Local(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, s.ApplyCoupon(ctx, "KILLA10"))

	require.NoError(t, s.RemoveCoupon(ctx))
	assert.Nil(t, s.Snapshot().Coupon)
}

// --- Wishlist ---

func TestToggleWishlist_DoubleToggleRestoresMembership(t *testing.T) {
	wishes := &fakeWishes{}
	s := New(DefaultPricing(), coupon.NewTableValidator(coupon.DefaultTable()), wishes, zap.NewNop())
	ctx := context.Background()
	p := newTestProduct("p1", 1000)

	added, err := s.ToggleWishlist(ctx, p)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, s.InWishlist("p1"))

	added, err = s.ToggleWishlist(ctx, p)
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, s.InWishlist("p1"))
	assert.Equal(t, 0, s.WishlistCount())
	assert.Equal(t, 2, wishes.saves)
}

func TestToggleWishlist_SaveFailureLeavesStateUnchanged(t *testing.T) {
	wishes := &fakeWishes{saveErr: errors.New("storage down")}
	s := New(DefaultPricing(), coupon.NewTableValidator(coupon.DefaultTable()), wishes, zap.NewNop())

	_, err := s.ToggleWishlist(context.Background(), newTestProduct("p1", 1000))
	require.Error(t, err)
	assert.False(t, s.InWishlist("p1"))
}

func TestWishlist_SurvivesLogout(t *testing.T) {
	wishes := &fakeWishes{}
	s := New(DefaultPricing(), coupon.NewTableValidator(coupon.DefaultTable()), wishes, zap.NewNop())
	ctx := context.Background()

	_, err := s.ToggleWishlist(ctx, newTestProduct("p1", 1000))
	require.NoError(t, err)

	remote := newFakeRemote()
	require.NoError(t, s.Activate(ctx, remote))
	s.Deactivate()

	assert.True(t, s.InWishlist("p1"))
	assert.Equal(t, ModeLocal, s.Mode())
}

func TestMoveToCart_AddsLineAndDropsEntry(t *testing.T) {
	wishes := &fakeWishes{}
	s := New(DefaultPricing(), coupon.NewTableValidator(coupon.DefaultTable()), wishes, zap.NewNop())
	ctx := context.Background()
	p := newTestProduct("p1", 25000)

	_, err := s.ToggleWishlist(ctx, p)
	require.NoError(t, err)
	require.NoError(t, s.MoveToCart(ctx, "p1"))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.Empty(t, snap.Items[0].Attributes)
	assert.False(t, s.InWishlist("p1"))
}

func TestMoveToCart_UnknownProduct(t *testing.T) {
	s := newLocalStore(t)

	err := s.MoveToCart(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotInWishlist)
}

// --- Mode transitions ---

func TestActivate_ReplacesLocalCartWithServerCart(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	// Two items added anonymously.
	require.NoError(t, s.AddItem(ctx, newTestProduct("local1", 1000), 1, nil))
	require.NoError(t, s.AddItem(ctx, newTestProduct("local2", 2000), 1, nil))

	serverProduct := newTestProduct("srv1", 70000)
	remote := newFakeRemote(serverProduct)
	require.NoError(t, remote.Add(ctx, "srv1", 3, nil))

	require.NoError(t, s.Activate(ctx, remote))

	snap := s.Snapshot()
	assert.Equal(t, ModeSynced, snap.Mode)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "srv1", snap.Items[0].Product.ID)
	assert.Equal(t, 3, snap.Items[0].Quantity)
}

func TestActivate_FetchFailureStaysLocal(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddItem(ctx, newTestProduct("p1", 1000), 2, nil))

	remote := newFakeRemote()
	remote.failNext = errors.New("backend down")

	require.Error(t, s.Activate(ctx, remote))
	assert.Equal(t, ModeLocal, s.Mode())
	assert.Equal(t, 2, s.ItemCount())
}

func TestDeactivate_ClearsCartState(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	remote := newFakeRemote(newTestProduct("srv1", 5000))
	require.NoError(t, remote.Add(ctx, "srv1", 1, nil))
	require.NoError(t, s.Activate(ctx, remote))

	s.Deactivate()

	snap := s.Snapshot()
	assert.Equal(t, ModeLocal, snap.Mode)
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.Coupon)
}

// --- Synced mode ---

func TestSyncedMutation_RefetchesSnapshot(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	p := newTestProduct("srv1", 60000)
	remote := newFakeRemote(p)
	require.NoError(t, s.Activate(ctx, remote))

	require.NoError(t, s.AddItem(ctx, p, 2, nil))

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	// Server totals are authoritative; shipping is added client-side.
	assert.True(t, decimal.NewFromInt(120000).Equal(snap.Totals.Subtotal))
	assert.True(t, decimal.Zero.Equal(snap.Totals.Shipping))
	assert.True(t, decimal.NewFromInt(120000).Equal(snap.Totals.Total))
}

func TestSyncedMutation_RemoteFailureLeavesStateUnchanged(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	p := newTestProduct("srv1", 60000)
	remote := newFakeRemote(p)
	require.NoError(t, remote.Add(ctx, "srv1", 1, nil))
	require.NoError(t, s.Activate(ctx, remote))

	remote.failNext = errors.New("gateway timeout")
	require.Error(t, s.AddItem(ctx, p, 1, nil))

	assert.Equal(t, 1, s.ItemCount())
}

func TestSyncedApplyCoupon_StoresServerCoupon(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	p := newTestProduct("srv1", 80000)
	remote := newFakeRemote(p)
	require.NoError(t, remote.Add(ctx, "srv1", 1, nil))
	require.NoError(t, s.Activate(ctx, remote))

	require.NoError(t, s.ApplyCoupon(ctx, "SERVER10"))

	snap := s.Snapshot()
	require.NotNil(t, snap.Coupon)
	assert.Equal(t, "SERVER10", snap.Coupon.Code)
	assert.True(t, decimal.NewFromInt(8000).Equal(snap.Totals.Discount))
}

func TestConcurrentAdds_SettleOnServerState(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	p := newTestProduct("srv1", 1000)
	remote := newFakeRemote(p)
	require.NoError(t, s.Activate(ctx, remote))

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_ = s.AddItem(ctx, p, 1, nil)
		}()
	}
	wg.Wait()

	// Regardless of how re-fetches interleave, a final refetch settles the
	// store on the server's cart.
	require.NoError(t, s.refetch(ctx, remote))
	assert.Equal(t, workers, s.ItemCount())
}
