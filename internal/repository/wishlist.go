package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rowanlk/storefront-gateway/internal/domain/cart"
)

const (
	selectWishlistSQL = `SELECT product_id, name, price, image, slug
		FROM wishlist_entries WHERE device_id = $1 ORDER BY position`

	deleteWishlistSQL = `DELETE FROM wishlist_entries WHERE device_id = $1`

	insertWishlistEntrySQL = `INSERT INTO wishlist_entries
		(device_id, position, product_id, name, price, image, slug)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// WishlistRepository persists per-device wishlists in PostgreSQL. Saves
// replace the whole array, mirroring how a browser would rewrite the
// local-storage value.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// ForDevice returns the wishlist storage bound to one device.
func (r *WishlistRepository) ForDevice(deviceID string) cart.WishlistStorage {
	return &deviceWishlist{repo: r, deviceID: deviceID}
}

type deviceWishlist struct {
	repo     *WishlistRepository
	deviceID string
}

// Load returns the device's wishlist entries in insertion order.
func (d *deviceWishlist) Load(ctx context.Context) ([]cart.WishlistEntry, error) {
	rows, err := d.repo.pool.Query(ctx, selectWishlistSQL, d.deviceID)
	if err != nil {
		return nil, fmt.Errorf("loading wishlist for device %q: %w", d.deviceID, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.WishlistEntry, error) {
		var e cart.WishlistEntry
		err := row.Scan(&e.ProductID, &e.Name, &e.Price, &e.Image, &e.Slug)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading wishlist for device %q: %w", d.deviceID, err)
	}
	return entries, nil
}

// Save atomically replaces the device's wishlist with the given entries.
func (d *deviceWishlist) Save(ctx context.Context, entries []cart.WishlistEntry) error {
	tx, err := d.repo.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("saving wishlist for device %q: %w", d.deviceID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteWishlistSQL, d.deviceID); err != nil {
		return fmt.Errorf("saving wishlist for device %q: %w", d.deviceID, err)
	}
	for i, e := range entries {
		_, err := tx.Exec(ctx, insertWishlistEntrySQL,
			d.deviceID, i, e.ProductID, e.Name, e.Price, e.Image, e.Slug)
		if err != nil {
			return fmt.Errorf("saving wishlist entry %q for device %q: %w", e.ProductID, d.deviceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("saving wishlist for device %q: %w", d.deviceID, err)
	}
	return nil
}
