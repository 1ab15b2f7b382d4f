package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getTokenSQL = `SELECT token FROM device_tokens WHERE device_id = $1`

	upsertTokenSQL = `INSERT INTO device_tokens (device_id, token, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (device_id) DO UPDATE SET token = EXCLUDED.token, updated_at = now()`

	deleteTokenSQL = `DELETE FROM device_tokens WHERE device_id = $1`
)

// TokenRepository retains commerce API session tokens per device, the way
// a browser would keep the auth token in local storage under a fixed key.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Get returns the stored token for the device, or "" when none exists.
func (r *TokenRepository) Get(ctx context.Context, deviceID string) (string, error) {
	var token string
	err := r.pool.QueryRow(ctx, getTokenSQL, deviceID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("getting token for device %q: %w", deviceID, err)
	}
	return token, nil
}

// Put stores or replaces the device's token.
func (r *TokenRepository) Put(ctx context.Context, deviceID, token string) error {
	if _, err := r.pool.Exec(ctx, upsertTokenSQL, deviceID, token); err != nil {
		return fmt.Errorf("storing token for device %q: %w", deviceID, err)
	}
	return nil
}

// Delete removes the device's token. Deleting an absent token is a no-op.
func (r *TokenRepository) Delete(ctx context.Context, deviceID string) error {
	if _, err := r.pool.Exec(ctx, deleteTokenSQL, deviceID); err != nil {
		return fmt.Errorf("deleting token for device %q: %w", deviceID, err)
	}
	return nil
}
