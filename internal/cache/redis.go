// Package cache provides a Redis-backed cache for catalog reads.
package cache

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

// ErrMiss is returned when the key is not cached.
var ErrMiss = errors.New("cache miss")

// ProductCache stores product lists with a jittered TTL so concurrently
// warmed keys do not expire in lockstep.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProductCache wraps an existing Redis client.
func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProductCache{rdb: rdb, ttl: ttl}
}

// GetProducts returns the cached list under key, or ErrMiss.
func (c *ProductCache) GetProducts(ctx context.Context, key string) ([]product.Product, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, errors.Wrap(err, "redis get")
	}

	var products []product.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, errors.Wrap(err, "decode cached products")
	}
	return products, nil
}

// SetProducts caches the list under key with a jittered expiry.
func (c *ProductCache) SetProducts(ctx context.Context, key string, products []product.Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return errors.Wrap(err, "encode products")
	}
	if err := c.rdb.Set(ctx, key, raw, c.jitteredTTL()).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Invalidate drops the given keys.
func (c *ProductCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Ping checks connectivity, for readiness probes.
func (c *ProductCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// jitteredTTL spreads expiry within +/-10% of the base TTL.
func (c *ProductCache) jitteredTTL() time.Duration {
	spread := int64(c.ttl) / 10
	if spread == 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int63n(2*spread)-spread)
}
