// Package catalog serves product reads, fronting the commerce API with an
// optional cache for the hot endpoints.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rowanlk/storefront-gateway/internal/cache"
	"github.com/rowanlk/storefront-gateway/internal/domain/product"
)

const (
	keyFeatured    = "catalog:featured"
	keyListPattern = "catalog:list:%s:p%d:n%d"
)

// Cache is the slice of the product cache the service reads through.
type Cache interface {
	GetProducts(ctx context.Context, key string) ([]product.Product, error)
	SetProducts(ctx context.Context, key string, products []product.Product) error
	Invalidate(ctx context.Context, keys ...string) error
}

var _ Cache = (*cache.ProductCache)(nil)

// Service resolves product reads. Cache failures degrade to direct
// upstream reads and are logged, never surfaced to callers.
type Service struct {
	upstream product.Catalog
	cache    Cache
	lg       *zap.Logger
	group    singleflight.Group

	mu     sync.Mutex
	filled map[string]struct{}
}

// New creates a Service. pc may be nil to disable caching.
func New(upstream product.Catalog, pc Cache, lg *zap.Logger) *Service {
	return &Service{
		upstream: upstream,
		cache:    pc,
		lg:       lg.Named("catalog"),
		filled:   make(map[string]struct{}),
	}
}

var _ product.Catalog = (*Service)(nil)

// List returns a page of products. Unfiltered pages are cached; queries
// always go upstream.
func (s *Service) List(ctx context.Context, params product.ListParams) ([]product.Product, error) {
	if params.Query != "" {
		return s.upstream.List(ctx, params)
	}
	key := fmt.Sprintf(keyListPattern, params.Category, params.Page, params.PerPage)
	return s.cached(ctx, key, func() ([]product.Product, error) {
		return s.upstream.List(ctx, params)
	})
}

// GetByID resolves a single product.
func (s *Service) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return s.upstream.GetByID(ctx, id)
}

// GetBySlug resolves a single product by its URL slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return s.upstream.GetBySlug(ctx, slug)
}

// Featured returns the storefront's featured products, cached.
func (s *Service) Featured(ctx context.Context) ([]product.Product, error) {
	return s.cached(ctx, keyFeatured, func() ([]product.Product, error) {
		return s.upstream.Featured(ctx)
	})
}

// Search queries the catalog. Never cached.
func (s *Service) Search(ctx context.Context, query string) ([]product.Product, error) {
	return s.upstream.Search(ctx, query)
}

// InvalidateListings drops every cached page after admin catalog writes:
// the featured set plus all list pages filled since the last invalidation.
func (s *Service) InvalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	keys := make([]string, 0, len(s.filled)+1)
	keys = append(keys, keyFeatured)
	for k := range s.filled {
		if k != keyFeatured {
			keys = append(keys, k)
		}
	}
	s.filled = make(map[string]struct{})
	s.mu.Unlock()

	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.lg.Warn("cache invalidation failed", zap.Error(err))
	}
}

// cached reads through the cache, collapsing concurrent fills per key.
func (s *Service) cached(ctx context.Context, key string, fill func() ([]product.Product, error)) ([]product.Product, error) {
	if s.cache == nil {
		return fill()
	}

	if products, err := s.cache.GetProducts(ctx, key); err == nil {
		return products, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.lg.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		products, err := fill()
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetProducts(ctx, key, products); err != nil {
			s.lg.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		s.mu.Lock()
		s.filled[key] = struct{}{}
		s.mu.Unlock()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]product.Product), nil
}
