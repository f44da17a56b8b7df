package backend

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/floodview/internal/observability"
)

// ImageResolver maps satellite image file names to backend ids.
type ImageResolver interface {
	SatelliteImageID(ctx context.Context, filename string) (int64, error)
}

// CachedImageResolver wraps an ImageResolver with an in-memory LRU cache.
// Image ids never change, so entries do not expire.
type CachedImageResolver struct {
	inner   ImageResolver
	cache   *lru.Cache[string, int64]
	metrics *observability.Metrics
}

// NewCachedImageResolver creates a cache decorator around a resolver.
func NewCachedImageResolver(inner ImageResolver, maxEntries int, metrics *observability.Metrics) (*CachedImageResolver, error) {
	cache, err := lru.New[string, int64](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create image id cache: %w", err)
	}
	return &CachedImageResolver{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedImageResolver) SatelliteImageID(ctx context.Context, filename string) (int64, error) {
	if id, ok := c.cache.Get(filename); ok {
		c.metrics.ImageIDCache.WithLabelValues("hit").Inc()
		return id, nil
	}
	c.metrics.ImageIDCache.WithLabelValues("miss").Inc()

	id, err := c.inner.SatelliteImageID(ctx, filename)
	if err != nil {
		return id, err
	}
	// Only cache real ids so an image registered later can still be resolved.
	if id != 0 {
		c.cache.Add(filename, id)
	}
	return id, nil
}

// Len returns the number of cached ids.
func (c *CachedImageResolver) Len() int {
	return c.cache.Len()
}
