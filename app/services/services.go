// Package services holds the business rules of the marketplace. The
// checkout and confirmation flow in checkout.go is the core: it turns a
// checkout session into orders, stock movements and one payment record,
// and is safe to retry.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/plantnet/plantnet-server/pkg/cache"
	"github.com/plantnet/plantnet-server/pkg/logger"
)

const (
	plantKeyPrefix = "plants:id:"
	plantListKey   = "plants:list:"
)

// CatalogCache fronts plant reads with Redis. A nil *CatalogCache, or one
// over a nil *cache.Redis, always misses.
type CatalogCache struct {
	redis *cache.Redis
	ttl   time.Duration
}

func NewCatalogCache(r *cache.Redis, ttl time.Duration) *CatalogCache {
	return &CatalogCache{redis: r, ttl: ttl}
}

func plantKey(id string) string { return plantKeyPrefix + id }

func listKey(category, seller string) string {
	return plantListKey + strings.ToLower(category) + ":" + strings.ToLower(seller)
}

func (c *CatalogCache) get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	return c.redis.Get(ctx, key, dest)
}

func (c *CatalogCache) set(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	if err := c.redis.Set(ctx, key, v, c.ttl); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache set failed", "key", key, "error", err)
	}
}

// invalidate drops the plant and every cached listing.
func (c *CatalogCache) invalidate(ctx context.Context, plantID string) {
	if c == nil {
		return
	}
	if err := c.redis.Del(ctx, plantKey(plantID)); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache del failed", "plant", plantID, "error", err)
	}
	if err := c.redis.Flush(ctx, plantListKey); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache flush failed", "error", err)
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
