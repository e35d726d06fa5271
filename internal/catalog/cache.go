package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"invoicing_backend/internal/catalog/repository"
	"invoicing_backend/internal/catalog/service"
	"invoicing_backend/platform/apperr"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 5 * time.Minute
	missingMarker   = "-"
)

// Finder looks up a product by key within a tenant.
type Finder interface {
	FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (repository.Product, error)
}

var (
	_ Finder         = (*repository.Repo)(nil)
	_ service.Finder = (*CachedFinder)(nil)
)

// CachedFinder is a read-through redis cache in front of a Finder. Misses are
// cached too, so repeated lookups of unknown keys stay off the database.
// Redis failures fall back to the underlying finder.
type CachedFinder struct {
	next  Finder
	redis *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedFinder wraps next with a redis cache.
func NewCachedFinder(next Finder, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedFinder {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedFinder{next: next, redis: rdb, ttl: ttl, log: log}
}

// FindByKey returns the cached product, loading and caching it on a miss.
func (c *CachedFinder) FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (repository.Product, error) {
	cacheKey := productCacheKey(tenantID, key)

	raw, err := c.redis.Get(ctx, cacheKey).Result()
	switch {
	case err == nil && raw == missingMarker:
		return repository.Product{}, apperr.NotFound("product not found")
	case err == nil:
		var product repository.Product
		if jsonErr := json.Unmarshal([]byte(raw), &product); jsonErr == nil {
			product.TenantID = tenantID
			return product, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn("catalog cache read failed", "error", err, "key", cacheKey)
	}

	product, err := c.next.FindByKey(ctx, tenantID, key)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.store(ctx, cacheKey, missingMarker)
		}
		return repository.Product{}, err
	}

	if encoded, jsonErr := json.Marshal(product); jsonErr == nil {
		c.store(ctx, cacheKey, string(encoded))
	}
	return product, nil
}

// Invalidate drops the cached entry for key.
func (c *CachedFinder) Invalidate(ctx context.Context, tenantID uuid.UUID, key string) error {
	return c.redis.Del(ctx, productCacheKey(tenantID, key)).Err()
}

func (c *CachedFinder) store(ctx context.Context, cacheKey, value string) {
	if err := c.redis.Set(ctx, cacheKey, value, c.ttl).Err(); err != nil {
		c.log.Warn("catalog cache write failed", "error", err, "key", cacheKey)
	}
}

func productCacheKey(tenantID uuid.UUID, key string) string {
	return fmt.Sprintf("catalog:product:%s:%s", tenantID, key)
}
