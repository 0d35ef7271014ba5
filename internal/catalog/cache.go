package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shopwindow/internal/domain"
)

const (
	categoriesKey = "catalog:categories"

	// DefaultCategoryTTL matches how long the storefront considers the
	// category list fresh.
	DefaultCategoryTTL = 10 * time.Minute
)

// CachedCatalog wraps a Gateway with a Redis-backed category cache. The
// category list changes rarely and is requested on every page view, so it
// is the one thing worth caching; product pages stay uncached to keep
// freshness decisions with the consumer.
type CachedCatalog struct {
	*Gateway
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalog wraps gw. A zero ttl falls back to DefaultCategoryTTL.
func NewCachedCatalog(gw *Gateway, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	if ttl == 0 {
		ttl = DefaultCategoryTTL
	}
	return &CachedCatalog{Gateway: gw, rdb: rdb, ttl: ttl, logger: logger}
}

// FetchCategories serves from Redis when possible and falls through to
// the remote source on miss or on any Redis failure. Cache errors are
// logged and never surfaced: the cache is an optimization, not a
// dependency.
func (c *CachedCatalog) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	cached, err := c.rdb.Get(ctx, categoriesKey).Bytes()
	if err == nil {
		var categories []domain.Category
		if jsonErr := json.Unmarshal(cached, &categories); jsonErr == nil {
			return categories, nil
		}
		// Corrupt entry: drop it and refetch.
		c.rdb.Del(ctx, categoriesKey)
	} else if err != redis.Nil {
		c.logger.Warn("Category cache read failed", zap.Error(err))
	}

	categories, err := c.Gateway.FetchCategories(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(categories); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, categoriesKey, encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("Category cache write failed", zap.Error(setErr))
		}
	}
	return categories, nil
}
