package assessment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"siterisk/internal/platform/redis"
)

const catalogCacheKey = "siterisk:catalog:v1"

// CatalogCache keeps the section and risk-factor catalog in Redis so
// metadata reads skip the database between catalog edits. A nil client
// disables caching.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCatalogCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached catalog, or false on a miss. Redis failures
// count as misses so the catalog stays readable without Redis.
func (c *CatalogCache) Get(ctx context.Context) (*Metadata, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "reading catalog cache", slog.Any("error", err))
		}
		return nil, false
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		c.logger.WarnContext(ctx, "decoding catalog cache", slog.Any("error", err))
		return nil, false
	}
	return &m, true
}

// Set stores the catalog with the configured TTL. Failures are logged
// and dropped.
func (c *CatalogCache) Set(ctx context.Context, m Metadata) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		c.logger.WarnContext(ctx, "encoding catalog cache", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, catalogCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "writing catalog cache", slog.Any("error", err))
	}
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "invalidating catalog cache", slog.Any("error", err))
	}
}
