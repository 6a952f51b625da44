// Package rediscache shares normalized hazard feed batches between monitor
// replicas through Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hazard-feed:"

// client is the subset of *redis.Client used by FeedCache.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// FeedCache implements feed.Cache on Redis. Redis failures are logged and
// treated as cache misses.
type FeedCache struct {
	rdb    client
	logger *slog.Logger
}

// Open connects to Redis at addr.
func Open(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewFeedCache wraps a Redis client.
func NewFeedCache(rdb client, logger *slog.Logger) *FeedCache {
	return &FeedCache{rdb: rdb, logger: logger}
}

// Ping checks connectivity.
func (c *FeedCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *FeedCache) Get(ctx context.Context, key string) (domain.FeedBatch, bool) {
	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis feed cache read failed", "key", key, "error", err)
		}
		return domain.FeedBatch{}, false
	}

	var batch domain.FeedBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		c.logger.Warn("discarding corrupt feed cache entry", "key", key, "error", err)
		return domain.FeedBatch{}, false
	}
	if batch.Events == nil {
		batch.Events = []domain.DisasterEvent{}
	}
	return batch, true
}

func (c *FeedCache) Set(ctx context.Context, key string, batch domain.FeedBatch, ttl time.Duration) {
	data, err := json.Marshal(batch)
	if err != nil {
		c.logger.Warn("encode feed cache entry", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		c.logger.Warn("redis feed cache write failed", "key", key, "error", err)
	}
}
