package feed

import (
	"context"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/cache"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/jonboulle/clockwork"
)

// MemoryCache is an in-process Cache backed by a TTL-aware LRU.
type MemoryCache struct {
	lru *cache.LRU[domain.FeedBatch]
}

// NewMemoryCache creates a MemoryCache holding at most maxEntries batches.
// A nil clock uses real time.
func NewMemoryCache(maxEntries int, clock clockwork.Clock) *MemoryCache {
	return &MemoryCache{lru: cache.New[domain.FeedBatch](maxEntries, clock)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (domain.FeedBatch, bool) {
	return m.lru.Get(key)
}

func (m *MemoryCache) Set(_ context.Context, key string, batch domain.FeedBatch, ttl time.Duration) {
	m.lru.Put(key, batch, ttl)
}
