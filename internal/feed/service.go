// Package feed serves normalized hazard events to the monitor and the API,
// reading through a cache in front of the EONET client.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/eonet"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
)

// Fetcher retrieves a normalized feed batch from the upstream source.
type Fetcher interface {
	Fetch(ctx context.Context, q domain.FeedQuery) (domain.FeedBatch, error)
}

// Cache stores feed batches by query key.
type Cache interface {
	Get(ctx context.Context, key string) (domain.FeedBatch, bool)
	Set(ctx context.Context, key string, batch domain.FeedBatch, ttl time.Duration)
}

// Service returns hazard events for a query. It never fails: upstream errors
// are logged and yield an empty batch.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates a feed service. A nil cache disables caching.
func NewService(fetcher Fetcher, cache Cache, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// Disasters returns the normalized events for q.
func (s *Service) Disasters(ctx context.Context, q domain.FeedQuery) domain.FeedBatch {
	key := q.Key()
	if s.cache != nil {
		if batch, ok := s.cache.Get(ctx, key); ok {
			s.metrics.FeedFetches.WithLabelValues("cache_hit").Inc()
			return batch
		}
	}

	batch, err := s.fetcher.Fetch(ctx, q)
	if err != nil {
		outcome := "error"
		if eonet.IsRateLimited(err) {
			outcome = "rate_limited"
		}
		s.metrics.FeedFetches.WithLabelValues(outcome).Inc()
		s.logger.Warn("hazard feed unavailable, continuing with no events",
			"query", key,
			"outcome", outcome,
			"error", err,
		)
		return domain.FeedBatch{Events: []domain.DisasterEvent{}}
	}

	s.metrics.FeedFetches.WithLabelValues("success").Inc()
	s.metrics.FeedEventsDropped.Add(float64(batch.Dropped))
	if batch.Events == nil {
		batch.Events = []domain.DisasterEvent{}
	}
	if s.cache != nil && s.ttl > 0 {
		s.cache.Set(ctx, key, batch, s.ttl)
	}
	return batch
}
