package ingest

import (
	"log/slog"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/googlemaps"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/config"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/retry"
)

// NewResolver builds the address resolver from configuration. Geocoding is
// feature-flagged via GEOCODER_ENABLED / GOOGLE_MAPS_API_KEY; without it only
// the region table resolves addresses.
func NewResolver(cfg *config.Config, regions domain.RegionTable, metrics *observability.Metrics, logger *slog.Logger) (*domain.Resolver, error) {
	var geocoder domain.Geocoder
	if cfg.GeocoderEnabled {
		client, err := googlemaps.NewClient(googlemaps.Options{
			APIKey:  cfg.GoogleMapsAPIKey,
			Timeout: cfg.GeocoderTimeout,
			QPS:     cfg.GeocoderQPS,
		}, metrics, logger)
		if err != nil {
			return nil, err
		}
		geocoder = googlemaps.NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("google maps geocoding enabled", "cache_size", cfg.GeocoderCacheSize, "timeout", cfg.GeocoderTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("google maps geocoding disabled")
	}

	return domain.NewResolver(regions, geocoder, logger,
		domain.WithRetryPolicy(retry.Policy{Attempts: cfg.GeocoderAttempts}),
		domain.WithRequestTimeout(cfg.GeocoderTimeout),
	), nil
}
