package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"googlemaps.github.io/maps"
)

// Client implements domain.Geocoder using the Google Maps Geocoding API.
type Client struct {
	maps    *maps.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Options configures a Client. BaseURL is only set by tests.
type Options struct {
	APIKey  string
	Timeout time.Duration
	QPS     int
	BaseURL string
}

// NewClient creates a Google Maps geocoding client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(opts.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	}
	if opts.QPS > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(opts.QPS))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(opts.BaseURL))
	}

	mc, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create google maps client: %w", err)
	}
	return &Client{maps: mc, metrics: metrics, logger: logger}, nil
}

// Geocode converts a formatted address to coordinates. A ZERO_RESULTS answer
// or an empty result list is reported as domain.ErrAddressNotFound.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	start := time.Now()
	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if isNotFound(err) {
			c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
			return domain.GeocodingResult{}, domain.ErrAddressNotFound
		}
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("google maps geocode: %w", err)
	}
	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return domain.GeocodingResult{}, domain.ErrAddressNotFound
	}

	r := results[0]
	confidence := 1.0
	if r.PartialMatch {
		confidence = 0.5
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	c.logger.Debug("geocoded address",
		"address", address,
		"formatted_address", r.FormattedAddress,
		"location_type", r.Geometry.LocationType,
		"partial_match", r.PartialMatch,
	)

	return domain.GeocodingResult{
		Lat:              r.Geometry.Location.Lat,
		Lon:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		Confidence:       confidence,
	}, nil
}

// isNotFound reports statuses that mean the address itself cannot be
// geocoded, as opposed to a service or quota problem.
func isNotFound(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "INVALID_REQUEST")
}
