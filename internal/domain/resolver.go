package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/retry"
	"github.com/jonboulle/clockwork"
)

// Resolver turns raw address components into a coordinate using the region
// table, then the geocoder, then DefaultCoordinate. It never returns an error.
type Resolver struct {
	regions  RegionTable
	geocoder Geocoder
	policy   retry.Policy
	timeout  time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithRetryPolicy sets the attempt budget and backoff for geocoding calls.
func WithRetryPolicy(p retry.Policy) ResolverOption {
	return func(r *Resolver) { r.policy = p.Normalize() }
}

// WithRequestTimeout bounds each individual geocoding call.
func WithRequestTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithResolverClock sets the clock used for backoff sleeps.
func WithResolverClock(c clockwork.Clock) ResolverOption {
	return func(r *Resolver) { r.clock = c }
}

// NewResolver creates a Resolver. A nil geocoder disables the network step.
func NewResolver(regions RegionTable, geocoder Geocoder, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		regions:  regions,
		geocoder: geocoder,
		policy:   retry.Default,
		timeout:  5 * time.Second,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the coordinate for addr. Unresolvable input yields
// DefaultCoordinate with IsValid=false.
func (r *Resolver) Resolve(ctx context.Context, addr AddressComponents) Coordinate {
	formatted := addr.Format()
	if formatted == "" {
		return DefaultCoordinate
	}

	if r.regions.Covers(addr.Country) {
		if region, ok := r.regions.Lookup(formatted); ok {
			return Coordinate{Lat: region.Lat, Lon: region.Lon, IsValid: true, Source: SourceRegion}
		}
	}

	if r.geocoder == nil {
		r.logger.Debug("geocoder disabled, using default coordinate", "address", formatted)
		return DefaultCoordinate
	}

	result, err := r.geocodeWithRetry(ctx, formatted)
	if err == nil {
		return Coordinate{Lat: result.Lat, Lon: result.Lon, IsValid: true, Source: SourceGeocoder}
	}
	if ctx.Err() != nil {
		return DefaultCoordinate
	}

	simplified := addr.Simplify().Format()
	if simplified != "" && simplified != formatted {
		result, serr := r.geocodeWithRetry(ctx, simplified)
		if serr == nil {
			return Coordinate{Lat: result.Lat, Lon: result.Lon, IsValid: true, Source: SourceSimplified}
		}
		err = serr
	}

	r.logger.Warn("address unresolved, using default coordinate",
		"address", formatted,
		"simplified", simplified,
		"error", err,
	)
	return DefaultCoordinate
}

// ResolvePerson resolves addr and pairs it with the person's display fields.
func (r *Resolver) ResolvePerson(ctx context.Context, name string, addr AddressComponents) PersonLocation {
	return NewPersonLocation(name, addr.Format(), r.Resolve(ctx, addr))
}

// geocodeWithRetry calls the geocoder up to policy.Attempts times. Transient
// errors back off exponentially; ErrAddressNotFound stops immediately.
func (r *Resolver) geocodeWithRetry(ctx context.Context, address string) (GeocodingResult, error) {
	backoff := r.policy.Initial
	var lastErr error

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		result, err := r.geocodeOnce(ctx, address)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrAddressNotFound) || ctx.Err() != nil {
			return GeocodingResult{}, err
		}
		if attempt == r.policy.Attempts {
			break
		}

		r.logger.Debug("geocode attempt failed, retrying",
			"address", address,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.Sleep(ctx, r.clock, backoff) {
			return GeocodingResult{}, ctx.Err()
		}
		backoff = r.policy.Next(backoff)
	}

	return GeocodingResult{}, fmt.Errorf("geocode after %d attempts: %w", r.policy.Attempts, lastErr)
}

func (r *Resolver) geocodeOnce(ctx context.Context, address string) (GeocodingResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		return GeocodingResult{}, err
	}
	// (0, 0) is what an empty provider response decodes to.
	if !validLatLon(result.Lat, result.Lon) || (result.Lat == 0 && result.Lon == 0) {
		return GeocodingResult{}, ErrAddressNotFound
	}
	return result, nil
}
