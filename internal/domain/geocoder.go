package domain

import (
	"context"
	"errors"
)

// ErrAddressNotFound is returned by a Geocoder when the service answered but
// had no match. It is not retried.
var ErrAddressNotFound = errors.New("address not found")

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder converts a free-form address to coordinates. Errors other than
// ErrAddressNotFound are treated as transient.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
