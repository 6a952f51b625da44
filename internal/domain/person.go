package domain

import "math"

// Resolution sources recorded on a Coordinate.
const (
	SourceRegion     = "region"
	SourceGeocoder   = "geocoder"
	SourceSimplified = "simplified"
	SourceDefault    = "default"
)

// Coordinate is the outcome of address resolution.
type Coordinate struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	IsValid bool    `json:"is_valid"`
	Source  string  `json:"source"`
}

// PersonLocation is a person with a resolved coordinate.
type PersonLocation struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	IsValid bool    `json:"is_valid"`
	Source  string  `json:"source,omitempty"`
}

// NewPersonLocation pairs a person's display fields with a resolved coordinate.
func NewPersonLocation(name, address string, c Coordinate) PersonLocation {
	return PersonLocation{
		Name:    name,
		Address: address,
		Lat:     c.Lat,
		Lon:     c.Lon,
		IsValid: c.IsValid,
		Source:  c.Source,
	}
}

// validLatLon reports whether lat/lon are finite and within WGS-84 bounds.
func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
