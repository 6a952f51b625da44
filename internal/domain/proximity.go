package domain

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/geodesic"
)

// ErrInvalidThreshold matches every *InvalidThresholdError via errors.Is.
var ErrInvalidThreshold = errors.New("invalid proximity threshold")

// InvalidThresholdError reports a threshold that is not a positive, finite
// number of kilometers. It is a configuration mistake, never coerced.
type InvalidThresholdError struct {
	Value float64
	Raw   string // set when the threshold came from text
}

func (e *InvalidThresholdError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("invalid proximity threshold %q: must be a positive number of kilometers", e.Raw)
	}
	return fmt.Sprintf("invalid proximity threshold %v: must be a positive number of kilometers", e.Value)
}

func (e *InvalidThresholdError) Is(target error) bool { return target == ErrInvalidThreshold }

// ValidateThreshold rejects NaN, infinite, zero, and negative thresholds.
func ValidateThreshold(km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return &InvalidThresholdError{Value: km}
	}
	return nil
}

// ParseThreshold parses a kilometer threshold from text.
func ParseThreshold(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &InvalidThresholdError{Value: math.NaN(), Raw: s}
	}
	if err := ValidateThreshold(v); err != nil {
		return 0, &InvalidThresholdError{Value: v, Raw: s}
	}
	return v, nil
}

// ProximityAlert is a person within the threshold distance of a disaster.
type ProximityAlert struct {
	ID            string    `json:"id"`
	PersonName    string    `json:"person_name"`
	PersonAddress string    `json:"person_address"`
	DisasterID    string    `json:"disaster_id,omitempty"`
	CategoryLabel string    `json:"category_label"`
	DisasterTitle string    `json:"disaster_title"`
	DistanceKm    float64   `json:"distance_km"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// minKmPerDegreeLat is the shortest WGS-84 meridian arc per degree of
// latitude (at the equator, 110.574 km), rounded down. |Δlat| times this
// never exceeds the geodesic distance between two points.
const minKmPerDegreeLat = 110.5

// FindNearby returns every (valid person, disaster) pair whose geodesic
// distance is at most thresholdKm, sorted ascending by distance. Persons with
// IsValid=false and entries with out-of-range coordinates are skipped.
// Repeated pairs yield a single alert.
func FindNearby(persons []PersonLocation, disasters []DisasterEvent, thresholdKm float64) ([]ProximityAlert, error) {
	if err := ValidateThreshold(thresholdKm); err != nil {
		return nil, err
	}

	now := Now()
	alerts := make([]ProximityAlert, 0)
	seen := make(map[string]struct{})

	for _, p := range persons {
		if !p.IsValid || !validLatLon(p.Lat, p.Lon) {
			continue
		}
		for _, d := range disasters {
			if !validLatLon(d.Lat, d.Lon) {
				continue
			}
			if math.Abs(p.Lat-d.Lat)*minKmPerDegreeLat > thresholdKm {
				continue
			}
			distance := DistanceKm(p.Lat, p.Lon, d.Lat, d.Lon)
			if distance > thresholdKm {
				continue
			}

			id := alertID(p, d)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			alerts = append(alerts, ProximityAlert{
				ID:            id,
				PersonName:    p.Name,
				PersonAddress: p.Address,
				DisasterID:    d.ID,
				CategoryLabel: d.CategoryLabel,
				DisasterTitle: d.Title,
				DistanceKm:    roundTenth(distance),
				GeneratedAt:   now,
			})
		}
	}

	slices.SortStableFunc(alerts, func(a, b ProximityAlert) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return alerts, nil
}

// DistanceKm returns the WGS-84 geodesic distance between two points in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	var meters float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &meters, nil, nil)
	return meters / 1000
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// alertID is deterministic over the person and disaster so re-running a cycle
// produces the same keys downstream.
func alertID(p PersonLocation, d DisasterEvent) string {
	input := fmt.Sprintf("%s|%s|%s", p.Name, p.Address, d.Key())
	hash := sha256.Sum256([]byte(input))
	return "alert-" + hex.EncodeToString(hash[:8])
}
