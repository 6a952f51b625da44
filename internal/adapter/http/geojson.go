package http

import "github.com/couchcryptid/alumni-hazard-monitor/internal/domain"

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders persons and disasters as points. Persons carry is_valid
// so clients can style fallback coordinates differently.
func toGeoJSON(persons []domain.PersonLocation, disasters []domain.DisasterEvent) FeatureCollection {
	features := make([]Feature, 0, len(persons)+len(disasters))

	for _, p := range persons {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(p.Lat, p.Lon),
			Properties: map[string]any{
				"kind":     "person",
				"name":     p.Name,
				"address":  p.Address,
				"is_valid": p.IsValid,
				"source":   p.Source,
			},
		})
	}
	for _, d := range disasters {
		props := map[string]any{
			"kind":     "disaster",
			"id":       d.ID,
			"title":    d.Title,
			"category": d.CategoryLabel,
		}
		if !d.ObservedAt.IsZero() {
			props["observed_at"] = d.ObservedAt
		}
		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   point(d.Lat, d.Lon),
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func point(lat, lon float64) Geometry {
	return Geometry{Type: "Point", Coordinates: []float64{lon, lat}}
}
