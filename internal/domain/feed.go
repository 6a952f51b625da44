package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawFeed is the top-level EONET events document. Events stay raw so one
// malformed event cannot fail the whole document.
type RawFeed struct {
	Events []json.RawMessage `json:"events"`
}

// RawEvent is an EONET event as it appears on the wire.
type RawEvent struct {
	ID         FlexString    `json:"id"`
	Title      string        `json:"title"`
	Categories []RawCategory `json:"categories"`
	Geometry   []RawGeometry `json:"geometry"`
	// Geometries is the v2 spelling of Geometry.
	Geometries []RawGeometry `json:"geometries,omitempty"`
}

// RawCategory is an EONET category reference. v3 ids are slugs ("wildfires"),
// v2 ids are integers.
type RawCategory struct {
	ID    FlexString `json:"id"`
	Title string     `json:"title"`
}

// RawGeometry is one dated observation of an event.
type RawGeometry struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseFeed decodes an EONET events document and normalizes its events.
// Events that do not decode are counted in Dropped.
func ParseFeed(data []byte) (FeedBatch, error) {
	var feed RawFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return FeedBatch{}, fmt.Errorf("decode feed: %w", err)
	}

	raw := make([]RawEvent, 0, len(feed.Events))
	undecodable := 0
	for _, msg := range feed.Events {
		var r RawEvent
		if err := json.Unmarshal(msg, &r); err != nil {
			undecodable++
			continue
		}
		raw = append(raw, r)
	}

	batch := NormalizeEvents(raw)
	batch.Dropped += undecodable
	return batch, nil
}

// NormalizeEvents converts raw events to DisasterEvents, dropping unusable ones.
func NormalizeEvents(raw []RawEvent) FeedBatch {
	batch := FeedBatch{Events: make([]DisasterEvent, 0, len(raw))}
	for _, r := range raw {
		event, ok := NormalizeEvent(r)
		if !ok {
			batch.Dropped++
			continue
		}
		batch.Events = append(batch.Events, event)
	}
	return batch
}

// NormalizeEvent converts one raw event. The first category and the first
// geometry are authoritative. It reports false when either is missing or the
// geometry is not a single [lon, lat] point within range.
func NormalizeEvent(r RawEvent) (DisasterEvent, bool) {
	if len(r.Categories) == 0 {
		return DisasterEvent{}, false
	}
	category := r.Categories[0]
	categoryID := strings.ToLower(strings.TrimSpace(string(category.ID)))
	categoryLabel := strings.TrimSpace(category.Title)
	if categoryID == "" && categoryLabel == "" {
		return DisasterEvent{}, false
	}

	geometry := r.Geometry
	if len(geometry) == 0 {
		geometry = r.Geometries
	}
	if len(geometry) == 0 {
		return DisasterEvent{}, false
	}

	lat, lon, ok := parsePoint(geometry[0].Coordinates)
	if !ok {
		return DisasterEvent{}, false
	}

	return DisasterEvent{
		ID:            strings.TrimSpace(string(r.ID)),
		Title:         strings.TrimSpace(r.Title),
		CategoryID:    categoryID,
		CategoryLabel: categoryLabel,
		Lat:           lat,
		Lon:           lon,
		ObservedAt:    parseObservedAt(geometry[0].Date),
	}, true
}

// parsePoint decodes GeoJSON point coordinates ([lon, lat] or
// [lon, lat, elevation]). Numeric strings are accepted; nested arrays
// (polygons) are not.
func parsePoint(raw json.RawMessage) (lat, lon float64, ok bool) {
	var pair []flexFloat
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
		return 0, 0, false
	}
	lon, lat = float64(pair[0]), float64(pair[1])
	if !validLatLon(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

func parseObservedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// FlexString decodes a JSON string or number into a string. Other JSON types
// decode to "" rather than failing the whole document.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*f = ""
		return nil //nolint:nilerr // non-scalar ids are treated as missing
	}
	*f = FlexString(n.String())
	return nil
}

// flexFloat decodes a JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
