package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DisasterEvent is the canonical hazard record used by the proximity engine.
type DisasterEvent struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CategoryID    string    `json:"category_id"` // lowercase
	CategoryLabel string    `json:"category_label"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	ObservedAt    time.Time `json:"observed_at,omitzero"`
}

// Key identifies the event: its feed ID, or title and position when the feed
// gave none.
func (d DisasterEvent) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return fmt.Sprintf("%s@%.4f,%.4f", d.Title, d.Lat, d.Lon)
}

// FeedBatch is one normalized feed response. Dropped counts raw events that
// were discarded for missing geometry, category, or coordinates.
type FeedBatch struct {
	Events  []DisasterEvent `json:"events"`
	Dropped int             `json:"dropped"`
}

// Feed statuses accepted by EONET.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
	StatusAll    = "all"
)

// FeedQuery selects events from the hazard feed. Zero Days and Limit mean
// "not set"; an empty Category means every category.
type FeedQuery struct {
	Status   string `json:"status"`
	Days     int    `json:"days"`
	Limit    int    `json:"limit,omitempty"`
	Category string `json:"category,omitempty"`
}

// Validate checks the query parameters.
func (q FeedQuery) Validate() error {
	switch strings.ToLower(q.Status) {
	case "", StatusOpen, StatusClosed, StatusAll:
	default:
		return fmt.Errorf("invalid feed status %q", q.Status)
	}
	if q.Days < 0 {
		return errors.New("feed days must not be negative")
	}
	if q.Limit < 0 {
		return errors.New("feed limit must not be negative")
	}
	return nil
}

// Key is a canonical string for the query, used as a cache key.
func (q FeedQuery) Key() string {
	return fmt.Sprintf("status=%s|days=%d|limit=%d|category=%s",
		strings.ToLower(q.Status), q.Days, q.Limit, strings.ToLower(strings.TrimSpace(q.Category)))
}
