// Package store persists persons, hazard events, and the latest alert set in
// SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
)

// Store is the persistence surface used by the monitor, the importer, and the API.
type Store interface {
	Init(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	UpsertPerson(ctx context.Context, p domain.PersonLocation) error
	ListPersons(ctx context.Context) ([]domain.PersonLocation, error)
	UpsertDisasters(ctx context.Context, events []domain.DisasterEvent) error
	ReplaceAlerts(ctx context.Context, runID string, alerts []domain.ProximityAlert) error
	ListAlerts(ctx context.Context) ([]domain.ProximityAlert, error)
}

// New opens a store for driver ("sqlite", "postgres" or "postgresql").
func New(driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// sqlStore holds the queries shared by both dialects. Queries are written
// with '?' placeholders and rebound for drivers that use $N.
type sqlStore struct {
	db     *sql.DB
	schema []string
	dollar bool
}

func (s *sqlStore) Init(ctx context.Context) error {
	for _, stmt := range s.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqlStore) UpsertPerson(ctx context.Context, p domain.PersonLocation) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO persons (name, address, lat, lon, is_valid, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, address) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			is_valid = excluded.is_valid,
			source = excluded.source,
			updated_at = excluded.updated_at`),
		p.Name, p.Address, p.Lat, p.Lon, p.IsValid, p.Source, formatTime(domain.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert person %q: %w", p.Name, err)
	}
	return nil
}

func (s *sqlStore) ListPersons(ctx context.Context) ([]domain.PersonLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, address, lat, lon, is_valid, source FROM persons ORDER BY name, address`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	persons := []domain.PersonLocation{}
	for rows.Next() {
		var p domain.PersonLocation
		if err := rows.Scan(&p.Name, &p.Address, &p.Lat, &p.Lon, &p.IsValid, &p.Source); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// UpsertDisasters archives events by DisasterEvent.Key, so events without a
// feed ID are kept apart by title and position.
func (s *sqlStore) UpsertDisasters(ctx context.Context, events []domain.DisasterEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.rebind(
			`INSERT INTO disaster_events (eonet_id, title, category_id, category_label, lat, lon, observed_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (eonet_id) DO UPDATE SET
				title = excluded.title,
				category_id = excluded.category_id,
				category_label = excluded.category_label,
				lat = excluded.lat,
				lon = excluded.lon,
				observed_at = excluded.observed_at,
				updated_at = excluded.updated_at`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := formatTime(domain.Now())
		for _, e := range events {
			if _, err := stmt.ExecContext(ctx,
				e.Key(), e.Title, e.CategoryID, e.CategoryLabel, e.Lat, e.Lon, formatTime(e.ObservedAt), now,
			); err != nil {
				return fmt.Errorf("upsert disaster %q: %w", e.ID, err)
			}
		}
		return nil
	})
}

// ReplaceAlerts swaps the stored alert set for the alerts of run runID.
func (s *sqlStore) ReplaceAlerts(ctx context.Context, runID string, alerts []domain.ProximityAlert) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM alerts`); err != nil {
			return fmt.Errorf("clear alerts: %w", err)
		}
		if len(alerts) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, s.rebind(
			`INSERT INTO alerts (id, run_id, person_name, person_address, disaster_id, category_label, disaster_title, distance_km, generated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range alerts {
			if _, err := stmt.ExecContext(ctx,
				a.ID, runID, a.PersonName, a.PersonAddress, a.DisasterID,
				a.CategoryLabel, a.DisasterTitle, a.DistanceKm, formatTime(a.GeneratedAt),
			); err != nil {
				return fmt.Errorf("insert alert %q: %w", a.ID, err)
			}
		}
		return nil
	})
}

func (s *sqlStore) ListAlerts(ctx context.Context) ([]domain.ProximityAlert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, person_name, person_address, disaster_id, category_label, disaster_title, distance_km, generated_at
		FROM alerts ORDER BY person_name, distance_km, id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []domain.ProximityAlert{}
	for rows.Next() {
		var (
			a           domain.ProximityAlert
			generatedAt string
		)
		if err := rows.Scan(&a.ID, &a.PersonName, &a.PersonAddress, &a.DisasterID,
			&a.CategoryLabel, &a.DisasterTitle, &a.DistanceKm, &generatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.GeneratedAt = parseTime(generatedAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *sqlStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// rebind rewrites '?' placeholders as $1, $2, ... for PostgreSQL.
func (s *sqlStore) rebind(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Timestamps are stored as RFC 3339 text so both dialects scan them the same way.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
