package store

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPostgres opens a PostgreSQL store through the pgx database/sql driver.
func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &sqlStore{db: db, schema: postgresSchema, dollar: true}, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS persons (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		is_valid BOOLEAN NOT NULL,
		source TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (name, address)
	)`,
	`CREATE TABLE IF NOT EXISTS disaster_events (
		id BIGSERIAL PRIMARY KEY,
		eonet_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		category_id TEXT NOT NULL,
		category_label TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		observed_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		person_name TEXT NOT NULL,
		person_address TEXT NOT NULL,
		disaster_id TEXT NOT NULL,
		category_label TEXT NOT NULL,
		disaster_title TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		generated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_run ON alerts(run_id)`,
}
