package store

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// NewSQLite opens a SQLite store. An empty dsn uses a local file.
func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:alumni.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	return &sqlStore{db: db, schema: sqliteSchema}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS persons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		is_valid BOOLEAN NOT NULL,
		source TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (name, address)
	)`,
	`CREATE TABLE IF NOT EXISTS disaster_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		eonet_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		category_id TEXT NOT NULL,
		category_label TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
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
		distance_km REAL NOT NULL,
		generated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_run ON alerts(run_id)`,
}
