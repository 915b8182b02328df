package storage

import "fmt"

// migrate creates the schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS saved_stops (
		stop_code  TEXT PRIMARY KEY,
		stop_name  TEXT NOT NULL DEFAULT '',
		stop_lat   REAL NOT NULL DEFAULT 0,
		stop_lon   REAL NOT NULL DEFAULT 0,
		routes     TEXT NOT NULL DEFAULT '',
		label      TEXT NOT NULL DEFAULT '',
		saved_at   INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_saved_stops_saved_at ON saved_stops(saved_at)`,
}
