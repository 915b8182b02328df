package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nextbus/internal/model"
)

// ErrNotFound is returned when a saved stop does not exist.
var ErrNotFound = errors.New("stop not saved")

// SavedStop is a stop the user bookmarked, with an optional label
// ("Home", "Work").
type SavedStop struct {
	Stop    model.Stop `json:"stop"`
	Label   string     `json:"label,omitempty"`
	SavedAt time.Time  `json:"saved_at"`
}

// SaveStop inserts or refreshes a saved stop. An empty label keeps the
// existing one.
func (db *DB) SaveStop(ctx context.Context, stop *model.Stop, label string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO saved_stops (stop_code, stop_name, stop_lat, stop_lon, routes, label, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stop_code) DO UPDATE SET
			stop_name = excluded.stop_name,
			stop_lat  = excluded.stop_lat,
			stop_lon  = excluded.stop_lon,
			routes    = excluded.routes,
			label     = CASE WHEN excluded.label = '' THEN saved_stops.label ELSE excluded.label END`,
		stop.Code, stop.Name, stop.Location.Lat, stop.Location.Lon,
		strings.Join(stop.Routes, ","), label, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save stop %s: %w", stop.Code, err)
	}
	return nil
}

// RemoveStop deletes a saved stop.
func (db *DB) RemoveStop(ctx context.Context, code string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM saved_stops WHERE stop_code = ?`, code)
	if err != nil {
		return fmt.Errorf("remove stop %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove stop %s: %w", code, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SavedStop returns one saved stop.
func (db *DB) SavedStop(ctx context.Context, code string) (*SavedStop, error) {
	row := db.QueryRowContext(ctx, `
		SELECT stop_code, stop_name, stop_lat, stop_lon, routes, label, saved_at
		FROM saved_stops WHERE stop_code = ?`, code)
	s, err := scanSavedStop(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("saved stop %s: %w", code, err)
	}
	return s, nil
}

// SavedStops lists saved stops, oldest first.
func (db *DB) SavedStops(ctx context.Context) ([]SavedStop, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stop_code, stop_name, stop_lat, stop_lon, routes, label, saved_at
		FROM saved_stops ORDER BY saved_at, stop_code`)
	if err != nil {
		return nil, fmt.Errorf("saved stops query: %w", err)
	}
	defer rows.Close()

	var out []SavedStop
	for rows.Next() {
		s, err := scanSavedStop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved stop: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSavedStop(sc scanner) (*SavedStop, error) {
	var s SavedStop
	var routes string
	var savedAt int64
	if err := sc.Scan(&s.Stop.Code, &s.Stop.Name, &s.Stop.Location.Lat, &s.Stop.Location.Lon,
		&routes, &s.Label, &savedAt); err != nil {
		return nil, err
	}
	if routes != "" {
		s.Stop.Routes = strings.Split(routes, ",")
	}
	s.SavedAt = time.Unix(savedAt, 0)
	return &s, nil
}
