// Package store publishes the aggregated session collection: a sqlite
// table replaced transactionally per run, and a JSON file matching the
// Session field contract. Both are write-only from the pipeline's point of
// view; the core never reads back.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"icetime/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	facility      TEXT NOT NULL,
	city          TEXT NOT NULL,
	address       TEXT NOT NULL,
	lat           REAL NOT NULL,
	lng           REAL NOT NULL,
	date          TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	end_time      TEXT NOT NULL,
	type          TEXT NOT NULL,
	activity_name TEXT NOT NULL,
	age_range     TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	activity_url  TEXT NOT NULL DEFAULT '',
	schedule_url  TEXT NOT NULL DEFAULT '',
	facility_url  TEXT NOT NULL DEFAULT '',
	event_item_id TEXT NOT NULL DEFAULT '',
	run_id        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date, start_time);
`

// Store is a sqlite-backed session store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAll swaps the whole sessions table for the given run's output in
// one transaction, so readers never observe a half-replaced table.
func (s *Store) ReplaceAll(ctx context.Context, runID string, sessions []model.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions (
			facility, city, address, lat, lng,
			date, start_time, end_time, type, activity_name,
			age_range, description, activity_url, schedule_url, facility_url,
			event_item_id, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sess := range sessions {
		if _, err := stmt.ExecContext(ctx,
			sess.Facility, sess.City, sess.Address, sess.Lat, sess.Lng,
			sess.Date, sess.StartTime, sess.EndTime, string(sess.Type), sess.ActivityName,
			sess.AgeRange, sess.Description, sess.ActivityURL, sess.ScheduleURL, sess.FacilityURL,
			sess.EventItemID, runID,
		); err != nil {
			return fmt.Errorf("store: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// WriteJSON writes the session collection to path as a JSON array with the
// canonical field names, atomically via temp file + rename.
func WriteJSON(path string, sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
