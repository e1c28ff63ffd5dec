package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	location_key TEXT NOT NULL,
	generated_at INTEGER NOT NULL,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_location ON reports(location_key, generated_at);
CREATE TABLE IF NOT EXISTS searches (
	city        TEXT NOT NULL,
	country     TEXT NOT NULL,
	searched_at INTEGER NOT NULL,
	PRIMARY KEY (city, country)
);
`

// SQLiteStore persists reports and search history in a SQLite file.
type SQLiteStore struct {
	db *sql.DB

	searchLimit int
	maxHistory  int
	maxAge      time.Duration

	now func() time.Time
}

var _ weather.Store = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string, maxHistory int, maxAge time.Duration, searchLimit int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection avoids SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if searchLimit <= 0 {
		searchLimit = weather.DefaultSearchLimit
	}

	log.Printf("store: sqlite database ready at %s", path)
	return &SQLiteStore{
		db:          db,
		searchLimit: searchLimit,
		maxHistory:  maxHistory,
		maxAge:      maxAge,
		now:         time.Now,
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport inserts a report and enforces retention for its location.
func (s *SQLiteStore) SaveReport(loc weather.Location, report weather.Report) (err error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	key := loc.Key()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(
		`INSERT OR REPLACE INTO reports (id, location_key, generated_at, payload) VALUES (?, ?, ?, ?)`,
		report.ID, key, report.GeneratedAt.UnixNano(), string(payload),
	); err != nil {
		return err
	}

	if s.maxHistory > 0 {
		if _, err = tx.Exec(
			`DELETE FROM reports WHERE location_key = ? AND id NOT IN (
				SELECT id FROM reports WHERE location_key = ? ORDER BY generated_at DESC LIMIT ?)`,
			key, key, s.maxHistory,
		); err != nil {
			return err
		}
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge).UnixNano()
		if _, err = tx.Exec(
			`DELETE FROM reports WHERE location_key = ? AND generated_at < ? AND id <> ?`,
			key, cutoff, report.ID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetLatest returns the most recent report for a location.
func (s *SQLiteStore) GetLatest(loc weather.Location) (weather.Report, error) {
	row := s.db.QueryRow(
		`SELECT payload FROM reports WHERE location_key = ? ORDER BY generated_at DESC LIMIT 1`,
		loc.Key(),
	)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.Report{}, ErrNotFound
		}
		return weather.Report{}, err
	}
	return decodeReport(payload)
}

// GetRange returns all reports for a location generated between from and to (inclusive).
func (s *SQLiteStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Report, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM reports WHERE location_key = ? AND generated_at BETWEEN ? AND ? ORDER BY generated_at ASC`,
		loc.Key(), from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []weather.Report
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r, err := decodeReport(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// AddSearch records a lookup, replacing any entry for the same city and
// country, and trims the history to the configured limit.
func (s *SQLiteStore) AddSearch(entry weather.SearchEntry) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(
		`INSERT OR REPLACE INTO searches (city, country, searched_at) VALUES (?, ?, ?)`,
		entry.City, entry.Country, entry.Timestamp.UnixNano(),
	); err != nil {
		return err
	}

	if _, err = tx.Exec(
		`DELETE FROM searches WHERE rowid NOT IN (
			SELECT rowid FROM searches ORDER BY searched_at DESC LIMIT ?)`,
		s.searchLimit,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Searches returns the search history, newest first.
func (s *SQLiteStore) Searches() ([]weather.SearchEntry, error) {
	rows, err := s.db.Query(`SELECT city, country, searched_at FROM searches ORDER BY searched_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []weather.SearchEntry{}
	for rows.Next() {
		var (
			e  weather.SearchEntry
			ts int64
		)
		if err := rows.Scan(&e.City, &e.Country, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearSearches forgets every remembered lookup.
func (s *SQLiteStore) ClearSearches() error {
	_, err := s.db.Exec(`DELETE FROM searches`)
	return err
}

func decodeReport(payload string) (weather.Report, error) {
	var r weather.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return weather.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
