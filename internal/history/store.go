package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sahilm/fuzzy"
	_ "modernc.org/sqlite"
)

const searchWindow = 500

// Store persists run history in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at dbPath. ":memory:" is
// accepted for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// A second connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			script      TEXT NOT NULL,
			url         TEXT NOT NULL,
			status      TEXT NOT NULL,
			headers     TEXT,
			logs        TEXT,
			error       TEXT,
			skipped     INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER,
			timestamp   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
	`)
	if err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}
	return nil
}

// Add inserts a new entry and returns its row ID.
func (s *Store) Add(e Entry) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO runs (run_id, script, url, status, headers, logs, error, skipped, duration_ns, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Script, e.URL, e.Status, e.Headers, e.Logs, e.Error, e.Skipped,
		e.Duration.Nanoseconds(), e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return result.LastInsertId()
}

// List returns the most recent entries.
func (s *Store) List(limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, run_id, script, url, status, headers, logs, error, skipped, duration_ns, timestamp
		FROM runs
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search fuzzy-matches query against the script name and URL of recent
// entries, best match first.
func (s *Store) Search(query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	recent, err := s.List(searchWindow, 0)
	if err != nil {
		return nil, fmt.Errorf("searching runs: %w", err)
	}

	targets := make([]string, len(recent))
	for i, e := range recent {
		targets[i] = e.Script + " " + e.URL
	}

	var out []Entry
	for _, m := range fuzzy.Find(query, targets) {
		out = append(out, recent[m.Index])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return n, nil
}

// Clear removes all entries.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM runs")
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationNs int64
		var ts string
		var headers, logs, errStr sql.NullString
		err := rows.Scan(&e.ID, &e.RunID, &e.Script, &e.URL, &e.Status,
			&headers, &logs, &errStr, &e.Skipped, &durationNs, &ts)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		e.Headers, e.Logs, e.Error = headers.String, logs.String, errStr.String
		e.Duration = time.Duration(durationNs)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
