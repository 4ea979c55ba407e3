// Package history keeps the execution log: one SQLite row per top-level
// evaluation, with outcome and timing.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded evaluation.
type Entry struct {
	ID        string
	Source    string
	Script    string
	Result    string
	OK        bool
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// Stats summarizes the log.
type Stats struct {
	Total         int64
	Succeeded     int64
	Failed        int64
	AvgDurationMS float64
}

// maxResultLen bounds stored result text so large renders don't bloat
// the database.
const maxResultLen = 4096

// Store is the SQLite-backed log. A single connection with WAL
// journaling keeps concurrent CLI invocations from tripping over each
// other.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the log database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		result TEXT,
		ok INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize history schema: %w", err)
	}
	return nil
}

// Record appends one entry, filling ID and CreatedAt when unset.
func (s *Store) Record(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	result := e.Result
	if len(result) > maxResultLen {
		result = result[:maxResultLen]
	}
	_, err := s.db.Exec(
		`INSERT INTO executions (id, source, result, ok, error, duration_ms, script, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, result, boolToInt(e.OK), e.Error, e.Duration.Milliseconds(), e.Script, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, source, result, ok, error, duration_ms, script, created_at
		 FROM executions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                      Entry
			ok                     int
			durMS                  int64
			result, errText, script sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Source, &result, &ok, &errText, &durMS, &script, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Result = result.String
		e.Error = errText.String
		e.Script = script.String
		e.OK = ok != 0
		e.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats aggregates the log.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	row := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(ok), 0), COALESCE(AVG(duration_ms), 0) FROM executions`)
	if err := row.Scan(&st.Total, &st.Succeeded, &st.AvgDurationMS); err != nil {
		return Stats{}, fmt.Errorf("aggregate history: %w", err)
	}
	st.Failed = st.Total - st.Succeeded
	return st, nil
}

// Clear deletes all entries and reports how many went.
func (s *Store) Clear() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM executions`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
