package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on result_log.logged_at
const currentSchemaVersion = 1

// SQLiteLog is the SQLite driver. Rows are ordered by seq, never by
// timestamp, so two lines written in the same millisecond keep their order.
type SQLiteLog struct {
	db   *sql.DB
	opts options
}

// OpenSQLite creates or opens a SQLite result log at path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string, opts ...Option) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteLog{db: db, opts: buildOptions(opts)}, nil
}

// Append inserts one line.
func (s *SQLiteLog) Append(payload string) error {
	line := FormatLine(s.opts.now(), payload)
	stamp, body, _ := strings.Cut(line, Separator)

	if _, err := s.db.Exec(`INSERT INTO result_log (logged_at, payload) VALUES (?, ?)`, stamp, body); err != nil {
		return fmt.Errorf("append result log: %w", err)
	}
	return nil
}

// LastMatching returns the newest line whose payload contains tag.
func (s *SQLiteLog) LastMatching(tag string) (string, bool, error) {
	var stamp, payload string
	err := s.db.QueryRow(`
		SELECT logged_at, payload
		FROM result_log
		WHERE instr(payload, ?) > 0
		ORDER BY seq DESC
		LIMIT 1
	`, tag).Scan(&stamp, &payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query result log: %w", err)
	}
	return stamp + Separator + payload, true, nil
}

// Tail returns up to n newest lines, oldest first.
func (s *SQLiteLog) Tail(n int) ([]string, error) {
	limit := n
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.Query(`
		SELECT logged_at, payload FROM (
			SELECT seq, logged_at, payload
			FROM result_log
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query result log: %w", err)
	}
	defer rows.Close()

	lines := []string{}
	for rows.Next() {
		var stamp, payload string
		if err := rows.Scan(&stamp, &payload); err != nil {
			return nil, fmt.Errorf("scan result log: %w", err)
		}
		lines = append(lines, stamp+Separator+payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result log: %w", err)
	}
	return lines, nil
}

// Close closes the database connection.
func (s *SQLiteLog) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_result_log_logged_at ON result_log(logged_at)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLiteLog) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
