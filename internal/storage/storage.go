// Package storage opens the SQLite database that backs the version journal
// and the intake session store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "planmcp.db"

// openDB is a package-level var to allow test injection.
var openDB = sqlx.Open

// DB wraps a pooled sqlx.DB connection.
type DB struct {
	db *sqlx.DB
}

// Open creates dataDir if needed, opens the database inside it and applies
// the schema. Pass ":memory:" as dataDir for a throwaway database.
func Open(dataDir string) (*DB, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, errors.New("storage: data dir required")
	}

	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		abs, err := filepath.Abs(filepath.Join(dataDir, FileName))
		if err != nil {
			return nil, fmt.Errorf("storage: resolve path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)", abs)
	}

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// Calls are serialized and an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	s := &DB{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *DB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// X exposes the underlying sqlx.DB to the packages that own a table.
func (s *DB) X() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// ─── Migrations ──────────────────────────────────────────────────────────────

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		project_root  TEXT    NOT NULL,
		document_path TEXT    NOT NULL,
		version       TEXT    NOT NULL,
		content       TEXT    NOT NULL,
		changes       TEXT    NOT NULL DEFAULT '',
		author        TEXT    NOT NULL DEFAULT '',
		created_at    TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_doc ON snapshots(project_root, document_path, version)`,
	`CREATE TABLE IF NOT EXISTS intake_sessions (
		id           TEXT PRIMARY KEY,
		project_root TEXT NOT NULL,
		component_id TEXT NOT NULL,
		step         INTEGER NOT NULL DEFAULT 0,
		answers      TEXT NOT NULL DEFAULT '{}',
		created_at   TEXT NOT NULL,
		expires_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_intake_expires ON intake_sessions(expires_at)`,
}

func (s *DB) migrate(ctx context.Context) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// WithTx runs fn inside a transaction, rolling back when fn fails.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// TimeLayout is how timestamps are stored. It sorts lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
