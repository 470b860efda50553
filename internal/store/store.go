// Package store is the persistent cache shared by the background monitor and
// on-demand readers. SQLite transactions are the only synchronisation between
// the two processes: every fetch-then-mark-checked sequence commits atomically,
// and readers wait at most busy_timeout behind a writer before reading the
// last-committed snapshot.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bomcache/bomcache/internal/faults"
	_ "modernc.org/sqlite"
)

// ErrNotFound marks a lookup that matched no row, so callers can tell
// absence from a real store failure.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite cache database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenMemory opens a throwaway in-memory store for tests.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

func (s *Store) Close() error { return s.db.Close() }

// begin starts a write transaction, classifying lock contention.
func (s *Store) begin() (*sql.Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, classify("cache", err)
	}
	return tx, nil
}

// classify tags database errors that indicate lock contention so callers can
// retry them, leaving everything else untouched.
func classify(resource string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return faults.Contention(resource, err)
	}
	return err
}

// isConstraint reports whether err is a SQLite constraint violation (unique,
// foreign key, check).
func isConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint")
}
