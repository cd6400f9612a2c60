// Package database implements the collection store on SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rufas/internal/database/migrations"
	"rufas/internal/rufas"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore keeps each collection as one row of the collections table.
// Every write bumps the row's revision.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock rufas.Clock
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// pending migrations. Row timestamps come from clock.
func NewSQLiteStore(path string, clock rufas.Clock) (*SQLiteStore, error) {
	if clock == nil {
		clock = rufas.RealClock{}
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &SQLiteStore{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection.
// The pool is limited to one connection: an in-memory database exists per
// connection, and whole-collection writes gain nothing from parallel
// connections.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// EnsureInitialized inserts an empty row for every missing collection.
func (s *SQLiteStore) EnsureInitialized(ctx context.Context) (bool, error) {
	now := rufas.Millis(s.clock.Now())
	created := false
	for _, c := range rufas.Collections {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO collections (name, body, updated_at) VALUES (?, '[]', ?)`,
			string(c), now)
		if err != nil {
			return false, fmt.Errorf("initializing %s: %w", c, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("initializing %s: %w", c, err)
		}
		if n > 0 {
			created = true
		}
	}
	return created, nil
}

// Read returns the stored JSON. A missing row reads as an empty array.
func (s *SQLiteStore) Read(ctx context.Context, c rufas.Collection) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM collections WHERE name = ?`, string(c)).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []byte("[]"), nil
		}
		return nil, fmt.Errorf("reading %s: %w", c, err)
	}
	return []byte(body), nil
}

// Write replaces the collection row in a single statement.
func (s *SQLiteStore) Write(ctx context.Context, c rufas.Collection, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, body, updated_at, revision) VALUES (?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at,
			revision = collections.revision + 1`,
		string(c), string(data), rufas.Millis(s.clock.Now()))
	if err != nil {
		return fmt.Errorf("writing %s: %w", c, err)
	}
	return nil
}

// UpdatedAt returns when a collection was last written. It is zero for a
// collection that has never been stored.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, c rufas.Collection) (time.Time, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM collections WHERE name = ?`, string(c)).Scan(&ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading updated_at of %s: %w", c, err)
	}
	return rufas.FromMillis(ms), nil
}

// Revision returns how many times a collection has been written.
func (s *SQLiteStore) Revision(ctx context.Context, c rufas.Collection) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM collections WHERE name = ?`, string(c)).Scan(&rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading revision of %s: %w", c, err)
	}
	return rev, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ rufas.Store = (*SQLiteStore)(nil)
