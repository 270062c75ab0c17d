// Package sqlite provides the SQLite-backed palace store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
	"github.com/jeanpaul/loci/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Store persists palaces, categories and associations in one SQLite file.
// All access goes through a single connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and brings its schema
// up to date.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := MemoryPath + "?" + pragmas
	if path != MemoryPath {
		clean := filepath.Clean(path)
		if dir := filepath.Dir(clean); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		dsn = clean + "?" + pragmas + "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an empty in-memory store.
func OpenMemory() (*Store, error) {
	return Open(MemoryPath)
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.db.PingContext(ctx)
}

// Stats counts what sid can see.
func (s *Store) Stats(ctx context.Context, sid session.ID) (storage.Stats, error) {
	if err := s.check(ctx, sid); err != nil {
		return storage.Stats{}, err
	}
	var st storage.Stats
	err := s.db.QueryRowContext(ctx, `
SELECT
    (SELECT COUNT(*) FROM palaces WHERE session_id = ?1),
    (SELECT COUNT(*) FROM items i JOIN palaces p ON p.id = i.palace_id WHERE p.session_id = ?1),
    (SELECT COUNT(*) FROM categories WHERE session_id = ?1),
    (SELECT COUNT(*) FROM associations a JOIN categories c ON c.id = a.category_id WHERE c.session_id = ?1)`,
		string(sid),
	).Scan(&st.Palaces, &st.Items, &st.Categories, &st.Associations)
	if err != nil {
		return storage.Stats{}, fmt.Errorf("count records: %w", err)
	}
	return st, nil
}

func (s *Store) check(ctx context.Context, sid session.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if sid == "" {
		return fmt.Errorf("session id is required")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ storage.Repository = (*Store)(nil)
