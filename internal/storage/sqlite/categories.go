package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// AddCategory creates a category in sid, or returns storage.ErrAlreadyExists.
func (s *Store) AddCategory(ctx context.Context, sid session.ID, displayName string) (storage.CategoryID, error) {
	if err := s.check(ctx, sid); err != nil {
		return 0, err
	}
	if strings.TrimSpace(displayName) == "" {
		return 0, fmt.Errorf("category name is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (session_id, name) VALUES (?, ?)`,
		string(sid), sid.Namespace(displayName),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("add category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add category: %w", err)
	}
	return storage.CategoryID(id), nil
}

// ListCategories returns the categories of sid with their display names.
// A stored name that is not prefixed by sid is reported as an error.
func (s *Store) ListCategories(ctx context.Context, sid session.ID) ([]storage.Category, error) {
	if err := s.check(ctx, sid); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM categories WHERE session_id = ? ORDER BY id`,
		string(sid),
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []storage.Category{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		display, err := sid.Denamespace(name)
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", id, err)
		}
		categories = append(categories, storage.Category{
			ID:          storage.CategoryID(id),
			SessionID:   sid,
			Name:        name,
			DisplayName: display,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryIDByDisplayName looks a category up by display name within sid.
func (s *Store) GetCategoryIDByDisplayName(ctx context.Context, sid session.ID, displayName string) (storage.CategoryID, error) {
	if err := s.check(ctx, sid); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE session_id = ? AND name = ?`,
		string(sid), sid.Namespace(displayName),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get category id: %w", err)
	}
	return storage.CategoryID(id), nil
}
