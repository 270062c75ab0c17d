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

// AddPalace creates a palace in sid. A taken name yields
// storage.ErrAlreadyExists and leaves the store unchanged.
func (s *Store) AddPalace(ctx context.Context, sid session.ID, displayName string) (storage.PalaceID, error) {
	if err := s.check(ctx, sid); err != nil {
		return 0, err
	}
	if strings.TrimSpace(displayName) == "" {
		return 0, fmt.Errorf("palace name is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO palaces (session_id, name, display_name) VALUES (?, ?, ?)`,
		string(sid), sid.Namespace(displayName), displayName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("add palace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add palace: %w", err)
	}
	return storage.PalaceID(id), nil
}

// AddItems appends items to a palace in the given order. The batch is
// written in one transaction: either every item is stored or none is.
func (s *Store) AddItems(ctx context.Context, palaceID storage.PalaceID, items []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add items: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (palace_id, item_name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("add items: prepare: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, int64(palaceID), item); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("add items to palace %d: %w", palaceID, storage.ErrInvalidReference)
			}
			return fmt.Errorf("add items: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add items: commit: %w", err)
	}
	return nil
}

// ListPalaces returns the palaces of sid in creation order.
func (s *Store) ListPalaces(ctx context.Context, sid session.ID) ([]storage.Palace, error) {
	if err := s.check(ctx, sid); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, name, display_name FROM palaces WHERE session_id = ? ORDER BY id`,
		string(sid),
	)
	if err != nil {
		return nil, fmt.Errorf("list palaces: %w", err)
	}
	defer rows.Close()

	palaces := []storage.Palace{}
	for rows.Next() {
		var (
			p    storage.Palace
			id   int64
			sess string
		)
		if err := rows.Scan(&id, &sess, &p.Name, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("scan palace: %w", err)
		}
		p.ID = storage.PalaceID(id)
		p.SessionID = session.ID(sess)
		palaces = append(palaces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list palaces: %w", err)
	}
	return palaces, nil
}

// GetItems returns the items of a palace owned by sid, in insertion order.
// Unknown or foreign palaces have no items.
func (s *Store) GetItems(ctx context.Context, sid session.ID, palaceID storage.PalaceID) ([]string, error) {
	if err := s.check(ctx, sid); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.item_name
		   FROM items i
		   JOIN palaces p ON p.id = i.palace_id
		  WHERE i.palace_id = ? AND p.session_id = ?
		  ORDER BY i.id`,
		int64(palaceID), string(sid),
	)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	return items, nil
}

// GetDisplayName resolves a palace id owned by sid to its display name.
func (s *Store) GetDisplayName(ctx context.Context, sid session.ID, palaceID storage.PalaceID) (string, error) {
	if err := s.check(ctx, sid); err != nil {
		return "", err
	}
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name FROM palaces WHERE id = ? AND session_id = ?`,
		int64(palaceID), string(sid),
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get palace name: %w", err)
	}
	return name, nil
}

// GetPalaceIDByDisplayName looks a palace up by its display name within sid.
func (s *Store) GetPalaceIDByDisplayName(ctx context.Context, sid session.ID, displayName string) (storage.PalaceID, error) {
	if err := s.check(ctx, sid); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM palaces WHERE session_id = ? AND display_name = ?`,
		string(sid), displayName,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get palace id: %w", err)
	}
	return storage.PalaceID(id), nil
}
