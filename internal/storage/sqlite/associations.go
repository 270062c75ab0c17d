package sqlite

import (
	"context"
	"fmt"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// SaveAssociation stores generated content. The ids are not checked against
// a session; the schema only guarantees that both rows exist.
func (s *Store) SaveAssociation(ctx context.Context, topic string, categoryID storage.CategoryID, palaceID storage.PalaceID, content string) (storage.AssociationID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO associations (topic, category_id, palace_id, content) VALUES (?, ?, ?, ?)`,
		topic, int64(categoryID), int64(palaceID), content,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("save association: %w", storage.ErrInvalidReference)
		}
		return 0, fmt.Errorf("save association: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save association: %w", err)
	}
	return storage.AssociationID(id), nil
}

// ListAssociations returns the associations filed under a category owned by sid.
func (s *Store) ListAssociations(ctx context.Context, sid session.ID, categoryID storage.CategoryID) ([]storage.Association, error) {
	if err := s.check(ctx, sid); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.topic, a.category_id, a.palace_id, a.content
		   FROM associations a
		   JOIN categories c ON c.id = a.category_id
		  WHERE a.category_id = ? AND c.session_id = ?
		  ORDER BY a.id`,
		int64(categoryID), string(sid),
	)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer rows.Close()

	out := []storage.Association{}
	for rows.Next() {
		var (
			a                   storage.Association
			id, catID, palaceID int64
		)
		if err := rows.Scan(&id, &a.Topic, &catID, &palaceID, &a.Content); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		a.ID = storage.AssociationID(id)
		a.CategoryID = storage.CategoryID(catID)
		a.PalaceID = storage.PalaceID(palaceID)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	return out, nil
}
