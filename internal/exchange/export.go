package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// ErrReferentialCorruption means an association points at a palace that is
// not part of the exported session.
var ErrReferentialCorruption = errors.New("association references a palace outside the session")

// Export collects every palace, category and association visible to sid.
// No document is returned if any association cannot be resolved.
func Export(ctx context.Context, repo storage.Repository, sid session.ID) (*Document, error) {
	palaces, err := repo.ListPalaces(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("export palaces: %w", err)
	}

	doc := &Document{
		Palaces:      make([]PalaceEntry, 0, len(palaces)),
		Categories:   []CategoryEntry{},
		Associations: []AssociationEntry{},
	}
	exported := make(map[string]bool, len(palaces))
	for _, p := range palaces {
		items, err := repo.GetItems(ctx, sid, p.ID)
		if err != nil {
			return nil, fmt.Errorf("export items of %q: %w", p.DisplayName, err)
		}
		doc.Palaces = append(doc.Palaces, PalaceEntry{Name: p.DisplayName, Items: items})
		exported[p.DisplayName] = true
	}

	categories, err := repo.ListCategories(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}
	for _, c := range categories {
		assocs, err := repo.ListAssociations(ctx, sid, c.ID)
		if err != nil {
			return nil, fmt.Errorf("export associations of %q: %w", c.DisplayName, err)
		}
		entry := CategoryEntry{Name: c.DisplayName, Associations: make([]AssociationEntry, 0, len(assocs))}
		for _, a := range assocs {
			name, err := repo.GetDisplayName(ctx, sid, a.PalaceID)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && !exported[name]) {
				return nil, fmt.Errorf("%w: association %d in %q points at palace %d",
					ErrReferentialCorruption, a.ID, c.DisplayName, a.PalaceID)
			}
			if err != nil {
				return nil, fmt.Errorf("export association %d: %w", a.ID, err)
			}
			entry.Associations = append(entry.Associations, AssociationEntry{
				Topic:      a.Topic,
				PalaceName: name,
				Content:    a.Content,
			})
		}
		doc.Categories = append(doc.Categories, entry)
	}
	return doc, nil
}
