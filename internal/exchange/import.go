package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// Report summarizes what an import changed.
type Report struct {
	PalacesAdded        int
	ItemsAdded          int
	CategoriesAdded     int
	AssociationsAdded   int
	SkippedPalaces      []string // already present, items not imported
	SkippedCategories   []string // already present, associations not imported
	DroppedAssociations int      // palace name did not resolve
}

func (r Report) String() string {
	return fmt.Sprintf("%d palaces (%d items), %d categories, %d associations imported; %d palaces and %d categories skipped; %d associations dropped",
		r.PalacesAdded, r.ItemsAdded, r.CategoriesAdded, r.AssociationsAdded,
		len(r.SkippedPalaces), len(r.SkippedCategories), r.DroppedAssociations)
}

// Import loads doc into sid. Palaces and categories whose names are taken
// are skipped together with their items or associations; existing records
// are never merged. An association is dropped when its palace name does not
// resolve in sid. Each write commits on its own, so a storage failure leaves
// the records written so far in place.
func Import(ctx context.Context, repo storage.Repository, sid session.ID, doc *Document) (Report, error) {
	var report Report
	if doc == nil {
		return report, fmt.Errorf("import: document is required")
	}
	if err := doc.check(); err != nil {
		return report, err
	}

	for _, p := range doc.Palaces {
		id, err := repo.AddPalace(ctx, sid, p.Name)
		if errors.Is(err, storage.ErrAlreadyExists) {
			report.SkippedPalaces = append(report.SkippedPalaces, p.Name)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("import palace %q: %w", p.Name, err)
		}
		if err := repo.AddItems(ctx, id, p.Items); err != nil {
			return report, fmt.Errorf("import items of %q: %w", p.Name, err)
		}
		report.PalacesAdded++
		report.ItemsAdded += len(p.Items)
	}

	for _, c := range doc.Categories {
		catID, err := repo.AddCategory(ctx, sid, c.Name)
		if errors.Is(err, storage.ErrAlreadyExists) {
			report.SkippedCategories = append(report.SkippedCategories, c.Name)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("import category %q: %w", c.Name, err)
		}
		report.CategoriesAdded++

		for _, a := range c.Associations {
			palaceID, err := repo.GetPalaceIDByDisplayName(ctx, sid, a.PalaceName)
			if errors.Is(err, storage.ErrNotFound) {
				report.DroppedAssociations++
				continue
			}
			if err != nil {
				return report, fmt.Errorf("resolve palace %q: %w", a.PalaceName, err)
			}
			if _, err := repo.SaveAssociation(ctx, a.Topic, catID, palaceID, a.Content); err != nil {
				return report, fmt.Errorf("import association %q: %w", a.Topic, err)
			}
			report.AssociationsAdded++
		}
	}
	return report, nil
}

// check rejects documents the store would refuse halfway through.
func (d *Document) check() error {
	for i, p := range d.Palaces {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("import: palace %d has no name", i+1)
		}
	}
	for i, c := range d.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("import: category %d has no name", i+1)
		}
	}
	return nil
}
