// Package storage defines the persistence contracts for palaces, categories
// and the associations generated between them.
package storage

import (
	"context"
	"errors"

	"github.com/jeanpaul/loci/internal/session"
)

var (
	// ErrNotFound indicates a requested record is missing or owned by
	// another session.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates the name is already taken in the session.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInvalidReference indicates a write pointed at a missing palace or
	// category row.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

type (
	PalaceID      int64
	CategoryID    int64
	AssociationID int64
)

// Palace is a familiar place whose items anchor the associations.
type Palace struct {
	ID          PalaceID
	SessionID   session.ID
	Name        string // namespaced
	DisplayName string
}

// Category groups associations by subject.
type Category struct {
	ID          CategoryID
	SessionID   session.ID
	Name        string // namespaced
	DisplayName string
}

// Association is one generated piece of content binding a topic to a palace.
type Association struct {
	ID         AssociationID
	Topic      string
	CategoryID CategoryID
	PalaceID   PalaceID
	Content    string
}

// Stats counts the records visible to one session.
type Stats struct {
	Palaces      int
	Items        int
	Categories   int
	Associations int
}

// PalaceStore persists palaces and their ordered items.
type PalaceStore interface {
	AddPalace(ctx context.Context, sid session.ID, displayName string) (PalaceID, error)
	AddItems(ctx context.Context, palaceID PalaceID, items []string) error
	ListPalaces(ctx context.Context, sid session.ID) ([]Palace, error)
	GetItems(ctx context.Context, sid session.ID, palaceID PalaceID) ([]string, error)
	GetDisplayName(ctx context.Context, sid session.ID, palaceID PalaceID) (string, error)
	GetPalaceIDByDisplayName(ctx context.Context, sid session.ID, displayName string) (PalaceID, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	AddCategory(ctx context.Context, sid session.ID, displayName string) (CategoryID, error)
	ListCategories(ctx context.Context, sid session.ID) ([]Category, error)
	GetCategoryIDByDisplayName(ctx context.Context, sid session.ID, displayName string) (CategoryID, error)
}

// AssociationStore persists generated associations.
type AssociationStore interface {
	SaveAssociation(ctx context.Context, topic string, categoryID CategoryID, palaceID PalaceID, content string) (AssociationID, error)
	ListAssociations(ctx context.Context, sid session.ID, categoryID CategoryID) ([]Association, error)
}

// Repository is the full set of contracts a storage engine provides.
type Repository interface {
	PalaceStore
	CategoryStore
	AssociationStore
	Stats(ctx context.Context, sid session.ID) (Stats, error)
}
