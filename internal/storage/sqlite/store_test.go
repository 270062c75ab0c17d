package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenFileIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "palace.db")
	ctx := context.Background()
	sid := session.New()

	first, err := Open(path)
	require.NoError(t, err)
	_, err = first.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	palaces, err := second.ListPalaces(ctx, sid)
	require.NoError(t, err)
	require.Len(t, palaces, 1)
	assert.Equal(t, "Kitchen", palaces[0].DisplayName)
}

func TestAddPalaceNamespacesName(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.ID("abc123")

	id, err := store.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)

	palaces, err := store.ListPalaces(ctx, sid)
	require.NoError(t, err)
	require.Len(t, palaces, 1)
	assert.Equal(t, id, palaces[0].ID)
	assert.Equal(t, "abc123_Kitchen", palaces[0].Name)
	assert.Equal(t, "Kitchen", palaces[0].DisplayName)
	assert.Equal(t, sid, palaces[0].SessionID)
}

func TestAddPalaceConflict(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	_, err := store.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)

	_, err = store.AddPalace(ctx, sid, "Kitchen")
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("AddPalace duplicate error = %v, want ErrAlreadyExists", err)
	}

	palaces, err := store.ListPalaces(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, palaces, 1)
}

func TestSameNameAllowedAcrossSessions(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()

	_, err := store.AddPalace(ctx, session.New(), "Kitchen")
	require.NoError(t, err)
	_, err = store.AddPalace(ctx, session.New(), "Kitchen")
	require.NoError(t, err)
	_, err = store.AddCategory(ctx, session.New(), "Science")
	require.NoError(t, err)
	_, err = store.AddCategory(ctx, session.New(), "Science")
	require.NoError(t, err)
}

func TestAddPalaceRejectsBlankName(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	_, err := store.AddPalace(context.Background(), session.New(), "  ")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrAlreadyExists))
}

func TestItemsKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	id, err := store.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)
	require.NoError(t, store.AddItems(ctx, id, []string{"Stove", "Sink"}))
	require.NoError(t, store.AddItems(ctx, id, []string{"Fridge", "Sink"}))

	items, err := store.GetItems(ctx, sid, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stove", "Sink", "Fridge", "Sink"}, items)
}

func TestAddItemsEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	id, err := store.AddPalace(ctx, sid, "Attic")
	require.NoError(t, err)
	require.NoError(t, store.AddItems(ctx, id, nil))

	items, err := store.GetItems(ctx, sid, id)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestAddItemsLargeBatch(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	id, err := store.AddPalace(ctx, sid, "Library")
	require.NoError(t, err)

	want := make([]string, 40000)
	for i := range want {
		want[i] = fmt.Sprintf("Shelf %05d", i)
	}
	require.NoError(t, store.AddItems(ctx, id, want))

	got, err := store.GetItems(ctx, sid, id)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	assert.Equal(t, want[0], got[0])
	assert.Equal(t, want[16384], got[16384])
	assert.Equal(t, want, got)
}

func TestAddItemsUnknownPalace(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	err := store.AddItems(context.Background(), 999, []string{"Lamp"})
	assert.ErrorIs(t, err, storage.ErrInvalidReference)
}

func TestSessionIsolation(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	s1, s2 := session.New(), session.New()

	palaceID, err := store.AddPalace(ctx, s1, "Kitchen")
	require.NoError(t, err)
	require.NoError(t, store.AddItems(ctx, palaceID, []string{"Stove"}))
	catID, err := store.AddCategory(ctx, s1, "Science")
	require.NoError(t, err)
	_, err = store.SaveAssociation(ctx, "Thermodynamics", catID, palaceID, "Stove: heat (Imagery: fire)")
	require.NoError(t, err)

	palaces, err := store.ListPalaces(ctx, s2)
	require.NoError(t, err)
	assert.Empty(t, palaces)

	categories, err := store.ListCategories(ctx, s2)
	require.NoError(t, err)
	assert.Empty(t, categories)

	items, err := store.GetItems(ctx, s2, palaceID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = store.GetDisplayName(ctx, s2, palaceID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetPalaceIDByDisplayName(ctx, s2, "Kitchen")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetCategoryIDByDisplayName(ctx, s2, "Science")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assocs, err := store.ListAssociations(ctx, s2, catID)
	require.NoError(t, err)
	assert.Empty(t, assocs)

	stats, err := store.Stats(ctx, s2)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{}, stats)
}

func TestPalaceLookups(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	id, err := store.AddPalace(ctx, sid, "Garage")
	require.NoError(t, err)

	name, err := store.GetDisplayName(ctx, sid, id)
	require.NoError(t, err)
	assert.Equal(t, "Garage", name)

	got, err := store.GetPalaceIDByDisplayName(ctx, sid, "Garage")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = store.GetDisplayName(ctx, sid, id+100)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCategoryDisplayNames(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.ID("abc123")

	id, err := store.AddCategory(ctx, sid, "History")
	require.NoError(t, err)
	_, err = store.AddCategory(ctx, sid, "History")
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	categories, err := store.ListCategories(ctx, sid)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "History", categories[0].DisplayName)
	assert.Equal(t, "abc123_History", categories[0].Name)

	got, err := store.GetCategoryIDByDisplayName(ctx, sid, "History")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestListCategoriesRejectsForeignName(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.ID("abc123")

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO categories (session_id, name) VALUES (?, ?)`, "abc123", "History")
	require.NoError(t, err)

	_, err = store.ListCategories(ctx, sid)
	assert.ErrorIs(t, err, session.ErrForeignName)
}

func TestAssociationsByCategory(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	palaceID, err := store.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)
	science, err := store.AddCategory(ctx, sid, "Science")
	require.NoError(t, err)
	history, err := store.AddCategory(ctx, sid, "History")
	require.NoError(t, err)

	_, err = store.SaveAssociation(ctx, "Thermodynamics", science, palaceID, "first")
	require.NoError(t, err)
	_, err = store.SaveAssociation(ctx, "Optics", science, palaceID, "second")
	require.NoError(t, err)
	_, err = store.SaveAssociation(ctx, "Rome", history, palaceID, "third")
	require.NoError(t, err)

	assocs, err := store.ListAssociations(ctx, sid, science)
	require.NoError(t, err)
	require.Len(t, assocs, 2)
	assert.Equal(t, "Thermodynamics", assocs[0].Topic)
	assert.Equal(t, "first", assocs[0].Content)
	assert.Equal(t, palaceID, assocs[0].PalaceID)
	assert.Equal(t, science, assocs[0].CategoryID)
	assert.Equal(t, "Optics", assocs[1].Topic)

	stats, err := store.Stats(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Palaces: 1, Categories: 2, Associations: 3}, stats)
}

func TestSaveAssociationRejectsDanglingIDs(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()
	sid := session.New()

	catID, err := store.AddCategory(ctx, sid, "Science")
	require.NoError(t, err)

	_, err = store.SaveAssociation(ctx, "Topic", catID, 42, "content")
	assert.ErrorIs(t, err, storage.ErrInvalidReference)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.AddPalace(ctx, session.New(), "Kitchen")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyMigrationsSkipsApplied(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()

	fs := fstest.MapFS{
		"900_extra.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE extra (id INTEGER);\n-- +migrate Down\nDROP TABLE extra;")},
	}
	require.NoError(t, applyMigrations(ctx, store.db, fs))
	require.NoError(t, applyMigrations(ctx, store.db, fs))

	var n int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, "900_extra.sql").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestApplyMigrationsDoesNotRecordFailure(t *testing.T) {
	t.Parallel()

	store := openMemoryStore(t)
	ctx := context.Background()

	bad := fstest.MapFS{
		"901_bad.sql": &fstest.MapFile{Data: []byte("CREAT TABLE broken (id INT);")},
	}
	require.Error(t, applyMigrations(ctx, store.db, bad))

	var n int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, "901_bad.sql").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestUpSection(t *testing.T) {
	assert.Equal(t, "\nA;\n", upSection("-- +migrate Up\nA;\n-- +migrate Down\nB;"))
	assert.Equal(t, "A;", upSection("A;"))
}
