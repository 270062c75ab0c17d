package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/loci/internal/schema"
	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
	"github.com/jeanpaul/loci/internal/storage/sqlite"
)

const kettleLine = "Stove: Energy is conserved (Imagery: A kettle that never cools)"

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedKitchen builds the Kitchen palace with one Science association.
func seedKitchen(t *testing.T, repo storage.Repository, sid session.ID) {
	t.Helper()
	ctx := context.Background()

	palaceID, err := repo.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)
	require.NoError(t, repo.AddItems(ctx, palaceID, []string{"Stove", "Sink"}))
	catID, err := repo.AddCategory(ctx, sid, "Science")
	require.NoError(t, err)
	_, err = repo.SaveAssociation(ctx, "Thermodynamics", catID, palaceID, kettleLine)
	require.NoError(t, err)
}

func kitchenDocument() *Document {
	return &Document{
		Palaces: []PalaceEntry{{Name: "Kitchen", Items: []string{"Stove", "Sink"}}},
		Categories: []CategoryEntry{{
			Name: "Science",
			Associations: []AssociationEntry{{
				Topic:      "Thermodynamics",
				PalaceName: "Kitchen",
				Content:    kettleLine,
			}},
		}},
	}
}

func TestExportKitchen(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	sid := session.New()
	seedKitchen(t, store, sid)

	doc, err := Export(context.Background(), store, sid)
	require.NoError(t, err)

	want := kitchenDocument()
	want.Associations = []AssociationEntry{}
	assert.Equal(t, want, doc)
}

func TestExportEmptySession(t *testing.T) {
	t.Parallel()
	store := openStore(t)

	doc, err := Export(context.Background(), store, session.New())
	require.NoError(t, err)

	out, err := Encode(doc, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"palaces":[],"categories":[],"associations":[]}`, string(out))
}

func TestExportOnlySeesOwnSession(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	mine, theirs := session.New(), session.New()
	seedKitchen(t, store, theirs)

	_, err := store.AddPalace(context.Background(), mine, "Garage")
	require.NoError(t, err)

	doc, err := Export(context.Background(), store, mine)
	require.NoError(t, err)
	require.Len(t, doc.Palaces, 1)
	assert.Equal(t, "Garage", doc.Palaces[0].Name)
	assert.Empty(t, doc.Categories)
}

func TestExportDetectsForeignPalaceReference(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	mine, theirs := session.New(), session.New()

	foreign, err := store.AddPalace(ctx, theirs, "Attic")
	require.NoError(t, err)
	catID, err := store.AddCategory(ctx, mine, "Science")
	require.NoError(t, err)
	_, err = store.SaveAssociation(ctx, "Optics", catID, foreign, "x")
	require.NoError(t, err)

	doc, err := Export(ctx, store, mine)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrReferentialCorruption), "got %v", err)
}

func TestImportRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	source, target := openStore(t), openStore(t)
	from, to := session.New(), session.New()
	seedKitchen(t, source, from)

	doc, err := Export(ctx, source, from)
	require.NoError(t, err)
	data, err := Encode(doc, FormatJSON)
	require.NoError(t, err)
	decoded, err := Decode(data, FormatJSON)
	require.NoError(t, err)

	report, err := Import(ctx, target, to, decoded)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PalacesAdded)
	assert.Equal(t, 2, report.ItemsAdded)
	assert.Equal(t, 1, report.CategoriesAdded)
	assert.Equal(t, 1, report.AssociationsAdded)

	again, err := Export(ctx, target, to)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestImportLargePalace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	source, target := openStore(t), openStore(t)
	from, to := session.New(), session.New()

	items := make([]string, 20000)
	for i := range items {
		items[i] = fmt.Sprintf("Drawer %d", i)
	}
	palaceID, err := source.AddPalace(ctx, from, "Warehouse")
	require.NoError(t, err)
	require.NoError(t, source.AddItems(ctx, palaceID, items))

	doc, err := Export(ctx, source, from)
	require.NoError(t, err)
	report, err := Import(ctx, target, to, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PalacesAdded)
	assert.Equal(t, len(items), report.ItemsAdded)

	again, err := Export(ctx, target, to)
	require.NoError(t, err)
	require.Len(t, again.Palaces, 1)
	assert.Equal(t, items, again.Palaces[0].Items)
}

func TestImportTwiceChangesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	sid := session.New()

	_, err := Import(ctx, store, sid, kitchenDocument())
	require.NoError(t, err)
	before, err := store.Stats(ctx, sid)
	require.NoError(t, err)

	report, err := Import(ctx, store, sid, kitchenDocument())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kitchen"}, report.SkippedPalaces)
	assert.Equal(t, []string{"Science"}, report.SkippedCategories)
	assert.Zero(t, report.AssociationsAdded)

	after, err := store.Stats(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImportSkipsExistingPalaceItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	sid := session.New()

	id, err := store.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)
	require.NoError(t, store.AddItems(ctx, id, []string{"Fridge"}))

	report, err := Import(ctx, store, sid, kitchenDocument())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kitchen"}, report.SkippedPalaces)
	assert.Equal(t, 1, report.AssociationsAdded, "association links to the existing palace by name")

	items, err := store.GetItems(ctx, sid, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fridge"}, items)
}

func TestImportDropsUnresolvedAssociations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	sid := session.New()

	doc := kitchenDocument()
	doc.Categories[0].Associations = append(doc.Categories[0].Associations,
		AssociationEntry{Topic: "Optics", PalaceName: "Basement", Content: "Lamp: light bends (Imagery: a bent spoon)"})

	report, err := Import(ctx, store, sid, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AssociationsAdded)
	assert.Equal(t, 1, report.DroppedAssociations)
	assert.Contains(t, report.String(), "1 associations dropped")
}

func TestImportRejectsBlankNamesBeforeWriting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	sid := session.New()

	doc := kitchenDocument()
	doc.Categories = append(doc.Categories, CategoryEntry{Name: "  "})

	_, err := Import(ctx, store, sid, doc)
	require.Error(t, err)

	stats, err := store.Stats(ctx, sid)
	require.NoError(t, err)
	assert.Zero(t, stats.Palaces)
}

func TestImportIgnoresTopLevelAssociations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	sid := session.New()

	doc, err := Decode([]byte(`{
		"palaces": [{"name": "Kitchen", "items": ["Stove"]}],
		"categories": [],
		"associations": [{"topic": "T", "palace_name": "Kitchen", "content": "c"}]
	}`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, doc.Associations)

	report, err := Import(ctx, store, sid, doc)
	require.NoError(t, err)
	assert.Zero(t, report.AssociationsAdded)
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing palaces":  `{"categories": []}`,
		"items not a list": `{"palaces": [{"name": "K", "items": "Stove"}], "categories": []}`,
		"no topic":         `{"palaces": [], "categories": [{"name": "S", "associations": [{"palace_name": "K", "content": ""}]}]}`,
		"null":             `null`,
	}
	for name, raw := range cases {
		_, err := Decode([]byte(raw), FormatJSON)
		var problems *schema.Error
		assert.True(t, errors.As(err, &problems), "%s: got %v", name, err)
	}

	_, err := Decode([]byte(`{`), FormatJSON)
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := Encode(kitchenDocument(), FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "palace_name: Kitchen")

	doc, err := Decode(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Thermodynamics", doc.Categories[0].Associations[0].Topic)
}

func TestEncodeJSONLayout(t *testing.T) {
	t.Parallel()

	data, err := Encode(&Document{}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"palaces\": [],\n  \"categories\": [],\n  \"associations\": []\n}\n", string(data))
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]Format{
		"memory_palace_data.json": FormatJSON,
		"backup.YML":              FormatYAML,
		"sheet.xlsx":              FormatXLSX,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("notes.txt")
	assert.Error(t, err)
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	doc := kitchenDocument()
	doc.Categories[0].Associations[0].Content = kettleLine + "\nnot a formatted line"

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(doc, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Palaces", "Associations"}, f.GetSheetList())

	rows, err := f.GetRows("Palaces")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Palace", "Item 1", "Item 2"},
		{"Kitchen", "Stove", "Sink"},
	}, rows)

	rows, err = f.GetRows("Associations")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Science", "Thermodynamics", "Kitchen", "Stove", "Energy is conserved", "A kettle that never cools"}, rows[1])
	assert.Equal(t, []string{"Science", "Thermodynamics", "Kitchen", "", "not a formatted line"}, rows[2])
}

func TestFilesAndGlobImport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, WriteFile(filepath.Join(dir, "a", "kitchen.json"), kitchenDocument()))
	garage := &Document{Palaces: []PalaceEntry{{Name: "Garage", Items: []string{"Bike"}}}}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b", "deep"), 0o755))
	require.NoError(t, WriteFile(filepath.Join(dir, "b", "deep", "garage.yaml"), garage))
	require.NoError(t, WriteFile(filepath.Join(dir, "sheet.xlsx"), garage))

	store := openStore(t)
	sid := session.New()
	reports, err := ImportFiles(ctx, store, sid, filepath.Join(dir, "**", "*.{json,yaml}"))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, filepath.Join(dir, "a", "kitchen.json"), reports[0].Path)
	assert.Equal(t, 1, reports[1].Report.PalacesAdded)

	stats, err := store.Stats(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Palaces)

	_, err = ImportFiles(ctx, store, sid, filepath.Join(dir, "*.csv"))
	assert.Error(t, err)
	_, err = ReadFile(filepath.Join(dir, "sheet.xlsx"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scratch := openStore(t)

	diff, err := Verify(ctx, kitchenDocument(), scratch)
	require.NoError(t, err)
	assert.Empty(t, diff)

	lossy := kitchenDocument()
	lossy.Categories[0].Associations[0].PalaceName = "Basement"
	diff, err = Verify(ctx, lossy, scratch)
	require.NoError(t, err)
	assert.Contains(t, diff, "-")
	assert.Contains(t, diff, "Basement")
}

func TestExportFridgeOvenScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openStore(t)
	sid := session.New()

	palaceID, err := store.AddPalace(ctx, sid, "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, storage.PalaceID(1), palaceID)
	require.NoError(t, store.AddItems(ctx, palaceID, []string{"Fridge", "Oven"}))
	catID, err := store.AddCategory(ctx, sid, "Science")
	require.NoError(t, err)
	assert.Equal(t, storage.CategoryID(1), catID)

	text := "Fridge: cold fact (Imagery: icy hand)\nOven: hot fact (Imagery: burning hand)"
	_, err = store.SaveAssociation(ctx, "Thermodynamics", catID, palaceID, text)
	require.NoError(t, err)

	doc, err := Export(ctx, store, sid)
	require.NoError(t, err)
	data, err := Encode(doc, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"palaces": [{"name": "Kitchen", "items": ["Fridge", "Oven"]}],
		"categories": [{"name": "Science", "associations": [
			{"topic": "Thermodynamics", "palace_name": "Kitchen", "content": "Fridge: cold fact (Imagery: icy hand)\nOven: hot fact (Imagery: burning hand)"}
		]}],
		"associations": []
	}`, string(data))
}
