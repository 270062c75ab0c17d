package associate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jeanpaul/loci/internal/config"
	"github.com/jeanpaul/loci/internal/content"
	"github.com/jeanpaul/loci/internal/logging"
	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// ErrInvalidInput wraps every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Input describes one association to create. Items are only used when the
// palace does not exist yet; an existing palace keeps its stored items.
type Input struct {
	Palace   string
	Category string
	Topic    string
	Items    []string
	Points   []string
	Progress func(Event)
}

// Outcome is what Associate saved.
type Outcome struct {
	Association     storage.Association
	Lines           []content.Line
	Errors          []ItemError
	PalaceCreated   bool
	CategoryCreated bool
}

// Workflow ties generation to storage.
type Workflow struct {
	repo   storage.Repository
	gen    *Generator
	limits config.PalaceConfig
	log    *logging.Logger
}

func NewWorkflow(repo storage.Repository, gen *Generator, limits config.PalaceConfig, log *logging.Logger) *Workflow {
	if log == nil {
		log = logging.NewNop()
	}
	return &Workflow{repo: repo, gen: gen, limits: limits, log: log}
}

// Repository exposes the store the workflow writes to.
func (w *Workflow) Repository() storage.Repository { return w.repo }

// Limits returns the palace bounds used for validation.
func (w *Workflow) Limits() config.PalaceConfig { return w.limits }

// CreatePalace validates and stores a new palace with its items. A taken
// name returns storage.ErrAlreadyExists.
func (w *Workflow) CreatePalace(ctx context.Context, sid session.ID, name string, items []string) (storage.PalaceID, error) {
	name = strings.TrimSpace(name)
	if err := w.checkName("palace name", name, w.limits.MaxNameLength); err != nil {
		return 0, err
	}
	items, err := w.checkItems(items)
	if err != nil {
		return 0, err
	}

	id, err := w.repo.AddPalace(ctx, sid, name)
	if err != nil {
		return 0, err
	}
	if err := w.repo.AddItems(ctx, id, items); err != nil {
		return 0, fmt.Errorf("store items of %q: %w", name, err)
	}
	w.log.Info("palace created", "session_id", sid.String(), "palace", name, "items", len(items))
	return id, nil
}

// Associate generates and saves content for in.Topic, creating the palace
// and category when they do not exist. Collaborator failures end up as
// placeholders listed in Outcome.Errors; storage and validation failures
// return an error and save nothing.
func (w *Workflow) Associate(ctx context.Context, sid session.ID, in Input) (*Outcome, error) {
	in.Palace = strings.TrimSpace(in.Palace)
	in.Category = strings.TrimSpace(in.Category)
	in.Topic = strings.TrimSpace(in.Topic)
	if err := w.checkName("palace name", in.Palace, w.limits.MaxNameLength); err != nil {
		return nil, err
	}
	if err := w.checkName("category", in.Category, 0); err != nil {
		return nil, err
	}
	if err := w.checkName("topic", in.Topic, w.limits.MaxTopicLength); err != nil {
		return nil, err
	}
	if w.gen == nil {
		return nil, errors.New("no generator configured")
	}
	log := w.log.With("session_id", sid.String(), "palace", in.Palace, "category", in.Category)
	out := &Outcome{}

	palaceID, err := w.repo.GetPalaceIDByDisplayName(ctx, sid, in.Palace)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if palaceID, err = w.CreatePalace(ctx, sid, in.Palace, in.Items); err != nil {
			return nil, err
		}
		out.PalaceCreated = true
	case err != nil:
		return nil, fmt.Errorf("look up palace %q: %w", in.Palace, err)
	}

	items, err := w.repo.GetItems(ctx, sid, palaceID)
	if err != nil {
		return nil, fmt.Errorf("load items of %q: %w", in.Palace, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: palace %q has no items", ErrInvalidInput, in.Palace)
	}

	categoryID, created, err := w.ensureCategory(ctx, sid, in.Category)
	if err != nil {
		return nil, err
	}
	out.CategoryCreated = created

	result, err := w.gen.Generate(ctx, Request{Topic: in.Topic, Items: items, Points: in.Points}, in.Progress)
	if err != nil {
		return nil, err
	}
	for _, e := range result.Errors {
		log.Warn("generation fell back to placeholder", "item", e.Item, "stage", string(e.Stage), "error", e.Err)
	}

	text := content.Format(result.Lines)
	id, err := w.repo.SaveAssociation(ctx, in.Topic, categoryID, palaceID, text)
	if err != nil {
		return nil, fmt.Errorf("save association: %w", err)
	}
	out.Association = storage.Association{
		ID:         id,
		Topic:      in.Topic,
		CategoryID: categoryID,
		PalaceID:   palaceID,
		Content:    text,
	}
	out.Lines = result.Lines
	out.Errors = result.Errors
	if in.Progress != nil {
		in.Progress(Event{Kind: EventSaved, Done: len(items), Total: len(items)})
	}
	log.Info("association saved", "topic", in.Topic, "id", int64(id), "failures", len(result.Errors))
	return out, nil
}

func (w *Workflow) ensureCategory(ctx context.Context, sid session.ID, name string) (storage.CategoryID, bool, error) {
	id, err := w.repo.GetCategoryIDByDisplayName(ctx, sid, name)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, false, fmt.Errorf("look up category %q: %w", name, err)
	}
	id, err = w.repo.AddCategory(ctx, sid, name)
	if errors.Is(err, storage.ErrAlreadyExists) {
		id, err = w.repo.GetCategoryIDByDisplayName(ctx, sid, name)
		return id, false, err
	}
	if err != nil {
		return 0, false, fmt.Errorf("create category %q: %w", name, err)
	}
	return id, true, nil
}

func (w *Workflow) checkName(field, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidInput, field, maxLen)
	}
	return nil
}

// checkItems trims items and enforces the configured count.
func (w *Workflow) checkItems(items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("%w: item %d is blank", ErrInvalidInput, i+1)
		}
		out = append(out, item)
	}
	if w.limits.MinItems > 0 && len(out) < w.limits.MinItems {
		return nil, fmt.Errorf("%w: a palace needs at least %d items, got %d", ErrInvalidInput, w.limits.MinItems, len(out))
	}
	if w.limits.MaxItems > 0 && len(out) > w.limits.MaxItems {
		return nil, fmt.Errorf("%w: a palace holds at most %d items, got %d", ErrInvalidInput, w.limits.MaxItems, len(out))
	}
	return out, nil
}
