// Package associate turns a topic and a palace's items into association
// content: one bullet point and one mental image per item.
package associate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/jeanpaul/loci/internal/content"
)

// Completer answers a single prompt with text.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Stage names the collaborator call that failed.
type Stage string

const (
	StageBullets Stage = "bullets"
	StageImagery Stage = "imagery"
)

// ItemError records a collaborator failure that was replaced by a
// placeholder. Item is empty when the failure affected the whole topic.
type ItemError struct {
	Item  string
	Stage Stage
	Err   error
}

func (e ItemError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s for %q: %v", e.Stage, e.Item, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Request is one generation job. Points, when set, replace the bullet call.
type Request struct {
	Topic  string
	Items  []string
	Points []string
}

// Result holds one line per requested item, in item order.
type Result struct {
	Lines  []content.Line
	Errors []ItemError
}

// EventKind classifies progress events.
type EventKind string

const (
	EventBullets EventKind = "bullets"
	EventImagery EventKind = "imagery"
	EventFailed  EventKind = "failed"
	EventSaved   EventKind = "saved"
)

// Event reports progress. Done counts finished imagery calls out of Total.
type Event struct {
	Kind  EventKind
	Item  string
	Done  int
	Total int
	Err   error
}

type Generator struct {
	c           Completer
	concurrency int
}

func NewGenerator(c Completer, concurrency int) *Generator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Generator{c: c, concurrency: concurrency}
}

// Generate builds one line per item. Collaborator failures never abort the
// batch; the affected field becomes content.Placeholder and the failure is
// listed in Result.Errors. Only context cancellation returns an error.
func (g *Generator) Generate(ctx context.Context, req Request, progress func(Event)) (Result, error) {
	var mu sync.Mutex
	var errs []ItemError
	emit := func(ev Event) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		progress(ev)
	}
	fail := func(item string, stage Stage, err error) {
		mu.Lock()
		errs = append(errs, ItemError{Item: item, Stage: stage, Err: err})
		mu.Unlock()
		emit(Event{Kind: EventFailed, Item: item, Err: err})
	}

	points := cleanPoints(req.Points)
	if len(points) == 0 {
		text, err := g.c.Generate(ctx, bulletPrompt(req.Topic))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if err != nil {
			fail("", StageBullets, err)
		} else {
			points = SplitBullets(text)
		}
	}

	lines := make([]content.Line, len(req.Items))
	pending := 0
	for i, item := range req.Items {
		lines[i] = content.Line{Item: item, Bullet: content.Placeholder, Imagery: content.Placeholder}
		if i < len(points) {
			lines[i].Bullet = points[i]
			pending++
		}
	}
	emit(Event{Kind: EventBullets, Total: pending})

	done := 0
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i := range lines {
		if i >= len(points) {
			continue
		}
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			imagery, err := g.c.Generate(egctx, imageryPrompt(lines[i].Item, lines[i].Bullet))
			if err != nil {
				if ctxErr := egctx.Err(); ctxErr != nil {
					return ctxErr
				}
				fail(lines[i].Item, StageImagery, err)
			} else {
				lines[i].Imagery = imagery
			}
			mu.Lock()
			defer mu.Unlock()
			done++
			if progress != nil {
				progress(Event{Kind: EventImagery, Item: lines[i].Item, Done: done, Total: pending})
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Lines: lines, Errors: errs}, nil
}

// SplitBullets turns a bulleted answer into one point per line, dropping
// list markers and blank lines.
func SplitBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if p := stripMarker(strings.TrimSpace(line)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanPoints(points []string) []string {
	var out []string
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stripMarker(s string) string {
	for _, m := range []string{"- ", "* ", "• ", "+ "} {
		if strings.HasPrefix(s, m) {
			return strings.TrimSpace(s[len(m):])
		}
	}
	if s == "-" || s == "*" || s == "•" {
		return ""
	}
	// "1." or "1)"
	digits := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && (s[digits] == '.' || s[digits] == ')') {
		return strings.TrimSpace(s[digits+1:])
	}
	return strings.TrimSpace(strings.TrimPrefix(s, "-"))
}
