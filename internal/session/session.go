// Package session issues the identifiers that scope every stored palace and
// category to one user session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ID is an opaque session identifier. Stored names are prefixed with it.
type ID string

// ErrForeignName is returned when a stored name does not carry the session prefix.
var ErrForeignName = errors.New("stored name does not belong to session")

// New returns a fresh random identifier.
func New() ID {
	return ID(uuid.New().String())
}

// Parse validates an identifier supplied from outside the process, e.g. to
// resume an earlier session.
func Parse(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("session id is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid session id %q: %w", raw, err)
	}
	return ID(u.String()), nil
}

func (id ID) String() string { return string(id) }

// Namespace returns the stored form of a display name.
func (id ID) Namespace(display string) string {
	return string(id) + "_" + display
}

// Denamespace strips the session prefix from a stored name.
func (id ID) Denamespace(stored string) (string, error) {
	prefix := string(id) + "_"
	if id == "" || !strings.HasPrefix(stored, prefix) {
		return "", fmt.Errorf("%w: %q", ErrForeignName, stored)
	}
	return strings.TrimPrefix(stored, prefix), nil
}

// Provider hands out the identifier of the running session. The first call
// to Current generates it; later calls return the same value.
type Provider struct {
	once sync.Once
	id   ID
}

// NewProvider starts a fresh session.
func NewProvider() *Provider {
	return &Provider{}
}

// Resume returns a provider pinned to an existing identifier.
func Resume(id ID) *Provider {
	p := &Provider{id: id}
	p.once.Do(func() {})
	return p
}

// Current returns the session identifier, generating it on first use.
func (p *Provider) Current() ID {
	p.once.Do(func() {
		p.id = New()
	})
	return p.id
}

type ctxKey struct{}

// WithContext attaches id to ctx.
func WithContext(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identifier stored by WithContext.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(ctxKey{}).(ID)
	return id, ok && id != ""
}
