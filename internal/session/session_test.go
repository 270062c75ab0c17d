package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCurrentIsStable(t *testing.T) {
	p := NewProvider()
	first := p.Current()
	require.NotEmpty(t, first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, first, p.Current())
		}()
	}
	wg.Wait()
}

func TestProvidersAreIndependent(t *testing.T) {
	a := NewProvider().Current()
	b := NewProvider().Current()
	assert.NotEqual(t, a, b)
}

func TestResumeKeepsIdentifier(t *testing.T) {
	id := New()
	p := Resume(id)
	assert.Equal(t, id, p.Current())
}

func TestParse(t *testing.T) {
	id := New()
	got, err := Parse("  " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = Parse("")
	assert.Error(t, err)
	_, err = Parse("not-a-session")
	assert.Error(t, err)
}

func TestNamespaceRoundTrip(t *testing.T) {
	id := ID("abc123")
	stored := id.Namespace("History")
	assert.Equal(t, "abc123_History", stored)

	display, err := id.Denamespace(stored)
	require.NoError(t, err)
	assert.Equal(t, "History", display)
}

func TestDenamespaceKeepsUnderscoresInDisplayName(t *testing.T) {
	id := ID("abc123")
	display, err := id.Denamespace("abc123_World_War_II")
	require.NoError(t, err)
	assert.Equal(t, "World_War_II", display)
}

func TestDenamespaceRejectsForeignName(t *testing.T) {
	id := ID("abc123")
	for _, stored := range []string{"zzz999_History", "History", "abc123History", ""} {
		_, err := id.Denamespace(stored)
		if !errors.Is(err, ErrForeignName) {
			t.Errorf("Denamespace(%q) error = %v, want ErrForeignName", stored, err)
		}
	}
}

func TestContextCarriesID(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := New()
	got, ok := FromContext(WithContext(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
