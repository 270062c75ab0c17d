package health

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeanpaul/loci/internal/config"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProviderOpenAICompatListsModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":"llama3.2"},{"id":"qwen2.5"}]}`))
	}))
	defer server.Close()

	p := config.ProviderConfig{Type: "openai", BaseURL: server.URL + "/v1"}
	s := Provider(context.Background(), "ollama", p)
	assert.True(t, s.OK, s.Error)
	assert.Equal(t, "provider ollama", s.Component)
	assert.Equal(t, []string{"llama3.2", "qwen2.5"}, s.Models)

	assert.NoError(t, Model(context.Background(), p, "qwen2.5"))
	assert.ErrorContains(t, Model(context.Background(), p, "mistral"), "llama3.2, qwen2.5")
}

func TestProviderAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := Provider(context.Background(), "openai", config.ProviderConfig{Type: "openai", BaseURL: server.URL})
	assert.False(t, s.OK)
	assert.Contains(t, s.Error, "authentication failed")

	s = Provider(context.Background(), "anthropic", config.ProviderConfig{Type: "anthropic", BaseURL: server.URL, APIKey: "bad"})
	assert.Equal(t, "invalid API key", s.Error)
}

func TestProviderMissingKey(t *testing.T) {
	s := Provider(context.Background(), "google", config.ProviderConfig{Type: "google"})
	assert.False(t, s.OK)
	assert.Contains(t, s.Error, "GEMINI_API_KEY")
}

func TestProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	s := Provider(context.Background(), "ollama", config.ProviderConfig{Type: "openai", BaseURL: url})
	assert.False(t, s.OK)
	assert.Contains(t, s.Error, "connection refused")
}

func TestStoreAndPrint(t *testing.T) {
	good := Store(context.Background(), pingFunc(func(context.Context) error { return nil }), "/tmp/palace.db")
	bad := Store(context.Background(), pingFunc(func(context.Context) error { return errors.New("disk I/O error") }), "/tmp/other.db")
	assert.True(t, good.OK)
	assert.False(t, bad.OK)

	var buf bytes.Buffer
	assert.True(t, Print(&buf, []Status{good}))
	assert.Contains(t, buf.String(), "✓ database")

	buf.Reset()
	assert.False(t, Print(&buf, []Status{good, bad}))
	assert.Contains(t, buf.String(), "disk I/O error")
}
