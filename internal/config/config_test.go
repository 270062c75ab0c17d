package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProvider(t *testing.T) {
	cfg := DefaultConfig()
	expected := "ollama"

	if cfg.DefaultProvider != expected {
		t.Errorf("Default provider = %q, want %q", cfg.DefaultProvider, expected)
	}
}

func TestDefaultPalaceBounds(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Palace.MinItems != 5 {
		t.Errorf("MinItems = %d, want 5", cfg.Palace.MinItems)
	}
	if cfg.Palace.MaxItems != 10 {
		t.Errorf("MaxItems = %d, want 10", cfg.Palace.MaxItems)
	}
	if cfg.Palace.MaxNameLength != 25 {
		t.Errorf("MaxNameLength = %d, want 25", cfg.Palace.MaxNameLength)
	}
	if cfg.Palace.MaxTopicLength != 100 {
		t.Errorf("MaxTopicLength = %d, want 100", cfg.Palace.MaxTopicLength)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("LOCI_TEST_KEY", "sk-test")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
default_provider: openai
providers:
  openai:
    type: openai
    base_url: https://api.openai.com/v1
    api_key: $LOCI_TEST_KEY
database:
  path: ` + filepath.Join(dir, "palace.db") + `
palace:
  min_items: 3
  max_items: 6
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, "sk-test", cfg.Providers["openai"].APIKey)
	assert.Equal(t, filepath.Join(dir, "palace.db"), cfg.Database.Path)
	assert.Equal(t, 3, cfg.Palace.MinItems)
	assert.Equal(t, 6, cfg.Palace.MaxItems)
	assert.Equal(t, 25, cfg.Palace.MaxNameLength)

	_, ok := cfg.ProviderFor("ollama")
	assert.True(t, ok, "default providers survive a partial file")
}

func TestEnvOverridesDatabasePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOCI_DATABASE_PATH", filepath.Join(dir, "env.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: llama3.2\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "env.db"), cfg.Database.Path)
}

func TestLoadFileMissingExplicitPath(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.DefaultProvider = "missing"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Providers["bad"] = ProviderConfig{Type: "carrier-pigeon"}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Palace.MaxItems = 2
	assert.Error(t, cfg.Validate())
}

func TestCheckProvider(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.CheckProvider("ollama"))

	cfg.Providers["anthropic"] = ProviderConfig{Type: "anthropic", APIKey: "$ANTHROPIC_API_KEY"}
	assert.Error(t, cfg.CheckProvider("anthropic"))
	assert.Error(t, cfg.CheckProvider("nope"))
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loci", "config.yaml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().DefaultProvider, cfg.DefaultProvider)
}

func TestLoadFileRetryBackoff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
database:
  path: ` + filepath.Join(dir, "palace.db") + `
generation:
  max_retries: 5
  retry_backoff: 250ms
  max_backoff: 4s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Generation.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Generation.RetryBackoff)
	assert.Equal(t, 4*time.Second, cfg.Generation.MaxBackoff)
	assert.InDelta(t, 0.6, cfg.Generation.Temperature, 1e-9)
}

func TestValidateRejectsInvertedBackoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generation.RetryBackoff = 10 * time.Second
	cfg.Generation.MaxBackoff = time.Second
	assert.ErrorContains(t, cfg.Validate(), "max_backoff")
}
