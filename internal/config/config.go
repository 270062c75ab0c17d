package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	DefaultModel    string                    `yaml:"default_model" mapstructure:"default_model"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Database        DatabaseConfig            `yaml:"database" mapstructure:"database"`
	Log             LogConfig                 `yaml:"log" mapstructure:"log"`
	Palace          PalaceConfig              `yaml:"palace" mapstructure:"palace"`
	Generation      GenerationConfig          `yaml:"generation" mapstructure:"generation"`
}

type ProviderConfig struct {
	Type    string `yaml:"type" mapstructure:"type"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	Mode  string `yaml:"mode" mapstructure:"mode"`
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// PalaceConfig bounds what the UI accepts when building a palace.
type PalaceConfig struct {
	MinItems       int `yaml:"min_items" mapstructure:"min_items"`
	MaxItems       int `yaml:"max_items" mapstructure:"max_items"`
	MaxNameLength  int `yaml:"max_name_length" mapstructure:"max_name_length"`
	MaxTopicLength int `yaml:"max_topic_length" mapstructure:"max_topic_length"`
}

// GenerationConfig tunes the model calls behind one association. Retries
// cover rate limits, server errors and a provider that is not up yet.
type GenerationConfig struct {
	Temperature  float64       `yaml:"temperature" mapstructure:"temperature"`
	Concurrency  int           `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "ollama",
		DefaultModel:    "llama3.2",
		Providers: map[string]ProviderConfig{
			"ollama":    {Type: "openai", BaseURL: "http://localhost:11434/v1"},
			"vllm":      {Type: "openai", BaseURL: "http://localhost:8000/v1"},
			"openai":    {Type: "openai", BaseURL: "https://api.openai.com/v1", APIKey: "$OPENAI_API_KEY", Model: "gpt-4o-mini"},
			"anthropic": {Type: "anthropic", APIKey: "$ANTHROPIC_API_KEY"},
			"google":    {Type: "google", APIKey: "$GEMINI_API_KEY"},
		},
		Database: DatabaseConfig{Path: filepath.Join(dataDir(), "memory_palace.db")},
		Log:      LogConfig{Mode: "dev", Level: "info"},
		Palace: PalaceConfig{
			MinItems:       5,
			MaxItems:       10,
			MaxNameLength:  25,
			MaxTopicLength: 100,
		},
		Generation: GenerationConfig{
			Temperature:  0.6,
			Concurrency:  4,
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
			MaxBackoff:   30 * time.Second,
		},
	}
}

// Path returns the default location of the config file.
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "loci", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "loci", "config.yaml")
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "loci")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "loci")
}

// Load reads config.yaml from the working directory or the XDG config dir.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads an explicit config file; an empty path searches the
// default locations and tolerates a missing file.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(Path()))
	}

	v.SetEnvPrefix("LOCI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	for name, p := range cfg.Providers {
		p.APIKey = expandEnv(p.APIKey)
		p.BaseURL = expandEnv(p.BaseURL)
		cfg.Providers[name] = p
	}
	cfg.Database.Path = expandHome(expandEnv(cfg.Database.Path))
	cfg.Log.File = expandHome(expandEnv(cfg.Log.File))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv registers the scalar keys so LOCI_* variables override them even
// when the file does not mention them.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"default_provider", "default_model",
		"database.path",
		"log.mode", "log.level", "log.file",
		"palace.min_items", "palace.max_items", "palace.max_name_length", "palace.max_topic_length",
		"generation.temperature", "generation.concurrency", "generation.max_retries",
		"generation.retry_backoff", "generation.max_backoff",
	} {
		_ = v.BindEnv(key)
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func (c *Config) ProviderFor(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// Validate checks the configuration for errors. Only the default provider
// must be fully usable; the others are checked when selected.
func (c *Config) Validate() error {
	if c.DefaultProvider == "" {
		return fmt.Errorf("config: default_provider is required")
	}
	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		return fmt.Errorf("config: default_provider %q not found in providers", c.DefaultProvider)
	}
	validTypes := map[string]bool{"openai": true, "anthropic": true, "google": true}
	for name, p := range c.Providers {
		if !validTypes[p.Type] {
			return fmt.Errorf("config: provider %q has invalid type %q (must be openai, anthropic, or google)", name, p.Type)
		}
		if p.Type == "openai" && p.BaseURL == "" {
			return fmt.Errorf("config: provider %q (type openai) requires base_url", name)
		}
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Palace.MinItems < 1 {
		return fmt.Errorf("config: palace.min_items must be at least 1")
	}
	if c.Palace.MaxItems < c.Palace.MinItems {
		return fmt.Errorf("config: palace.max_items (%d) is below palace.min_items (%d)", c.Palace.MaxItems, c.Palace.MinItems)
	}
	if c.Palace.MaxNameLength < 1 {
		c.Palace.MaxNameLength = 25
	}
	if c.Palace.MaxTopicLength < 1 {
		c.Palace.MaxTopicLength = 100
	}
	if c.Generation.Concurrency < 1 {
		c.Generation.Concurrency = 1
	}
	if c.Generation.MaxRetries < 0 {
		c.Generation.MaxRetries = 0
	}
	if c.Generation.RetryBackoff < 0 {
		return fmt.Errorf("config: generation.retry_backoff must not be negative")
	}
	if c.Generation.MaxBackoff > 0 && c.Generation.MaxBackoff < c.Generation.RetryBackoff {
		return fmt.Errorf("config: generation.max_backoff (%s) is below generation.retry_backoff (%s)", c.Generation.MaxBackoff, c.Generation.RetryBackoff)
	}
	return nil
}

// CheckProvider reports whether the named provider has the credentials its
// type needs.
func (c *Config) CheckProvider(name string) error {
	p, ok := c.Providers[name]
	if !ok {
		return fmt.Errorf("config: unknown provider %q", name)
	}
	if (p.Type == "anthropic" || p.Type == "google") && (p.APIKey == "" || strings.HasPrefix(p.APIKey, "$")) {
		return fmt.Errorf("config: provider %q (type %s) requires api_key", name, p.Type)
	}
	return nil
}
