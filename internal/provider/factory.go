package provider

import (
	"fmt"

	"github.com/jeanpaul/loci/internal/config"
)

// FromConfig builds the named provider, wrapped with retries. An empty
// model falls back to the provider's model and then the global default.
func FromConfig(cfg *config.Config, name, model string) (Provider, error) {
	if name == "" {
		name = cfg.DefaultProvider
	}
	pcfg, ok := cfg.ProviderFor(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, configure it in %s", name, config.Path())
	}
	if err := cfg.CheckProvider(name); err != nil {
		return nil, err
	}
	if model == "" {
		model = pcfg.Model
	}
	if model == "" && pcfg.Type == "openai" {
		model = cfg.DefaultModel
	}

	var p Provider
	switch pcfg.Type {
	case "openai":
		p = NewOpenAI(name, pcfg.BaseURL, pcfg.APIKey, model)
	case "anthropic":
		p = NewAnthropic(pcfg.APIKey, model)
	case "google":
		p = NewGoogle(pcfg.APIKey, model)
	default:
		return nil, fmt.Errorf("unknown provider type %q", pcfg.Type)
	}
	return WithRetry(p, PolicyFromConfig(cfg.Generation)), nil
}
