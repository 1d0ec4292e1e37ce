package llm

import (
	"fmt"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	"lexcorpus/internal/config"
)

// ModelInfo names a model and the provider that serves it
type ModelInfo struct {
	Provider string
	Model    string
}

// backend describes how to recognise and build one provider
type backend struct {
	modelPrefix string
	build       func(cfg *config.Config) (llmprovider.Provider, error)
}

var backends = map[string]backend{
	"anthropic": {
		modelPrefix: "claude-",
		build: func(cfg *config.Config) (llmprovider.Provider, error) {
			if cfg.AnthropicAPIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
			p, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
			if err != nil {
				return nil, fmt.Errorf("create anthropic provider: %w", err)
			}
			return p, nil
		},
	},
	// lorem answers offline, for development without an API key
	"lorem": {
		modelPrefix: "lorem-",
		build: func(*config.Config) (llmprovider.Provider, error) {
			return lorem.NewProvider(), nil
		},
	},
}

// ParseModel splits "provider/model" or infers the provider from a known
// model prefix ("claude-haiku-4-5" is anthropic).
func ParseModel(s string) (*ModelInfo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(s, "/"); ok {
		if provider == "" || model == "" {
			return nil, fmt.Errorf("model string %q must be provider/model", s)
		}
		return &ModelInfo{Provider: provider, Model: model}, nil
	}

	lower := strings.ToLower(s)
	for name, b := range backends {
		if strings.HasPrefix(lower, b.modelPrefix) {
			return &ModelInfo{Provider: name, Model: s}, nil
		}
	}
	return nil, fmt.Errorf("unable to infer provider from model: %s", s)
}

// ProviderFactory creates LLM provider instances from configuration
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{config: cfg}
}

// GetProvider builds the named provider
func (f *ProviderFactory) GetProvider(name string) (llmprovider.Provider, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return b.build(f.config)
}

// ForModel resolves LLM_MODEL to a provider. An explicit "provider/model"
// wins; a model with no recognisable prefix goes to LLM_PROVIDER.
func (f *ProviderFactory) ForModel(model string) (llmprovider.Provider, *ModelInfo, error) {
	info, err := ParseModel(model)
	if err != nil {
		if f.config.LLMProvider == "" || strings.TrimSpace(model) == "" {
			return nil, nil, err
		}
		info = &ModelInfo{Provider: f.config.LLMProvider, Model: strings.TrimSpace(model)}
	}

	provider, err := f.GetProvider(info.Provider)
	if err != nil {
		return nil, nil, err
	}
	return provider, info, nil
}
