// Package capabilities loads per-model limits from embedded YAML.
package capabilities

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry maps provider names to their models. It is read-only once built.
type Registry struct {
	providers map[string]*ProviderCapabilities
}

// NewRegistry creates a registry from the embedded YAML files
func NewRegistry() (*Registry, error) {
	return loadRegistry(configFiles)
}

func loadRegistry(fsys fs.FS) (*Registry, error) {
	files, err := fs.Glob(fsys, "config/*.yaml")
	if err != nil {
		return nil, err
	}

	r := &Registry{providers: make(map[string]*ProviderCapabilities, len(files))}
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var caps ProviderCapabilities
		if err := yaml.Unmarshal(data, &caps); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if caps.Provider == "" {
			caps.Provider = strings.TrimSuffix(strings.TrimPrefix(name, "config/"), ".yaml")
		}
		if len(caps.Models) == 0 {
			return nil, fmt.Errorf("%s lists no models", name)
		}
		r.providers[caps.Provider] = &caps
	}
	return r, nil
}

// Providers lists the provider names in alphabetical order
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetModelCapabilities returns capabilities for an exact model id
func (r *Registry) GetModelCapabilities(provider, model string) (*ModelCapabilities, error) {
	caps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	for i := range caps.Models {
		if caps.Models[i].ID == model {
			m := caps.Models[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("unknown model %s for provider %s", model, provider)
}

// Resolve returns capabilities for model. Ids the file does not list
// (dated snapshots, aliases) take the longest listed id they start with,
// then the provider's first model. The returned ID is always model.
func (r *Registry) Resolve(provider, model string) (*ModelCapabilities, error) {
	caps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	best := -1
	for i, m := range caps.Models {
		if m.ID == model {
			best = i
			break
		}
		if strings.HasPrefix(model, m.ID) && (best < 0 || len(m.ID) > len(caps.Models[best].ID)) {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}

	resolved := caps.Models[best]
	resolved.ID = model
	return &resolved, nil
}

// ListProviderModels returns all models for a provider in file order
func (r *Registry) ListProviderModels(provider string) ([]ModelCapabilities, error) {
	caps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	return append([]ModelCapabilities(nil), caps.Models...), nil
}
