package capabilities

import "gopkg.in/yaml.v3"

// ModelCapabilities holds the limits the extraction client needs for a model
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`

	// Limits, in tokens
	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`

	// CharsPerToken is the rough ratio used to turn the context window into a
	// character budget for document text
	CharsPerToken float64 `yaml:"chars_per_token" json:"chars_per_token"`
}

// InputChars returns how many characters of prompt text fit the context
// window after reserving room for the reply
func (m *ModelCapabilities) InputChars() int {
	tokens := m.ContextWindow - m.MaxOutput
	if tokens <= 0 {
		return 0
	}
	ratio := m.CharsPerToken
	if ratio <= 0 {
		ratio = 3
	}
	return int(float64(tokens) * ratio)
}

// ProviderCapabilities represents all models for a provider
type ProviderCapabilities struct {
	Provider string              `yaml:"provider" json:"provider"`
	Models   []ModelCapabilities `yaml:"-" json:"models"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML keeps the model order of the YAML file
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Provider string                       `yaml:"provider"`
		Models   map[string]ModelCapabilities `yaml:"models"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	p.Provider = raw.Provider

	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "models" {
			continue
		}
		modelsNode := node.Content[i+1]
		// modelsNode.Content alternates: key, value, key, value...
		for j := 0; j < len(modelsNode.Content); j += 2 {
			id := modelsNode.Content[j].Value
			if model, ok := raw.Models[id]; ok {
				model.ID = id
				p.Models = append(p.Models, model)
			}
		}
		break
	}
	return nil
}
