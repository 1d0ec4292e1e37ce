package handler

import (
	"log/slog"
	"net/http"

	"lexcorpus/internal/capabilities"
	"lexcorpus/internal/config"
	"lexcorpus/internal/httputil"
)

// ModelsHandler reports which extraction models the server can use
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID     string                           `json:"id"`
	Name   string                           `json:"name"`
	Models []capabilities.ModelCapabilities `json:"models"`
}

// ActiveModelResponse is the model review extraction and queries run against
type ActiveModelResponse struct {
	Provider string `json:"provider"`
	capabilities.ModelCapabilities
	InputChars int `json:"input_chars"`
}

// GetModels returns the active model and the models of every configured provider
// GET /api/models
func (h *ModelsHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	var providers []ProviderResponse

	if h.config.AnthropicAPIKey != "" {
		if models, err := h.registry.ListProviderModels("anthropic"); err == nil {
			providers = append(providers, ProviderResponse{ID: "anthropic", Name: "Anthropic", Models: models})
		}
	}
	if h.config.LLMProvider == "lorem" || h.config.IsDev() {
		if models, err := h.registry.ListProviderModels("lorem"); err == nil {
			providers = append(providers, ProviderResponse{ID: "lorem", Name: "Lorem (offline)", Models: models})
		}
	}

	response := map[string]interface{}{
		"providers": providers,
	}

	caps, err := h.registry.Resolve(h.config.LLMProvider, h.config.LLMModel)
	if err != nil {
		h.logger.Warn("active model has no capabilities entry",
			"provider", h.config.LLMProvider,
			"model", h.config.LLMModel,
			"error", err,
		)
	} else {
		response["active"] = ActiveModelResponse{
			Provider:          h.config.LLMProvider,
			ModelCapabilities: *caps,
			InputChars:        caps.InputChars(),
		}
	}

	httputil.RespondJSON(w, http.StatusOK, response)
}
