package review

import (
	"context"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/review"
)

// CreateTemplateRequest represents a user template
type CreateTemplateRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Area        *string            `json:"area,omitempty"`
	Columns     []review.ColumnDef `json:"columns"`
}

// TemplateService manages review templates
type TemplateService interface {
	// ListTemplates lists system templates and the caller's own
	ListTemplates(ctx context.Context, p models.Principal) ([]review.Template, error)
	GetTemplate(ctx context.Context, p models.Principal, templateID string) (*review.Template, error)
	CreateTemplate(ctx context.Context, p models.Principal, req *CreateTemplateRequest) (*review.Template, error)

	// DeleteTemplate removes a user template; system templates are immutable
	DeleteTemplate(ctx context.Context, p models.Principal, templateID string) error

	// SeedSystemTemplates upserts the built-in templates; returns how many were written
	SeedSystemTemplates(ctx context.Context) (int, error)
}
