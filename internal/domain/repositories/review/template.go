package review

import (
	"context"

	"lexcorpus/internal/domain/models/review"
)

// TemplateRepository defines data access operations for review templates
type TemplateRepository interface {
	Create(ctx context.Context, tpl *review.Template) error
	GetByID(ctx context.Context, id string) (*review.Template, error)
	List(ctx context.Context, ownerID string) ([]review.Template, error)
	Delete(ctx context.Context, id string) error

	// UpsertSystem inserts or refreshes a seeded system template
	UpsertSystem(ctx context.Context, tpl *review.Template) error
}
