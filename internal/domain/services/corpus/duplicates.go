package corpus

import (
	"context"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/corpus"
)

// DuplicateService finds duplicate documents inside a project. Read-only.
type DuplicateService interface {
	// CheckDuplicates compares every document pair of the project.
	// Exact hash matches are always reported; other pairs when similarity >= threshold.
	CheckDuplicates(ctx context.Context, p models.Principal, projectID string, threshold float64) ([]corpus.DuplicatePair, error)
}
