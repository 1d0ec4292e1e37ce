package corpus

import (
	"context"

	"lexcorpus/internal/domain/models/corpus"
)

// FolderRepository defines data access operations for flat folder records
type FolderRepository interface {
	// EnsurePaths inserts each path if missing (idempotent)
	EnsurePaths(ctx context.Context, projectID string, paths []string) error

	// GetAllByProject retrieves all folders in a project (flat list)
	GetAllByProject(ctx context.Context, projectID string) ([]corpus.Folder, error)

	// Exists reports whether a folder path exists
	Exists(ctx context.Context, projectID, path string) (bool, error)

	// AdjustCount atomically adds delta to a folder's direct document count
	AdjustCount(ctx context.Context, projectID, path string, delta int) error

	// DeleteSubtree removes a folder and its descendants; returns the removed paths
	DeleteSubtree(ctx context.Context, projectID, path string) ([]string, error)

	// SetCount overwrites a folder's count (reconciliation)
	SetCount(ctx context.Context, projectID, path string, count int) error
}
