package corpus

import (
	"context"
	"time"

	"lexcorpus/internal/domain/models/corpus"
)

// MembershipRepository defines data access operations for project/document edges
type MembershipRepository interface {
	// Add inserts a membership; a duplicate pair returns a ConflictError
	Add(ctx context.Context, m *corpus.ProjectDocument) error

	// Get retrieves a membership edge
	Get(ctx context.Context, projectID, documentID string) (*corpus.ProjectDocument, error)

	// Remove deletes a membership edge; returns the removed edge or ErrNotFound
	Remove(ctx context.Context, projectID, documentID string) (*corpus.ProjectDocument, error)

	// SetFolder reassigns the folder of a membership; returns the previous folder path
	SetFolder(ctx context.Context, projectID, documentID string, folderPath *string) (*string, error)

	// ListByProject lists memberships joined with document metadata
	ListByProject(ctx context.Context, projectID string) ([]corpus.ProjectDocument, error)

	// ListByDocument lists memberships of a document across projects
	ListByDocument(ctx context.Context, documentID string) ([]corpus.ProjectDocument, error)

	// MarkDocumentStatus updates the per-project status of every edge of a document
	MarkDocumentStatus(ctx context.Context, documentID string, status corpus.Status, message *string, at time.Time) error

	// MoveFolderToRoot detaches every membership inside the given folder paths
	MoveFolderToRoot(ctx context.Context, projectID string, paths []string) (int, error)
}
