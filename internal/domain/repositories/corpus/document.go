package corpus

import (
	"context"
	"time"

	"lexcorpus/internal/domain/models/corpus"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create inserts a new document; ID and timestamps must be set by the caller
	Create(ctx context.Context, doc *corpus.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id string) (*corpus.Document, error)

	// GetByIDs retrieves documents by ID, in no particular order; missing IDs are skipped
	GetByIDs(ctx context.Context, ids []string) ([]corpus.Document, error)

	// GetForUpdate retrieves a document and locks its row for the surrounding transaction
	GetForUpdate(ctx context.Context, id string) (*corpus.Document, error)

	// List returns one page of visible documents ordered by ingestion time descending
	List(ctx context.Context, opts *corpus.ListOptions) ([]corpus.Document, int, error)

	// Delete hard-deletes a document; returns false if it did not exist
	Delete(ctx context.Context, id string) (bool, error)

	// Claim atomically moves a pending document to processing.
	// Returns false if the document is not pending (another worker holds it or it is terminal).
	Claim(ctx context.Context, id string) (bool, error)

	// MarkIngested moves a processing document to ingested. Returns false if it was not processing.
	MarkIngested(ctx context.Context, id string, chunkCount int, ingestedAt time.Time, expiresAt *time.Time) (bool, error)

	// MarkFailed moves a processing document to failed. Returns false if it was not processing.
	MarkFailed(ctx context.Context, id string, message string) (bool, error)

	// UpdateScope rewrites scope and expiry (promotion)
	UpdateScope(ctx context.Context, id string, scope corpus.Scope, expiresAt *time.Time) error

	// UpdateExpiry rewrites expires_at (TTL extension)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// ListIDsByStatus lists ids of documents in the given status last updated before cutoff
	ListIDsByStatus(ctx context.Context, status corpus.Status, updatedBefore time.Time) ([]string, error)

	// ListExpired lists ids of local documents whose expires_at is before now
	ListExpired(ctx context.Context, now time.Time) ([]string, error)

	// SumStorageByOrganization returns the bytes stored by an organization
	SumStorageByOrganization(ctx context.Context, organizationID string) (int64, error)
}
