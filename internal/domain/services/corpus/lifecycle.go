package corpus

import (
	"context"
	"time"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/corpus"
)

// LifecycleService drives documents through pending → processing → ingested|failed
// and manages local-scope expiry
type LifecycleService interface {
	// Ingest claims a pending document and runs it to a terminal state.
	// Returns false if another worker holds the claim.
	Ingest(ctx context.Context, documentID string) (bool, error)

	// ExtendTTL pushes expires_at of an ingested local document by days
	ExtendTTL(ctx context.Context, p models.Principal, documentID string, days int) (*corpus.Document, error)

	// PromoteDocument moves an ingested local document to private scope
	PromoteDocument(ctx context.Context, p models.Principal, documentID string) (*corpus.ScopeChange, error)

	// SweepExpired deletes local documents whose expires_at is before now; returns the count
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	// PendingDocumentIDs lists documents still pending (requeued at startup)
	PendingDocumentIDs(ctx context.Context) ([]string, error)

	// ListStale lists documents stuck in processing since before now-olderThan
	ListStale(ctx context.Context, olderThan time.Duration) ([]string, error)
}
