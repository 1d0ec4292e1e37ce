package corpus

import (
	"context"

	"lexcorpus/internal/domain/models/corpus"
)

// ProjectRepository defines data access operations for projects
type ProjectRepository interface {
	// Create creates a new project and returns it with generated ID and timestamps
	Create(ctx context.Context, project *corpus.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id string) (*corpus.Project, error)

	// List retrieves projects owned by the user plus the organization's knowledge bases
	List(ctx context.Context, userID, organizationID string) ([]corpus.Project, error)

	// Update updates mutable project fields
	Update(ctx context.Context, project *corpus.Project) error

	// Delete removes a project; folders and memberships cascade, documents persist
	Delete(ctx context.Context, id string) error

	// ReserveCapacity atomically applies a positive delta if the project stays
	// within max_documents and the storage cap. Returns false when it would not,
	// a NotFoundError for a missing project and a StateError for an inactive one.
	ReserveCapacity(ctx context.Context, id string, delta corpus.CounterDelta, storageCap int64) (bool, error)

	// ApplyDelta atomically adds delta to the project counters (never read-modify-write)
	ApplyDelta(ctx context.Context, id string, delta corpus.CounterDelta) error

	// SetCounters overwrites counters with recomputed values (reconciliation)
	SetCounters(ctx context.Context, id string, counters corpus.CounterDelta) error
}
