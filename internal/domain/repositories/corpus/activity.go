package corpus

import (
	"context"

	"lexcorpus/internal/domain/models/corpus"
)

// ActivityRepository persists the append-only activity log and admin aggregates
type ActivityRepository interface {
	// Append writes one activity entry
	Append(ctx context.Context, entry *corpus.ActivityEntry) error

	// List returns the most recent entries, newest first
	List(ctx context.Context, limit, offset int) ([]corpus.ActivityEntry, int, error)

	// Overview aggregates corpus-wide counters
	Overview(ctx context.Context) (*corpus.Overview, error)

	// UserStats aggregates per-owner counters
	UserStats(ctx context.Context) ([]corpus.UserStats, error)

	// TransferOwnership moves documents and projects from one owner to another
	TransferOwnership(ctx context.Context, fromUserID, toUserID string) (*corpus.OwnershipTransfer, error)
}
