package corpus

import (
	"context"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/corpus"
)

// AdminService exposes corpus-wide aggregates. Every call requires the admin role.
type AdminService interface {
	Overview(ctx context.Context, p models.Principal) (*corpus.Overview, error)
	UserStats(ctx context.Context, p models.Principal) ([]corpus.UserStats, error)
	ActivityLog(ctx context.Context, p models.Principal, page, pageSize int) (*ActivityPage, error)
	TransferOwnership(ctx context.Context, p models.Principal, fromUserID, toUserID string) (*corpus.OwnershipTransfer, error)
}

// ActivityPage is one page of the activity log
type ActivityPage struct {
	Entries  []corpus.ActivityEntry `json:"entries"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	HasMore  bool                   `json:"has_more"`
}
