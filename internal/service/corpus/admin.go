package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/repositories"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/domain/services"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
)

// adminService implements corpusSvc.AdminService
type adminService struct {
	activityRepo corpusRepo.ActivityRepository
	txManager    repositories.TransactionManager
	activity     services.ActivityRecorder
	logger       *slog.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(
	activityRepo corpusRepo.ActivityRepository,
	txManager repositories.TransactionManager,
	activity services.ActivityRecorder,
	logger *slog.Logger,
) corpusSvc.AdminService {
	return &adminService{
		activityRepo: activityRepo,
		txManager:    txManager,
		activity:     activity,
		logger:       logger,
	}
}

func requireAdmin(p models.Principal) error {
	if !p.IsAdmin() {
		return &domain.ForbiddenError{Message: "admin role required"}
	}
	return nil
}

// Overview aggregates corpus-wide counters
func (s *adminService) Overview(ctx context.Context, p models.Principal) (*corpusModels.Overview, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.activityRepo.Overview(ctx)
}

// UserStats aggregates per-owner counters
func (s *adminService) UserStats(ctx context.Context, p models.Principal) ([]corpusModels.UserStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	stats, err := s.activityRepo.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []corpusModels.UserStats{}
	}
	return stats, nil
}

// ActivityLog returns one page of the activity log, newest first
func (s *adminService) ActivityLog(ctx context.Context, p models.Principal, page, pageSize int) (*corpusSvc.ActivityPage, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = corpusModels.DefaultPageSize
	}
	if pageSize > corpusModels.MaxPageSize {
		return nil, fmt.Errorf("%w: page_size cannot exceed %d (requested: %d)", domain.ErrValidation, corpusModels.MaxPageSize, pageSize)
	}

	offset := (page - 1) * pageSize
	entries, total, err := s.activityRepo.List(ctx, pageSize, offset)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []corpusModels.ActivityEntry{}
	}
	return &corpusSvc.ActivityPage{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  offset+len(entries) < total,
	}, nil
}

// TransferOwnership moves documents and projects between users in one transaction
func (s *adminService) TransferOwnership(ctx context.Context, p models.Principal, fromUserID, toUserID string) (*corpusModels.OwnershipTransfer, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	fromUserID = strings.TrimSpace(fromUserID)
	toUserID = strings.TrimSpace(toUserID)
	if fromUserID == "" || toUserID == "" {
		return nil, fmt.Errorf("%w: from_user_id and to_user_id are required", domain.ErrValidation)
	}
	if fromUserID == toUserID {
		return nil, fmt.Errorf("%w: cannot transfer ownership to the same user", domain.ErrValidation)
	}

	var result *corpusModels.OwnershipTransfer
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.activityRepo.TransferOwnership(ctx, fromUserID, toUserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, p.UserID, ActionOwnershipTransfer, "user", fromUserID, map[string]interface{}{
		"to_user_id": toUserID,
		"documents":  result.Documents,
		"projects":   result.Projects,
	})
	s.logger.Info("ownership transferred",
		"from", fromUserID,
		"to", toUserID,
		"documents", result.Documents,
		"projects", result.Projects,
	)
	return result, nil
}
