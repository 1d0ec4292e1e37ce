package corpus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/domain/services"
)

// Activity actions written by the services
const (
	ActionDocumentCreated   = "document.created"
	ActionDocumentDeleted   = "document.deleted"
	ActionDocumentExpired   = "document.expired"
	ActionDocumentPromoted  = "document.promoted"
	ActionDocumentExtended  = "document.ttl_extended"
	ActionProjectCreated    = "project.created"
	ActionProjectUpdated    = "project.updated"
	ActionProjectDeleted    = "project.deleted"
	ActionMembershipAdded   = "project.document_added"
	ActionMembershipRemoved = "project.document_removed"
	ActionDocumentMoved     = "project.document_moved"
	ActionFolderDeleted     = "project.folder_deleted"
	ActionOwnershipTransfer = "admin.ownership_transferred"
)

// SystemActor is the actor id recorded for background jobs.
const SystemActor = "system"

type activityRecorder struct {
	repo   corpusRepo.ActivityRepository
	logger *slog.Logger
}

// NewActivityRecorder creates a recorder backed by the activity log.
// Recording never fails the caller's operation.
func NewActivityRecorder(repo corpusRepo.ActivityRepository, logger *slog.Logger) services.ActivityRecorder {
	return &activityRecorder{repo: repo, logger: logger}
}

func (r *activityRecorder) Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]interface{}) {
	entry := &corpusModels.ActivityEntry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			r.logger.Warn("encode activity details", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.Warn("failed to record activity",
			"action", action,
			"resource_id", resourceID,
			"error", err,
		)
	}
}
