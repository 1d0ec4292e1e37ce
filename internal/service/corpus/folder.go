package corpus

import (
	"context"
	"fmt"
	"time"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
)

// folderService implements corpusSvc.FolderService
type folderService struct {
	*Deps
}

// NewFolderService creates a new folder service
func NewFolderService(deps *Deps) corpusSvc.FolderService {
	return &folderService{Deps: deps}
}

// CreateFolder upserts the folder and every missing ancestor
func (s *folderService) CreateFolder(ctx context.Context, p models.Principal, projectID, path string) (*corpusModels.Folder, error) {
	normalized, err := NormalizeFolderPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	if err := s.Folders.EnsurePaths(ctx, projectID, AncestorPaths(normalized)); err != nil {
		return nil, err
	}

	folders, err := s.Folders.GetAllByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		if folders[i].Path == normalized {
			s.Logger.Info("folder created", "project_id", projectID, "path", normalized)
			return &folders[i], nil
		}
	}
	// Deleted concurrently between the upsert and the read.
	return nil, fmt.Errorf("folder %s: %w", normalized, domain.ErrNotFound)
}

// MoveDocument reassigns a membership's folder, creating the target if missing.
// Old and new folder counts change in the same transaction as the edge.
func (s *folderService) MoveDocument(ctx context.Context, p models.Principal, projectID, documentID string, folderPath *string) (*corpusModels.ProjectDocument, error) {
	target, err := normalizeOptionalFolder(folderPath)
	if err != nil {
		return nil, err
	}
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	var previous *string
	err = s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		if target != nil {
			if err := s.Folders.EnsurePaths(ctx, projectID, AncestorPaths(*target)); err != nil {
				return err
			}
		}

		var err error
		previous, err = s.Memberships.SetFolder(ctx, projectID, documentID, target)
		if err != nil {
			return err
		}
		if samePath(previous, target) {
			return nil
		}
		if previous != nil {
			if err := s.Folders.AdjustCount(ctx, projectID, *previous, -1); err != nil {
				return err
			}
		}
		if target != nil {
			if err := s.Folders.AdjustCount(ctx, projectID, *target, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	membership, err := s.Memberships.Get(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, p.UserID, ActionDocumentMoved, "project", projectID, map[string]interface{}{
		"document_id": documentID,
		"from":        previous,
		"to":          target,
	})
	s.Logger.Info("document moved",
		"project_id", projectID,
		"document_id", documentID,
		"from", previous,
		"to", target,
	)
	return membership, nil
}

func samePath(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DeleteFolder removes a folder subtree; its documents move to the project root
func (s *folderService) DeleteFolder(ctx context.Context, p models.Principal, projectID, path string) error {
	normalized, err := NormalizeFolderPath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return err
	}

	var moved int
	err = s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		removed, err := s.Folders.DeleteSubtree(ctx, projectID, normalized)
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			return fmt.Errorf("folder %s: %w", normalized, domain.ErrNotFound)
		}
		moved, err = s.Memberships.MoveFolderToRoot(ctx, projectID, removed)
		return err
	})
	if err != nil {
		return err
	}

	s.Activity.Record(ctx, p.UserID, ActionFolderDeleted, "project", projectID, map[string]interface{}{
		"path":            normalized,
		"documents_moved": moved,
	})
	s.Logger.Info("folder deleted",
		"project_id", projectID,
		"path", normalized,
		"documents_moved", moved,
	)
	return nil
}

// ListFolders rebuilds the folder tree from the flat records
func (s *folderService) ListFolders(ctx context.Context, p models.Principal, projectID string) (*corpusModels.FolderTree, error) {
	if err := s.Authorizer.CanReadProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	start := time.Now()
	folders, err := s.Folders.GetAllByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.Memberships.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	rootCount := 0
	for _, m := range members {
		if m.FolderPath == nil {
			rootCount++
		}
	}

	tree := BuildFolderTree(projectID, folders, rootCount)
	s.Logger.Debug("folder tree built",
		"project_id", projectID,
		"folders", len(folders),
		"duration", time.Since(start),
	)
	return tree, nil
}
