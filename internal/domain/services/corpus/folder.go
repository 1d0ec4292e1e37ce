package corpus

import (
	"context"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/corpus"
)

// FolderService manages the folder tree of a project
type FolderService interface {
	// CreateFolder creates the folder and its missing ancestors; idempotent on path
	CreateFolder(ctx context.Context, p models.Principal, projectID, path string) (*corpus.Folder, error)

	// MoveDocument reassigns a membership's folder; nil means project root
	MoveDocument(ctx context.Context, p models.Principal, projectID, documentID string, folderPath *string) (*corpus.ProjectDocument, error)

	// DeleteFolder removes a folder subtree and moves its documents to the root
	DeleteFolder(ctx context.Context, p models.Principal, projectID, path string) error

	// ListFolders returns the folder tree rebuilt from flat records
	ListFolders(ctx context.Context, p models.Principal, projectID string) (*corpus.FolderTree, error)
}
