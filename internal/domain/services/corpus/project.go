package corpus

import (
	"context"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/corpus"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name            string              `json:"name"`
	Description     *string             `json:"description,omitempty"`
	IsKnowledgeBase bool                `json:"is_knowledge_base"`
	Scope           corpus.ProjectScope `json:"scope"`
	RetentionDays   *int                `json:"retention_days,omitempty"`
	MaxDocuments    *int                `json:"max_documents,omitempty"`
}

// UpdateProjectRequest represents a partial project update
type UpdateProjectRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	IsKnowledgeBase *bool   `json:"is_knowledge_base,omitempty"`
	RetentionDays   *int    `json:"retention_days,omitempty"`
	MaxDocuments    *int    `json:"max_documents,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// ProjectService defines business logic operations for projects and memberships
type ProjectService interface {
	CreateProject(ctx context.Context, p models.Principal, req *CreateProjectRequest) (*corpus.Project, error)
	GetProject(ctx context.Context, p models.Principal, projectID string) (*corpus.Project, error)

	// ListProjects lists the caller's projects and their organization's knowledge bases
	ListProjects(ctx context.Context, p models.Principal) ([]corpus.Project, error)

	UpdateProject(ctx context.Context, p models.Principal, projectID string, req *UpdateProjectRequest) (*corpus.Project, error)

	// DeleteProject removes the project, its folders and memberships; documents persist
	DeleteProject(ctx context.Context, p models.Principal, projectID string) error

	// AddDocument attaches a visible document to the project, optionally in a folder
	AddDocument(ctx context.Context, p models.Principal, projectID, documentID string, folderPath *string) (*corpus.ProjectDocument, error)

	// RemoveDocument detaches a document; the document itself persists
	RemoveDocument(ctx context.Context, p models.Principal, projectID, documentID string) error

	// ListProjectDocuments lists memberships with document metadata
	ListProjectDocuments(ctx context.Context, p models.Principal, projectID string) ([]corpus.ProjectDocument, error)

	// ReconcileCounters recomputes project and folder counters from memberships
	ReconcileCounters(ctx context.Context, projectID string) (*corpus.Project, error)
}
