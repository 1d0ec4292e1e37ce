package auth

import (
	"context"
	"fmt"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/domain/services"
)

// ScopeAuthorizer implements ResourceAuthorizer from document scopes and ownership.
//
// Documents: global is readable by everyone, private/local by the owner, group by
// members of the group. Only the owner (or an admin) may mutate a document.
// Projects: readable by the owner and, for knowledge bases, by the organization.
// Review tables: owner only. Admins pass every check.
type ScopeAuthorizer struct {
	docRepo     corpusRepo.DocumentRepository
	projectRepo corpusRepo.ProjectRepository
	tableRepo   reviewRepo.TableRepository
}

var _ services.ResourceAuthorizer = (*ScopeAuthorizer)(nil)

// NewScopeAuthorizer creates a new scope-based authorizer
func NewScopeAuthorizer(
	docRepo corpusRepo.DocumentRepository,
	projectRepo corpusRepo.ProjectRepository,
	tableRepo reviewRepo.TableRepository,
) *ScopeAuthorizer {
	return &ScopeAuthorizer{
		docRepo:     docRepo,
		projectRepo: projectRepo,
		tableRepo:   tableRepo,
	}
}

// CanSeeDocument applies the scope visibility rules to a loaded document.
func CanSeeDocument(p models.Principal, doc *corpusModels.Document) bool {
	if p.IsAdmin() {
		return true
	}
	switch doc.Scope {
	case corpusModels.ScopeGlobal:
		return true
	case corpusModels.ScopePrivate, corpusModels.ScopeLocal:
		return doc.OwnerID == p.UserID
	case corpusModels.ScopeGroup:
		return doc.GroupID != nil && p.InGroup(*doc.GroupID)
	}
	return false
}

// CanReadDocument checks scope visibility. Invisible documents look missing.
func (a *ScopeAuthorizer) CanReadDocument(ctx context.Context, p models.Principal, documentID string) error {
	doc, err := a.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if !CanSeeDocument(p, doc) {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return nil
}

// CanWriteDocument checks the caller owns the document
func (a *ScopeAuthorizer) CanWriteDocument(ctx context.Context, p models.Principal, documentID string) error {
	doc, err := a.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if !CanSeeDocument(p, doc) {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if !p.IsAdmin() && doc.OwnerID != p.UserID {
		return fmt.Errorf("access denied to document %s: %w", documentID, domain.ErrForbidden)
	}
	return nil
}

func (a *ScopeAuthorizer) loadProject(ctx context.Context, p models.Principal, projectID string) (*corpusModels.Project, error) {
	project, err := a.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || project.OwnerID == p.UserID {
		return project, nil
	}
	if project.IsKnowledgeBase && project.OrganizationID != nil && *project.OrganizationID == p.OrganizationID {
		return project, nil
	}
	return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
}

// CanReadProject checks ownership or organization knowledge base membership
func (a *ScopeAuthorizer) CanReadProject(ctx context.Context, p models.Principal, projectID string) error {
	_, err := a.loadProject(ctx, p, projectID)
	return err
}

// CanWriteProject checks the caller owns the project
func (a *ScopeAuthorizer) CanWriteProject(ctx context.Context, p models.Principal, projectID string) error {
	project, err := a.loadProject(ctx, p, projectID)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && project.OwnerID != p.UserID {
		return fmt.Errorf("access denied to project %s: %w", projectID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessTable checks the caller owns the review table
func (a *ScopeAuthorizer) CanAccessTable(ctx context.Context, p models.Principal, tableID string) error {
	table, err := a.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && table.OwnerID != p.UserID {
		return fmt.Errorf("review table %s: %w", tableID, domain.ErrNotFound)
	}
	return nil
}
