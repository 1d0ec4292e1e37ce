package corpus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusSvc "lexcorpus/internal/domain/services/corpus"

	"github.com/google/uuid"
)

// projectService implements corpusSvc.ProjectService
type projectService struct {
	*Deps
	quotas Quotas
}

// NewProjectService creates a new project service
func NewProjectService(deps *Deps, quotas Quotas) corpusSvc.ProjectService {
	return &projectService{Deps: deps, quotas: quotas}
}

// CreateProject creates a new project
func (s *projectService) CreateProject(ctx context.Context, p models.Principal, req *corpusSvc.CreateProjectRequest) (*corpusModels.Project, error) {
	if err := validateCreateProject(p, req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project := &corpusModels.Project{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		OwnerID:         p.UserID,
		IsKnowledgeBase: req.IsKnowledgeBase,
		Scope:           req.Scope,
		RetentionDays:   req.RetentionDays,
		MaxDocuments:    req.MaxDocuments,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.OrganizationID != "" {
		org := p.OrganizationID
		project.OrganizationID = &org
	}

	if err := s.Projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, p.UserID, ActionProjectCreated, "project", project.ID, map[string]interface{}{
		"name":              project.Name,
		"is_knowledge_base": project.IsKnowledgeBase,
	})
	s.Logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
		"owner_id", project.OwnerID,
		"is_knowledge_base", project.IsKnowledgeBase,
	)
	return project, nil
}

// GetProject retrieves a project the caller can read
func (s *projectService) GetProject(ctx context.Context, p models.Principal, projectID string) (*corpusModels.Project, error) {
	if err := s.Authorizer.CanReadProject(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.Projects.GetByID(ctx, projectID)
}

// ListProjects lists the caller's projects and their organization's knowledge bases
func (s *projectService) ListProjects(ctx context.Context, p models.Principal) ([]corpusModels.Project, error) {
	projects, err := s.Projects.List(ctx, p.UserID, p.OrganizationID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []corpusModels.Project{}
	}
	return projects, nil
}

// UpdateProject applies a partial update
func (s *projectService) UpdateProject(ctx context.Context, p models.Principal, projectID string, req *corpusSvc.UpdateProjectRequest) (*corpusModels.Project, error) {
	if err := validateUpdateProject(req); err != nil {
		return nil, err
	}
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	project, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.IsKnowledgeBase != nil {
		if *req.IsKnowledgeBase && project.OrganizationID == nil {
			return nil, fmt.Errorf("%w: knowledge bases require an organization", domain.ErrValidation)
		}
		project.IsKnowledgeBase = *req.IsKnowledgeBase
	}
	if req.RetentionDays != nil {
		project.RetentionDays = req.RetentionDays
	}
	if req.MaxDocuments != nil {
		if *req.MaxDocuments < project.DocumentCount {
			return nil, fmt.Errorf("%w: max_documents (%d) is below the current document count (%d)",
				domain.ErrValidation, *req.MaxDocuments, project.DocumentCount)
		}
		project.MaxDocuments = req.MaxDocuments
	}
	if req.IsActive != nil {
		project.IsActive = *req.IsActive
	}
	project.UpdatedAt = time.Now().UTC()

	if err := s.Projects.Update(ctx, project); err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, p.UserID, ActionProjectUpdated, "project", projectID, nil)
	s.Logger.Info("project updated", "id", projectID, "name", project.Name)
	return project, nil
}

// DeleteProject removes the project with its folders and memberships. Documents persist.
func (s *projectService) DeleteProject(ctx context.Context, p models.Principal, projectID string) error {
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return err
	}
	if err := s.Projects.Delete(ctx, projectID); err != nil {
		return err
	}

	s.Activity.Record(ctx, p.UserID, ActionProjectDeleted, "project", projectID, nil)
	s.Logger.Info("project deleted", "id", projectID)
	return nil
}

// AddDocument attaches a visible document. The counter reservation, folder
// upsert and membership insert share one transaction; the document row is
// locked so ingestion cannot finish between reading its status and copying it.
func (s *projectService) AddDocument(ctx context.Context, p models.Principal, projectID, documentID string, folderPath *string) (*corpusModels.ProjectDocument, error) {
	folder, err := normalizeOptionalFolder(folderPath)
	if err != nil {
		return nil, err
	}
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return nil, err
	}
	if err := s.Authorizer.CanReadDocument(ctx, p, documentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		doc, err := s.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		delta := corpusModels.CounterDelta{Documents: 1, Bytes: doc.SizeBytes}
		if doc.Status == corpusModels.StatusIngested {
			delta.Chunks = doc.ChunkCount
		}
		return attachDocument(ctx, s.Deps, p, projectID, doc, folder, delta, s.quotas.ProjectStorageBytes, now)
	})
	if err != nil {
		return nil, err
	}

	membership, err := s.Memberships.Get(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, p.UserID, ActionMembershipAdded, "project", projectID, map[string]interface{}{
		"document_id": documentID,
		"folder_path": folder,
	})
	s.Logger.Info("document added to project",
		"project_id", projectID,
		"document_id", documentID,
		"folder_path", folder,
	)
	return membership, nil
}

// RemoveDocument detaches a document and releases its share of the counters.
// The document itself is untouched.
func (s *projectService) RemoveDocument(ctx context.Context, p models.Principal, projectID, documentID string) error {
	if err := s.Authorizer.CanWriteProject(ctx, p, projectID); err != nil {
		return err
	}

	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		// Serialises with ingestion, which adds chunks to every live membership.
		doc, err := s.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		removed, err := s.Memberships.Remove(ctx, projectID, documentID)
		if err != nil {
			return err
		}
		delta := corpusModels.CounterDelta{Documents: -1, Bytes: -doc.SizeBytes}
		if removed.Status == corpusModels.StatusIngested {
			delta.Chunks = -doc.ChunkCount
		}
		if err := s.Projects.ApplyDelta(ctx, projectID, delta); err != nil {
			return err
		}
		if removed.FolderPath != nil {
			return s.Folders.AdjustCount(ctx, projectID, *removed.FolderPath, -1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Activity.Record(ctx, p.UserID, ActionMembershipRemoved, "project", projectID, map[string]interface{}{
		"document_id": documentID,
	})
	s.Logger.Info("document removed from project", "project_id", projectID, "document_id", documentID)
	return nil
}

// ListProjectDocuments lists memberships with document metadata
func (s *projectService) ListProjectDocuments(ctx context.Context, p models.Principal, projectID string) ([]corpusModels.ProjectDocument, error) {
	if err := s.Authorizer.CanReadProject(ctx, p, projectID); err != nil {
		return nil, err
	}
	members, err := s.Memberships.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []corpusModels.ProjectDocument{}
	}
	return members, nil
}

// ReconcileCounters recomputes the project counters and folder counts from the
// membership edges and overwrites the stored values.
func (s *projectService) ReconcileCounters(ctx context.Context, projectID string) (*corpusModels.Project, error) {
	var project *corpusModels.Project
	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		project, err = s.Projects.GetByID(ctx, projectID)
		if err != nil {
			return err
		}

		members, err := s.Memberships.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		folders, err := s.Folders.GetAllByProject(ctx, projectID)
		if err != nil {
			return err
		}

		counters, folderCounts := countMembers(members)
		if err := s.Projects.SetCounters(ctx, projectID, counters); err != nil {
			return err
		}
		for _, f := range folders {
			if f.DocumentCount == folderCounts[f.Path] {
				continue
			}
			if err := s.Folders.SetCount(ctx, projectID, f.Path, folderCounts[f.Path]); err != nil {
				return err
			}
		}

		if counters.Documents != project.DocumentCount || counters.Chunks != project.ChunkCount || counters.Bytes != project.StorageBytes {
			s.Logger.Warn("project counters drifted",
				"project_id", projectID,
				"documents", fmt.Sprintf("%d→%d", project.DocumentCount, counters.Documents),
				"chunks", fmt.Sprintf("%d→%d", project.ChunkCount, counters.Chunks),
				"bytes", fmt.Sprintf("%d→%d", project.StorageBytes, counters.Bytes),
			)
		}
		project.DocumentCount = counters.Documents
		project.ChunkCount = counters.Chunks
		project.StorageBytes = counters.Bytes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// countMembers derives project counters and direct folder counts from memberships.
// Chunks count only for edges whose document finished ingesting.
func countMembers(members []corpusModels.ProjectDocument) (corpusModels.CounterDelta, map[string]int) {
	var counters corpusModels.CounterDelta
	folders := map[string]int{}
	for _, m := range members {
		counters.Documents++
		counters.Bytes += m.SizeBytes
		if m.Status == corpusModels.StatusIngested {
			counters.Chunks += m.ChunkCount
		}
		if m.FolderPath != nil {
			folders[*m.FolderPath]++
		}
	}
	return counters, folders
}
