package handler

import (
	"log/slog"
	"net/http"

	"lexcorpus/internal/config"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/httputil"
)

// ProjectHandler handles project and membership HTTP requests
type ProjectHandler struct {
	projectService   corpusSvc.ProjectService
	duplicateService corpusSvc.DuplicateService
	logger           *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService corpusSvc.ProjectService, duplicateService corpusSvc.DuplicateService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService:   projectService,
		duplicateService: duplicateService,
		logger:           logger,
	}
}

// ListProjects retrieves the caller's projects and their organization's knowledge bases
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(r.Context(), p)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req corpusSvc.CreateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject retrieves a project by ID
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), p, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject updates a project
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req corpusSvc.UpdateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.projectService.UpdateProject(r.Context(), p, id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project; its documents persist
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(r.Context(), p, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addDocumentRequest struct {
	DocumentID string  `json:"document_id"`
	FolderPath *string `json:"folder_path,omitempty"`
}

// AddDocument attaches an existing document to the project
// POST /api/projects/{id}/memberships
func (h *ProjectHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DocumentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	membership, err := h.projectService.AddDocument(r.Context(), p, id, req.DocumentID, req.FolderPath)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, membership)
}

// ListProjectDocuments lists the project's memberships
// GET /api/projects/{id}/documents
func (h *ProjectHandler) ListProjectDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	memberships, err := h.projectService.ListProjectDocuments(r.Context(), p, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, memberships)
}

// RemoveDocument detaches a document from the project
// DELETE /api/projects/{id}/documents/{documentId}
func (h *ProjectHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentId")
	if !ok {
		return
	}

	if err := h.projectService.RemoveDocument(r.Context(), p, id, documentID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckDuplicates reports exact and near-duplicate document pairs
// GET /api/projects/{id}/duplicates?threshold=0.8
func (h *ProjectHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	threshold, err := httputil.QueryFloat(r, "threshold", config.DefaultDuplicateThreshold)
	if err != nil {
		handleError(w, h.logger, validationError(err))
		return
	}

	pairs, err := h.duplicateService.CheckDuplicates(r.Context(), p, id, threshold)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": id,
		"threshold":  threshold,
		"pairs":      pairs,
	})
}
