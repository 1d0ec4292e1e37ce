package handler

import (
	"log/slog"
	"net/http"

	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/httputil"
)

// FolderHandler handles the folder tree of a project
type FolderHandler struct {
	folderService corpusSvc.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService corpusSvc.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

type folderRequest struct {
	Path string `json:"path"`
}

// CreateFolder creates a folder and its missing ancestors
// POST /api/projects/{id}/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req folderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), p, projectID, req.Path)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// ListFolders returns the project's folder tree
// GET /api/projects/{id}/folders
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tree, err := h.folderService.ListFolders(r.Context(), p, projectID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// DeleteFolder removes a folder subtree; its documents move to the project root
// DELETE /api/projects/{id}/folders?path=a/b
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), p, projectID, r.URL.Query().Get("path")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type moveDocumentRequest struct {
	FolderPath *string `json:"folder_path"` // null moves to the root
}

// MoveDocument reassigns a document's folder inside the project
// PATCH /api/projects/{id}/documents/{documentId}
func (h *FolderHandler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	documentID, ok := pathID(w, r, "documentId")
	if !ok {
		return
	}

	var req moveDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	membership, err := h.folderService.MoveDocument(r.Context(), p, projectID, documentID, req.FolderPath)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, membership)
}
