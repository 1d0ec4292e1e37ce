package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"lexcorpus/internal/config"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/export"
	"lexcorpus/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	documentService  corpusSvc.DocumentService
	lifecycleService corpusSvc.LifecycleService
	logger           *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService corpusSvc.DocumentService, lifecycleService corpusSvc.LifecycleService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService:  documentService,
		lifecycleService: lifecycleService,
		logger:           logger,
	}
}

// CreateDocument uploads a document and queues its ingestion
// POST /api/documents (multipart/form-data)
// POST /api/projects/{id}/documents
//
// Form fields: file, scope, collection, group_id, jurisdiction, source_id,
// text, folder_path and project_id (ignored on the project route).
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", config.MaxUploadBytes))
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "expected a multipart/form-data upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(content) > config.MaxUploadBytes {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", config.MaxUploadBytes))
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}

	req := corpusSvc.CreateDocumentRequest{
		Name:         name,
		Content:      content,
		ContentType:  uploadContentType(header.Header.Get("Content-Type"), content),
		Scope:        corpusModels.Scope(strings.TrimSpace(r.FormValue("scope"))),
		Collection:   strings.TrimSpace(r.FormValue("collection")),
		GroupIDs:     formList(r, "group_id"),
		Jurisdiction: formString(r, "jurisdiction"),
		SourceID:     formString(r, "source_id"),
		FolderPath:   formString(r, "folder_path"),
		ProjectID:    formString(r, "project_id"),
	}
	if text := r.FormValue("text"); strings.TrimSpace(text) != "" {
		req.Text = &text
	}
	if projectID := r.PathValue("id"); projectID != "" {
		req.ProjectID = &projectID
	}

	doc, err := h.documentService.CreateDocument(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, doc)
}

// GetDocument retrieves a document's metadata
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), p, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ListDocuments returns one page of visible documents
// GET /api/documents?scope=&group_id=&collection=&status=&search=&page=&page_size=
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	page, err := h.documentService.ListDocuments(r.Context(), p, opts)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// DeleteDocument hard-deletes a document
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.documentService.DeleteDocument(r.Context(), p, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResubmitDocument creates a new pending document from a failed one
// POST /api/documents/{id}/resubmit
func (h *DocumentHandler) ResubmitDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.ResubmitDocument(r.Context(), p, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, doc)
}

type extendTTLRequest struct {
	Days int `json:"days"`
}

// ExtendTTL pushes back the expiry of a local document
// POST /api/documents/{id}/extend
func (h *DocumentHandler) ExtendTTL(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req extendTTLRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.lifecycleService.ExtendTTL(r.Context(), p, id, req.Days)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// PromoteDocument moves a local document to private scope
// POST /api/documents/{id}/promote
func (h *DocumentHandler) PromoteDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	change, err := h.lifecycleService.PromoteDocument(r.Context(), p, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, change)
}

// ExportDocuments renders the visible documents as CSV or XLSX
// GET /api/documents/export?format=csv|xlsx&columns=a,b&<list filters>
func (h *DocumentHandler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	file, err := h.documentService.ExportDocuments(r.Context(), p, opts, httputil.QueryList(r, "columns"), format)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondFile(w, file)
}

// HealthCheck returns server health status
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// listOptions reads the listing filters from the query string
func listOptions(r *http.Request) (*corpusModels.ListOptions, error) {
	page, err := httputil.QueryInt(r, "page", 1)
	if err != nil {
		return nil, validationError(err)
	}
	pageSize, err := httputil.QueryInt(r, "page_size", corpusModels.DefaultPageSize)
	if err != nil {
		return nil, validationError(err)
	}

	q := r.URL.Query()
	return &corpusModels.ListOptions{
		Scope:      corpusModels.Scope(strings.TrimSpace(q.Get("scope"))),
		GroupID:    strings.TrimSpace(q.Get("group_id")),
		Collection: strings.TrimSpace(q.Get("collection")),
		Status:     corpusModels.Status(strings.TrimSpace(q.Get("status"))),
		Search:     strings.TrimSpace(q.Get("search")),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// uploadContentType prefers the part's declared type and sniffs otherwise
func uploadContentType(declared string, content []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(content))
	return mediaType
}

func formString(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil
	}
	return &v
}

func formList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.MultipartForm.Value[name] {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
