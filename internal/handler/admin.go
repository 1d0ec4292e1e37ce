package handler

import (
	"log/slog"
	"net/http"
	"time"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	reviewSvc "lexcorpus/internal/domain/services/review"
	"lexcorpus/internal/httputil"
)

// defaultStaleAfter is how long a job may sit in processing before it is listed as stale
const defaultStaleAfter = 30 * time.Minute

// AdminHandler exposes corpus-wide aggregates and operator jobs. Admin role only.
type AdminHandler struct {
	adminService     corpusSvc.AdminService
	projectService   corpusSvc.ProjectService
	lifecycleService corpusSvc.LifecycleService
	tableService     reviewSvc.TableService
	logger           *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	adminService corpusSvc.AdminService,
	projectService corpusSvc.ProjectService,
	lifecycleService corpusSvc.LifecycleService,
	tableService reviewSvc.TableService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		projectService:   projectService,
		lifecycleService: lifecycleService,
		tableService:     tableService,
		logger:           logger,
	}
}

// admin returns the caller when they hold the admin role
func (h *AdminHandler) admin(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := principal(w, r)
	if !ok {
		return p, false
	}
	if !p.IsAdmin() {
		handleError(w, h.logger, &domain.ForbiddenError{Message: "admin role required"})
		return p, false
	}
	return p, true
}

// Overview returns corpus-wide counts
// GET /api/admin/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	overview, err := h.adminService.Overview(r.Context(), p)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, overview)
}

// UserStats returns per-owner document totals
// GET /api/admin/users
func (h *AdminHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	stats, err := h.adminService.UserStats(r.Context(), p)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, stats)
}

// ActivityLog returns one page of the activity log, newest first
// GET /api/admin/activity?page=&page_size=
func (h *AdminHandler) ActivityLog(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}
	page, err := httputil.QueryInt(r, "page", 1)
	if err != nil {
		handleError(w, h.logger, validationError(err))
		return
	}
	pageSize, err := httputil.QueryInt(r, "page_size", 50)
	if err != nil {
		handleError(w, h.logger, validationError(err))
		return
	}

	entries, err := h.adminService.ActivityLog(r.Context(), p, page, pageSize)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

type transferRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
}

// TransferOwnership moves documents and projects between users
// POST /api/admin/transfer-ownership
func (h *AdminHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	p, ok := h.admin(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.adminService.TransferOwnership(r.Context(), p, req.FromUserID, req.ToUserID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ReconcileProject recomputes a project's counters from its memberships
// POST /api/admin/projects/{id}/reconcile
func (h *AdminHandler) ReconcileProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projectService.ReconcileCounters(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// StaleJobs lists documents and review tables stuck in processing
// GET /api/admin/stale?older_than=30m
func (h *AdminHandler) StaleJobs(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	olderThan := defaultStaleAfter
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			httputil.RespondError(w, http.StatusBadRequest, "older_than must be a positive duration such as 30m")
			return
		}
		olderThan = d
	}

	documents, err := h.lifecycleService.ListStale(r.Context(), olderThan)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	tables, err := h.tableService.ListStale(r.Context(), olderThan)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	tableIDs := make([]string, 0, len(tables))
	for _, t := range tables {
		tableIDs = append(tableIDs, t.ID)
	}
	if documents == nil {
		documents = []string{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"older_than":    olderThan.String(),
		"document_ids":  documents,
		"review_tables": tableIDs,
	})
}
