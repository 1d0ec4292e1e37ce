package handler

import (
	"log/slog"
	"net/http"

	reviewSvc "lexcorpus/internal/domain/services/review"
	"lexcorpus/internal/export"
	"lexcorpus/internal/httputil"
)

// ReviewHandler handles review tables, their cells and questions over them
type ReviewHandler struct {
	tableService reviewSvc.TableService
	queryService reviewSvc.QueryService
	logger       *slog.Logger
}

// NewReviewHandler creates a new review table handler
func NewReviewHandler(tableService reviewSvc.TableService, queryService reviewSvc.QueryService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		tableService: tableService,
		queryService: queryService,
		logger:       logger,
	}
}

// CreateTable stores a table and starts extraction in the background
// POST /api/review-tables
func (h *ReviewHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req reviewSvc.CreateTableRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := h.tableService.CreateTable(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, table)
}

// ListTables lists the caller's tables, optionally inside one project
// GET /api/review-tables?project_id=
func (h *ReviewHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	tables, err := h.tableService.ListTables(r.Context(), p, httputil.QueryString(r, "project_id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tables)
}

// GetTable returns a table with its rows
// GET /api/review-tables/{id}
func (h *ReviewHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	table, err := h.tableService.GetTable(r.Context(), p, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, table)
}

// DeleteTable removes a table with its rows and history
// DELETE /api/review-tables/{id}
func (h *ReviewHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tableService.DeleteTable(r.Context(), p, id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EditCell overrides one cell and records the change
// PATCH /api/review-tables/{id}/cells
func (h *ReviewHandler) EditCell(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req reviewSvc.EditCellRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.tableService.EditCell(r.Context(), p, id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, row)
}

type cellRequest struct {
	DocumentID string `json:"document_id"`
	ColumnName string `json:"column_name"`
}

// ToggleVerified flips a cell's verified flag
// POST /api/review-tables/{id}/cells/verify
func (h *ReviewHandler) ToggleVerified(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req cellRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.tableService.ToggleVerified(r.Context(), p, id, req.DocumentID, req.ColumnName)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, row)
}

// GetCellHistory lists the audit entries of one cell, oldest first
// GET /api/review-tables/{id}/cells/history?document_id=&column=
func (h *ReviewHandler) GetCellHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()

	history, err := h.tableService.GetCellHistory(r.Context(), p, id, q.Get("document_id"), q.Get("column"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, history)
}

// ExportTable renders a table as CSV or XLSX
// GET /api/review-tables/{id}/export?format=csv|xlsx&columns=a,b
func (h *ReviewHandler) ExportTable(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	file, err := h.tableService.ExportTable(r.Context(), p, id, httputil.QueryList(r, "columns"), format)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondFile(w, file)
}

type queryRequest struct {
	Question string `json:"question"`
}

// Query answers a question from a completed table's cells
// POST /api/review-tables/{id}/query
func (h *ReviewHandler) Query(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req queryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queryService.Query(r.Context(), p, id, req.Question)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
