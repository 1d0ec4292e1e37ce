package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		conflictErr *domain.ConflictError
		stateErr    *domain.StateError
		quotaErr    *domain.QuotaExceededError
	)

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.NewProblem(http.StatusConflict, conflictErr.Error()).
			With("resource_type", conflictErr.ResourceType).
			With("resource_id", conflictErr.ResourceID).
			Write(w)
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &stateErr):
		httputil.NewProblem(http.StatusConflict, stateErr.Error()).With("state", stateErr.State).Write(w)
	case errors.As(err, &quotaErr):
		httputil.NewProblem(http.StatusRequestEntityTooLarge, quotaErr.Error()).
			With("limit", quotaErr.Limit).
			With("used", quotaErr.Used).
			Write(w)
	case errors.Is(err, domain.ErrTransient):
		logger.Warn("collaborator unavailable", "error", err)
		httputil.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// principal returns the authenticated caller, writing a 401 when there is none
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := httputil.GetPrincipal(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
	}
	return p, ok
}

// pathID reads a required path value
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return id, true
}

// validationError marks a request parsing failure as invalid input
func validationError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}
