package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/services"
	"lexcorpus/internal/events"
	"lexcorpus/internal/handler/sse"
	"lexcorpus/internal/httputil"
)

// EventSource delivers published events until ctx is done
type EventSource interface {
	Subscribe(ctx context.Context, channels ...string) (<-chan services.Event, error)
}

// EventsHandler streams document and review table updates over SSE
type EventsHandler struct {
	source     EventSource
	authorizer services.ResourceAuthorizer
	config     *sse.Config
	logger     *slog.Logger
}

// NewEventsHandler creates a new events handler. A nil source disables the stream.
func NewEventsHandler(source EventSource, authorizer services.ResourceAuthorizer, config *sse.Config, logger *slog.Logger) *EventsHandler {
	if config == nil {
		config = sse.DefaultConfig()
	}
	return &EventsHandler{
		source:     source,
		authorizer: authorizer,
		config:     config,
		logger:     logger,
	}
}

// StreamEvents relays the events the caller may see
// GET /api/events?resource_id=a,b
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if h.source == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "push updates are not configured")
		return
	}

	ctx := r.Context()
	feed, err := h.source.Subscribe(ctx, events.ChannelDocuments, events.ChannelReviewTables)
	if err != nil {
		h.logger.Error("event subscription failed", "user_id", p.UserID, "error", err)
		httputil.RespondError(w, http.StatusServiceUnavailable, "push updates unavailable")
		return
	}

	var only map[string]bool
	if ids := httputil.QueryList(r, "resource_id"); len(ids) > 0 {
		only = make(map[string]bool, len(ids))
		for _, id := range ids {
			only[id] = true
		}
	}

	stream, err := sse.Open(w, uuid.NewString())
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger := h.logger.With("stream_id", stream.ID(), "user_id", p.UserID)
	if err := stream.Retry(h.config.RetryAfter); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gone := sse.Heartbeat(ctx, stream, h.config.KeepAliveInterval, logger)

	logger.Debug("event stream opened")
	defer logger.Debug("event stream closed")

	allowed := map[string]bool{}
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case event, ok := <-feed:
			if !ok {
				return
			}
			if only != nil && !only[event.ResourceID] {
				continue
			}
			if !h.visible(ctx, p, event, allowed) {
				continue
			}
			if err := stream.Send(event.Type, event); err != nil {
				logger.Debug("event write failed", "error", err)
				return
			}
		}
	}
}

// visible checks the caller may see the event's resource. Decisions are
// cached for the lifetime of the stream.
func (h *EventsHandler) visible(ctx context.Context, p models.Principal, event services.Event, cache map[string]bool) bool {
	isTable := strings.HasPrefix(event.Type, "review_table.")
	key := "document:" + event.ResourceID
	if isTable {
		key = "table:" + event.ResourceID
	}
	if ok, seen := cache[key]; seen {
		return ok
	}

	var err error
	if isTable {
		err = h.authorizer.CanAccessTable(ctx, p, event.ResourceID)
	} else {
		err = h.authorizer.CanReadDocument(ctx, p, event.ResourceID)
	}
	cache[key] = err == nil
	return err == nil
}
