package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/service/corpus/converter"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// lifecycleService implements corpusSvc.LifecycleService
type lifecycleService struct {
	*Deps
	now func() time.Time
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(deps *Deps) corpusSvc.LifecycleService {
	return &lifecycleService{
		Deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Ingest claims a pending document and drives it to ingested or failed.
// Collaborator failures are terminal: the document is marked failed and no
// error is returned. Errors are returned only when the state itself cannot be
// recorded.
func (s *lifecycleService) Ingest(ctx context.Context, documentID string) (bool, error) {
	claimed, err := s.Documents.Claim(ctx, documentID)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.Logger.Debug("document not claimable, skipping", "id", documentID)
		return false, nil
	}

	s.Logger.Info("document claimed", "id", documentID)
	if err := s.Memberships.MarkDocumentStatus(ctx, documentID, corpusModels.StatusProcessing, nil, s.now()); err != nil {
		s.Logger.Warn("failed to mark memberships processing", "id", documentID, "error", err)
	}
	s.publishStatus(ctx, documentID, corpusModels.StatusProcessing)

	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return true, s.fail(ctx, documentID, fmt.Errorf("load document: %w", err))
	}

	text, err := s.documentText(ctx, doc)
	if err != nil {
		return true, s.fail(ctx, documentID, err)
	}

	chunks, err := s.Indexer.IndexDocument(ctx, doc, text)
	if err != nil {
		return true, s.fail(ctx, documentID, fmt.Errorf("index chunks: %w", err))
	}

	ingestedAt := s.now()
	var expiresAt *time.Time
	if doc.Scope == corpusModels.ScopeLocal {
		t := ingestedAt.Add(config.LocalDocumentTTL)
		expiresAt = &t
	}

	// A claimed document must leave processing even if the caller gives up.
	ctx = context.WithoutCancel(ctx)
	var marked bool
	err = s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		marked, err = s.Documents.MarkIngested(ctx, documentID, chunks, ingestedAt, expiresAt)
		if err != nil || !marked {
			return err
		}
		memberships, err := s.Memberships.ListByDocument(ctx, documentID)
		if err != nil {
			return err
		}
		for _, m := range memberships {
			if m.Status.Terminal() {
				continue
			}
			if err := s.Projects.ApplyDelta(ctx, m.ProjectID, corpusModels.CounterDelta{Chunks: chunks}); err != nil {
				return err
			}
		}
		return s.Memberships.MarkDocumentStatus(ctx, documentID, corpusModels.StatusIngested, nil, ingestedAt)
	})
	if err != nil {
		return true, fmt.Errorf("record ingestion of %s: %w", documentID, err)
	}
	if !marked {
		// Deleted or otherwise moved on while we were indexing.
		s.Logger.Warn("document left processing during ingestion", "id", documentID)
		if err := s.Indexer.PurgeDocument(ctx, documentID); err != nil {
			s.Logger.Warn("failed to purge orphaned chunks", "id", documentID, "error", err)
		}
		return true, nil
	}

	s.publishStatus(ctx, documentID, corpusModels.StatusIngested)
	s.Logger.Info("document ingested",
		"id", documentID,
		"chunks", chunks,
		"scope", doc.Scope,
		"expires_at", expiresAt,
	)
	return true, nil
}

// documentText returns the pre-derived text, deriving and storing it from the
// raw bytes when none was supplied.
func (s *lifecycleService) documentText(ctx context.Context, doc *corpusModels.Document) (string, error) {
	stored, err := s.Store.Get(ctx, doc.TextKey())
	if err == nil {
		return string(stored), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("load derived text: %w", err)
	}

	raw, err := s.Store.Get(ctx, doc.RawKey())
	if err != nil {
		return "", fmt.Errorf("load document bytes: %w", err)
	}
	text, err := s.Converters.Convert(ctx, doc.Name, doc.ContentType, raw)
	if err != nil {
		if errors.Is(err, converter.ErrUnsupported) {
			return "", fmt.Errorf("no text derivation available for %s; submit derived text with the upload", doc.ContentType)
		}
		return "", fmt.Errorf("derive text: %w", err)
	}

	if err := s.Store.Put(ctx, doc.TextKey(), strings.NewReader(text), int64(len(text)), "text/plain; charset=utf-8"); err != nil {
		s.Logger.Warn("failed to store derived text", "id", doc.ID, "error", err)
	}
	return text, nil
}

// fail records a terminal failure. The returned error is non-nil only if the
// failure itself could not be recorded.
func (s *lifecycleService) fail(ctx context.Context, documentID string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	message := cause.Error()
	s.Logger.Warn("document ingestion failed", "id", documentID, "error", message)

	var marked bool
	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		marked, err = s.Documents.MarkFailed(ctx, documentID, message)
		if err != nil || !marked {
			return err
		}
		return s.Memberships.MarkDocumentStatus(ctx, documentID, corpusModels.StatusFailed, &message, s.now())
	})
	if err != nil {
		return fmt.Errorf("record failure of %s: %w", documentID, err)
	}
	if marked {
		s.publishStatus(ctx, documentID, corpusModels.StatusFailed)
	}
	return nil
}

// ExtendTTL pushes expires_at of an ingested local document forward by days,
// counted from the later of now and the current expiry.
func (s *lifecycleService) ExtendTTL(ctx context.Context, p models.Principal, documentID string, days int) (*corpusModels.Document, error) {
	if err := validation.Validate(days,
		validation.Min(config.MinTTLExtensionDays),
		validation.Max(config.MaxTTLExtensionDays),
	); err != nil {
		return nil, fmt.Errorf("%w: days: %v", domain.ErrValidation, err)
	}
	if err := s.Authorizer.CanWriteDocument(ctx, p, documentID); err != nil {
		return nil, err
	}

	var doc *corpusModels.Document
	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if doc.Scope != corpusModels.ScopeLocal {
			return domain.NewStateError(string(doc.Scope), "only local documents have a TTL")
		}
		if doc.Status != corpusModels.StatusIngested {
			return domain.NewStateError(string(doc.Status), "TTL can only be extended once the document is ingested")
		}

		base := s.now()
		if doc.ExpiresAt != nil && doc.ExpiresAt.After(base) {
			base = *doc.ExpiresAt
		}
		expiresAt := base.AddDate(0, 0, days)
		if err := s.Documents.UpdateExpiry(ctx, documentID, expiresAt); err != nil {
			return err
		}
		doc.ExpiresAt = &expiresAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Activity.Record(ctx, p.UserID, ActionDocumentExtended, "document", documentID, map[string]interface{}{
		"days":       days,
		"expires_at": doc.ExpiresAt,
	})
	s.Logger.Info("document TTL extended", "id", documentID, "days", days, "expires_at", doc.ExpiresAt)
	return doc, nil
}

// PromoteDocument turns an ingested local document into a private one.
// Promoting an already private document is a no-op.
func (s *lifecycleService) PromoteDocument(ctx context.Context, p models.Principal, documentID string) (*corpusModels.ScopeChange, error) {
	if err := s.Authorizer.CanWriteDocument(ctx, p, documentID); err != nil {
		return nil, err
	}

	var change *corpusModels.ScopeChange
	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		doc, err := s.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		switch {
		case doc.Scope == corpusModels.ScopePrivate:
			change = &corpusModels.ScopeChange{Document: doc, OldScope: doc.Scope, NewScope: doc.Scope}
			return nil
		case doc.Scope != corpusModels.ScopeLocal:
			return domain.NewStateError(string(doc.Scope), "only local documents can be promoted")
		case doc.Status != corpusModels.StatusIngested:
			return domain.NewStateError(string(doc.Status), "only ingested documents can be promoted")
		}

		if err := s.Documents.UpdateScope(ctx, documentID, corpusModels.ScopePrivate, nil); err != nil {
			return err
		}
		old := doc.Scope
		doc.Scope = corpusModels.ScopePrivate
		doc.ExpiresAt = nil
		change = &corpusModels.ScopeChange{Document: doc, OldScope: old, NewScope: doc.Scope}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if change.OldScope == change.NewScope {
		return change, nil
	}

	if err := s.Indexer.UpdateScope(ctx, change.Document); err != nil {
		s.Logger.Warn("failed to update index scope", "id", documentID, "error", err)
	}
	s.Activity.Record(ctx, p.UserID, ActionDocumentPromoted, "document", documentID, map[string]interface{}{
		"old_scope": change.OldScope,
		"new_scope": change.NewScope,
	})
	s.Logger.Info("document promoted", "id", documentID, "old_scope", change.OldScope, "new_scope", change.NewScope)
	return change, nil
}

// SweepExpired deletes every local document whose expiry has passed.
// Running it concurrently or repeatedly is safe: deletes are idempotent.
func (s *lifecycleService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.Documents.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, err := s.removeDocument(ctx, id, SystemActor, ActionDocumentExpired)
		if err != nil {
			s.Logger.Error("failed to delete expired document", "id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.Logger.Info("expired documents swept", "count", removed, "candidates", len(ids))
	}
	return removed, errors.Join(errs...)
}

// PendingDocumentIDs lists documents still waiting for ingestion
func (s *lifecycleService) PendingDocumentIDs(ctx context.Context) ([]string, error) {
	return s.Documents.ListIDsByStatus(ctx, corpusModels.StatusPending, s.now())
}

// ListStale lists documents stuck in processing for longer than olderThan
func (s *lifecycleService) ListStale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("%w: older_than must be positive", domain.ErrValidation)
	}
	return s.Documents.ListIDsByStatus(ctx, corpusModels.StatusProcessing, s.now().Add(-olderThan))
}
