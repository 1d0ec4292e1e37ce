// Package corpus implements the document, lifecycle, project, folder,
// duplicate and admin services.
package corpus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lexcorpus/internal/domain"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/repositories"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/domain/services"
	"lexcorpus/internal/service/corpus/converter"
)

// EventDocumentStatus is published on every document status change.
const EventDocumentStatus = "document.status"

// Deps bundles the collaborators shared by the document and lifecycle services.
type Deps struct {
	Documents   corpusRepo.DocumentRepository
	Projects    corpusRepo.ProjectRepository
	Folders     corpusRepo.FolderRepository
	Memberships corpusRepo.MembershipRepository
	TxManager   repositories.TransactionManager
	Store       services.ContentStore
	Indexer     services.ChunkIndexer
	Publisher   services.EventPublisher
	Activity    services.ActivityRecorder
	Authorizer  services.ResourceAuthorizer
	Converters  *converter.Registry
	Logger      *slog.Logger
}

// publishStatus pushes a document status event. Delivery failures are logged only.
func (d *Deps) publishStatus(ctx context.Context, documentID string, status corpusModels.Status) {
	err := d.Publisher.Publish(ctx, services.Event{
		Type:       EventDocumentStatus,
		ResourceID: documentID,
		Status:     string(status),
		At:         time.Now().UTC(),
	})
	if err != nil {
		d.Logger.Warn("failed to publish document event",
			"document_id", documentID,
			"status", status,
			"error", err,
		)
	}
}

// removeDocument hard-deletes a document and decrements the counters of every
// project that held it in the same transaction. Index chunks and stored bytes
// are purged afterwards on a best-effort basis. Returns false when the
// document was already gone.
func (d *Deps) removeDocument(ctx context.Context, documentID, actorID, action string) (bool, error) {
	var (
		doc     *corpusModels.Document
		deleted bool
	)
	err := d.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = d.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}

		memberships, err := d.Memberships.ListByDocument(ctx, documentID)
		if err != nil {
			return err
		}
		for _, m := range memberships {
			delta := corpusModels.CounterDelta{Documents: -1, Bytes: -doc.SizeBytes}
			if m.Status == corpusModels.StatusIngested {
				delta.Chunks = -doc.ChunkCount
			}
			if err := d.Projects.ApplyDelta(ctx, m.ProjectID, delta); err != nil {
				return err
			}
			if m.FolderPath != nil {
				if err := d.Folders.AdjustCount(ctx, m.ProjectID, *m.FolderPath, -1); err != nil {
					return err
				}
			}
		}

		deleted, err = d.Documents.Delete(ctx, documentID)
		return err
	})
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	if err := d.Indexer.PurgeDocument(ctx, documentID); err != nil {
		d.Logger.Warn("failed to purge index chunks", "document_id", documentID, "error", err)
	}
	for _, key := range []string{doc.RawKey(), doc.TextKey()} {
		if err := d.Store.Delete(ctx, key); err != nil {
			d.Logger.Warn("failed to delete stored content", "document_id", documentID, "key", key, "error", err)
		}
	}

	d.Activity.Record(ctx, actorID, action, "document", documentID, map[string]interface{}{
		"name":  doc.Name,
		"scope": doc.Scope,
	})
	d.Logger.Info("document deleted",
		"id", documentID,
		"scope", doc.Scope,
		"actor", actorID,
	)
	return true, nil
}
