// Package jobs runs the background work of the corpus: the ingestion worker
// pool and the periodic TTL sweep.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	corpusSvc "lexcorpus/internal/domain/services/corpus"
)

// DefaultQueueCapacity is the buffer of the ingestion queue.
const DefaultQueueCapacity = 1024

// IngestionPool feeds queued document ids to a fixed set of workers.
// Duplicate or stale ids are harmless: a document is processed only by the
// worker that wins its claim.
type IngestionPool struct {
	lifecycle corpusSvc.LifecycleService
	ch        chan string
	logger    *slog.Logger
	wg        sync.WaitGroup
}

var _ corpusSvc.IngestionQueue = (*IngestionPool)(nil)

// NewIngestionPool creates a pool with a buffered queue
func NewIngestionPool(lifecycle corpusSvc.LifecycleService, capacity int, logger *slog.Logger) *IngestionPool {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &IngestionPool{
		lifecycle: lifecycle,
		ch:        make(chan string, capacity),
		logger:    logger,
	}
}

// Enqueue queues a document without blocking. When the queue is full the id
// is dropped; the document stays pending and the next requeue picks it up.
func (p *IngestionPool) Enqueue(documentID string) {
	select {
	case p.ch <- documentID:
	default:
		p.logger.Warn("ingestion queue full, document left pending", "document_id", documentID)
	}
}

// Start launches workers goroutines that take ids until ctx is cancelled.
func (p *IngestionPool) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			p.work(ctx, worker)
		}(i)
	}
	p.logger.Info("ingestion workers started", "workers", workers, "capacity", cap(p.ch))
}

// Wait blocks until every worker has returned.
func (p *IngestionPool) Wait() {
	p.wg.Wait()
}

func (p *IngestionPool) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.ch:
			// Shutdown stops the intake; a job already taken runs to completion.
			claimed, err := p.lifecycle.Ingest(context.WithoutCancel(ctx), id)
			if err != nil {
				p.logger.Error("ingestion failed", "worker", worker, "document_id", id, "error", err)
				continue
			}
			if claimed {
				p.logger.Debug("ingestion finished", "worker", worker, "document_id", id)
			}
		}
	}
}

// RequeuePending enqueues every document still pending. Called at startup and
// periodically so ids dropped from a full queue or lost in a restart are picked up.
func (p *IngestionPool) RequeuePending(ctx context.Context) (int, error) {
	ids, err := p.lifecycle.PendingDocumentIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		p.Enqueue(id)
	}
	if len(ids) > 0 {
		p.logger.Info("requeued pending documents", "count", len(ids))
	}
	return len(ids), nil
}

// StartRequeue runs RequeuePending every interval until ctx is cancelled.
func (p *IngestionPool) StartRequeue(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.RequeuePending(ctx); err != nil {
					p.logger.Error("requeue pending documents", "error", err)
				}
			}
		}
	}()
}
