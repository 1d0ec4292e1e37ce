package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
)

// fakeLifecycle records Ingest calls and lets the first claim of each id win.
type fakeLifecycle struct {
	mu       sync.Mutex
	claimed  map[string]int
	calls    int
	pending  []string
	swept    int
	sweepErr error
	done     chan string
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{claimed: map[string]int{}, done: make(chan string, 16)}
}

func (f *fakeLifecycle) Ingest(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	f.calls++
	f.claimed[id]++
	won := f.claimed[id] == 1
	f.mu.Unlock()
	f.done <- id
	return won, nil
}

func (f *fakeLifecycle) ExtendTTL(context.Context, models.Principal, string, int) (*corpusModels.Document, error) {
	return nil, nil
}

func (f *fakeLifecycle) PromoteDocument(context.Context, models.Principal, string) (*corpusModels.ScopeChange, error) {
	return nil, nil
}

func (f *fakeLifecycle) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept++
	return 2, f.sweepErr
}

func (f *fakeLifecycle) PendingDocumentIDs(context.Context) ([]string, error) {
	return f.pending, nil
}

func (f *fakeLifecycle) ListStale(context.Context, time.Duration) ([]string, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestionPool_ProcessesQueuedDocuments(t *testing.T) {
	lifecycle := newFakeLifecycle()
	pool := NewIngestionPool(lifecycle, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 3)

	pool.Enqueue("doc-1")
	pool.Enqueue("doc-2")
	pool.Enqueue("doc-1")

	seen := map[string]int{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-lifecycle.done:
			seen[id]++
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for workers")
		}
	}
	cancel()
	pool.Wait()

	if seen["doc-1"] != 2 || seen["doc-2"] != 1 {
		t.Errorf("unexpected ingest calls: %v", seen)
	}
}

// blockingLifecycle holds Ingest until released and reports the context
// error it observed at that point.
type blockingLifecycle struct {
	*fakeLifecycle
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (b *blockingLifecycle) Ingest(ctx context.Context, id string) (bool, error) {
	close(b.started)
	<-b.release
	b.ctxErr <- ctx.Err()
	return true, nil
}

func TestIngestionPool_ShutdownMidIngest(t *testing.T) {
	lifecycle := &blockingLifecycle{
		fakeLifecycle: newFakeLifecycle(),
		started:       make(chan struct{}),
		release:       make(chan struct{}),
		ctxErr:        make(chan error, 1),
	}
	pool := NewIngestionPool(lifecycle, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)
	pool.Enqueue("doc-1")

	select {
	case <-lifecycle.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the document")
	}
	cancel()
	close(lifecycle.release)
	pool.Wait()

	if err := <-lifecycle.ctxErr; err != nil {
		t.Errorf("in-flight ingestion saw %v after shutdown, want a live context", err)
	}
}

func TestIngestionPool_EnqueueNeverBlocks(t *testing.T) {
	pool := NewIngestionPool(newFakeLifecycle(), 1, discardLogger())

	finished := make(chan struct{})
	go func() {
		pool.Enqueue("a")
		pool.Enqueue("b") // dropped, queue is full and no worker runs
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	if len(pool.ch) != 1 {
		t.Errorf("queue length = %d, want 1", len(pool.ch))
	}
}

func TestIngestionPool_RequeuePending(t *testing.T) {
	lifecycle := newFakeLifecycle()
	lifecycle.pending = []string{"p1", "p2"}
	pool := NewIngestionPool(lifecycle, 4, discardLogger())

	n, err := pool.RequeuePending(context.Background())
	if err != nil {
		t.Fatalf("RequeuePending: %v", err)
	}
	if n != 2 || len(pool.ch) != 2 {
		t.Errorf("requeued %d, queue length %d; want 2 and 2", n, len(pool.ch))
	}
}

func TestTTLSweeper_RunOnce(t *testing.T) {
	lifecycle := newFakeLifecycle()
	sweeper := NewTTLSweeper(lifecycle, time.Hour, discardLogger())

	removed, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if removed != 2 || lifecycle.swept != 1 {
		t.Errorf("removed=%d swept=%d", removed, lifecycle.swept)
	}
}
