package services

import (
	"context"
	"io"
	"time"

	"lexcorpus/internal/domain/models/corpus"
)

// ContentStore keeps raw document bytes and derived text.
type ContentStore interface {
	// Put stores size bytes read from r under key
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get reads the object at key; a missing key returns domain.ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object at key; a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// IndexFilter restricts a search to what the caller may see.
type IndexFilter struct {
	Scope      corpus.Scope
	Collection string
	GroupID    string
	Visibility corpus.Visibility
}

// ChunkIndexer is the retrieval service that chunks and embeds ingested documents.
type ChunkIndexer interface {
	// IndexDocument chunks text and writes the chunks; returns the chunk count
	IndexDocument(ctx context.Context, doc *corpus.Document, text string) (int, error)

	// UpdateScope rewrites the scope filter attributes of a document's chunks
	UpdateScope(ctx context.Context, doc *corpus.Document) error

	// PurgeDocument removes every chunk of a document
	PurgeDocument(ctx context.Context, documentID string) error

	// SearchDocumentIDs returns document ids in relevance order
	SearchDocumentIDs(ctx context.Context, query string, filter IndexFilter, limit int) ([]string, error)
}

// Event is a push update about a resource's progress.
type Event struct {
	Type       string    `json:"type"` // document.status, review_table.status, review_table.progress
	ResourceID string    `json:"resource_id"`
	Status     string    `json:"status"`
	Processed  int       `json:"processed,omitempty"`
	Total      int       `json:"total,omitempty"`
	At         time.Time `json:"at"`
}

// EventPublisher delivers push updates to subscribed clients.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// ActivityRecorder appends to the activity log. Failures are logged, not returned.
type ActivityRecorder interface {
	Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]interface{})
}
