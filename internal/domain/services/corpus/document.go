package corpus

import (
	"context"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/services"
)

// DocumentService handles the scope and storage layer
type DocumentService interface {
	// CreateDocument stores the bytes, records the document as pending and queues ingestion.
	// It returns before ingestion runs.
	CreateDocument(ctx context.Context, p models.Principal, req *CreateDocumentRequest) (*corpus.Document, error)

	// GetDocument retrieves a visible document
	GetDocument(ctx context.Context, p models.Principal, documentID string) (*corpus.Document, error)

	// ListDocuments returns one page of visible documents
	ListDocuments(ctx context.Context, p models.Principal, opts *corpus.ListOptions) (*corpus.DocumentPage, error)

	// DeleteDocument hard-deletes a document; deleting a missing document succeeds
	DeleteDocument(ctx context.Context, p models.Principal, documentID string) error

	// ResubmitDocument creates a new pending document from a failed document's bytes
	ResubmitDocument(ctx context.Context, p models.Principal, documentID string) (*corpus.Document, error)

	// ExportDocuments renders the visible documents matching opts as CSV or XLSX
	ExportDocuments(ctx context.Context, p models.Principal, opts *corpus.ListOptions, columns []string, format services.ExportFormat) (*services.ExportFile, error)
}

// CreateDocumentRequest is an upload
type CreateDocumentRequest struct {
	Name         string       `json:"name"`
	Content      []byte       `json:"-"`
	ContentType  string       `json:"content_type"`
	Scope        corpus.Scope `json:"scope"`
	Collection   string       `json:"collection"`
	GroupIDs     []string     `json:"group_ids,omitempty"` // Exactly one when scope=group
	Jurisdiction *string      `json:"jurisdiction,omitempty"`
	SourceID     *string      `json:"source_id,omitempty"`

	// Text is pre-derived text; when set, ingestion skips conversion
	Text *string `json:"text,omitempty"`

	// Optional project placement, applied in the same transaction
	ProjectID  *string `json:"project_id,omitempty"`
	FolderPath *string `json:"folder_path,omitempty"`
}

// IngestionQueue accepts document ids for background ingestion
type IngestionQueue interface {
	Enqueue(documentID string)
}
