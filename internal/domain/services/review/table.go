package review

import (
	"context"
	"time"

	"lexcorpus/internal/domain/models"
	"lexcorpus/internal/domain/models/review"
	"lexcorpus/internal/domain/services"
)

// CreateTableRequest starts an extraction run
type CreateTableRequest struct {
	Name        string   `json:"name"`
	TemplateID  string   `json:"template_id"`
	DocumentIDs []string `json:"document_ids"`
	ProjectID   *string  `json:"project_id,omitempty"`
}

// EditCellRequest overrides one cell
type EditCellRequest struct {
	DocumentID string `json:"document_id"`
	ColumnName string `json:"column_name"`
	Value      string `json:"value"`
	Verified   bool   `json:"verified"`
}

// TableService manages review tables and their audited cells
type TableService interface {
	// CreateTable validates the documents, stores the table as created and
	// starts extraction in the background
	CreateTable(ctx context.Context, p models.Principal, req *CreateTableRequest) (*review.Table, error)

	GetTable(ctx context.Context, p models.Principal, tableID string) (*review.Table, error)
	ListTables(ctx context.Context, p models.Principal, projectID *string) ([]review.Table, error)
	DeleteTable(ctx context.Context, p models.Principal, tableID string) error

	// EditCell writes a value, appends history and sets the edit marker in one transaction
	EditCell(ctx context.Context, p models.Principal, tableID string, req *EditCellRequest) (*review.Row, error)

	// ToggleVerified flips a cell's verified flag; it is an edit with the value unchanged
	ToggleVerified(ctx context.Context, p models.Principal, tableID, documentID, columnName string) (*review.Row, error)

	// GetCellHistory lists a cell's audit entries, oldest first
	GetCellHistory(ctx context.Context, p models.Principal, tableID, documentID, columnName string) ([]review.CellHistory, error)

	// ExportTable renders a table as CSV or XLSX
	ExportTable(ctx context.Context, p models.Principal, tableID string, columns []string, format services.ExportFormat) (*services.ExportFile, error)

	// ListStale lists tables stuck in processing since before now-olderThan
	ListStale(ctx context.Context, olderThan time.Duration) ([]review.Table, error)
}

// QueryService answers questions over completed tables
type QueryService interface {
	Query(ctx context.Context, p models.Principal, tableID, question string) (*review.QueryResult, error)
}
