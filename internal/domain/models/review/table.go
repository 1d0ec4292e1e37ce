package review

import (
	"time"
)

// TableStatus mirrors the document lifecycle for extraction jobs.
type TableStatus string

const (
	TableCreated    TableStatus = "created"
	TableProcessing TableStatus = "processing"
	TableCompleted  TableStatus = "completed"
	TableFailed     TableStatus = "failed"
)

// Table is a structured-extraction job applying a template to a document set.
type Table struct {
	ID                 string      `json:"id" db:"id"`
	Name               string      `json:"name" db:"name"`
	TemplateID         string      `json:"template_id" db:"template_id"`
	ProjectID          *string     `json:"project_id,omitempty" db:"project_id"`
	OwnerID            string      `json:"owner_id" db:"owner_id"`
	DocumentIDs        []string    `json:"document_ids" db:"document_ids"`
	Status             TableStatus `json:"status" db:"status"`
	TotalDocuments     int         `json:"total_documents" db:"total_documents"`
	ProcessedDocuments int         `json:"processed_documents" db:"processed_documents"`
	AccuracyScore      *float64    `json:"accuracy_score,omitempty" db:"accuracy_score"`
	ErrorMessage       *string     `json:"error_message,omitempty" db:"error_message"`
	Rows               []Row       `json:"rows,omitempty"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// Row holds the extracted cells of one document.
type Row struct {
	TableID      string               `json:"table_id" db:"table_id"`
	DocumentID   string               `json:"document_id" db:"document_id"`
	DocumentName string               `json:"document_name" db:"document_name"`
	Columns      map[string]string    `json:"columns" db:"columns"`
	ColumnMeta   ColumnMeta           `json:"column_meta" db:"column_meta"`
	Edits        map[string]*CellEdit `json:"edits,omitempty" db:"edits"`
	UpdatedAt    time.Time            `json:"updated_at" db:"updated_at"`
}

// ColumnMeta carries per-column extraction metadata, keyed by column name.
type ColumnMeta struct {
	Confidence    map[string]float64 `json:"confidence"`
	SourceExcerpt map[string]string  `json:"source_excerpt"`
	Error         map[string]string  `json:"error,omitempty"` // Per-cell extraction failures
}

// NewColumnMeta returns a ColumnMeta with all maps allocated.
func NewColumnMeta() ColumnMeta {
	return ColumnMeta{
		Confidence:    map[string]float64{},
		SourceExcerpt: map[string]string{},
		Error:         map[string]string{},
	}
}

// CellEdit marks a cell overridden by a human.
type CellEdit struct {
	EditedBy string    `json:"edited_by"`
	EditedAt time.Time `json:"edited_at"`
	Verified bool      `json:"verified"`
}

// CellHistory is one append-only audit entry for a cell.
type CellHistory struct {
	ID         int64     `json:"id" db:"id"`
	TableID    string    `json:"table_id" db:"table_id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	ColumnName string    `json:"column_name" db:"column_name"`
	OldValue   *string   `json:"old_value" db:"old_value"`
	NewValue   string    `json:"new_value" db:"new_value"`
	Verified   bool      `json:"verified" db:"verified"`
	ChangedBy  string    `json:"changed_by" db:"changed_by"`
	ChangedAt  time.Time `json:"changed_at" db:"changed_at"`
}

// CellResult is the outcome of extracting one (document, column) cell.
type CellResult struct {
	Value         string
	Confidence    float64
	SourceExcerpt string
	Err           error
}
