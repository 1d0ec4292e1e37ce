package review

import (
	"context"
	"time"

	"lexcorpus/internal/domain/models/review"
)

// TableRepository defines data access operations for review tables, rows and cell history
type TableRepository interface {
	// Create inserts a table in the created state
	Create(ctx context.Context, table *review.Table) error

	// GetByID retrieves a table with its rows
	GetByID(ctx context.Context, id string) (*review.Table, error)

	// List lists tables of an owner, optionally within a project (rows omitted)
	List(ctx context.Context, ownerID string, projectID *string) ([]review.Table, error)

	// Delete removes a table, its rows and history
	Delete(ctx context.Context, id string) error

	// Transition atomically moves a table from one status to another.
	// Returns false if the table was not in the expected status.
	Transition(ctx context.Context, id string, from, to review.TableStatus) (bool, error)

	// SaveRow writes a completed row and increments processed_documents atomically
	SaveRow(ctx context.Context, row *review.Row) error

	// Complete marks a processing table completed with its accuracy score
	Complete(ctx context.Context, id string, accuracy *float64, at time.Time) error

	// Fail marks a table failed with a message
	Fail(ctx context.Context, id string, message string) error

	// GetRowForUpdate retrieves and locks one row inside the surrounding transaction
	GetRowForUpdate(ctx context.Context, tableID, documentID string) (*review.Row, error)

	// UpdateCell writes a cell value and its edit marker
	UpdateCell(ctx context.Context, tableID, documentID, column, value string, edit *review.CellEdit) error

	// AppendHistory appends one audit entry; history is never updated or deleted
	AppendHistory(ctx context.Context, entry *review.CellHistory) error

	// ListHistory lists the audit entries of a cell, oldest first
	ListHistory(ctx context.Context, tableID, documentID, column string) ([]review.CellHistory, error)

	// ListStale lists tables stuck in processing since before the cutoff
	ListStale(ctx context.Context, updatedBefore time.Time) ([]review.Table, error)
}
