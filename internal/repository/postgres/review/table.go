package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"lexcorpus/internal/domain"
	models "lexcorpus/internal/domain/models/review"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tableColumns = `id, name, template_id, project_id, owner_id, document_ids::text[], status,
	total_documents, processed_documents, accuracy_score, error_message, created_at, updated_at, completed_at`

// PostgresTableRepository implements the TableRepository interface
type PostgresTableRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewTableRepository creates a new review table repository
func NewTableRepository(config *postgres.RepositoryConfig) reviewRepo.TableRepository {
	return &PostgresTableRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanTable(row pgx.Row) (*models.Table, error) {
	var t models.Table
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.TemplateID,
		&t.ProjectID,
		&t.OwnerID,
		&t.DocumentIDs,
		&t.Status,
		&t.TotalDocuments,
		&t.ProcessedDocuments,
		&t.AccuracyScore,
		&t.ErrorMessage,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a table in the created state
func (r *PostgresTableRepository) Create(ctx context.Context, table *models.Table) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, template_id, project_id, owner_id, document_ids, status,
			total_documents, processed_documents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::uuid[], $7, $8, 0, $9, $10)
	`, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		table.ID,
		table.Name,
		table.TemplateID,
		table.ProjectID,
		table.OwnerID,
		table.DocumentIDs,
		table.Status,
		table.TotalDocuments,
		table.CreatedAt,
		table.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("template or project: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create review table: %w", err)
	}
	return nil
}

// GetByID retrieves a table with its rows in document order
func (r *PostgresTableRepository) GetByID(ctx context.Context, id string) (*models.Table, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, tableColumns, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	table, err := scanTable(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("review table %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get review table: %w", err)
	}

	rowQuery := fmt.Sprintf(`
		SELECT r.table_id, r.document_id, r.document_name, r.columns, r.column_meta, r.edits, r.updated_at
		FROM %s r
		JOIN %s t ON t.id = r.table_id
		WHERE r.table_id = $1
		ORDER BY array_position(t.document_ids, r.document_id)
	`, r.tables.ReviewRows, r.tables.ReviewTables)

	rows, err := executor.Query(ctx, rowQuery, id)
	if err != nil {
		return nil, fmt.Errorf("query review rows: %w", err)
	}
	defer rows.Close()

	table.Rows = []models.Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return table, nil
}

func scanRow(row pgx.Row) (*models.Row, error) {
	var r models.Row
	var columns, meta, edits []byte
	if err := row.Scan(&r.TableID, &r.DocumentID, &r.DocumentName, &columns, &meta, &edits, &r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan review row: %w", err)
	}
	r.ColumnMeta = models.NewColumnMeta()
	if err := json.Unmarshal(columns, &r.Columns); err != nil {
		return nil, fmt.Errorf("decode row columns: %w", err)
	}
	if err := json.Unmarshal(meta, &r.ColumnMeta); err != nil {
		return nil, fmt.Errorf("decode row column meta: %w", err)
	}
	if err := json.Unmarshal(edits, &r.Edits); err != nil {
		return nil, fmt.Errorf("decode row edits: %w", err)
	}
	return &r, nil
}

// List lists an owner's tables without rows, newest first
func (r *PostgresTableRepository) List(ctx context.Context, ownerID string, projectID *string) ([]models.Table, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1 AND ($2::uuid IS NULL OR project_id = $2::uuid)
		ORDER BY created_at DESC
	`, tableColumns, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("list review tables: %w", err)
	}
	return collectTables(rows)
}

func collectTables(rows pgx.Rows) ([]models.Table, error) {
	defer rows.Close()
	tables := []models.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review table: %w", err)
		}
		tables = append(tables, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review tables: %w", err)
	}
	return tables, nil
}

// Delete removes a table; rows and history cascade
func (r *PostgresTableRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review table: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("review table %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Transition moves a table between statuses with a conditional update
func (r *PostgresTableRepository) Transition(ctx context.Context, id string, from, to models.TableStatus) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transition review table: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// SaveRow inserts a completed row and bumps processed_documents in one statement.
// Saving the same row twice is a no-op.
func (r *PostgresTableRepository) SaveRow(ctx context.Context, row *models.Row) error {
	columns, err := json.Marshal(row.Columns)
	if err != nil {
		return fmt.Errorf("encode row columns: %w", err)
	}
	meta, err := json.Marshal(row.ColumnMeta)
	if err != nil {
		return fmt.Errorf("encode row column meta: %w", err)
	}

	query := fmt.Sprintf(`
		WITH inserted AS (
			INSERT INTO %s (table_id, document_id, document_name, columns, column_meta, edits, updated_at)
			VALUES ($1, $2, $3, $4, $5, '{}', $6)
			ON CONFLICT (table_id, document_id) DO NOTHING
			RETURNING table_id
		)
		UPDATE %s SET processed_documents = processed_documents + 1, updated_at = NOW()
		WHERE id = (SELECT table_id FROM inserted)
	`, r.tables.ReviewRows, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query,
		row.TableID, row.DocumentID, row.DocumentName, columns, meta, row.UpdatedAt,
	); err != nil {
		return fmt.Errorf("save review row: %w", err)
	}
	return nil
}

// Complete marks a processing table completed
func (r *PostgresTableRepository) Complete(ctx context.Context, id string, accuracy *float64, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'completed', accuracy_score = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, accuracy, at)
	if err != nil {
		return fmt.Errorf("complete review table: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewStateError("not_processing", fmt.Sprintf("review table %s is not processing", id))
	}
	return nil
}

// Fail marks a non-terminal table failed
func (r *PostgresTableRepository) Fail(ctx context.Context, id string, message string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('created', 'processing')
	`, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id, message); err != nil {
		return fmt.Errorf("fail review table: %w", err)
	}
	return nil
}

// GetRowForUpdate retrieves and locks one row
func (r *PostgresTableRepository) GetRowForUpdate(ctx context.Context, tableID, documentID string) (*models.Row, error) {
	query := fmt.Sprintf(`
		SELECT table_id, document_id, document_name, columns, column_meta, edits, updated_at
		FROM %s WHERE table_id = $1 AND document_id = $2
		FOR UPDATE
	`, r.tables.ReviewRows)

	executor := postgres.GetExecutor(ctx, r.pool)
	row, err := scanRow(executor.QueryRow(ctx, query, tableID, documentID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("row for document %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, err
	}
	return row, nil
}

// UpdateCell writes one cell value and its edit marker
func (r *PostgresTableRepository) UpdateCell(ctx context.Context, tableID, documentID, column, value string, edit *models.CellEdit) error {
	editJSON, err := json.Marshal(edit)
	if err != nil {
		return fmt.Errorf("encode cell edit: %w", err)
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET columns = jsonb_set(columns, ARRAY[$3::text], to_jsonb($4::text)),
		    edits = jsonb_set(edits, ARRAY[$3::text], $5::jsonb),
		    updated_at = NOW()
		WHERE table_id = $1 AND document_id = $2
	`, r.tables.ReviewRows)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, tableID, documentID, column, value, editJSON)
	if err != nil {
		return fmt.Errorf("update cell: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("row for document %s: %w", documentID, domain.ErrNotFound)
	}
	return nil
}

// AppendHistory appends one audit entry
func (r *PostgresTableRepository) AppendHistory(ctx context.Context, entry *models.CellHistory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (table_id, document_id, column_name, old_value, new_value, verified, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, r.tables.CellHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		entry.TableID,
		entry.DocumentID,
		entry.ColumnName,
		entry.OldValue,
		entry.NewValue,
		entry.Verified,
		entry.ChangedBy,
		entry.ChangedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append cell history: %w", err)
	}
	return nil
}

// ListHistory lists a cell's audit entries, oldest first
func (r *PostgresTableRepository) ListHistory(ctx context.Context, tableID, documentID, column string) ([]models.CellHistory, error) {
	query := fmt.Sprintf(`
		SELECT id, table_id, document_id, column_name, old_value, new_value, verified, changed_by, changed_at
		FROM %s
		WHERE table_id = $1 AND document_id = $2 AND column_name = $3
		ORDER BY id
	`, r.tables.CellHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, tableID, documentID, column)
	if err != nil {
		return nil, fmt.Errorf("list cell history: %w", err)
	}
	defer rows.Close()

	history := []models.CellHistory{}
	for rows.Next() {
		var h models.CellHistory
		if err := rows.Scan(&h.ID, &h.TableID, &h.DocumentID, &h.ColumnName, &h.OldValue, &h.NewValue,
			&h.Verified, &h.ChangedBy, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan cell history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cell history: %w", err)
	}
	return history, nil
}

// ListStale lists tables stuck in processing
func (r *PostgresTableRepository) ListStale(ctx context.Context, updatedBefore time.Time) ([]models.Table, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at
	`, tableColumns, r.tables.ReviewTables)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("list stale review tables: %w", err)
	}
	return collectTables(rows)
}
