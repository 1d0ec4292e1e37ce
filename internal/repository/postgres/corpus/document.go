package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lexcorpus/internal/domain"
	models "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, name, owner_id, organization_id, scope, group_id, collection, status,
	content_type, size_bytes, content_hash, storage_key, page_count, chunk_count, error_message,
	jurisdiction, source_id, expires_at, ingested_at, created_at, updated_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) corpusRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.OwnerID,
		&doc.OrganizationID,
		&doc.Scope,
		&doc.GroupID,
		&doc.Collection,
		&doc.Status,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.ContentHash,
		&doc.StorageKey,
		&doc.PageCount,
		&doc.ChunkCount,
		&doc.ErrorMessage,
		&doc.Jurisdiction,
		&doc.SourceID,
		&doc.ExpiresAt,
		&doc.IngestedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	defer rows.Close()
	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Create inserts a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, r.tables.Documents, documentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		doc.ID,
		doc.Name,
		doc.OwnerID,
		doc.OrganizationID,
		doc.Scope,
		doc.GroupID,
		doc.Collection,
		doc.Status,
		doc.ContentType,
		doc.SizeBytes,
		doc.ContentHash,
		doc.StorageKey,
		doc.PageCount,
		doc.ChunkCount,
		doc.ErrorMessage,
		doc.Jurisdiction,
		doc.SourceID,
		doc.ExpiresAt,
		doc.IngestedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", doc.ID),
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	return r.getOne(ctx, id, "")
}

// GetForUpdate retrieves a document and locks the row until the transaction ends
func (r *PostgresDocumentRepository) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return r.getOne(ctx, id, "FOR UPDATE")
}

func (r *PostgresDocumentRepository) getOne(ctx context.Context, id, lock string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 %s`, documentColumns, r.tables.Documents, lock)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByIDs retrieves documents by ID; missing IDs are skipped
func (r *PostgresDocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id::text = ANY($1)`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	return collectDocuments(rows)
}

// visibilityClause appends the caller's visibility predicate to args and returns the SQL fragment.
func visibilityClause(v models.Visibility, args *[]interface{}) string {
	if v.Admin {
		return "TRUE"
	}
	*args = append(*args, v.UserID)
	userArg := len(*args)
	*args = append(*args, v.GroupIDs)
	groupArg := len(*args)
	return fmt.Sprintf(`(scope = 'global'
		OR (scope IN ('private', 'local') AND owner_id = $%d)
		OR (scope = 'group' AND group_id = ANY($%d)))`, userArg, groupArg)
}

// List returns one page of visible documents, newest ingestion first
func (r *PostgresDocumentRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Document, int, error) {
	args := []interface{}{}
	conditions := []string{visibilityClause(opts.Visibility, &args)}

	if opts.Scope != "" {
		args = append(args, opts.Scope)
		conditions = append(conditions, fmt.Sprintf("scope = $%d", len(args)))
	}
	if opts.GroupID != "" {
		args = append(args, opts.GroupID)
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if opts.Collection != "" {
		args = append(args, opts.Collection)
		conditions = append(conditions, fmt.Sprintf("collection = $%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Documents, where)
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	args = append(args, opts.PageSize, opts.Offset())
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY ingested_at DESC NULLS LAST, created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, documentColumns, r.tables.Documents, where, len(args)-1, len(args))

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Delete hard-deletes a document. Memberships cascade.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete document: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Claim moves a pending document to processing. Only one caller can win.
func (r *PostgresDocumentRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("claim document: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkIngested moves a processing document to ingested
func (r *PostgresDocumentRepository) MarkIngested(ctx context.Context, id string, chunkCount int, ingestedAt time.Time, expiresAt *time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'ingested', chunk_count = $2, ingested_at = $3, expires_at = $4,
		    error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, chunkCount, ingestedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("mark document ingested: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkFailed moves a processing document to failed
func (r *PostgresDocumentRepository) MarkFailed(ctx context.Context, id string, message string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, message)
	if err != nil {
		return false, fmt.Errorf("mark document failed: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// UpdateScope rewrites scope and expiry
func (r *PostgresDocumentRepository) UpdateScope(ctx context.Context, id string, scope models.Scope, expiresAt *time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET scope = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, scope, expiresAt)
	if err != nil {
		return fmt.Errorf("update document scope: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateExpiry rewrites expires_at of a local document
func (r *PostgresDocumentRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET expires_at = $2, updated_at = NOW()
		WHERE id = $1 AND scope = 'local'
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, expiresAt)
	if err != nil {
		return fmt.Errorf("update document expiry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("local document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresDocumentRepository) listIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListIDsByStatus lists documents in a status last touched before the cutoff
func (r *PostgresDocumentRepository) ListIDsByStatus(ctx context.Context, status models.Status, updatedBefore time.Time) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id::text FROM %s
		WHERE status = $1 AND updated_at < $2
		ORDER BY created_at
	`, r.tables.Documents)

	ids, err := r.listIDs(ctx, query, status, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	return ids, nil
}

// ListExpired lists local documents past their expiry
func (r *PostgresDocumentRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id::text FROM %s
		WHERE scope = 'local' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at
	`, r.tables.Documents)

	ids, err := r.listIDs(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired documents: %w", err)
	}
	return ids, nil
}

// SumStorageByOrganization returns the bytes stored by an organization
func (r *PostgresDocumentRepository) SumStorageByOrganization(ctx context.Context, organizationID string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(size_bytes), 0)::bigint FROM %s WHERE organization_id = $1
	`, r.tables.Documents)

	var total int64
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, organizationID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum organization storage: %w", err)
	}
	return total, nil
}
