package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexcorpus/internal/domain"
	models "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMembershipRepository implements the MembershipRepository interface
type PostgresMembershipRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(config *postgres.RepositoryConfig) corpusRepo.MembershipRepository {
	return &PostgresMembershipRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Add inserts a membership edge
func (r *PostgresMembershipRepository) Add(ctx context.Context, m *models.ProjectDocument) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, document_id, folder_path, status, error_message, ingested_at, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.ProjectDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		m.ProjectID,
		m.DocumentID,
		m.FolderPath,
		m.Status,
		m.ErrorMessage,
		m.IngestedAt,
		m.AddedBy,
		m.AddedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s is already in project %s", m.DocumentID, m.ProjectID),
				ResourceType: "project_document",
				ResourceID:   m.DocumentID,
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("project or document: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("add project document: %w", err)
	}
	return nil
}

func scanMembership(row pgx.Row) (*models.ProjectDocument, error) {
	var m models.ProjectDocument
	err := row.Scan(
		&m.ProjectID,
		&m.DocumentID,
		&m.FolderPath,
		&m.Status,
		&m.ErrorMessage,
		&m.IngestedAt,
		&m.AddedBy,
		&m.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get retrieves a membership edge
func (r *PostgresMembershipRepository) Get(ctx context.Context, projectID, documentID string) (*models.ProjectDocument, error) {
	query := fmt.Sprintf(`
		SELECT project_id, document_id, folder_path, status, error_message, ingested_at, added_by, added_at
		FROM %s WHERE project_id = $1 AND document_id = $2
	`, r.tables.ProjectDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	m, err := scanMembership(executor.QueryRow(ctx, query, projectID, documentID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("document %s in project %s: %w", documentID, projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project document: %w", err)
	}
	return m, nil
}

// Remove deletes a membership edge and returns it
func (r *PostgresMembershipRepository) Remove(ctx context.Context, projectID, documentID string) (*models.ProjectDocument, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE project_id = $1 AND document_id = $2
		RETURNING project_id, document_id, folder_path, status, error_message, ingested_at, added_by, added_at
	`, r.tables.ProjectDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	m, err := scanMembership(executor.QueryRow(ctx, query, projectID, documentID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("document %s in project %s: %w", documentID, projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("remove project document: %w", err)
	}
	return m, nil
}

// SetFolder reassigns folder_path and returns the previous value.
// The edge is locked first so the caller's counter adjustments see a stable previous path.
func (r *PostgresMembershipRepository) SetFolder(ctx context.Context, projectID, documentID string, folderPath *string) (*string, error) {
	lockQuery := fmt.Sprintf(`
		SELECT folder_path FROM %s WHERE project_id = $1 AND document_id = $2 FOR UPDATE
	`, r.tables.ProjectDocuments)

	var previous *string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, lockQuery, projectID, documentID).Scan(&previous); err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("document %s in project %s: %w", documentID, projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lock project document: %w", err)
	}

	updateQuery := fmt.Sprintf(`
		UPDATE %s SET folder_path = $3 WHERE project_id = $1 AND document_id = $2
	`, r.tables.ProjectDocuments)
	if _, err := executor.Exec(ctx, updateQuery, projectID, documentID, folderPath); err != nil {
		return nil, fmt.Errorf("move project document: %w", err)
	}
	return previous, nil
}

func (r *PostgresMembershipRepository) listJoined(ctx context.Context, where string, arg string) ([]models.ProjectDocument, error) {
	query := fmt.Sprintf(`
		SELECT m.project_id, m.document_id, m.folder_path, m.status, m.error_message, m.ingested_at,
		       m.added_by, m.added_at, d.name, d.size_bytes, d.content_hash, d.chunk_count
		FROM %s m
		JOIN %s d ON d.id = m.document_id
		WHERE %s = $1
		ORDER BY m.added_at, m.document_id
	`, r.tables.ProjectDocuments, r.tables.Documents, where)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list project documents: %w", err)
	}
	defer rows.Close()

	memberships := []models.ProjectDocument{}
	for rows.Next() {
		var m models.ProjectDocument
		if err := rows.Scan(
			&m.ProjectID,
			&m.DocumentID,
			&m.FolderPath,
			&m.Status,
			&m.ErrorMessage,
			&m.IngestedAt,
			&m.AddedBy,
			&m.AddedAt,
			&m.DocumentName,
			&m.SizeBytes,
			&m.ContentHash,
			&m.ChunkCount,
		); err != nil {
			return nil, fmt.Errorf("scan project document: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project documents: %w", err)
	}
	return memberships, nil
}

// ListByProject lists memberships of a project with document metadata
func (r *PostgresMembershipRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectDocument, error) {
	return r.listJoined(ctx, "m.project_id", projectID)
}

// ListByDocument lists memberships of a document
func (r *PostgresMembershipRepository) ListByDocument(ctx context.Context, documentID string) ([]models.ProjectDocument, error) {
	return r.listJoined(ctx, "m.document_id", documentID)
}

// MarkDocumentStatus updates the per-project status of a document's edges
func (r *PostgresMembershipRepository) MarkDocumentStatus(ctx context.Context, documentID string, status models.Status, message *string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    error_message = $3,
		    ingested_at = CASE WHEN $2 = 'ingested' THEN $4 ELSE ingested_at END
		WHERE document_id = $1 AND status NOT IN ('ingested', 'failed')
	`, r.tables.ProjectDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID, string(status), message, at); err != nil {
		return fmt.Errorf("mark membership status: %w", err)
	}
	return nil
}

// MoveFolderToRoot moves every membership inside the given folders to the project root
func (r *PostgresMembershipRepository) MoveFolderToRoot(ctx context.Context, projectID string, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		UPDATE %s SET folder_path = NULL
		WHERE project_id = $1 AND folder_path = ANY($2::text[])
	`, r.tables.ProjectDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, projectID, paths)
	if err != nil {
		return 0, fmt.Errorf("move folder documents to root: %w", err)
	}
	return int(result.RowsAffected()), nil
}
