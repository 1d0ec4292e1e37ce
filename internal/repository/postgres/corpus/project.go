package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"lexcorpus/internal/domain"
	models "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const projectColumns = `id, name, description, owner_id, organization_id, is_knowledge_base, scope,
	document_count, chunk_count, storage_bytes, retention_days, max_documents, is_active,
	created_at, updated_at`

// PostgresProjectRepository implements the ProjectRepository interface
type PostgresProjectRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *postgres.RepositoryConfig) corpusRepo.ProjectRepository {
	return &PostgresProjectRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.OwnerID,
		&p.OrganizationID,
		&p.IsKnowledgeBase,
		&p.Scope,
		&p.DocumentCount,
		&p.ChunkCount,
		&p.StorageBytes,
		&p.RetentionDays,
		&p.MaxDocuments,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, owner_id, organization_id, is_knowledge_base, scope,
			retention_days, max_documents, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.OwnerID,
		project.OrganizationID,
		project.IsKnowledgeBase,
		project.Scope,
		project.RetentionDays,
		project.MaxDocuments,
		project.IsActive,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, projectColumns, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	project, err := scanProject(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// List retrieves the user's projects plus their organization's knowledge bases
func (r *PostgresProjectRepository) List(ctx context.Context, userID, organizationID string) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_id = $1
		   OR ($2 <> '' AND organization_id = $2 AND is_knowledge_base)
		ORDER BY updated_at DESC
	`, projectColumns, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// Update updates mutable project fields
func (r *PostgresProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, description = $3, is_knowledge_base = $4, scope = $5,
		    retention_days = $6, max_documents = $7, is_active = $8, updated_at = $9
		WHERE id = $1
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.IsKnowledgeBase,
		project.Scope,
		project.RetentionDays,
		project.MaxDocuments,
		project.IsActive,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a project; folders and memberships cascade
func (r *PostgresProjectRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReserveCapacity increments counters only if the project is active and
// max_documents and the storage cap allow it. The check and the increment
// happen in one statement, so concurrent uploads cannot overshoot.
func (r *PostgresProjectRepository) ReserveCapacity(ctx context.Context, id string, delta models.CounterDelta, storageCap int64) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET document_count = document_count + $2,
		    chunk_count = chunk_count + $3,
		    storage_bytes = storage_bytes + $4,
		    updated_at = NOW()
		WHERE id = $1
		  AND is_active
		  AND (max_documents IS NULL OR document_count + $2 <= max_documents)
		  AND ($5 <= 0 OR storage_bytes + $4 <= $5)
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, delta.Documents, delta.Chunks, delta.Bytes, storageCap)
	if err != nil {
		return false, fmt.Errorf("reserve project capacity: %w", err)
	}
	if result.RowsAffected() == 1 {
		return true, nil
	}

	// Nothing updated: tell a missing or inactive project apart from a full one.
	var active bool
	err = executor.QueryRow(ctx, fmt.Sprintf(`SELECT is_active FROM %s WHERE id = $1`, r.tables.Projects), id).Scan(&active)
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return false, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return false, fmt.Errorf("check project: %w", err)
	}
	if !active {
		return false, domain.NewStateError(models.ProjectInactive, fmt.Sprintf("project %s is inactive", id))
	}
	return false, nil
}

// ApplyDelta adds delta to the counters; values never go below zero
func (r *PostgresProjectRepository) ApplyDelta(ctx context.Context, id string, delta models.CounterDelta) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET document_count = GREATEST(document_count + $2, 0),
		    chunk_count = GREATEST(chunk_count + $3, 0),
		    storage_bytes = GREATEST(storage_bytes + $4, 0),
		    updated_at = NOW()
		WHERE id = $1
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id, delta.Documents, delta.Chunks, delta.Bytes); err != nil {
		return fmt.Errorf("apply project counters: %w", err)
	}
	return nil
}

// SetCounters overwrites counters with recomputed values
func (r *PostgresProjectRepository) SetCounters(ctx context.Context, id string, counters models.CounterDelta) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET document_count = $2, chunk_count = $3, storage_bytes = $4, updated_at = NOW()
		WHERE id = $1
	`, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, counters.Documents, counters.Chunks, counters.Bytes)
	if err != nil {
		return fmt.Errorf("set project counters: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
