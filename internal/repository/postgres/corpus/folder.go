package corpus

import (
	"context"
	"fmt"
	"log/slog"

	models "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFolderRepository stores folders as flat (project_id, path) records.
// The tree is rebuilt on read.
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *postgres.RepositoryConfig) corpusRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// EnsurePaths inserts each path if missing
func (r *PostgresFolderRepository) EnsurePaths(ctx context.Context, projectID string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, path)
		SELECT $1, p FROM unnest($2::text[]) AS p
		ON CONFLICT (project_id, path) DO NOTHING
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, projectID, paths); err != nil {
		return fmt.Errorf("ensure folders: %w", err)
	}
	return nil
}

// GetAllByProject retrieves all folders in a project, sorted by path
func (r *PostgresFolderRepository) GetAllByProject(ctx context.Context, projectID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT project_id, path, document_count, created_at
		FROM %s
		WHERE project_id = $1
		ORDER BY path
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ProjectID, &f.Path, &f.DocumentCount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// Exists reports whether a folder path exists
func (r *PostgresFolderRepository) Exists(ctx context.Context, projectID, path string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE project_id = $1 AND path = $2)`, r.tables.Folders)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, projectID, path).Scan(&exists); err != nil {
		return false, fmt.Errorf("check folder: %w", err)
	}
	return exists, nil
}

// AdjustCount adds delta to a folder's direct document count
func (r *PostgresFolderRepository) AdjustCount(ctx context.Context, projectID, path string, delta int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET document_count = GREATEST(document_count + $3, 0)
		WHERE project_id = $1 AND path = $2
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, projectID, path, delta); err != nil {
		return fmt.Errorf("adjust folder count: %w", err)
	}
	return nil
}

// DeleteSubtree removes a folder and every descendant path
func (r *PostgresFolderRepository) DeleteSubtree(ctx context.Context, projectID, path string) ([]string, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE project_id = $1 AND (path = $2 OR starts_with(path, $2 || '/'))
		RETURNING path
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID, path)
	if err != nil {
		return nil, fmt.Errorf("delete folder subtree: %w", err)
	}
	defer rows.Close()

	var removed []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan folder path: %w", err)
		}
		removed = append(removed, p)
	}
	return removed, rows.Err()
}

// SetCount overwrites a folder's count
func (r *PostgresFolderRepository) SetCount(ctx context.Context, projectID, path string, count int) error {
	query := fmt.Sprintf(`UPDATE %s SET document_count = $3 WHERE project_id = $1 AND path = $2`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, projectID, path, count); err != nil {
		return fmt.Errorf("set folder count: %w", err)
	}
	return nil
}
