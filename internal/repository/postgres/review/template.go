package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"lexcorpus/internal/domain"
	models "lexcorpus/internal/domain/models/review"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTemplateRepository implements the TemplateRepository interface
type PostgresTemplateRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(config *postgres.RepositoryConfig) reviewRepo.TemplateRepository {
	return &PostgresTemplateRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanTemplate(row pgx.Row) (*models.Template, error) {
	var tpl models.Template
	var columns []byte
	if err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.Area,
		&columns,
		&tpl.IsSystem,
		&tpl.OwnerID,
		&tpl.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(columns, &tpl.Columns); err != nil {
		return nil, fmt.Errorf("decode template columns: %w", err)
	}
	return &tpl, nil
}

// Create inserts a user template
func (r *PostgresTemplateRepository) Create(ctx context.Context, tpl *models.Template) error {
	columns, err := json.Marshal(tpl.Columns)
	if err != nil {
		return fmt.Errorf("encode template columns: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, area, columns, is_system, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Templates)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query,
		tpl.ID, tpl.Name, tpl.Description, tpl.Area, columns, tpl.IsSystem, tpl.OwnerID, tpl.CreatedAt,
	); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// GetByID retrieves a template
func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, area, columns, is_system, owner_id, created_at
		FROM %s WHERE id = $1
	`, r.tables.Templates)

	executor := postgres.GetExecutor(ctx, r.pool)
	tpl, err := scanTemplate(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

// List returns system templates plus the owner's own, system first
func (r *PostgresTemplateRepository) List(ctx context.Context, ownerID string) ([]models.Template, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, area, columns, is_system, owner_id, created_at
		FROM %s
		WHERE is_system OR owner_id = $1
		ORDER BY is_system DESC, name
	`, r.tables.Templates)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// Delete removes a user template; templates referenced by tables cannot be removed
func (r *PostgresTemplateRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND NOT is_system`, r.tables.Templates)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.ConflictError{
				Message:      "template is used by review tables",
				ResourceType: "template",
				ResourceID:   id,
			}
		}
		return fmt.Errorf("delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpsertSystem inserts or refreshes a seeded system template
func (r *PostgresTemplateRepository) UpsertSystem(ctx context.Context, tpl *models.Template) error {
	columns, err := json.Marshal(tpl.Columns)
	if err != nil {
		return fmt.Errorf("encode template columns: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, area, columns, is_system, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NULL, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    area = EXCLUDED.area, columns = EXCLUDED.columns, is_system = TRUE
	`, r.tables.Templates)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, tpl.ID, tpl.Name, tpl.Description, tpl.Area, columns, tpl.CreatedAt); err != nil {
		return fmt.Errorf("upsert system template: %w", err)
	}
	return nil
}
