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

// PostgresActivityRepository implements the ActivityRepository interface
type PostgresActivityRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(config *postgres.RepositoryConfig) corpusRepo.ActivityRepository {
	return &PostgresActivityRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append writes one activity entry
func (r *PostgresActivityRepository) Append(ctx context.Context, entry *models.ActivityEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (actor_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.tables.Activity)

	var details interface{}
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		details,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// List returns activity entries, newest first
func (r *PostgresActivityRepository) List(ctx context.Context, limit, offset int) ([]models.ActivityEntry, int, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Activity)
	if err := executor.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, action, resource_type, resource_id, COALESCE(details::text, ''), created_at
		FROM %s
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, r.tables.Activity)

	rows, err := executor.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := []models.ActivityEntry{}
	for rows.Next() {
		var e models.ActivityEntry
		var details string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID, &details, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan activity: %w", err)
		}
		if details != "" {
			e.Details = []byte(details)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, total, nil
}

// Overview aggregates corpus-wide counters
func (r *PostgresActivityRepository) Overview(ctx context.Context) (*models.Overview, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	overview := &models.Overview{
		DocumentsByStatus: map[models.Status]int{},
		DocumentsByScope:  map[models.Scope]int{},
		ReviewTables:      map[string]int{},
	}

	query := fmt.Sprintf(`
		SELECT status, scope, COUNT(*), COALESCE(SUM(size_bytes), 0)::bigint, COALESCE(SUM(chunk_count), 0)::bigint
		FROM %s
		GROUP BY status, scope
	`, r.tables.Documents)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate documents: %w", err)
	}
	for rows.Next() {
		var status models.Status
		var scope models.Scope
		var count int
		var bytes, chunks int64
		if err := rows.Scan(&status, &scope, &count, &bytes, &chunks); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan document aggregate: %w", err)
		}
		overview.DocumentsByStatus[status] += count
		overview.DocumentsByScope[scope] += count
		overview.StorageBytes += bytes
		overview.ChunkCount += chunks
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document aggregates: %w", err)
	}

	projectQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Projects)
	if err := executor.QueryRow(ctx, projectQuery).Scan(&overview.ProjectCount); err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	tableQuery := fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, r.tables.ReviewTables)
	tableRows, err := executor.Query(ctx, tableQuery)
	if err != nil {
		return nil, fmt.Errorf("aggregate review tables: %w", err)
	}
	defer tableRows.Close()
	for tableRows.Next() {
		var status string
		var count int
		if err := tableRows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan review table aggregate: %w", err)
		}
		overview.ReviewTables[status] = count
	}
	if err := tableRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review table aggregates: %w", err)
	}
	return overview, nil
}

// UserStats aggregates per-owner counters
func (r *PostgresActivityRepository) UserStats(ctx context.Context) ([]models.UserStats, error) {
	query := fmt.Sprintf(`
		SELECT owner_id, SUM(documents)::int, SUM(bytes)::bigint, SUM(projects)::int
		FROM (
			SELECT owner_id, COUNT(*) AS documents, COALESCE(SUM(size_bytes), 0)::bigint AS bytes, 0::bigint AS projects
			FROM %s GROUP BY owner_id
			UNION ALL
			SELECT owner_id, 0, 0, COUNT(*) FROM %s GROUP BY owner_id
		) AS t
		GROUP BY owner_id
		ORDER BY SUM(bytes) DESC, owner_id
	`, r.tables.Documents, r.tables.Projects)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate user stats: %w", err)
	}
	defer rows.Close()

	stats := []models.UserStats{}
	for rows.Next() {
		var s models.UserStats
		if err := rows.Scan(&s.UserID, &s.DocumentCount, &s.StorageBytes, &s.ProjectCount); err != nil {
			return nil, fmt.Errorf("scan user stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user stats: %w", err)
	}
	return stats, nil
}

// TransferOwnership moves documents and projects between owners.
// Callers wrap it in ExecTx so both updates commit together.
func (r *PostgresActivityRepository) TransferOwnership(ctx context.Context, fromUserID, toUserID string) (*models.OwnershipTransfer, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	transfer := &models.OwnershipTransfer{FromUserID: fromUserID, ToUserID: toUserID}

	docQuery := fmt.Sprintf(`UPDATE %s SET owner_id = $2, updated_at = NOW() WHERE owner_id = $1`, r.tables.Documents)
	result, err := executor.Exec(ctx, docQuery, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("transfer documents: %w", err)
	}
	transfer.Documents = int(result.RowsAffected())

	projectQuery := fmt.Sprintf(`UPDATE %s SET owner_id = $2, updated_at = NOW() WHERE owner_id = $1`, r.tables.Projects)
	result, err = executor.Exec(ctx, projectQuery, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("transfer projects: %w", err)
	}
	transfer.Projects = int(result.RowsAffected())

	return transfer, nil
}
