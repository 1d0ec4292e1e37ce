package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"lexcorpus/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Documents        string
	Projects         string
	Folders          string
	ProjectDocuments string
	Templates        string
	ReviewTables     string
	ReviewRows       string
	CellHistory      string
	Activity         string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Documents:        fmt.Sprintf("%sdocuments", prefix),
		Projects:         fmt.Sprintf("%sprojects", prefix),
		Folders:          fmt.Sprintf("%sproject_folders", prefix),
		ProjectDocuments: fmt.Sprintf("%sproject_documents", prefix),
		Templates:        fmt.Sprintf("%sreview_templates", prefix),
		ReviewTables:     fmt.Sprintf("%sreview_tables", prefix),
		ReviewRows:       fmt.Sprintf("%sreview_rows", prefix),
		CellHistory:      fmt.Sprintf("%sreview_cell_history", prefix),
		Activity:         fmt.Sprintf("%sactivity_log", prefix),
	}
}

// All returns every table in dependency order (parents first).
func (t *TableNames) All() []string {
	return []string{
		t.Documents, t.Projects, t.Folders, t.ProjectDocuments,
		t.Templates, t.ReviewTables, t.ReviewRows, t.CellHistory, t.Activity,
	}
}

// CreateConnectionPool creates a pgx connection pool.
//
// Port 6543 is treated as a transaction pooler (PgBouncer) which does not support
// prepared statements; QueryExecModeCacheDescribe keeps the extended protocol (needed
// for JSONB maps) without creating named statements. An explicit
// default_query_exec_mode in the connection string takes precedence.
//
// Table prefixes are interpolated with fmt.Sprintf before the SQL reaches the server,
// so each environment gets its own statement cache entries.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or the pool when there is none.
// Repositories call it on every query so they join a surrounding ExecTx automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
