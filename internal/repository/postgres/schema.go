package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunSchema creates every table and index if missing.
func RunSchema(ctx context.Context, pool *pgxpool.Pool, t *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			organization_id TEXT,
			scope TEXT NOT NULL CHECK (scope IN ('global', 'private', 'group', 'local')),
			group_id TEXT,
			collection TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'ingested', 'failed')),
			content_type TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			page_count INT,
			chunk_count INT NOT NULL DEFAULT 0,
			error_message TEXT,
			jurisdiction TEXT,
			source_id TEXT,
			expires_at TIMESTAMPTZ,
			ingested_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((scope = 'group') = (group_id IS NOT NULL)),
			CHECK (scope = 'local' OR expires_at IS NULL)
		)`, t.Documents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_status_idx ON %[1]s (status, updated_at)`, t.Documents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_expires_idx ON %[1]s (expires_at) WHERE scope = 'local'`, t.Documents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_hash_idx ON %[1]s (content_hash)`, t.Documents),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			owner_id TEXT NOT NULL,
			organization_id TEXT,
			is_knowledge_base BOOLEAN NOT NULL DEFAULT FALSE,
			scope TEXT NOT NULL DEFAULT 'personal' CHECK (scope IN ('personal', 'organization')),
			document_count INT NOT NULL DEFAULT 0,
			chunk_count INT NOT NULL DEFAULT 0,
			storage_bytes BIGINT NOT NULL DEFAULT 0,
			retention_days INT,
			max_documents INT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.Projects),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			project_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			document_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (project_id, path)
		)`, t.Folders, t.Projects),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			project_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			document_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			folder_path TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			ingested_at TIMESTAMPTZ,
			added_by TEXT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (project_id, document_id)
		)`, t.ProjectDocuments, t.Projects, t.Documents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_document_idx ON %[1]s (document_id)`, t.ProjectDocuments),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			area TEXT,
			columns JSONB NOT NULL,
			is_system BOOLEAN NOT NULL DEFAULT FALSE,
			owner_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.Templates),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			template_id UUID NOT NULL REFERENCES %s(id),
			project_id UUID REFERENCES %s(id) ON DELETE SET NULL,
			owner_id TEXT NOT NULL,
			document_ids UUID[] NOT NULL,
			status TEXT NOT NULL DEFAULT 'created' CHECK (status IN ('created', 'processing', 'completed', 'failed')),
			total_documents INT NOT NULL,
			processed_documents INT NOT NULL DEFAULT 0,
			accuracy_score DOUBLE PRECISION,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`, t.ReviewTables, t.Templates, t.Projects),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			table_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			document_id UUID NOT NULL,
			document_name TEXT NOT NULL,
			columns JSONB NOT NULL DEFAULT '{}',
			column_meta JSONB NOT NULL DEFAULT '{}',
			edits JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (table_id, document_id)
		)`, t.ReviewRows, t.ReviewTables),

		// Cell history has no FK to rows so audit entries outlive row rewrites.
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			table_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			document_id UUID NOT NULL,
			column_name TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			changed_by TEXT NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.CellHistory, t.ReviewTables),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_cell_idx ON %[1]s (table_id, document_id, column_name, id)`, t.CellHistory),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.Activity),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("run schema: %w", err)
		}
	}
	return nil
}

// DropAll drops every table (children first).
func DropAll(ctx context.Context, pool *pgxpool.Pool, t *TableNames) ([]string, error) {
	all := t.All()
	dropped := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+all[i]+" CASCADE"); err != nil {
			return dropped, fmt.Errorf("drop %s: %w", all[i], err)
		}
		dropped = append(dropped, all[i])
	}
	return dropped, nil
}

// ClearData empties every table except review templates, keeping the schema.
func ClearData(ctx context.Context, pool *pgxpool.Pool, t *TableNames) error {
	tables := []string{
		t.CellHistory, t.ReviewRows, t.ReviewTables,
		t.ProjectDocuments, t.Folders, t.Projects, t.Documents, t.Activity,
	}
	if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}
