package corpus

import (
	"time"
)

// ProjectInactive is the state reported when an inactive project is asked to
// take documents.
const ProjectInactive = "inactive"

// ProjectScope controls who sees a project.
type ProjectScope string

const (
	ProjectScopePersonal     ProjectScope = "personal"
	ProjectScopeOrganization ProjectScope = "organization"
)

// Project groups documents into a folder tree. Counters are denormalized and
// only ever changed with atomic increments in the transaction that changes
// membership.
type Project struct {
	ID              string       `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	Description     *string      `json:"description,omitempty" db:"description"`
	OwnerID         string       `json:"owner_id" db:"owner_id"`
	OrganizationID  *string      `json:"organization_id,omitempty" db:"organization_id"`
	IsKnowledgeBase bool         `json:"is_knowledge_base" db:"is_knowledge_base"`
	Scope           ProjectScope `json:"scope" db:"scope"`
	DocumentCount   int          `json:"document_count" db:"document_count"`
	ChunkCount      int          `json:"chunk_count" db:"chunk_count"`
	StorageBytes    int64        `json:"storage_bytes" db:"storage_bytes"`
	RetentionDays   *int         `json:"retention_days,omitempty" db:"retention_days"`
	MaxDocuments    *int         `json:"max_documents,omitempty" db:"max_documents"`
	IsActive        bool         `json:"is_active" db:"is_active"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// ProjectDocument is the membership edge between a project and a document.
// It does not own the document.
type ProjectDocument struct {
	ProjectID    string     `json:"project_id" db:"project_id"`
	DocumentID   string     `json:"document_id" db:"document_id"`
	FolderPath   *string    `json:"folder_path" db:"folder_path"` // NULL = project root
	Status       Status     `json:"status" db:"status"`           // Indexing state inside this project
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	IngestedAt   *time.Time `json:"ingested_at,omitempty" db:"ingested_at"`
	AddedBy      string     `json:"added_by" db:"added_by"`
	AddedAt      time.Time  `json:"added_at" db:"added_at"`

	// Joined from the document for listings; not stored on the edge.
	DocumentName string `json:"document_name,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	ContentHash  string `json:"content_hash,omitempty"`
	ChunkCount   int    `json:"chunk_count,omitempty"`
}

// CounterDelta is applied atomically to a project's counters.
type CounterDelta struct {
	Documents int
	Chunks    int
	Bytes     int64
}
