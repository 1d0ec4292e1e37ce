package corpus

import (
	"encoding/json"
	"time"
)

// ActivityEntry is one row of the append-only activity log.
type ActivityEntry struct {
	ID           int64           `json:"id" db:"id"`
	ActorID      string          `json:"actor_id" db:"actor_id"`
	Action       string          `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"`
	ResourceID   string          `json:"resource_id" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Overview aggregates corpus-wide statistics for administrators.
type Overview struct {
	DocumentsByStatus map[Status]int `json:"documents_by_status"`
	DocumentsByScope  map[Scope]int  `json:"documents_by_scope"`
	StorageBytes      int64          `json:"storage_bytes"`
	ChunkCount        int64          `json:"chunk_count"`
	ProjectCount      int            `json:"project_count"`
	ReviewTables      map[string]int `json:"review_tables"`
}

// UserStats aggregates one owner's footprint.
type UserStats struct {
	UserID        string `json:"user_id"`
	DocumentCount int    `json:"document_count"`
	StorageBytes  int64  `json:"storage_bytes"`
	ProjectCount  int    `json:"project_count"`
}

// OwnershipTransfer reports the rows moved by a transfer.
type OwnershipTransfer struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Documents  int    `json:"documents"`
	Projects   int    `json:"projects"`
}
