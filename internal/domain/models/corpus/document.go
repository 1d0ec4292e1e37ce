package corpus

import (
	"time"
)

// Scope is the visibility tier of a document.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopePrivate Scope = "private"
	ScopeGroup   Scope = "group"
	ScopeLocal   Scope = "local"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopePrivate, ScopeGroup, ScopeLocal:
		return true
	}
	return false
}

// Status is the ingestion lifecycle state of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIngested   Status = "ingested"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusIngested || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusIngested, StatusFailed:
		return true
	}
	return false
}

// Document is a corpus entry owned by its scope record.
type Document struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	OwnerID        string     `json:"owner_id" db:"owner_id"`
	OrganizationID *string    `json:"organization_id,omitempty" db:"organization_id"`
	Scope          Scope      `json:"scope" db:"scope"`
	GroupID        *string    `json:"group_id,omitempty" db:"group_id"` // Required iff scope=group
	Collection     string     `json:"collection" db:"collection"`       // legislation, case-law, doctrine, templates, ...
	Status         Status     `json:"status" db:"status"`
	ContentType    string     `json:"content_type" db:"content_type"`
	SizeBytes      int64      `json:"size_bytes" db:"size_bytes"`
	ContentHash    string     `json:"content_hash" db:"content_hash"` // sha256 hex of the raw bytes
	StorageKey     string     `json:"-" db:"storage_key"`
	PageCount      *int       `json:"page_count,omitempty" db:"page_count"`
	ChunkCount     int        `json:"chunk_count" db:"chunk_count"`
	ErrorMessage   *string    `json:"error_message,omitempty" db:"error_message"`
	Jurisdiction   *string    `json:"jurisdiction,omitempty" db:"jurisdiction"`
	SourceID       *string    `json:"source_id,omitempty" db:"source_id"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" db:"expires_at"` // Set iff scope=local
	IngestedAt     *time.Time `json:"ingested_at,omitempty" db:"ingested_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// RawKey is the content store key of the uploaded bytes.
func (d *Document) RawKey() string {
	return d.StorageKey + "/raw"
}

// TextKey is the content store key of the derived text.
func (d *Document) TextKey() string {
	return d.StorageKey + "/text"
}

// ScopeChange is the result of a promotion.
type ScopeChange struct {
	Document *Document `json:"document"`
	OldScope Scope     `json:"old_scope"`
	NewScope Scope     `json:"new_scope"`
}
