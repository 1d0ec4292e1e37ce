package corpus

import (
	"time"
)

// Folder is a flat folder record keyed by its "/"-delimited path.
// The nested tree is rebuilt on read.
type Folder struct {
	ProjectID     string    `json:"project_id" db:"project_id"`
	Path          string    `json:"path" db:"path"`
	DocumentCount int       `json:"document_count" db:"document_count"` // Direct members only
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// FolderNode is one node of a reconstructed folder tree.
type FolderNode struct {
	Name          string        `json:"name"`
	Path          string        `json:"path"`
	DocumentCount int           `json:"document_count"`
	Children      []*FolderNode `json:"children"`
}

// FolderTree is the root of a project's folder tree.
type FolderTree struct {
	ProjectID         string        `json:"project_id"`
	RootDocumentCount int           `json:"root_document_count"`
	Folders           []*FolderNode `json:"folders"`
}
