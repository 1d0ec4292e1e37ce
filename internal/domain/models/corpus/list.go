package corpus

import (
	"fmt"
)

// Default listing configuration values
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOptions filters and paginates a document listing.
// Pages are 1-based.
type ListOptions struct {
	Scope      Scope
	GroupID    string
	Collection string
	Status     Status
	Search     string
	Page       int
	PageSize   int

	// Visibility is filled by the service from the caller, never from the request.
	Visibility Visibility
}

// Visibility describes which documents a caller may see.
type Visibility struct {
	UserID         string
	OrganizationID string
	GroupIDs       []string
	Admin          bool
}

// ApplyDefaults fills in default values for unset fields
func (opts *ListOptions) ApplyDefaults() {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
}

// Offset returns the number of rows skipped for the current page.
func (opts *ListOptions) Offset() int {
	return (opts.Page - 1) * opts.PageSize
}

// Validate checks that filter values are known and pagination is reasonable
func (opts *ListOptions) Validate() error {
	if opts.Scope != "" && !opts.Scope.Valid() {
		return fmt.Errorf("unknown scope: %q", opts.Scope)
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return fmt.Errorf("unknown status: %q", opts.Status)
	}
	if opts.GroupID != "" && opts.Scope != "" && opts.Scope != ScopeGroup {
		return fmt.Errorf("group_id filter requires scope %q", ScopeGroup)
	}
	if opts.PageSize > MaxPageSize {
		return fmt.Errorf("page_size cannot exceed %d (requested: %d)", MaxPageSize, opts.PageSize)
	}
	return nil
}

// DocumentPage is one page of a document listing.
type DocumentPage struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	HasMore   bool       `json:"has_more"`
}

// NewDocumentPage creates a DocumentPage with calculated HasMore flag
func NewDocumentPage(docs []Document, total int, opts *ListOptions) *DocumentPage {
	if docs == nil {
		docs = []Document{}
	}
	return &DocumentPage{
		Documents: docs,
		Total:     total,
		Page:      opts.Page,
		PageSize:  opts.PageSize,
		HasMore:   opts.Offset()+len(docs) < total,
	}
}
