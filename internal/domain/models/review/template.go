package review

import (
	"time"
)

// ColumnType is the expected shape of an extracted value.
type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnDate    ColumnType = "date"
	ColumnNumber  ColumnType = "number"
	ColumnBoolean ColumnType = "boolean"
	ColumnList    ColumnType = "list"
)

// Valid reports whether t is a known column type.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnText, ColumnDate, ColumnNumber, ColumnBoolean, ColumnList:
		return true
	}
	return false
}

// ColumnDef is one named column of a template.
type ColumnDef struct {
	Name             string     `json:"name" yaml:"name"`
	Type             ColumnType `json:"type" yaml:"type"`
	ExtractionPrompt string     `json:"extraction_prompt" yaml:"extraction_prompt"`
}

// Template is an ordered list of columns applied to a document set.
// System templates are seeded and immutable.
type Template struct {
	ID          string      `json:"id" db:"id" yaml:"id"`
	Name        string      `json:"name" db:"name" yaml:"name"`
	Description string      `json:"description,omitempty" db:"description" yaml:"description"`
	Area        *string     `json:"area,omitempty" db:"area" yaml:"area"`
	Columns     []ColumnDef `json:"columns" db:"columns" yaml:"columns"`
	IsSystem    bool        `json:"is_system" db:"is_system" yaml:"-"`
	OwnerID     *string     `json:"owner_id,omitempty" db:"owner_id" yaml:"-"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at" yaml:"-"`
}

// Column returns the column definition with the given name.
func (t *Template) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnNames returns the column names in template order.
func (t *Template) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
