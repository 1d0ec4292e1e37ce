package review

// QuerySource points an answer back at a concrete cell or row.
type QuerySource struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ColumnName   *string `json:"column_name,omitempty"`
}

// QueryResult is the answer to a natural-language question over a table.
type QueryResult struct {
	Answer  string        `json:"answer"`
	Sources []QuerySource `json:"sources"`
}
