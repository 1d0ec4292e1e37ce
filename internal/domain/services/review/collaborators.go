package review

import (
	"context"

	"lexcorpus/internal/domain/models/review"
)

// ExtractionRequest asks for one cell of one document
type ExtractionRequest struct {
	DocumentName string
	Text         string
	Column       review.ColumnDef
}

// Extraction is the collaborator's answer for one cell
type Extraction struct {
	Value         string
	Confidence    float64 // 0..1
	SourceExcerpt string
}

// CellExtractor runs a column's prompt against a document
type CellExtractor interface {
	ExtractCell(ctx context.Context, req *ExtractionRequest) (*Extraction, error)
}

// TableAnswerer answers a question given a rendered table context.
// It returns the model's raw reply.
type TableAnswerer interface {
	AnswerQuestion(ctx context.Context, tableContext, question string) (string, error)
}
