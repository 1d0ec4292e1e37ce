package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	reviewModels "lexcorpus/internal/domain/models/review"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/domain/services"
	reviewSvc "lexcorpus/internal/domain/services/review"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxQuestionLength bounds a question sent to the answerer.
const MaxQuestionLength = 2000

// queryService implements reviewSvc.QueryService
type queryService struct {
	tableRepo    reviewRepo.TableRepository
	templateRepo reviewRepo.TemplateRepository
	authorizer   services.ResourceAuthorizer
	answerer     reviewSvc.TableAnswerer
	budget       int
	logger       *slog.Logger
}

// NewQueryService creates a query service with the default context budget
func NewQueryService(
	tableRepo reviewRepo.TableRepository,
	templateRepo reviewRepo.TemplateRepository,
	authorizer services.ResourceAuthorizer,
	answerer reviewSvc.TableAnswerer,
	logger *slog.Logger,
) reviewSvc.QueryService {
	return &queryService{
		tableRepo:    tableRepo,
		templateRepo: templateRepo,
		authorizer:   authorizer,
		answerer:     answerer,
		budget:       config.MaxQueryContextChars,
		logger:       logger,
	}
}

// Query answers a question from a completed table's cells only
func (s *queryService) Query(ctx context.Context, p models.Principal, tableID, question string) (*reviewModels.QueryResult, error) {
	question = strings.TrimSpace(question)
	if err := validation.Validate(question, validation.Required, validation.RuneLength(1, MaxQuestionLength)); err != nil {
		return nil, fmt.Errorf("%w: question: %v", domain.ErrValidation, err)
	}
	if err := s.authorizer.CanAccessTable(ctx, p, tableID); err != nil {
		return nil, err
	}

	table, err := s.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.Status != reviewModels.TableCompleted {
		return nil, domain.ErrTableNotReady
	}
	tpl, err := s.templateRepo.GetByID(ctx, table.TemplateID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rendered, included := RenderTableContext(table, tpl.ColumnNames(), s.budget)

	reply, err := s.answerer.AnswerQuestion(ctx, rendered, question)
	if err != nil {
		return nil, fmt.Errorf("%w: answer question: %v", domain.ErrTransient, err)
	}

	result := ParseAnswer(reply, table.Rows[:included], tpl.ColumnNames())
	s.logger.Info("review table queried",
		"table_id", tableID,
		"rows_in_context", included,
		"rows_total", len(table.Rows),
		"sources", len(result.Sources),
		"duration", time.Since(start),
	)
	return result, nil
}

// RenderTableContext renders rows as labelled blocks ([R1], [R2], ...) until the
// character budget is spent. It returns the text and how many rows it holds.
func RenderTableContext(table *reviewModels.Table, columns []string, budget int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\nColumns: %s\n\n", table.Name, strings.Join(columns, " | "))

	included := 0
	for i := range table.Rows {
		block := renderRow(i+1, &table.Rows[i], columns)
		if b.Len()+len(block) > budget {
			break
		}
		b.WriteString(block)
		included++
	}
	if omitted := len(table.Rows) - included; omitted > 0 {
		fmt.Fprintf(&b, "[%d more rows omitted]\n", omitted)
	}
	return b.String(), included
}

func renderRow(n int, row *reviewModels.Row, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[R%d] %s\n", n, row.DocumentName)
	for _, col := range columns {
		value := row.Columns[col]
		if _, failed := row.ColumnMeta.Error[col]; failed {
			value = "(extraction failed)"
		}
		fmt.Fprintf(&b, "  %s: %s\n", col, value)
	}
	b.WriteString("\n")
	return b.String()
}

type citation struct {
	Row    json.RawMessage `json:"row"`
	Column string          `json:"column,omitempty"`
}

type answerReply struct {
	Answer    string     `json:"answer"`
	Citations []citation `json:"citations"`
}

// ParseAnswer reads the answerer's JSON reply and maps citations back to
// documents. Unknown rows and columns are dropped. A reply that is not JSON
// becomes the answer with no sources.
func ParseAnswer(reply string, rows []reviewModels.Row, columns []string) *reviewModels.QueryResult {
	raw := strings.TrimSpace(reply)
	body := extractJSONObject(raw)

	var parsed answerReply
	if body == "" || json.Unmarshal([]byte(body), &parsed) != nil || strings.TrimSpace(parsed.Answer) == "" {
		return &reviewModels.QueryResult{Answer: raw, Sources: []reviewModels.QuerySource{}}
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	result := &reviewModels.QueryResult{
		Answer:  strings.TrimSpace(parsed.Answer),
		Sources: []reviewModels.QuerySource{},
	}
	seen := map[string]bool{}
	for _, c := range parsed.Citations {
		n, ok := rowNumber(c.Row)
		if !ok || n < 1 || n > len(rows) {
			continue
		}
		var column *string
		if c.Column != "" {
			if !known[c.Column] {
				continue
			}
			name := c.Column
			column = &name
		}

		key := strconv.Itoa(n) + "|" + c.Column
		if seen[key] {
			continue
		}
		seen[key] = true

		row := rows[n-1]
		result.Sources = append(result.Sources, reviewModels.QuerySource{
			DocumentID:   row.DocumentID,
			DocumentName: row.DocumentName,
			ColumnName:   column,
		})
	}
	return result
}

// extractJSONObject returns the outermost {...} of s, ignoring code fences and prose
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// rowNumber accepts 3, "3", "R3" and "[R3]"
func rowNumber(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return 0, false
	}
	label = strings.Trim(strings.TrimSpace(label), "[]")
	label = strings.TrimPrefix(strings.TrimPrefix(label, "R"), "r")
	n, err := strconv.Atoi(label)
	return n, err == nil
}
