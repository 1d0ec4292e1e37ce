package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lexcorpus/internal/config"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	reviewModels "lexcorpus/internal/domain/models/review"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/domain/services"
	reviewSvc "lexcorpus/internal/domain/services/review"

	"golang.org/x/sync/errgroup"
)

// Event types published while a table is extracted.
const (
	EventTableStatus   = "review_table.status"
	EventTableProgress = "review_table.progress"
)

// Engine fills review tables: every (document, column) cell is extracted with
// bounded parallelism and each row is saved once all of its cells are done.
type Engine struct {
	tableRepo    reviewRepo.TableRepository
	templateRepo reviewRepo.TemplateRepository
	docRepo      corpusRepo.DocumentRepository
	store        services.ContentStore
	extractor    reviewSvc.CellExtractor
	publisher    services.EventPublisher
	concurrency  int
	logger       *slog.Logger
	now          func() time.Time

	wg sync.WaitGroup
}

// NewEngine creates an extraction engine. concurrency bounds in-flight cell extractions.
func NewEngine(
	tableRepo reviewRepo.TableRepository,
	templateRepo reviewRepo.TemplateRepository,
	docRepo corpusRepo.DocumentRepository,
	store services.ContentStore,
	extractor reviewSvc.CellExtractor,
	publisher services.EventPublisher,
	concurrency int,
	logger *slog.Logger,
) *Engine {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{
		tableRepo:    tableRepo,
		templateRepo: templateRepo,
		docRepo:      docRepo,
		store:        store,
		extractor:    extractor,
		publisher:    publisher,
		concurrency:  concurrency,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the table in the background, detached from the request context
func (e *Engine) Start(ctx context.Context, tableID string) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.Run(ctx, tableID); err != nil {
			e.logger.Error("review table run failed", "table_id", tableID, "error", err)
		}
	}()
}

// Wait blocks until every started run has returned
func (e *Engine) Wait() {
	e.wg.Wait()
}

// rowProgress collects the cells of one row until all of them are in
type rowProgress struct {
	row       *reviewModels.Row
	remaining int
}

// Run moves a created table to processing and extracts every cell.
// A table that is not in the created state is left alone.
func (e *Engine) Run(ctx context.Context, tableID string) error {
	claimed, err := e.tableRepo.Transition(ctx, tableID, reviewModels.TableCreated, reviewModels.TableProcessing)
	if err != nil {
		return err
	}
	if !claimed {
		e.logger.Debug("review table not in created state, skipping", "table_id", tableID)
		return nil
	}
	e.publishStatus(ctx, tableID, reviewModels.TableProcessing, 0, 0)

	table, err := e.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		return e.fail(ctx, tableID, fmt.Errorf("load table: %w", err))
	}
	tpl, err := e.templateRepo.GetByID(ctx, table.TemplateID)
	if err != nil {
		return e.fail(ctx, tableID, fmt.Errorf("load template: %w", err))
	}
	docs, err := e.docRepo.GetByIDs(ctx, table.DocumentIDs)
	if err != nil {
		return e.fail(ctx, tableID, fmt.Errorf("load documents: %w", err))
	}
	byID := make(map[string]*corpusModels.Document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}

	start := time.Now()
	var (
		mu          sync.Mutex
		processed   = table.ProcessedDocuments
		confidences []float64
	)
	done := make(map[string]bool, len(table.Rows))
	for _, r := range table.Rows {
		done[r.DocumentID] = true
		for col := range r.Columns {
			if _, failed := r.ColumnMeta.Error[col]; !failed {
				confidences = append(confidences, r.ColumnMeta.Confidence[col])
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, documentID := range table.DocumentIDs {
		if done[documentID] {
			continue
		}
		doc := byID[documentID]
		progress := &rowProgress{
			row: &reviewModels.Row{
				TableID:    tableID,
				DocumentID: documentID,
				Columns:    make(map[string]string, len(tpl.Columns)),
				ColumnMeta: reviewModels.NewColumnMeta(),
			},
			remaining: len(tpl.Columns),
		}

		var text string
		var textErr error
		if doc == nil {
			textErr = fmt.Errorf("document %s no longer exists", documentID)
		} else {
			progress.row.DocumentName = doc.Name
			text, textErr = e.documentText(gctx, doc)
		}

		for _, column := range tpl.Columns {
			g.Go(func() error {
				result := e.extractCell(gctx, progress.row.DocumentName, text, textErr, column)

				mu.Lock()
				progress.record(column.Name, result)
				if result.Err == nil {
					confidences = append(confidences, result.Confidence)
				}
				progress.remaining--
				finished := progress.remaining == 0
				mu.Unlock()
				if !finished {
					return nil
				}

				progress.row.UpdatedAt = e.now()
				if err := e.tableRepo.SaveRow(gctx, progress.row); err != nil {
					return fmt.Errorf("save row %s: %w", documentID, err)
				}
				mu.Lock()
				processed++
				n := processed
				mu.Unlock()
				e.publish(gctx, services.Event{
					Type:       EventTableProgress,
					ResourceID: tableID,
					Status:     string(reviewModels.TableProcessing),
					Processed:  n,
					Total:      table.TotalDocuments,
				})
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return e.fail(ctx, tableID, err)
	}

	accuracy := meanConfidence(confidences)
	if err := e.tableRepo.Complete(ctx, tableID, accuracy, e.now()); err != nil {
		return e.fail(ctx, tableID, fmt.Errorf("complete table: %w", err))
	}
	e.publishStatus(ctx, tableID, reviewModels.TableCompleted, table.TotalDocuments, table.TotalDocuments)
	e.logger.Info("review table completed",
		"table_id", tableID,
		"documents", table.TotalDocuments,
		"columns", len(tpl.Columns),
		"accuracy", accuracy,
		"duration", time.Since(start),
	)
	return nil
}

// record stores one cell outcome on the row
func (p *rowProgress) record(column string, result reviewModels.CellResult) {
	if result.Err != nil {
		p.row.Columns[column] = ""
		p.row.ColumnMeta.Error[column] = result.Err.Error()
		return
	}
	p.row.Columns[column] = result.Value
	p.row.ColumnMeta.Confidence[column] = result.Confidence
	if result.SourceExcerpt != "" {
		p.row.ColumnMeta.SourceExcerpt[column] = result.SourceExcerpt
	}
}

func (e *Engine) documentText(ctx context.Context, doc *corpusModels.Document) (string, error) {
	if doc.Status != corpusModels.StatusIngested {
		return "", fmt.Errorf("document %s is %s", doc.ID, doc.Status)
	}
	data, err := e.store.Get(ctx, doc.TextKey())
	if err != nil {
		return "", fmt.Errorf("load text of %s: %w", doc.ID, err)
	}
	return truncateRunes(string(data), config.MaxExtractionInputChars), nil
}

// extractCell asks the extractor for one cell. Failures stay in the result.
func (e *Engine) extractCell(ctx context.Context, documentName, text string, textErr error, column reviewModels.ColumnDef) reviewModels.CellResult {
	if textErr != nil {
		return reviewModels.CellResult{Err: textErr}
	}
	if err := ctx.Err(); err != nil {
		return reviewModels.CellResult{Err: err}
	}

	extraction, err := e.extractor.ExtractCell(ctx, &reviewSvc.ExtractionRequest{
		DocumentName: documentName,
		Text:         text,
		Column:       column,
	})
	if err != nil {
		e.logger.Warn("cell extraction failed",
			"document", documentName,
			"column", column.Name,
			"error", err,
		)
		return reviewModels.CellResult{Err: err}
	}
	return reviewModels.CellResult{
		Value:         extraction.Value,
		Confidence:    clamp01(extraction.Confidence),
		SourceExcerpt: extraction.SourceExcerpt,
	}
}

// fail records the table as failed; the returned error is the cause
func (e *Engine) fail(ctx context.Context, tableID string, cause error) error {
	e.logger.Error("review table failed", "table_id", tableID, "error", cause)
	if err := e.tableRepo.Fail(ctx, tableID, cause.Error()); err != nil {
		return fmt.Errorf("record failure of table %s: %w (cause: %v)", tableID, err, cause)
	}
	e.publishStatus(ctx, tableID, reviewModels.TableFailed, 0, 0)
	return cause
}

func (e *Engine) publishStatus(ctx context.Context, tableID string, status reviewModels.TableStatus, processed, total int) {
	e.publish(ctx, services.Event{
		Type:       EventTableStatus,
		ResourceID: tableID,
		Status:     string(status),
		Processed:  processed,
		Total:      total,
	})
}

func (e *Engine) publish(ctx context.Context, event services.Event) {
	event.At = e.now()
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish event", "type", event.Type, "resource_id", event.ResourceID, "error", err)
	}
}

// meanConfidence is nil when no cell succeeded
func meanConfidence(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return &mean
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// truncateRunes cuts s to at most limit runes
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
