package review

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	reviewModels "lexcorpus/internal/domain/models/review"
	"lexcorpus/internal/domain/repositories"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	"lexcorpus/internal/domain/services"
	reviewSvc "lexcorpus/internal/domain/services/review"
	"lexcorpus/internal/export"
	"lexcorpus/internal/service/auth"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Activity actions recorded by the review services.
const (
	ActionTableCreated = "review_table.created"
	ActionTableDeleted = "review_table.deleted"
	ActionCellEdited   = "review_table.cell_edited"
)

// TableRunner starts extraction of a created table without blocking
type TableRunner interface {
	Start(ctx context.Context, tableID string)
}

// tableService implements reviewSvc.TableService
type tableService struct {
	tableRepo    reviewRepo.TableRepository
	templateRepo reviewRepo.TemplateRepository
	docRepo      corpusRepo.DocumentRepository
	txManager    repositories.TransactionManager
	authorizer   services.ResourceAuthorizer
	runner       TableRunner
	publisher    services.EventPublisher
	activity     services.ActivityRecorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewTableService creates a new review table service
func NewTableService(
	tableRepo reviewRepo.TableRepository,
	templateRepo reviewRepo.TemplateRepository,
	docRepo corpusRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	runner TableRunner,
	publisher services.EventPublisher,
	activity services.ActivityRecorder,
	logger *slog.Logger,
) reviewSvc.TableService {
	return &tableService{
		tableRepo:    tableRepo,
		templateRepo: templateRepo,
		docRepo:      docRepo,
		txManager:    txManager,
		authorizer:   authorizer,
		runner:       runner,
		publisher:    publisher,
		activity:     activity,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateTable checks every document is visible and ingested, stores the table
// as created and hands it to the runner
func (s *tableService) CreateTable(ctx context.Context, p models.Principal, req *reviewSvc.CreateTableRequest) (*reviewModels.Table, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxProjectNameLength)),
		validation.Field(&req.TemplateID, validation.Required, validation.By(isUUID)),
		validation.Field(&req.DocumentIDs, validation.Required, validation.Length(1, config.MaxReviewTableDocuments)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be blank", domain.ErrValidation)
	}

	if _, err := loadTemplate(ctx, s.templateRepo, p, req.TemplateID); err != nil {
		return nil, err
	}
	if req.ProjectID != nil {
		if err := s.authorizer.CanReadProject(ctx, p, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	documentIDs := dedupe(req.DocumentIDs)
	if err := s.checkDocuments(ctx, p, documentIDs); err != nil {
		return nil, err
	}

	now := s.now()
	table := &reviewModels.Table{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		TemplateID:     req.TemplateID,
		ProjectID:      req.ProjectID,
		OwnerID:        p.UserID,
		DocumentIDs:    documentIDs,
		Status:         reviewModels.TableCreated,
		TotalDocuments: len(documentIDs),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.tableRepo.Create(ctx, table); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, services.Event{
		Type:       EventTableStatus,
		ResourceID: table.ID,
		Status:     string(table.Status),
		Total:      table.TotalDocuments,
		At:         now,
	}); err != nil {
		s.logger.Warn("failed to publish event", "table_id", table.ID, "error", err)
	}
	s.runner.Start(ctx, table.ID)

	s.activity.Record(ctx, p.UserID, ActionTableCreated, "review_table", table.ID, map[string]interface{}{
		"template_id": table.TemplateID,
		"documents":   table.TotalDocuments,
	})
	s.logger.Info("review table created",
		"id", table.ID,
		"template_id", table.TemplateID,
		"documents", table.TotalDocuments,
	)
	return table, nil
}

func isUUID(value interface{}) error {
	if _, err := uuid.Parse(value.(string)); err != nil {
		return fmt.Errorf("must be a valid UUID")
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// checkDocuments lists every document that is missing, invisible or not ingested
func (s *tableService) checkDocuments(ctx context.Context, p models.Principal, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: document_ids: cannot be blank", domain.ErrValidation)
	}
	docs, err := s.docRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*corpusModels.Document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}

	var offenders []string
	for _, id := range ids {
		doc, ok := byID[id]
		switch {
		case !ok || !auth.CanSeeDocument(p, doc):
			offenders = append(offenders, id+" (not found)")
		case doc.Status != corpusModels.StatusIngested:
			offenders = append(offenders, fmt.Sprintf("%s (%s)", id, doc.Status))
		}
	}
	if len(offenders) > 0 {
		return &domain.ValidationError{
			Message: "documents must exist and be ingested: " + strings.Join(offenders, ", "),
		}
	}
	return nil
}

// GetTable retrieves a table with its rows
func (s *tableService) GetTable(ctx context.Context, p models.Principal, tableID string) (*reviewModels.Table, error) {
	if err := s.authorizer.CanAccessTable(ctx, p, tableID); err != nil {
		return nil, err
	}
	return s.tableRepo.GetByID(ctx, tableID)
}

// ListTables lists the caller's tables, optionally within one project
func (s *tableService) ListTables(ctx context.Context, p models.Principal, projectID *string) ([]reviewModels.Table, error) {
	tables, err := s.tableRepo.List(ctx, p.UserID, projectID)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []reviewModels.Table{}
	}
	return tables, nil
}

// DeleteTable removes a table with its rows and history
func (s *tableService) DeleteTable(ctx context.Context, p models.Principal, tableID string) error {
	if err := s.authorizer.CanAccessTable(ctx, p, tableID); err != nil {
		return err
	}
	if err := s.tableRepo.Delete(ctx, tableID); err != nil {
		return err
	}

	s.activity.Record(ctx, p.UserID, ActionTableDeleted, "review_table", tableID, nil)
	s.logger.Info("review table deleted", "id", tableID)
	return nil
}

// EditCell overrides a cell value
func (s *tableService) EditCell(ctx context.Context, p models.Principal, tableID string, req *reviewSvc.EditCellRequest) (*reviewModels.Row, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.ColumnName, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.writeCell(ctx, p, tableID, req.DocumentID, req.ColumnName, func(string, bool) (string, bool) {
		return req.Value, req.Verified
	})
}

// ToggleVerified flips a cell's verified flag, keeping its value
func (s *tableService) ToggleVerified(ctx context.Context, p models.Principal, tableID, documentID, columnName string) (*reviewModels.Row, error) {
	return s.writeCell(ctx, p, tableID, documentID, columnName, func(value string, verified bool) (string, bool) {
		return value, !verified
	})
}

// writeCell locks the row, applies change to the current cell, then writes the
// value, the edit marker and one history entry in a single transaction
func (s *tableService) writeCell(
	ctx context.Context,
	p models.Principal,
	tableID, documentID, columnName string,
	change func(value string, verified bool) (string, bool),
) (*reviewModels.Row, error) {
	if err := s.authorizer.CanAccessTable(ctx, p, tableID); err != nil {
		return nil, err
	}
	if err := s.requireColumn(ctx, tableID, columnName); err != nil {
		return nil, err
	}

	var row *reviewModels.Row
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.tableRepo.GetRowForUpdate(ctx, tableID, documentID)
		if err != nil {
			return err
		}

		var oldValue *string
		if v, ok := row.Columns[columnName]; ok {
			oldValue = &v
		}
		verified := false
		if edit := row.Edits[columnName]; edit != nil {
			verified = edit.Verified
		}
		current := ""
		if oldValue != nil {
			current = *oldValue
		}
		value, verified := change(current, verified)

		now := s.now()
		edit := &reviewModels.CellEdit{EditedBy: p.UserID, EditedAt: now, Verified: verified}
		if err := s.tableRepo.UpdateCell(ctx, tableID, documentID, columnName, value, edit); err != nil {
			return err
		}
		if err := s.tableRepo.AppendHistory(ctx, &reviewModels.CellHistory{
			TableID:    tableID,
			DocumentID: documentID,
			ColumnName: columnName,
			OldValue:   oldValue,
			NewValue:   value,
			Verified:   verified,
			ChangedBy:  p.UserID,
			ChangedAt:  now,
		}); err != nil {
			return err
		}

		if row.Columns == nil {
			row.Columns = map[string]string{}
		}
		if row.Edits == nil {
			row.Edits = map[string]*reviewModels.CellEdit{}
		}
		row.Columns[columnName] = value
		row.Edits[columnName] = edit
		row.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, p.UserID, ActionCellEdited, "review_table", tableID, map[string]interface{}{
		"document_id": documentID,
		"column":      columnName,
		"verified":    row.Edits[columnName].Verified,
	})
	s.logger.Info("review cell edited",
		"table_id", tableID,
		"document_id", documentID,
		"column", columnName,
		"verified", row.Edits[columnName].Verified,
	)
	return row, nil
}

// requireColumn rejects names that are not columns of the table's template
func (s *tableService) requireColumn(ctx context.Context, tableID, columnName string) error {
	table, err := s.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		return err
	}
	tpl, err := s.templateRepo.GetByID(ctx, table.TemplateID)
	if err != nil {
		return err
	}
	if _, ok := tpl.Column(columnName); !ok {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown column %q", columnName)}
	}
	return nil
}

// GetCellHistory lists a cell's audit entries, oldest first
func (s *tableService) GetCellHistory(ctx context.Context, p models.Principal, tableID, documentID, columnName string) ([]reviewModels.CellHistory, error) {
	if err := s.authorizer.CanAccessTable(ctx, p, tableID); err != nil {
		return nil, err
	}
	history, err := s.tableRepo.ListHistory(ctx, tableID, documentID, columnName)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []reviewModels.CellHistory{}
	}
	return history, nil
}

// ExportTable renders the selected columns of a table
func (s *tableService) ExportTable(ctx context.Context, p models.Principal, tableID string, columns []string, format services.ExportFormat) (*services.ExportFile, error) {
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

	selected, err := export.Select(exportColumns(tpl), columns)
	if err != nil {
		return nil, err
	}

	out := &export.Table{Columns: selected, Rows: make([][]string, 0, len(table.Rows))}
	for i := range table.Rows {
		record := make([]string, len(selected))
		for j, name := range selected {
			record[j] = rowField(&table.Rows[i], name)
		}
		out.Rows = append(out.Rows, record)
	}

	file, err := export.Render(out, format, table.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review table exported",
		"table_id", tableID,
		"format", format,
		"rows", len(out.Rows),
		"columns", len(selected),
	)
	return file, nil
}

// exportColumns lists every exportable column of a template
func exportColumns(tpl *reviewModels.Template) []string {
	names := tpl.ColumnNames()
	columns := make([]string, 0, 2+3*len(names))
	columns = append(columns, columnDocumentID, columnDocumentName)
	columns = append(columns, names...)
	for _, name := range names {
		columns = append(columns, name+suffixConfidence, name+suffixVerified)
	}
	return columns
}

func rowField(row *reviewModels.Row, name string) string {
	switch {
	case name == columnDocumentID:
		return row.DocumentID
	case name == columnDocumentName:
		return row.DocumentName
	case strings.HasSuffix(name, suffixConfidence):
		column := strings.TrimSuffix(name, suffixConfidence)
		if _, failed := row.ColumnMeta.Error[column]; failed {
			return ""
		}
		if c, ok := row.ColumnMeta.Confidence[column]; ok {
			return strconv.FormatFloat(c, 'f', 2, 64)
		}
		return ""
	case strings.HasSuffix(name, suffixVerified):
		edit := row.Edits[strings.TrimSuffix(name, suffixVerified)]
		return strconv.FormatBool(edit != nil && edit.Verified)
	default:
		return row.Columns[name]
	}
}

// ListStale lists tables stuck in processing for longer than olderThan
func (s *tableService) ListStale(ctx context.Context, olderThan time.Duration) ([]reviewModels.Table, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("%w: older_than must be positive", domain.ErrValidation)
	}
	tables, err := s.tableRepo.ListStale(ctx, s.now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []reviewModels.Table{}
	}
	return tables, nil
}
