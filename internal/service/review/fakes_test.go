package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	reviewModels "lexcorpus/internal/domain/models/review"
	"lexcorpus/internal/domain/repositories"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/domain/services"
	reviewSvc "lexcorpus/internal/domain/services/review"
)

var (
	alice = models.Principal{UserID: "alice", Role: models.RoleUser, OrganizationID: "org-1"}
	bob   = models.Principal{UserID: "bob", Role: models.RoleUser, OrganizationID: "org-1"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func notFound(kind, id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("%s not found: %s", kind, id)}
}

// --- tables ---

type memTables struct {
	mu      sync.Mutex
	tables  map[string]*reviewModels.Table
	rows    map[string]map[string]*reviewModels.Row
	history []reviewModels.CellHistory
	saveErr error
}

func newMemTables() *memTables {
	return &memTables{
		tables: map[string]*reviewModels.Table{},
		rows:   map[string]map[string]*reviewModels.Row{},
	}
}

func copyRow(r *reviewModels.Row) reviewModels.Row {
	out := *r
	out.Columns = make(map[string]string, len(r.Columns))
	for k, v := range r.Columns {
		out.Columns[k] = v
	}
	out.Edits = make(map[string]*reviewModels.CellEdit, len(r.Edits))
	for k, v := range r.Edits {
		e := *v
		out.Edits[k] = &e
	}
	return out
}

func (r *memTables) Create(ctx context.Context, table *reviewModels.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *table
	r.tables[table.ID] = &cp
	r.rows[table.ID] = map[string]*reviewModels.Row{}
	return nil
}

func (r *memTables) GetByID(ctx context.Context, id string) (*reviewModels.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok {
		return nil, notFound("review table", id)
	}
	cp := *t
	cp.Rows = nil
	for _, documentID := range t.DocumentIDs {
		if row, ok := r.rows[id][documentID]; ok {
			cp.Rows = append(cp.Rows, copyRow(row))
		}
	}
	return &cp, nil
}

func (r *memTables) List(ctx context.Context, ownerID string, projectID *string) ([]reviewModels.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reviewModels.Table
	for _, t := range r.tables {
		if t.OwnerID != ownerID {
			continue
		}
		if projectID != nil && (t.ProjectID == nil || *t.ProjectID != *projectID) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTables) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[id]; !ok {
		return notFound("review table", id)
	}
	delete(r.tables, id)
	delete(r.rows, id)
	return nil
}

func (r *memTables) Transition(ctx context.Context, id string, from, to reviewModels.TableStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (r *memTables) SaveRow(ctx context.Context, row *reviewModels.Row) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[row.TableID][row.DocumentID]; exists {
		return nil
	}
	cp := copyRow(row)
	cp.ColumnMeta = row.ColumnMeta
	r.rows[row.TableID][row.DocumentID] = &cp
	r.tables[row.TableID].ProcessedDocuments++
	return nil
}

func (r *memTables) Complete(ctx context.Context, id string, accuracy *float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tables[id]
	if t.Status != reviewModels.TableProcessing {
		return domain.NewStateError("not_processing", "not processing")
	}
	t.Status = reviewModels.TableCompleted
	t.AccuracyScore = accuracy
	t.CompletedAt = &at
	return nil
}

func (r *memTables) Fail(ctx context.Context, id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[id]; ok && !(t.Status == reviewModels.TableCompleted || t.Status == reviewModels.TableFailed) {
		t.Status = reviewModels.TableFailed
		t.ErrorMessage = &message
	}
	return nil
}

func (r *memTables) GetRowForUpdate(ctx context.Context, tableID, documentID string) (*reviewModels.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tableID][documentID]
	if !ok {
		return nil, notFound("row for document", documentID)
	}
	cp := copyRow(row)
	return &cp, nil
}

func (r *memTables) UpdateCell(ctx context.Context, tableID, documentID, column, value string, edit *reviewModels.CellEdit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tableID][documentID]
	if !ok {
		return notFound("row for document", documentID)
	}
	row.Columns[column] = value
	if row.Edits == nil {
		row.Edits = map[string]*reviewModels.CellEdit{}
	}
	e := *edit
	row.Edits[column] = &e
	return nil
}

func (r *memTables) AppendHistory(ctx context.Context, entry *reviewModels.CellHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.history) + 1)
	r.history = append(r.history, *entry)
	return nil
}

func (r *memTables) ListHistory(ctx context.Context, tableID, documentID, column string) ([]reviewModels.CellHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reviewModels.CellHistory
	for _, h := range r.history {
		if h.TableID == tableID && h.DocumentID == documentID && h.ColumnName == column {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memTables) ListStale(ctx context.Context, updatedBefore time.Time) ([]reviewModels.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reviewModels.Table
	for _, t := range r.tables {
		if t.Status == reviewModels.TableProcessing && !t.UpdatedAt.After(updatedBefore) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTables) status(id string) reviewModels.TableStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables[id].Status
}

// --- templates ---

type memTemplates struct {
	mu        sync.Mutex
	templates map[string]*reviewModels.Template
	getErr    error
}

func newMemTemplates() *memTemplates {
	return &memTemplates{templates: map[string]*reviewModels.Template{}}
}

func (r *memTemplates) Create(ctx context.Context, tpl *reviewModels.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tpl
	r.templates[tpl.ID] = &cp
	return nil
}

func (r *memTemplates) GetByID(ctx context.Context, id string) (*reviewModels.Template, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok {
		return nil, notFound("template", id)
	}
	cp := *tpl
	return &cp, nil
}

func (r *memTemplates) List(ctx context.Context, ownerID string) ([]reviewModels.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reviewModels.Template
	for _, tpl := range r.templates {
		if tpl.IsSystem || (tpl.OwnerID != nil && *tpl.OwnerID == ownerID) {
			out = append(out, *tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memTemplates) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.templates[id]; !ok || tpl.IsSystem {
		return notFound("template", id)
	}
	delete(r.templates, id)
	return nil
}

func (r *memTemplates) UpsertSystem(ctx context.Context, tpl *reviewModels.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tpl
	cp.IsSystem = true
	r.templates[tpl.ID] = &cp
	return nil
}

// --- documents ---

// memDocuments serves the lookups the review services make; the rest of the
// repository is unused here.
type memDocuments struct {
	corpusRepo.DocumentRepository
	mu   sync.Mutex
	docs map[string]*corpusModels.Document
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: map[string]*corpusModels.Document{}}
}

func (r *memDocuments) add(doc corpusModels.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.StorageKey == "" {
		doc.StorageKey = "documents/" + doc.ID
	}
	r.docs[doc.ID] = &doc
}

func (r *memDocuments) GetByID(ctx context.Context, id string) (*corpusModels.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, notFound("document", id)
	}
	cp := *doc
	return &cp, nil
}

func (r *memDocuments) GetByIDs(ctx context.Context, ids []string) ([]corpusModels.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []corpusModels.Document{}
	for _, id := range ids {
		if doc, ok := r.docs[id]; ok {
			out = append(out, *doc)
		}
	}
	return out, nil
}

// --- collaborators ---

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, notFound("object", key)
	}
	return data, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// scriptedExtractor answers from a map keyed by "document name|column".
// Missing keys fail the cell.
type scriptedExtractor struct {
	mu          sync.Mutex
	answers     map[string]reviewSvc.Extraction
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func (e *scriptedExtractor) ExtractCell(ctx context.Context, req *reviewSvc.ExtractionRequest) (*reviewSvc.Extraction, error) {
	e.mu.Lock()
	e.inFlight++
	e.maxInFlight = max(e.maxInFlight, e.inFlight)
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	answer, ok := e.answers[req.DocumentName+"|"+req.Column.Name]
	if !ok {
		return nil, fmt.Errorf("model refused to answer %s", req.Column.Name)
	}
	return &answer, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []services.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e services.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []services.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []services.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingRunner struct {
	mu      sync.Mutex
	started []string
}

func (r *recordingRunner) Start(ctx context.Context, tableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, tableID)
}

type passthroughTxManager struct{}

func (passthroughTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type nopActivity struct{}

func (nopActivity) Record(context.Context, string, string, string, string, map[string]interface{}) {}

// tableAuthorizer grants table access to owners, and project/document reads to everyone.
type tableAuthorizer struct{ tables *memTables }

func (a tableAuthorizer) CanReadDocument(ctx context.Context, p models.Principal, documentID string) error {
	return nil
}

func (a tableAuthorizer) CanWriteDocument(ctx context.Context, p models.Principal, documentID string) error {
	return nil
}

func (a tableAuthorizer) CanReadProject(ctx context.Context, p models.Principal, projectID string) error {
	return nil
}

func (a tableAuthorizer) CanWriteProject(ctx context.Context, p models.Principal, projectID string) error {
	return nil
}

func (a tableAuthorizer) CanAccessTable(ctx context.Context, p models.Principal, tableID string) error {
	t, err := a.tables.GetByID(ctx, tableID)
	if err != nil {
		return err
	}
	if t.OwnerID != p.UserID {
		return notFound("review table", tableID)
	}
	return nil
}

// contractTemplate has two columns: Parte and Prazo.
func contractTemplate() *reviewModels.Template {
	return &reviewModels.Template{
		ID:       "6f1c1a52-2f0e-4a8e-9a43-0d7d4f3c1aff",
		Name:     "Contratos",
		IsSystem: true,
		Columns: []reviewModels.ColumnDef{
			{Name: "Parte", Type: reviewModels.ColumnList, ExtractionPrompt: "Liste as partes."},
			{Name: "Prazo", Type: reviewModels.ColumnDate, ExtractionPrompt: "Informe o término."},
		},
	}
}

// reviewFixture wires the review services over the fakes.
type reviewFixture struct {
	tables    *memTables
	templates *memTemplates
	docs      *memDocuments
	store     *memStore
	extractor *scriptedExtractor
	publisher *recordingPublisher
	runner    *recordingRunner
	engine    *Engine
	service   *tableService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		tables:    newMemTables(),
		templates: newMemTemplates(),
		docs:      newMemDocuments(),
		store:     &memStore{objects: map[string][]byte{}},
		extractor: &scriptedExtractor{answers: map[string]reviewSvc.Extraction{}},
		publisher: &recordingPublisher{},
		runner:    &recordingRunner{},
	}
	tpl := contractTemplate()
	f.templates.templates[tpl.ID] = tpl

	logger := discardLogger()
	f.engine = NewEngine(f.tables, f.templates, f.docs, f.store, f.extractor, f.publisher, 2, logger)
	f.service = NewTableService(
		f.tables, f.templates, f.docs, passthroughTxManager{},
		tableAuthorizer{tables: f.tables}, f.runner, f.publisher, nopActivity{}, logger,
	).(*tableService)
	return f
}

// addIngested registers an ingested document owned by alice with its derived text.
func (f *reviewFixture) addIngested(id, name, text string) {
	f.docs.add(corpusModels.Document{
		ID:      id,
		Name:    name,
		OwnerID: alice.UserID,
		Scope:   corpusModels.ScopePrivate,
		Status:  corpusModels.StatusIngested,
	})
	f.store.objects["documents/"+id+"/text"] = []byte(text)
}

// createTable stores a created table over the given documents without running it.
func (f *reviewFixture) createTable(id string, documentIDs ...string) {
	f.tables.Create(context.Background(), &reviewModels.Table{
		ID:             id,
		Name:           "Revisão de contratos",
		TemplateID:     contractTemplate().ID,
		OwnerID:        alice.UserID,
		DocumentIDs:    documentIDs,
		Status:         reviewModels.TableCreated,
		TotalDocuments: len(documentIDs),
	})
}
