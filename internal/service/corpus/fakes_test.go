package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/repositories"
	"lexcorpus/internal/domain/services"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/service/auth"
	"lexcorpus/internal/service/corpus/converter"
)

// memDB is an in-memory stand-in for the corpus tables. All fake
// repositories share one mutex, so a cascade behaves like the SQL one.
type memDB struct {
	mu       sync.Mutex
	docs     map[string]*corpusModels.Document
	projects map[string]*corpusModels.Project
	folders  map[string]map[string]*corpusModels.Folder
	members  map[string]*corpusModels.ProjectDocument
	// locks lists the rows taken FOR UPDATE and the memberships unlinked, in order.
	locks    []string
}

func newMemDB() *memDB {
	return &memDB{
		docs:     map[string]*corpusModels.Document{},
		projects: map[string]*corpusModels.Project{},
		folders:  map[string]map[string]*corpusModels.Folder{},
		members:  map[string]*corpusModels.ProjectDocument{},
	}
}

func memberKey(projectID, documentID string) string { return projectID + "|" + documentID }

func notFound(kind, id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("%s not found: %s", kind, id)}
}

// --- documents ---

type memDocuments struct{ db *memDB }

func (r *memDocuments) Create(ctx context.Context, doc *corpusModels.Document) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.docs[doc.ID]; ok {
		return &domain.ConflictError{Message: "document exists", ResourceType: "document", ResourceID: doc.ID}
	}
	cp := *doc
	r.db.docs[doc.ID] = &cp
	return nil
}

func (r *memDocuments) GetByID(ctx context.Context, id string) (*corpusModels.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	doc, ok := r.db.docs[id]
	if !ok {
		return nil, notFound("document", id)
	}
	cp := *doc
	return &cp, nil
}

func (r *memDocuments) GetByIDs(ctx context.Context, ids []string) ([]corpusModels.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []corpusModels.Document{}
	for _, id := range ids {
		if doc, ok := r.db.docs[id]; ok {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *memDocuments) GetForUpdate(ctx context.Context, id string) (*corpusModels.Document, error) {
	r.db.mu.Lock()
	r.db.locks = append(r.db.locks, "document "+id)
	r.db.mu.Unlock()
	return r.GetByID(ctx, id)
}

func visibleTo(v corpusModels.Visibility, d *corpusModels.Document) bool {
	p := models.Principal{UserID: v.UserID, GroupIDs: v.GroupIDs, Role: models.RoleUser}
	if v.Admin {
		p.Role = models.RoleAdmin
	}
	return auth.CanSeeDocument(p, d)
}

func (r *memDocuments) List(ctx context.Context, opts *corpusModels.ListOptions) ([]corpusModels.Document, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []corpusModels.Document
	for _, d := range r.db.docs {
		if !visibleTo(opts.Visibility, d) {
			continue
		}
		if opts.Scope != "" && d.Scope != opts.Scope {
			continue
		}
		if opts.Collection != "" && d.Collection != opts.Collection {
			continue
		}
		if opts.Status != "" && d.Status != opts.Status {
			continue
		}
		matched = append(matched, *d)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if (a.IngestedAt == nil) != (b.IngestedAt == nil) {
			return a.IngestedAt != nil
		}
		if a.IngestedAt != nil && !a.IngestedAt.Equal(*b.IngestedAt) {
			return a.IngestedAt.After(*b.IngestedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	total := len(matched)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *memDocuments) Delete(ctx context.Context, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.docs[id]; !ok {
		return false, nil
	}
	delete(r.db.docs, id)
	for key, m := range r.db.members {
		if m.DocumentID == id {
			delete(r.db.members, key)
		}
	}
	return true, nil
}

func (r *memDocuments) transition(id string, from corpusModels.Status, apply func(d *corpusModels.Document)) bool {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	doc, ok := r.db.docs[id]
	if !ok || doc.Status != from {
		return false
	}
	apply(doc)
	doc.UpdatedAt = time.Now().UTC()
	return true
}

func (r *memDocuments) Claim(ctx context.Context, id string) (bool, error) {
	return r.transition(id, corpusModels.StatusPending, func(d *corpusModels.Document) {
		d.Status = corpusModels.StatusProcessing
	}), nil
}

func (r *memDocuments) MarkIngested(ctx context.Context, id string, chunkCount int, ingestedAt time.Time, expiresAt *time.Time) (bool, error) {
	return r.transition(id, corpusModels.StatusProcessing, func(d *corpusModels.Document) {
		d.Status = corpusModels.StatusIngested
		d.ChunkCount = chunkCount
		d.IngestedAt = &ingestedAt
		d.ExpiresAt = expiresAt
	}), nil
}

func (r *memDocuments) MarkFailed(ctx context.Context, id string, message string) (bool, error) {
	return r.transition(id, corpusModels.StatusProcessing, func(d *corpusModels.Document) {
		d.Status = corpusModels.StatusFailed
		d.ErrorMessage = &message
	}), nil
}

func (r *memDocuments) UpdateScope(ctx context.Context, id string, scope corpusModels.Scope, expiresAt *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	doc, ok := r.db.docs[id]
	if !ok {
		return notFound("document", id)
	}
	doc.Scope = scope
	doc.ExpiresAt = expiresAt
	return nil
}

func (r *memDocuments) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	doc, ok := r.db.docs[id]
	if !ok || doc.Scope != corpusModels.ScopeLocal {
		return notFound("document", id)
	}
	doc.ExpiresAt = &expiresAt
	return nil
}

func (r *memDocuments) ListIDsByStatus(ctx context.Context, status corpusModels.Status, updatedBefore time.Time) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []string
	for id, d := range r.db.docs {
		if d.Status == status && !d.UpdatedAt.After(updatedBefore) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memDocuments) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []string
	for id, d := range r.db.docs {
		if d.Scope == corpusModels.ScopeLocal && d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memDocuments) SumStorageByOrganization(ctx context.Context, organizationID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var total int64
	for _, d := range r.db.docs {
		if d.OrganizationID != nil && *d.OrganizationID == organizationID {
			total += d.SizeBytes
		}
	}
	return total, nil
}

// --- projects ---

type memProjects struct{ db *memDB }

func (r *memProjects) Create(ctx context.Context, project *corpusModels.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *project
	r.db.projects[project.ID] = &cp
	return nil
}

func (r *memProjects) GetByID(ctx context.Context, id string) (*corpusModels.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memProjects) List(ctx context.Context, userID, organizationID string) ([]corpusModels.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []corpusModels.Project
	for _, p := range r.db.projects {
		kb := p.IsKnowledgeBase && p.OrganizationID != nil && *p.OrganizationID == organizationID
		if p.OwnerID == userID || kb {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memProjects) Update(ctx context.Context, project *corpusModels.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[project.ID]; !ok {
		return notFound("project", project.ID)
	}
	cp := *project
	r.db.projects[project.ID] = &cp
	return nil
}

func (r *memProjects) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[id]; !ok {
		return notFound("project", id)
	}
	delete(r.db.projects, id)
	delete(r.db.folders, id)
	for key, m := range r.db.members {
		if m.ProjectID == id {
			delete(r.db.members, key)
		}
	}
	return nil
}

func (r *memProjects) ReserveCapacity(ctx context.Context, id string, delta corpusModels.CounterDelta, storageCap int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return false, notFound("project", id)
	}
	if !p.IsActive {
		return false, domain.NewStateError(corpusModels.ProjectInactive, "project is inactive")
	}
	if p.MaxDocuments != nil && p.DocumentCount+delta.Documents > *p.MaxDocuments {
		return false, nil
	}
	if storageCap > 0 && p.StorageBytes+delta.Bytes > storageCap {
		return false, nil
	}
	p.DocumentCount += delta.Documents
	p.ChunkCount += delta.Chunks
	p.StorageBytes += delta.Bytes
	return true, nil
}

func (r *memProjects) ApplyDelta(ctx context.Context, id string, delta corpusModels.CounterDelta) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return nil
	}
	p.DocumentCount = max(p.DocumentCount+delta.Documents, 0)
	p.ChunkCount = max(p.ChunkCount+delta.Chunks, 0)
	p.StorageBytes = max(p.StorageBytes+delta.Bytes, 0)
	return nil
}

func (r *memProjects) SetCounters(ctx context.Context, id string, counters corpusModels.CounterDelta) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return notFound("project", id)
	}
	p.DocumentCount = counters.Documents
	p.ChunkCount = counters.Chunks
	p.StorageBytes = counters.Bytes
	return nil
}

// --- folders ---

type memFolders struct{ db *memDB }

func (r *memFolders) EnsurePaths(ctx context.Context, projectID string, paths []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.folders[projectID] == nil {
		r.db.folders[projectID] = map[string]*corpusModels.Folder{}
	}
	for _, path := range paths {
		if _, ok := r.db.folders[projectID][path]; !ok {
			r.db.folders[projectID][path] = &corpusModels.Folder{ProjectID: projectID, Path: path, CreatedAt: time.Now()}
		}
	}
	return nil
}

func (r *memFolders) GetAllByProject(ctx context.Context, projectID string) ([]corpusModels.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []corpusModels.Folder{}
	for _, f := range r.db.folders[projectID] {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (r *memFolders) Exists(ctx context.Context, projectID, path string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.folders[projectID][path]
	return ok, nil
}

func (r *memFolders) AdjustCount(ctx context.Context, projectID, path string, delta int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if f, ok := r.db.folders[projectID][path]; ok {
		f.DocumentCount = max(f.DocumentCount+delta, 0)
	}
	return nil
}

func (r *memFolders) DeleteSubtree(ctx context.Context, projectID, path string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var removed []string
	for p := range r.db.folders[projectID] {
		if p == path || strings.HasPrefix(p, path+"/") {
			removed = append(removed, p)
			delete(r.db.folders[projectID], p)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

func (r *memFolders) SetCount(ctx context.Context, projectID, path string, count int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if f, ok := r.db.folders[projectID][path]; ok {
		f.DocumentCount = count
	}
	return nil
}

// --- memberships ---

type memMemberships struct{ db *memDB }

func (r *memMemberships) Add(ctx context.Context, m *corpusModels.ProjectDocument) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := memberKey(m.ProjectID, m.DocumentID)
	if _, ok := r.db.members[key]; ok {
		return &domain.ConflictError{Message: "already in project", ResourceType: "project_document", ResourceID: m.DocumentID}
	}
	cp := *m
	r.db.members[key] = &cp
	return nil
}

func (r *memMemberships) joined(m *corpusModels.ProjectDocument) corpusModels.ProjectDocument {
	out := *m
	if d, ok := r.db.docs[m.DocumentID]; ok {
		out.DocumentName = d.Name
		out.SizeBytes = d.SizeBytes
		out.ContentHash = d.ContentHash
		out.ChunkCount = d.ChunkCount
	}
	return out
}

func (r *memMemberships) Get(ctx context.Context, projectID, documentID string) (*corpusModels.ProjectDocument, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.members[memberKey(projectID, documentID)]
	if !ok {
		return nil, notFound("project document", documentID)
	}
	out := r.joined(m)
	return &out, nil
}

func (r *memMemberships) Remove(ctx context.Context, projectID, documentID string) (*corpusModels.ProjectDocument, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := memberKey(projectID, documentID)
	m, ok := r.db.members[key]
	if !ok {
		return nil, notFound("project document", documentID)
	}
	delete(r.db.members, key)
	r.db.locks = append(r.db.locks, "unlink "+key)
	return m, nil
}

func (r *memMemberships) SetFolder(ctx context.Context, projectID, documentID string, folderPath *string) (*string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.members[memberKey(projectID, documentID)]
	if !ok {
		return nil, notFound("project document", documentID)
	}
	previous := m.FolderPath
	m.FolderPath = folderPath
	return previous, nil
}

func (r *memMemberships) list(match func(m *corpusModels.ProjectDocument) bool) []corpusModels.ProjectDocument {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []corpusModels.ProjectDocument{}
	for _, m := range r.db.members {
		if match(m) {
			out = append(out, r.joined(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

func (r *memMemberships) ListByProject(ctx context.Context, projectID string) ([]corpusModels.ProjectDocument, error) {
	return r.list(func(m *corpusModels.ProjectDocument) bool { return m.ProjectID == projectID }), nil
}

func (r *memMemberships) ListByDocument(ctx context.Context, documentID string) ([]corpusModels.ProjectDocument, error) {
	return r.list(func(m *corpusModels.ProjectDocument) bool { return m.DocumentID == documentID }), nil
}

func (r *memMemberships) MarkDocumentStatus(ctx context.Context, documentID string, status corpusModels.Status, message *string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.members {
		if m.DocumentID != documentID || m.Status.Terminal() {
			continue
		}
		m.Status = status
		m.ErrorMessage = message
		if status == corpusModels.StatusIngested {
			m.IngestedAt = &at
		}
	}
	return nil
}

func (r *memMemberships) MoveFolderToRoot(ctx context.Context, projectID string, paths []string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	set := map[string]bool{}
	for _, p := range paths {
		set[p] = true
	}
	moved := 0
	for _, m := range r.db.members {
		if m.ProjectID == projectID && m.FolderPath != nil && set[*m.FolderPath] {
			m.FolderPath = nil
			moved++
		}
	}
	return moved, nil
}

// --- collaborators ---

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
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

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type fakeIndexer struct {
	mu        sync.Mutex
	indexed   map[string]int
	scopes    map[string]corpusModels.Scope
	purged    []string
	indexErr  error
	searchIDs []string
	onIndex   func()
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{indexed: map[string]int{}, scopes: map[string]corpusModels.Scope{}}
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, doc *corpusModels.Document, text string) (int, error) {
	if f.onIndex != nil {
		f.onIndex()
	}
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(strings.Fields(text))/3 + 1
	f.indexed[doc.ID] = n
	f.scopes[doc.ID] = doc.Scope
	return n, nil
}

func (f *fakeIndexer) UpdateScope(ctx context.Context, doc *corpusModels.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes[doc.ID] = doc.Scope
	return nil
}

func (f *fakeIndexer) PurgeDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, documentID)
	f.purged = append(f.purged, documentID)
	return nil
}

func (f *fakeIndexer) SearchDocumentIDs(ctx context.Context, query string, filter services.IndexFilter, limit int) ([]string, error) {
	return f.searchIDs, nil
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

func (p *recordingPublisher) statuses(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.ResourceID == id {
			out = append(out, e.Status)
		}
	}
	return out
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}

type nopActivity struct{}

func (nopActivity) Record(context.Context, string, string, string, string, map[string]interface{}) {}

// fixture wires every corpus service over the in-memory fakes.
type fixture struct {
	db        *memDB
	store     *memStore
	indexer   *fakeIndexer
	publisher *recordingPublisher
	queue     *recordingQueue
	deps      *Deps

	documents  *documentService
	lifecycle  *lifecycleService
	projects   *projectService
	folders    *folderService
	duplicates *duplicateService
}

func newFixture(t *testing.T, quotas Quotas) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{
		db:        db,
		store:     newMemStore(),
		indexer:   newFakeIndexer(),
		publisher: &recordingPublisher{},
		queue:     &recordingQueue{},
	}
	docs := &memDocuments{db: db}
	projects := &memProjects{db: db}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.deps = &Deps{
		Documents:   docs,
		Projects:    projects,
		Folders:     &memFolders{db: db},
		Memberships: &memMemberships{db: db},
		TxManager:   passthroughTxManager{},
		Store:       f.store,
		Indexer:     f.indexer,
		Publisher:   f.publisher,
		Activity:    nopActivity{},
		Authorizer:  auth.NewScopeAuthorizer(docs, projects, nil),
		Converters:  converter.NewRegistry(),
		Logger:      logger,
	}
	f.documents = NewDocumentService(f.deps, f.queue, quotas).(*documentService)
	f.lifecycle = NewLifecycleService(f.deps).(*lifecycleService)
	f.projects = NewProjectService(f.deps, quotas).(*projectService)
	f.folders = NewFolderService(f.deps).(*folderService)
	f.duplicates = NewDuplicateService(f.deps.Memberships, docs, f.store, f.deps.Authorizer, logger).(*duplicateService)
	return f
}

// passthroughTxManager runs fn directly; the fakes are individually atomic.
type passthroughTxManager struct{}

func (passthroughTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	// pgx refuses to begin on a cancelled context
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

type createRequest = corpusSvc.CreateDocumentRequest

var (
	alice = models.Principal{UserID: "alice", Role: models.RoleUser, OrganizationID: "org-1", GroupIDs: []string{"litigation"}}
	bob   = models.Principal{UserID: "bob", Role: models.RoleUser, OrganizationID: "org-1", GroupIDs: []string{"tax"}}
	admin = models.Principal{UserID: "root", Role: models.RoleAdmin, OrganizationID: "org-1"}
)

func textUpload(name, body string, scope corpusModels.Scope) *createRequest {
	return &createRequest{
		Name:        name,
		Content:     []byte(body),
		ContentType: "text/plain",
		Scope:       scope,
		Collection:  "legislation",
	}
}

// ingest creates and ingests a document, failing the test on any error.
func (f *fixture) ingest(t *testing.T, p models.Principal, req *createRequest) *corpusModels.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.documents.CreateDocument(ctx, p, req)
	if err != nil {
		t.Fatalf("CreateDocument(%s): %v", req.Name, err)
	}
	if claimed, err := f.lifecycle.Ingest(ctx, doc.ID); err != nil || !claimed {
		t.Fatalf("Ingest(%s) = %v, %v", doc.ID, claimed, err)
	}
	got, err := f.db.getDoc(doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func (db *memDB) getDoc(id string) (*corpusModels.Document, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	d, ok := db.docs[id]
	if !ok {
		return nil, notFound("document", id)
	}
	cp := *d
	return &cp, nil
}

func (db *memDB) getProject(id string) corpusModels.Project {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.projects[id]
}

func (db *memDB) folderCount(projectID, path string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	if f, ok := db.folders[projectID][path]; ok {
		return f.DocumentCount
	}
	return -1
}
