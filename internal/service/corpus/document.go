package corpus

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/services"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
	"lexcorpus/internal/export"
	"lexcorpus/internal/service/auth"
	"lexcorpus/internal/service/corpus/converter"

	"github.com/google/uuid"
)

// Quotas caps storage per organization and per project; zero disables a cap.
type Quotas struct {
	OrgStorageBytes     int64
	ProjectStorageBytes int64
}

// documentService implements corpusSvc.DocumentService
type documentService struct {
	*Deps
	queue  corpusSvc.IngestionQueue
	quotas Quotas
}

// NewDocumentService creates a new document service
func NewDocumentService(deps *Deps, queue corpusSvc.IngestionQueue, quotas Quotas) corpusSvc.DocumentService {
	return &documentService{Deps: deps, queue: queue, quotas: quotas}
}

// CreateDocument stores the bytes, inserts a pending record and queues ingestion.
// With a project, the membership and counter reservation share the insert's transaction.
func (s *documentService) CreateDocument(ctx context.Context, p models.Principal, req *corpusSvc.CreateDocumentRequest) (*corpusModels.Document, error) {
	if err := validateCreateDocument(p, req); err != nil {
		return nil, err
	}
	folderPath, err := normalizeOptionalFolder(req.FolderPath)
	if err != nil {
		return nil, err
	}
	if folderPath != nil && req.ProjectID == nil {
		return nil, fmt.Errorf("%w: folder_path requires project_id", domain.ErrValidation)
	}
	if req.ProjectID != nil {
		if err := s.Authorizer.CanWriteProject(ctx, p, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	var pageCount *int
	if converter.IsPDF(req.Name, req.ContentType) {
		n, err := converter.PDFPageCount(req.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pdf: %v", domain.ErrValidation, err)
		}
		pageCount = &n
	}

	size := int64(len(req.Content))
	if err := s.checkOrganizationQuota(ctx, p, size); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sum := sha256.Sum256(req.Content)
	id := uuid.NewString()
	doc := &corpusModels.Document{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		OwnerID:      p.UserID,
		Scope:        req.Scope,
		Collection:   strings.TrimSpace(req.Collection),
		Status:       corpusModels.StatusPending,
		ContentType:  req.ContentType,
		SizeBytes:    size,
		ContentHash:  hex.EncodeToString(sum[:]),
		StorageKey:   "documents/" + id,
		PageCount:    pageCount,
		Jurisdiction: req.Jurisdiction,
		SourceID:     req.SourceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.OrganizationID != "" {
		org := p.OrganizationID
		doc.OrganizationID = &org
	}
	if doc.Scope == corpusModels.ScopeGroup {
		group := req.GroupIDs[0]
		doc.GroupID = &group
	}

	if err := s.storeContent(ctx, doc, req.Content, req.Text); err != nil {
		return nil, err
	}

	err = s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.Documents.Create(ctx, doc); err != nil {
			return err
		}
		if req.ProjectID == nil {
			return nil
		}
		return s.attach(ctx, p, *req.ProjectID, doc, folderPath, now)
	})
	if err != nil {
		s.discardContent(ctx, doc)
		return nil, err
	}

	s.queue.Enqueue(doc.ID)
	s.publishStatus(ctx, doc.ID, doc.Status)
	s.Activity.Record(ctx, p.UserID, ActionDocumentCreated, "document", doc.ID, map[string]interface{}{
		"name":       doc.Name,
		"scope":      doc.Scope,
		"size_bytes": doc.SizeBytes,
	})

	s.Logger.Info("document created",
		"id", doc.ID,
		"name", doc.Name,
		"scope", doc.Scope,
		"collection", doc.Collection,
		"size_bytes", doc.SizeBytes,
		"project_id", req.ProjectID,
	)
	return doc, nil
}

// attach reserves project capacity and inserts the membership edge. It must run
// inside the caller's transaction.
func (s *documentService) attach(ctx context.Context, p models.Principal, projectID string, doc *corpusModels.Document, folderPath *string, now time.Time) error {
	delta := corpusModels.CounterDelta{Documents: 1, Bytes: doc.SizeBytes}
	if doc.Status == corpusModels.StatusIngested {
		delta.Chunks = doc.ChunkCount
	}
	return attachDocument(ctx, s.Deps, p, projectID, doc, folderPath, delta, s.quotas.ProjectStorageBytes, now)
}

// attachDocument is shared by document creation and ProjectService.AddDocument.
func attachDocument(ctx context.Context, d *Deps, p models.Principal, projectID string, doc *corpusModels.Document, folderPath *string, delta corpusModels.CounterDelta, storageCap int64, now time.Time) error {
	ok, err := d.Projects.ReserveCapacity(ctx, projectID, delta, storageCap)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.QuotaExceededError{
			Message: fmt.Sprintf("project %s has no capacity left for this document", projectID),
			Limit:   storageCap,
		}
	}

	if folderPath != nil {
		if err := d.Folders.EnsurePaths(ctx, projectID, AncestorPaths(*folderPath)); err != nil {
			return err
		}
		if err := d.Folders.AdjustCount(ctx, projectID, *folderPath, 1); err != nil {
			return err
		}
	}

	membership := &corpusModels.ProjectDocument{
		ProjectID:    projectID,
		DocumentID:   doc.ID,
		FolderPath:   folderPath,
		Status:       doc.Status,
		ErrorMessage: doc.ErrorMessage,
		IngestedAt:   doc.IngestedAt,
		AddedBy:      p.UserID,
		AddedAt:      now,
	}
	return d.Memberships.Add(ctx, membership)
}

func (s *documentService) checkOrganizationQuota(ctx context.Context, p models.Principal, size int64) error {
	if s.quotas.OrgStorageBytes <= 0 || p.OrganizationID == "" {
		return nil
	}
	used, err := s.Documents.SumStorageByOrganization(ctx, p.OrganizationID)
	if err != nil {
		return err
	}
	if used+size > s.quotas.OrgStorageBytes {
		return &domain.QuotaExceededError{
			Message: fmt.Sprintf("organization storage quota exceeded (%d of %d bytes used)", used, s.quotas.OrgStorageBytes),
			Limit:   s.quotas.OrgStorageBytes,
			Used:    used,
		}
	}
	return nil
}

func (s *documentService) storeContent(ctx context.Context, doc *corpusModels.Document, content []byte, text *string) error {
	if err := s.Store.Put(ctx, doc.RawKey(), bytes.NewReader(content), int64(len(content)), doc.ContentType); err != nil {
		return fmt.Errorf("%w: store document bytes: %v", domain.ErrTransient, err)
	}
	if text != nil {
		if err := s.Store.Put(ctx, doc.TextKey(), strings.NewReader(*text), int64(len(*text)), "text/plain; charset=utf-8"); err != nil {
			s.discardContent(ctx, doc)
			return fmt.Errorf("%w: store document text: %v", domain.ErrTransient, err)
		}
	}
	return nil
}

func (s *documentService) discardContent(ctx context.Context, doc *corpusModels.Document) {
	for _, key := range []string{doc.RawKey(), doc.TextKey()} {
		if err := s.Store.Delete(ctx, key); err != nil {
			s.Logger.Warn("failed to discard stored content", "key", key, "error", err)
		}
	}
}

// GetDocument retrieves a document the caller can see
func (s *documentService) GetDocument(ctx context.Context, p models.Principal, documentID string) (*corpusModels.Document, error) {
	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !auth.CanSeeDocument(p, doc) {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

// ListDocuments lists visible documents. A search term switches ordering to
// index relevance.
func (s *documentService) ListDocuments(ctx context.Context, p models.Principal, opts *corpusModels.ListOptions) (*corpusModels.DocumentPage, error) {
	if opts == nil {
		opts = &corpusModels.ListOptions{}
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	opts.Visibility = visibilityOf(p)

	if strings.TrimSpace(opts.Search) != "" {
		return s.searchDocuments(ctx, p, opts)
	}

	docs, total, err := s.Documents.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return corpusModels.NewDocumentPage(docs, total, opts), nil
}

// searchDocuments asks the index for document ids in relevance order, hydrates
// them from the store and pages the filtered result in memory.
func (s *documentService) searchDocuments(ctx context.Context, p models.Principal, opts *corpusModels.ListOptions) (*corpusModels.DocumentPage, error) {
	filter := services.IndexFilter{
		Scope:      opts.Scope,
		Collection: opts.Collection,
		GroupID:    opts.GroupID,
		Visibility: opts.Visibility,
	}
	ids, err := s.Indexer.SearchDocumentIDs(ctx, strings.TrimSpace(opts.Search), filter, config.MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("%w: search index: %v", domain.ErrTransient, err)
	}

	docs, err := s.Documents.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]corpusModels.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	matched := make([]corpusModels.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok || !auth.CanSeeDocument(p, &doc) {
			continue
		}
		if opts.Status != "" && doc.Status != opts.Status {
			continue
		}
		matched = append(matched, doc)
	}

	start := opts.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return corpusModels.NewDocumentPage(matched[start:end], len(matched), opts), nil
}

func visibilityOf(p models.Principal) corpusModels.Visibility {
	return corpusModels.Visibility{
		UserID:         p.UserID,
		OrganizationID: p.OrganizationID,
		GroupIDs:       p.GroupIDs,
		Admin:          p.IsAdmin(),
	}
}

// DeleteDocument hard-deletes a document. Deleting a missing document succeeds.
func (s *documentService) DeleteDocument(ctx context.Context, p models.Principal, documentID string) error {
	if err := s.Authorizer.CanWriteDocument(ctx, p, documentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if _, getErr := s.Documents.GetByID(ctx, documentID); errors.Is(getErr, domain.ErrNotFound) {
				return nil
			}
		}
		return err
	}
	_, err := s.removeDocument(ctx, documentID, p.UserID, ActionDocumentDeleted)
	return err
}

// ResubmitDocument creates a new pending document from a failed document's stored bytes.
// The failed record stays as it is.
func (s *documentService) ResubmitDocument(ctx context.Context, p models.Principal, documentID string) (*corpusModels.Document, error) {
	if err := s.Authorizer.CanWriteDocument(ctx, p, documentID); err != nil {
		return nil, err
	}
	failed, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if failed.Status != corpusModels.StatusFailed {
		return nil, domain.NewStateError(string(failed.Status), "only failed documents can be resubmitted")
	}

	content, err := s.Store.Get(ctx, failed.RawKey())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewStateError(string(failed.Status), "stored bytes of the failed document are gone")
		}
		return nil, fmt.Errorf("%w: load document bytes: %v", domain.ErrTransient, err)
	}

	req := &corpusSvc.CreateDocumentRequest{
		Name:         failed.Name,
		Content:      content,
		ContentType:  failed.ContentType,
		Scope:        failed.Scope,
		Collection:   failed.Collection,
		Jurisdiction: failed.Jurisdiction,
		SourceID:     failed.SourceID,
	}
	if failed.GroupID != nil {
		req.GroupIDs = []string{*failed.GroupID}
	}
	if text, err := s.Store.Get(ctx, failed.TextKey()); err == nil {
		t := string(text)
		req.Text = &t
	}

	doc, err := s.CreateDocument(ctx, p, req)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("document resubmitted", "failed_id", failed.ID, "id", doc.ID)
	return doc, nil
}

// documentExportColumns are the exportable document fields, in default order.
var documentExportColumns = []string{
	"id", "name", "scope", "collection", "status", "size_bytes", "content_hash",
	"chunk_count", "jurisdiction", "source_id", "created_at", "ingested_at", "expires_at",
}

// ExportDocuments renders every visible document matching opts
func (s *documentService) ExportDocuments(ctx context.Context, p models.Principal, opts *corpusModels.ListOptions, columns []string, format services.ExportFormat) (*services.ExportFile, error) {
	selected, err := export.Select(documentExportColumns, columns)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &corpusModels.ListOptions{}
	}

	var docs []corpusModels.Document
	page := *opts
	page.Page = 1
	page.PageSize = corpusModels.MaxPageSize
	for {
		result, err := s.ListDocuments(ctx, p, &page)
		if err != nil {
			return nil, err
		}
		docs = append(docs, result.Documents...)
		if !result.HasMore || len(docs) >= config.MaxExportRows {
			break
		}
		page.Page++
	}
	if len(docs) > config.MaxExportRows {
		docs = docs[:config.MaxExportRows]
	}

	table := &export.Table{Columns: selected, Rows: make([][]string, len(docs))}
	for i := range docs {
		row := make([]string, len(selected))
		for j, col := range selected {
			row[j] = documentField(&docs[i], col)
		}
		table.Rows[i] = row
	}
	return export.Render(table, format, "documents")
}

func documentField(d *corpusModels.Document, column string) string {
	switch column {
	case "id":
		return d.ID
	case "name":
		return d.Name
	case "scope":
		return string(d.Scope)
	case "collection":
		return d.Collection
	case "status":
		return string(d.Status)
	case "size_bytes":
		return strconv.FormatInt(d.SizeBytes, 10)
	case "content_hash":
		return d.ContentHash
	case "chunk_count":
		return strconv.Itoa(d.ChunkCount)
	case "jurisdiction":
		return deref(d.Jurisdiction)
	case "source_id":
		return deref(d.SourceID)
	case "created_at":
		return d.CreatedAt.UTC().Format(time.RFC3339)
	case "ingested_at":
		return formatTime(d.IngestedAt)
	case "expires_at":
		return formatTime(d.ExpiresAt)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
