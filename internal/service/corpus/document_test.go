package corpus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/services"
	corpusSvc "lexcorpus/internal/domain/services/corpus"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateDocument_Validation(t *testing.T) {
	tests := []struct {
		name    string
		caller  models.Principal
		mutate  func(r *createRequest)
		wantErr error
	}{
		{
			name:    "group scope without group id",
			caller:  alice,
			mutate:  func(r *createRequest) { r.Scope = corpusModels.ScopeGroup },
			wantErr: domain.ErrInvalidScope,
		},
		{
			name:   "group scope with two group ids",
			caller: alice,
			mutate: func(r *createRequest) {
				r.Scope = corpusModels.ScopeGroup
				r.GroupIDs = []string{"litigation", "tax"}
			},
			wantErr: domain.ErrInvalidScope,
		},
		{
			name:    "group ids on a private document",
			caller:  alice,
			mutate:  func(r *createRequest) { r.GroupIDs = []string{"litigation"} },
			wantErr: domain.ErrInvalidScope,
		},
		{
			name:    "empty content",
			caller:  alice,
			mutate:  func(r *createRequest) { r.Content = nil },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown scope",
			caller:  alice,
			mutate:  func(r *createRequest) { r.Scope = "public" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "global requires admin",
			caller:  alice,
			mutate:  func(r *createRequest) { r.Scope = corpusModels.ScopeGlobal },
			wantErr: domain.ErrForbidden,
		},
		{
			name:   "group the caller is not in",
			caller: alice,
			mutate: func(r *createRequest) {
				r.Scope = corpusModels.ScopeGroup
				r.GroupIDs = []string{"tax"}
			},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "folder without project",
			caller:  alice,
			mutate:  func(r *createRequest) { r.FolderPath = strPtr("Contratos") },
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Quotas{})
			req := textUpload("lei.txt", "texto da lei", corpusModels.ScopePrivate)
			tt.mutate(req)

			_, err := f.documents.CreateDocument(context.Background(), tt.caller, req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(f.queue.ids) != 0 {
				t.Errorf("rejected upload was queued")
			}
		})
	}
}

func TestCreateDocument_InvalidScopeIsValidationClass(t *testing.T) {
	f := newFixture(t, Quotas{})
	req := textUpload("a.txt", "x", corpusModels.ScopeGroup)
	_, err := f.documents.CreateDocument(context.Background(), alice, req)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("InvalidScope should match ErrValidation, got %v", err)
	}
}

func TestCreateDocument_PendingAndQueued(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	req := textUpload("lei-8245.txt", "dispõe sobre as locações dos imóveis urbanos", corpusModels.ScopeGroup)
	req.GroupIDs = []string{"litigation"}
	doc, err := f.documents.CreateDocument(ctx, alice, req)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	if doc.Status != corpusModels.StatusPending {
		t.Errorf("status = %s, want pending", doc.Status)
	}
	if doc.GroupID == nil || *doc.GroupID != "litigation" {
		t.Errorf("group id = %v", doc.GroupID)
	}
	if len(doc.ContentHash) != 64 {
		t.Errorf("content hash %q is not sha256 hex", doc.ContentHash)
	}
	if !f.store.has(doc.RawKey()) {
		t.Error("raw bytes not stored")
	}
	if len(f.queue.ids) != 1 || f.queue.ids[0] != doc.ID {
		t.Errorf("queue = %v", f.queue.ids)
	}
	if got := f.publisher.statuses(doc.ID); len(got) != 1 || got[0] != "pending" {
		t.Errorf("events = %v", got)
	}
}

func TestCreateDocument_IntoProjectFolder(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	project, err := f.projects.CreateProject(ctx, alice, &corpusSvc.CreateProjectRequest{Name: "Contencioso"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	req := textUpload("contrato.txt", "contrato de locação", corpusModels.ScopePrivate)
	req.ProjectID = &project.ID
	req.FolderPath = strPtr("Contratos/2026")
	doc, err := f.documents.CreateDocument(ctx, alice, req)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	got := f.db.getProject(project.ID)
	if got.DocumentCount != 1 || got.StorageBytes != doc.SizeBytes || got.ChunkCount != 0 {
		t.Errorf("counters after upload = %d docs, %d bytes, %d chunks", got.DocumentCount, got.StorageBytes, got.ChunkCount)
	}
	if c := f.db.folderCount(project.ID, "Contratos/2026"); c != 1 {
		t.Errorf("folder count = %d, want 1", c)
	}
	if c := f.db.folderCount(project.ID, "Contratos"); c != 0 {
		t.Errorf("ancestor folder count = %d, want 0 (created, no direct members)", c)
	}
}

func TestCreateDocument_ProjectQuota(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	project, err := f.projects.CreateProject(ctx, alice, &corpusSvc.CreateProjectRequest{
		Name:         "Pequeno",
		MaxDocuments: intPtr(1),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	first := textUpload("a.txt", "um", corpusModels.ScopePrivate)
	first.ProjectID = &project.ID
	if _, err := f.documents.CreateDocument(ctx, alice, first); err != nil {
		t.Fatalf("first upload: %v", err)
	}

	second := textUpload("b.txt", "dois", corpusModels.ScopePrivate)
	second.ProjectID = &project.ID
	_, err = f.documents.CreateDocument(ctx, alice, second)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("error = %v, want quota exceeded", err)
	}
	if got := f.db.getProject(project.ID); got.DocumentCount != 1 {
		t.Errorf("document_count = %d after rejected upload", got.DocumentCount)
	}
	if len(f.queue.ids) != 1 {
		t.Errorf("rejected upload was queued: %v", f.queue.ids)
	}
}

func TestCreateDocument_OrganizationQuota(t *testing.T) {
	f := newFixture(t, Quotas{OrgStorageBytes: 10})
	ctx := context.Background()

	if _, err := f.documents.CreateDocument(ctx, alice, textUpload("a.txt", "12345678", corpusModels.ScopePrivate)); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	_, err := f.documents.CreateDocument(ctx, bob, textUpload("b.txt", "12345", corpusModels.ScopePrivate))
	var quota *domain.QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("error = %v, want QuotaExceededError", err)
	}
	if quota.Used != 8 || quota.Limit != 10 {
		t.Errorf("quota = %+v", quota)
	}
}

func TestListDocuments_Visibility(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	global := f.ingest(t, admin, textUpload("constituicao.txt", "constituição federal", corpusModels.ScopeGlobal))
	mine := f.ingest(t, alice, textUpload("minuta.txt", "minuta", corpusModels.ScopePrivate))
	theirs := f.ingest(t, bob, textUpload("parecer.txt", "parecer", corpusModels.ScopePrivate))
	litReq := textUpload("peticao.txt", "petição", corpusModels.ScopeGroup)
	litReq.GroupIDs = []string{"litigation"}
	lit := f.ingest(t, alice, litReq)
	taxReq := textUpload("icms.txt", "icms", corpusModels.ScopeGroup)
	taxReq.GroupIDs = []string{"tax"}
	tax := f.ingest(t, bob, taxReq)

	page, err := f.documents.ListDocuments(ctx, alice, &corpusModels.ListOptions{})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	seen := map[string]bool{}
	for _, d := range page.Documents {
		seen[d.ID] = true
	}
	for _, d := range []*corpusModels.Document{global, mine, lit} {
		if !seen[d.ID] {
			t.Errorf("%s should be visible to alice", d.Name)
		}
	}
	for _, d := range []*corpusModels.Document{theirs, tax} {
		if seen[d.ID] {
			t.Errorf("%s should not be visible to alice", d.Name)
		}
	}
	if page.Total != 3 || page.HasMore {
		t.Errorf("total=%d has_more=%v", page.Total, page.HasMore)
	}

	if _, err := f.documents.GetDocument(ctx, alice, theirs.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDocument of invisible document = %v, want not found", err)
	}
}

func TestListDocuments_SearchKeepsIndexOrder(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	a := f.ingest(t, alice, textUpload("a.txt", "alfa", corpusModels.ScopePrivate))
	b := f.ingest(t, alice, textUpload("b.txt", "beta", corpusModels.ScopePrivate))
	hidden := f.ingest(t, bob, textUpload("c.txt", "gama", corpusModels.ScopePrivate))
	f.indexer.searchIDs = []string{b.ID, hidden.ID, "gone", a.ID}

	page, err := f.documents.ListDocuments(ctx, alice, &corpusModels.ListOptions{Search: "locação", PageSize: 1})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if page.Total != 2 || !page.HasMore || len(page.Documents) != 1 || page.Documents[0].ID != b.ID {
		t.Errorf("unexpected first page: total=%d more=%v docs=%v", page.Total, page.HasMore, page.Documents)
	}

	page, err = f.documents.ListDocuments(ctx, alice, &corpusModels.ListOptions{Search: "locação", Page: 2, PageSize: 1})
	if err != nil {
		t.Fatalf("ListDocuments page 2: %v", err)
	}
	if len(page.Documents) != 1 || page.Documents[0].ID != a.ID || page.HasMore {
		t.Errorf("unexpected second page: %+v", page)
	}
}

func TestListDocuments_RejectsBadOptions(t *testing.T) {
	f := newFixture(t, Quotas{})
	_, err := f.documents.ListDocuments(context.Background(), alice, &corpusModels.ListOptions{PageSize: 1000})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	project, err := f.projects.CreateProject(ctx, alice, &corpusSvc.CreateProjectRequest{Name: "P"})
	if err != nil {
		t.Fatal(err)
	}
	req := textUpload("a.txt", "um dois três quatro cinco seis", corpusModels.ScopePrivate)
	req.ProjectID = &project.ID
	req.FolderPath = strPtr("Pasta")
	doc := f.ingest(t, alice, req)

	if err := f.documents.DeleteDocument(ctx, bob, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete by another user = %v, want not found", err)
	}

	if err := f.documents.DeleteDocument(ctx, alice, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := f.documents.DeleteDocument(ctx, alice, doc.ID); err != nil {
		t.Errorf("second delete should succeed, got %v", err)
	}

	if _, err := f.db.getDoc(doc.ID); err == nil {
		t.Error("document still stored")
	}
	if f.store.has(doc.RawKey()) || f.store.has(doc.TextKey()) {
		t.Error("content not purged")
	}
	if len(f.indexer.purged) != 1 {
		t.Errorf("index purged %d times, want 1", len(f.indexer.purged))
	}
	got := f.db.getProject(project.ID)
	if got.DocumentCount != 0 || got.ChunkCount != 0 || got.StorageBytes != 0 {
		t.Errorf("counters not released: %+v", got)
	}
	if c := f.db.folderCount(project.ID, "Pasta"); c != 0 {
		t.Errorf("folder count = %d, want 0", c)
	}
}

func TestDeleteDocument_GroupMemberCannotDelete(t *testing.T) {
	f := newFixture(t, Quotas{})
	req := textUpload("a.txt", "x", corpusModels.ScopeGroup)
	req.GroupIDs = []string{"litigation"}
	doc := f.ingest(t, alice, req)

	carol := models.Principal{UserID: "carol", Role: models.RoleUser, GroupIDs: []string{"litigation"}}
	err := f.documents.DeleteDocument(context.Background(), carol, doc.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want forbidden", err)
	}
}

func TestResubmitDocument(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()

	req := textUpload("scan.bin", "binary", corpusModels.ScopePrivate)
	req.ContentType = "application/octet-stream"
	failed, err := f.documents.CreateDocument(ctx, alice, req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.lifecycle.Ingest(ctx, failed.ID); err != nil {
		t.Fatal(err)
	}

	again, err := f.documents.ResubmitDocument(ctx, alice, failed.ID)
	if err != nil {
		t.Fatalf("ResubmitDocument: %v", err)
	}
	if again.ID == failed.ID || again.Status != corpusModels.StatusPending || again.ContentHash != failed.ContentHash {
		t.Errorf("unexpected resubmitted document: %+v", again)
	}
	if old, _ := f.db.getDoc(failed.ID); old.Status != corpusModels.StatusFailed {
		t.Errorf("original status = %s, want failed", old.Status)
	}

	if _, err := f.documents.ResubmitDocument(ctx, alice, again.ID); !errors.Is(err, domain.ErrState) {
		t.Errorf("resubmitting a pending document = %v, want state error", err)
	}
}

func TestExportDocuments(t *testing.T) {
	f := newFixture(t, Quotas{})
	ctx := context.Background()
	f.ingest(t, alice, textUpload("a.txt", "alfa", corpusModels.ScopePrivate))

	file, err := f.documents.ExportDocuments(ctx, alice, nil, []string{"name", "status"}, services.FormatCSV)
	if err != nil {
		t.Fatalf("ExportDocuments: %v", err)
	}
	if want := "name,status\na.txt,ingested\n"; string(file.Data) != want {
		t.Errorf("csv = %q, want %q", file.Data, want)
	}

	_, err = f.documents.ExportDocuments(ctx, alice, nil, []string{"name", "owner_password"}, services.FormatCSV)
	if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), "owner_password") {
		t.Errorf("unknown column error = %v", err)
	}
}
