package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models/corpus"
	"lexcorpus/internal/domain/services"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxChunks = "corpus_chunks"

// chunkRecord is one indexed chunk. Scope attributes are copied from the
// document so searches can be filtered by visibility.
type chunkRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Scope      string `json:"scope"`
	OwnerID    string `json:"owner_id"`
	GroupID    string `json:"group_id"`
	Collection string `json:"collection"`
}

// scopeUpdate is the partial record written on promotion.
type scopeUpdate struct {
	ID      string `json:"id"`
	Scope   string `json:"scope"`
	GroupID string `json:"group_id"`
}

// Meili implements services.ChunkIndexer via Meilisearch.
type Meili struct {
	client    meili.ServiceManager
	chunkSize int
	healthy   atomic.Bool
	done      chan struct{}
	logger    *slog.Logger
}

var _ services.ChunkIndexer = (*Meili)(nil)

// NewMeili creates a Meilisearch client and configures the chunk index.
// An unreachable server is not fatal; calls fail with ErrTransient until it recovers.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client:    meili.New(url, meili.WithAPIKey(apiKey)),
		chunkSize: DefaultChunkSize,
		done:      make(chan struct{}),
		logger:    logger,
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxChunks, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxChunks, "error", err)
	}

	index := m.client.Index(idxChunks)
	filterable := []interface{}{"document_id", "scope", "owner_id", "group_id", "collection"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", idxChunks, "error", err)
	}
	searchable := []string{"content", "name"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", idxChunks, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) ensureHealthy() error {
	if !m.healthy.Load() {
		return fmt.Errorf("meilisearch unhealthy: %w", domain.ErrTransient)
	}
	return nil
}

func chunkID(documentID string, position int) string {
	return fmt.Sprintf("%s-%d", documentID, position)
}

func groupOf(doc *corpus.Document) string {
	if doc.GroupID != nil {
		return *doc.GroupID
	}
	return ""
}

// IndexDocument splits text into chunks and indexes them
func (m *Meili) IndexDocument(ctx context.Context, doc *corpus.Document, text string) (int, error) {
	if err := m.ensureHealthy(); err != nil {
		return 0, err
	}

	pieces := SplitChunks(text, m.chunkSize)
	if len(pieces) == 0 {
		return 0, nil
	}

	records := make([]chunkRecord, len(pieces))
	for i, content := range pieces {
		records[i] = chunkRecord{
			ID:         chunkID(doc.ID, i),
			DocumentID: doc.ID,
			Position:   i,
			Name:       doc.Name,
			Content:    content,
			Scope:      string(doc.Scope),
			OwnerID:    doc.OwnerID,
			GroupID:    groupOf(doc),
			Collection: doc.Collection,
		}
	}

	if _, err := m.client.Index(idxChunks).AddDocuments(records, nil); err != nil {
		m.healthy.Store(false)
		return 0, fmt.Errorf("index chunks: %w: %v", domain.ErrTransient, err)
	}
	return len(records), nil
}

// UpdateScope rewrites the scope attributes of every chunk of doc
func (m *Meili) UpdateScope(ctx context.Context, doc *corpus.Document) error {
	if err := m.ensureHealthy(); err != nil {
		return err
	}
	if doc.ChunkCount == 0 {
		return nil
	}

	updates := make([]scopeUpdate, doc.ChunkCount)
	for i := range updates {
		updates[i] = scopeUpdate{ID: chunkID(doc.ID, i), Scope: string(doc.Scope), GroupID: groupOf(doc)}
	}
	if _, err := m.client.Index(idxChunks).UpdateDocuments(updates, nil); err != nil {
		return fmt.Errorf("update chunk scope: %w: %v", domain.ErrTransient, err)
	}
	return nil
}

// PurgeDocument removes every chunk of a document
func (m *Meili) PurgeDocument(ctx context.Context, documentID string) error {
	if err := m.ensureHealthy(); err != nil {
		return err
	}
	filter := fmt.Sprintf("document_id = %q", documentID)
	if _, err := m.client.Index(idxChunks).DeleteDocumentsByFilter(filter, nil); err != nil {
		return fmt.Errorf("purge chunks: %w: %v", domain.ErrTransient, err)
	}
	return nil
}

// SearchDocumentIDs returns the ids of documents with matching chunks, best match first
func (m *Meili) SearchDocumentIDs(ctx context.Context, query string, filter services.IndexFilter, limit int) ([]string, error) {
	if err := m.ensureHealthy(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}

	req := &meili.SearchRequest{
		// Several chunks may belong to one document
		Limit:                int64(limit * 4),
		AttributesToRetrieve: []string{"document_id"},
	}
	if expr := BuildFilter(filter); expr != "" {
		req.Filter = expr
	}

	resp, err := m.client.Index(idxChunks).Search(query, req)
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("search chunks: %w: %v", domain.ErrTransient, err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, hit := range resp.Hits {
		raw, ok := hit["document_id"]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

// BuildFilter renders the Meilisearch filter expression for a search.
func BuildFilter(f services.IndexFilter) string {
	var clauses []string

	if !f.Visibility.Admin {
		visible := []string{`scope = "global"`}
		if f.Visibility.UserID != "" {
			visible = append(visible, fmt.Sprintf(`(scope IN ["private", "local"] AND owner_id = %q)`, f.Visibility.UserID))
		}
		if len(f.Visibility.GroupIDs) > 0 {
			quoted := make([]string, len(f.Visibility.GroupIDs))
			for i, g := range f.Visibility.GroupIDs {
				quoted[i] = fmt.Sprintf("%q", g)
			}
			visible = append(visible, fmt.Sprintf(`(scope = "group" AND group_id IN [%s])`, strings.Join(quoted, ", ")))
		}
		clauses = append(clauses, "("+strings.Join(visible, " OR ")+")")
	}
	if f.Scope != "" {
		clauses = append(clauses, fmt.Sprintf("scope = %q", string(f.Scope)))
	}
	if f.GroupID != "" {
		clauses = append(clauses, fmt.Sprintf("group_id = %q", f.GroupID))
	}
	if f.Collection != "" {
		clauses = append(clauses, fmt.Sprintf("collection = %q", f.Collection))
	}
	return strings.Join(clauses, " AND ")
}
