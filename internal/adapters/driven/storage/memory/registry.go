package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
)

// Ensure DocumentRegistry implements the interface.
var _ driven.DocumentRegistry = (*DocumentRegistry)(nil)

// DocumentRegistry is an in-memory implementation of
// driven.DocumentRegistry. Contents are lost on exit; intended for
// tests and experiments.
type DocumentRegistry struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	logs      map[string][]domain.ProcessingLog
	nextLogID int64
}

// NewDocumentRegistry creates a new in-memory document registry.
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		documents: make(map[string]domain.Document),
		logs:      make(map[string][]domain.ProcessingLog),
	}
}

// Save stores or updates a document record.
func (r *DocumentRegistry) Save(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (r *DocumentRegistry) Get(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindBySource retrieves the document for a tenant and source filename.
func (r *DocumentRegistry) FindBySource(_ context.Context, tenantID, sourceFilename string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.documents {
		doc := r.documents[id]
		if doc.TenantID == tenantID && doc.SourceFilename == sourceFilename {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MarkCompleted records a successful ingestion with its counts.
func (r *DocumentRegistry) MarkCompleted(_ context.Context, id string, chunkCount, tokenCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	doc.Status = domain.StatusCompleted
	doc.ErrorMessage = ""
	doc.ChunkCount = chunkCount
	doc.TokenCount = tokenCount
	doc.ProcessedAt = &now
	doc.UpdatedAt = now
	r.documents[id] = doc
	return nil
}

// MarkFailed records a failed ingestion and its cause.
func (r *DocumentRegistry) MarkFailed(_ context.Context, id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusFailed
	doc.ErrorMessage = message
	doc.UpdatedAt = time.Now().UTC()
	r.documents[id] = doc
	return nil
}

// Delete removes a document record and its processing logs.
func (r *DocumentRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.documents, id)
	delete(r.logs, id)
	return nil
}

// List returns the tenant's documents, newest first.
func (r *DocumentRegistry) List(_ context.Context, tenantID string) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Document
	for id := range r.documents {
		doc := r.documents[id]
		if doc.TenantID == tenantID {
			result = append(result, doc)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].IngestedAt.Equal(result[j].IngestedAt) {
			return result[i].IngestedAt.After(result[j].IngestedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// AppendLog records one processing step outcome.
func (r *DocumentRegistry) AppendLog(_ context.Context, log *domain.ProcessingLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextLogID++
	entry := *log
	entry.ID = r.nextLogID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.logs[entry.DocumentID] = append(r.logs[entry.DocumentID], entry)
	return nil
}

// Logs returns a document's processing trace, oldest first.
func (r *DocumentRegistry) Logs(_ context.Context, documentID string) ([]domain.ProcessingLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.logs[documentID]
	result := make([]domain.ProcessingLog, len(entries))
	copy(result, entries)
	return result, nil
}

// Close releases resources (no-op for memory registry).
func (r *DocumentRegistry) Close() error {
	return nil
}
