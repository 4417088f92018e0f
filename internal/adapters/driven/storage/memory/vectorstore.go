package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// It brute-force scans each tenant's records with squared L2 distance,
// the same space ChromaDB serves, so scores are interchangeable
// between backends. Contents are lost on exit; intended for tests and
// experiments.
type VectorStore struct {
	mu      sync.RWMutex
	tenants map[string]map[string]driven.VectorRecord
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		tenants: make(map[string]map[string]driven.VectorRecord),
	}
}

// Upsert stores records for a tenant, replacing any with the same key.
func (s *VectorStore) Upsert(_ context.Context, tenantID string, records []driven.VectorRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant ID is empty", domain.ErrInvalidInput)
	}
	for _, rec := range records {
		if rec.Key == "" {
			return fmt.Errorf("%w: record key is empty", domain.ErrInvalidInput)
		}
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("%w: record %s has no embedding", domain.ErrInvalidInput, rec.Key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.tenants[tenantID]
	if !ok {
		bucket = make(map[string]driven.VectorRecord)
		s.tenants[tenantID] = bucket
	}
	for _, rec := range records {
		embedding := make([]float32, len(rec.Embedding))
		copy(embedding, rec.Embedding)
		rec.Embedding = embedding
		bucket[rec.Key] = rec
	}
	return nil
}

// Query returns the k nearest records for the tenant, closest first.
// Records whose dimensions differ from the query vector are skipped.
// Equal distances are broken by key so results are deterministic.
func (s *VectorStore) Query(_ context.Context, tenantID string, vector []float32, k int) ([]driven.VectorHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type keyedHit struct {
		key string
		hit driven.VectorHit
	}
	var hits []keyedHit
	for key, rec := range s.tenants[tenantID] {
		if len(rec.Embedding) != len(vector) {
			continue
		}
		hits = append(hits, keyedHit{
			key: key,
			hit: driven.VectorHit{
				Content:         rec.Content,
				DocumentID:      rec.DocumentID,
				DocumentVersion: rec.DocumentVersion,
				SourceFilename:  rec.SourceFilename,
				ChunkIndex:      rec.ChunkIndex,
				TokenCount:      rec.TokenCount,
				PageLabel:       rec.PageLabel,
				Distance:        squaredL2(vector, rec.Embedding),
			},
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].hit.Distance != hits[j].hit.Distance {
			return hits[i].hit.Distance < hits[j].hit.Distance
		}
		return hits[i].key < hits[j].key
	})

	if k > len(hits) {
		k = len(hits)
	}
	result := make([]driven.VectorHit, k)
	for i := 0; i < k; i++ {
		result[i] = hits[i].hit
	}
	return result, nil
}

// DeleteDocument removes all of a document's records for the tenant.
func (s *VectorStore) DeleteDocument(_ context.Context, tenantID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.tenants[tenantID] {
		if rec.DocumentID == documentID {
			delete(s.tenants[tenantID], key)
		}
	}
	return nil
}

// DeleteDocumentVersion removes one version's records for the tenant.
func (s *VectorStore) DeleteDocumentVersion(_ context.Context, tenantID, documentID string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.tenants[tenantID] {
		if rec.DocumentID == documentID && rec.DocumentVersion == version {
			delete(s.tenants[tenantID], key)
		}
	}
	return nil
}

// Count returns the number of records stored for the tenant.
func (s *VectorStore) Count(_ context.Context, tenantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenantID]), nil
}

// Close releases resources (no-op for memory store).
func (s *VectorStore) Close() error {
	return nil
}

// squaredL2 computes the squared euclidean distance between two
// equal-length vectors.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
