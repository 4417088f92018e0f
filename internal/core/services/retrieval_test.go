package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Embeddings are looked up by text so tests can route phrasings to
// distinct vectors.
type mockEmbeddingService struct {
	mu           sync.Mutex
	byText       map[string][]float32
	embedErr     error
	batchErr     error
	batchVectors [][]float32
	embedCalls   []string
	batchCalls   [][]string
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls = append(m.embedCalls, text)
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.byText[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls = append(m.batchCalls, texts)
	m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.batchVectors != nil {
		return m.batchVectors, nil
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.byText[text]; ok {
			result[i] = v
		} else {
			result[i] = []float32{1, 0}
		}
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return 2
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// deletedVersion records one DeleteDocumentVersion call.
type deletedVersion struct {
	documentID string
	version    int
}

// mockVectorStore implements driven.VectorStore for testing. Query
// results are selected by the first element of the query vector, which
// pairs with mockEmbeddingService.byText to give each phrasing its own
// hit set.
type mockVectorStore struct {
	mu        sync.Mutex
	hits      []driven.VectorHit
	hitsByKey map[float32][]driven.VectorHit
	errByKey  map[float32]error

	queryErr         error
	upsertErr        error
	deleteDocErr     error
	deleteVersionErr error
	countErr         error
	count            int

	queryKs         []int
	queryTenants    []string
	upserts         [][]driven.VectorRecord
	deletedDocs     []string
	deletedVersions []deletedVersion
}

func (m *mockVectorStore) Upsert(_ context.Context, _ string, records []driven.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, records)
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, tenantID string, vector []float32, k int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	m.queryKs = append(m.queryKs, k)
	m.queryTenants = append(m.queryTenants, tenantID)
	m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if len(vector) > 0 {
		if err, ok := m.errByKey[vector[0]]; ok {
			return nil, err
		}
	}
	hits := m.hits
	if len(vector) > 0 {
		if h, ok := m.hitsByKey[vector[0]]; ok {
			hits = h
		}
	}
	if k < len(hits) {
		return hits[:k], nil
	}
	return hits, nil
}

func (m *mockVectorStore) DeleteDocument(_ context.Context, _ string, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteDocErr != nil {
		return m.deleteDocErr
	}
	m.deletedDocs = append(m.deletedDocs, documentID)
	return nil
}

func (m *mockVectorStore) DeleteDocumentVersion(_ context.Context, _ string, documentID string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteVersionErr != nil {
		return m.deleteVersionErr
	}
	m.deletedVersions = append(m.deletedVersions, deletedVersion{documentID, version})
	return nil
}

func (m *mockVectorStore) Count(_ context.Context, _ string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.count, nil
}

func (m *mockVectorStore) Close() error {
	return nil
}

// mockExpansionService implements driving.ExpansionService for testing.
type mockExpansionService struct {
	phrasings []string
	calls     int
}

func (m *mockExpansionService) Expand(_ context.Context, query string) []string {
	m.calls++
	if m.phrasings != nil {
		return m.phrasings
	}
	return []string{query}
}

// --- Test helpers ---

func hit(docID string, version, index int, content string, distance float64) driven.VectorHit {
	return driven.VectorHit{
		Content:         content,
		DocumentID:      docID,
		DocumentVersion: version,
		SourceFilename:  docID + ".txt",
		ChunkIndex:      index,
		TokenCount:      len(content),
		PageLabel:       "1",
		Distance:        distance,
	}
}

func vectorOnlyConfig() RetrievalConfig {
	cfg := DefaultRetrievalConfig()
	cfg.ExpansionEnabled = false
	return cfg
}

// --- Tests ---

func TestNewRetrievalService_AppliesDefaults(t *testing.T) {
	service := NewRetrievalService(&mockEmbeddingService{}, &mockVectorStore{}, nil, RetrievalConfig{}, nil)

	require.NotNil(t, service)
	assert.Equal(t, DefaultTopK, service.config.TopK)
}

func TestRetrievalService_Retrieve_EmptyQuery(t *testing.T) {
	service := NewRetrievalService(&mockEmbeddingService{}, &mockVectorStore{}, nil, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "   ", "tenant-a", domain.RetrievalOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_Retrieve_EmptyTenant(t *testing.T) {
	service := NewRetrievalService(&mockEmbeddingService{}, &mockVectorStore{}, nil, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "", domain.RetrievalOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_Retrieve_EmptyStore(t *testing.T) {
	store := &mockVectorStore{}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	results, err := service.Retrieve(context.Background(), "anything", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrievalService_Retrieve_VectorRanking(t *testing.T) {
	store := &mockVectorStore{hits: []driven.VectorHit{
		hit("doc-a", 1, 0, "closest chunk", 0.2),
		hit("doc-b", 1, 0, "middle chunk", 0.6),
		hit("doc-c", 1, 0, "farthest chunk", 1.0),
	}}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	results, err := service.Retrieve(context.Background(), "some query", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.Len(t, results, 3)

	// Similarity is 1 - distance/2, best first.
	assert.InDelta(t, 0.9, results[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.7, results[1].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.5, results[2].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-a", results[0].Chunk.DocumentID)
	assert.Equal(t, "closest chunk", results[0].Chunk.Content)
	assert.Equal(t, "doc-a.txt", results[0].Chunk.SourceFilename)
	assert.Equal(t, "some query", results[0].Phrasing)
}

func TestRetrievalService_Retrieve_MergeKeepsHighestScore(t *testing.T) {
	embedder := &mockEmbeddingService{byText: map[string][]float32{
		"original query":  {1, 0},
		"variant wording": {2, 0},
	}}
	store := &mockVectorStore{hitsByKey: map[float32][]driven.VectorHit{
		1: {hit("doc-a", 1, 0, "shared chunk", 0.52)}, // score 0.74
		2: {hit("doc-a", 1, 0, "shared chunk", 0.38)}, // score 0.81
	}}
	expander := &mockExpansionService{phrasings: []string{"original query", "variant wording"}}
	service := NewRetrievalService(embedder, store, expander, DefaultRetrievalConfig(), nil)

	results, err := service.Retrieve(context.Background(), "original query", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.81, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "variant wording", results[0].Phrasing)
}

func TestRetrievalService_Retrieve_MergeTieKeepsFirstPhrasing(t *testing.T) {
	embedder := &mockEmbeddingService{byText: map[string][]float32{
		"original query":  {1, 0},
		"variant wording": {2, 0},
	}}
	store := &mockVectorStore{hitsByKey: map[float32][]driven.VectorHit{
		1: {hit("doc-a", 1, 0, "shared chunk", 0.4)},
		2: {hit("doc-a", 1, 0, "shared chunk", 0.4)},
	}}
	expander := &mockExpansionService{phrasings: []string{"original query", "variant wording"}}
	service := NewRetrievalService(embedder, store, expander, DefaultRetrievalConfig(), nil)

	results, err := service.Retrieve(context.Background(), "original query", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "original query", results[0].Phrasing)
}

func TestRetrievalService_Retrieve_ThresholdBoundary(t *testing.T) {
	store := &mockVectorStore{hits: []driven.VectorHit{
		hit("doc-a", 1, 0, "exactly at threshold", 1.0),  // score 0.50
		hit("doc-b", 1, 0, "just below threshold", 1.02), // score 0.49
	}}
	cfg := vectorOnlyConfig()
	cfg.RelevanceThreshold = 0.5
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, cfg, nil)

	results, err := service.Retrieve(context.Background(), "some query", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].Chunk.DocumentID)
}

func TestRetrievalService_Retrieve_TopKTruncation(t *testing.T) {
	store := &mockVectorStore{hits: []driven.VectorHit{
		hit("doc-a", 1, 0, "first", 0.1),
		hit("doc-b", 1, 0, "second", 0.2),
		hit("doc-c", 1, 0, "third", 0.3),
	}}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	results, err := service.Retrieve(context.Background(), "some query", "tenant-a", domain.RetrievalOptions{TopK: 2})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].Chunk.DocumentID)
	assert.Equal(t, "doc-b", results[1].Chunk.DocumentID)
}

func TestRetrievalService_Retrieve_DisableExpansion(t *testing.T) {
	expander := &mockExpansionService{phrasings: []string{"a", "b", "c"}}
	store := &mockVectorStore{}
	service := NewRetrievalService(&mockEmbeddingService{}, store, expander, DefaultRetrievalConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "tenant-a",
		domain.RetrievalOptions{DisableExpansion: true})

	require.NoError(t, err)
	assert.Zero(t, expander.calls)
	assert.Len(t, store.queryKs, 1)
}

func TestRetrievalService_Retrieve_ExpansionDisabledInConfig(t *testing.T) {
	expander := &mockExpansionService{phrasings: []string{"a", "b"}}
	service := NewRetrievalService(&mockEmbeddingService{}, &mockVectorStore{}, expander, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	assert.Zero(t, expander.calls)
}

func TestRetrievalService_Retrieve_PartialPhrasingFailureDegrades(t *testing.T) {
	embedder := &mockEmbeddingService{byText: map[string][]float32{
		"good phrasing": {1, 0},
		"bad phrasing":  {2, 0},
	}}
	store := &mockVectorStore{
		hitsByKey: map[float32][]driven.VectorHit{
			1: {hit("doc-a", 1, 0, "found it", 0.2)},
		},
		errByKey: map[float32]error{
			2: errors.New("index shard offline"),
		},
	}
	expander := &mockExpansionService{phrasings: []string{"good phrasing", "bad phrasing"}}
	service := NewRetrievalService(embedder, store, expander, DefaultRetrievalConfig(), nil)

	results, err := service.Retrieve(context.Background(), "good phrasing", "tenant-a", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].Chunk.DocumentID)
}

func TestRetrievalService_Retrieve_AllPhrasingsFail(t *testing.T) {
	store := &mockVectorStore{queryErr: errors.New("index unavailable")}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "tenant-a", domain.RetrievalOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestRetrievalService_Retrieve_EmbedError(t *testing.T) {
	embedder := &mockEmbeddingService{embedErr: errors.New("model not loaded")}
	service := NewRetrievalService(embedder, &mockVectorStore{}, nil, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "tenant-a", domain.RetrievalOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRetrievalService_Retrieve_HybridWidensFetch(t *testing.T) {
	store := &mockVectorStore{hits: []driven.VectorHit{
		hit("doc-a", 1, 0, "alpha content", 0.2),
	}}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "tenant-a",
		domain.RetrievalOptions{TopK: 3, UseHybrid: true, HybridAlpha: 0.7})

	require.NoError(t, err)
	require.Len(t, store.queryKs, 1)
	assert.Equal(t, 6, store.queryKs[0])
}

func TestRetrievalService_Retrieve_HybridAlphaOne_MatchesVectorRanking(t *testing.T) {
	hits := []driven.VectorHit{
		hit("doc-a", 1, 0, "unrelated words entirely", 0.2),
		hit("doc-b", 1, 0, "golang concurrency patterns", 0.6),
	}
	store := &mockVectorStore{hits: hits}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	results, err := service.Retrieve(context.Background(), "golang concurrency", "tenant-a",
		domain.RetrievalOptions{UseHybrid: true, HybridAlpha: 1.0})

	require.NoError(t, err)
	require.Len(t, results, 2)

	// With alpha 1.0 the lexical component contributes nothing, so the
	// ranking and scores are the pure vector ones.
	assert.Equal(t, "doc-a", results[0].Chunk.DocumentID)
	assert.InDelta(t, 0.9, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-b", results[1].Chunk.DocumentID)
	assert.InDelta(t, 0.7, results[1].RelevanceScore, 1e-9)
}

func TestRetrievalService_Retrieve_HybridAlphaZero_MatchesLexicalRanking(t *testing.T) {
	hits := []driven.VectorHit{
		hit("doc-a", 1, 0, "cooking pasta at home", 0.2),        // vector favourite
		hit("doc-b", 1, 0, "golang concurrency patterns", 0.8),  // lexical favourite
		hit("doc-c", 1, 0, "garden soil and composting", 0.9),   // neither
	}
	store := &mockVectorStore{hits: hits}
	cfg := vectorOnlyConfig()
	cfg.RelevanceThreshold = 0
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, cfg, nil)

	results, err := service.Retrieve(context.Background(), "golang concurrency", "tenant-a",
		domain.RetrievalOptions{UseHybrid: true, HybridAlpha: 0.0})

	require.NoError(t, err)
	require.Len(t, results, 3)

	// With alpha 0.0 only BM25 matters: the chunk containing the query
	// terms wins despite the worst vector distance, and its normalized
	// lexical score is the set maximum.
	assert.Equal(t, "doc-b", results[0].Chunk.DocumentID)
	assert.InDelta(t, 1.0, results[0].RelevanceScore, 1e-9)
	assert.Zero(t, results[1].RelevanceScore)
	assert.Zero(t, results[2].RelevanceScore)
}

func TestRetrievalService_Retrieve_HybridFusesScores(t *testing.T) {
	hits := []driven.VectorHit{
		hit("doc-a", 1, 0, "golang concurrency patterns", 1.0), // vector 0.5, lexical max
		hit("doc-b", 1, 0, "unrelated content here", 0.4),      // vector 0.8, lexical 0
	}
	store := &mockVectorStore{hits: hits}
	cfg := vectorOnlyConfig()
	cfg.RelevanceThreshold = 0
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, cfg, nil)

	results, err := service.Retrieve(context.Background(), "golang concurrency", "tenant-a",
		domain.RetrievalOptions{UseHybrid: true, HybridAlpha: 0.5})

	require.NoError(t, err)
	require.Len(t, results, 2)

	// doc-a: 0.5*0.5 + 0.5*1.0 = 0.75; doc-b: 0.5*0.8 + 0.5*0 = 0.40.
	assert.Equal(t, "doc-a", results[0].Chunk.DocumentID)
	assert.InDelta(t, 0.75, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "doc-b", results[1].Chunk.DocumentID)
	assert.InDelta(t, 0.40, results[1].RelevanceScore, 1e-9)
}

func TestRetrievalService_Retrieve_HybridSingleCandidate(t *testing.T) {
	store := &mockVectorStore{hits: []driven.VectorHit{
		hit("doc-a", 1, 0, "lone chunk", 0.2),
	}}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	results, err := service.Retrieve(context.Background(), "some query", "tenant-a",
		domain.RetrievalOptions{UseHybrid: true, HybridAlpha: 0.7})

	require.NoError(t, err)
	require.Len(t, results, 1)

	// A single candidate skips re-ranking and keeps its vector score.
	assert.InDelta(t, 0.9, results[0].RelevanceScore, 1e-9)
}

func TestRetrievalService_Retrieve_QueriesTenantScope(t *testing.T) {
	store := &mockVectorStore{}
	service := NewRetrievalService(&mockEmbeddingService{}, store, nil, vectorOnlyConfig(), nil)

	_, err := service.Retrieve(context.Background(), "some query", "tenant-xyz", domain.RetrievalOptions{})

	require.NoError(t, err)
	require.Len(t, store.queryTenants, 1)
	assert.Equal(t, "tenant-xyz", store.queryTenants[0])
}
