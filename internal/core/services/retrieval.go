package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
	"github.com/custodia-labs/retrieva/internal/core/ports/driving"
	"github.com/custodia-labs/retrieva/internal/rankers/bm25"
)

// Default retrieval parameters.
const (
	DefaultTopK               = 5
	DefaultRelevanceThreshold = 0.1
	DefaultHybridAlpha        = 0.7
)

// RetrievalConfig holds the service-level retrieval defaults.
// Per-request options override them (see domain.RetrievalOptions).
type RetrievalConfig struct {
	// TopK is the default maximum number of results.
	TopK int

	// RelevanceThreshold drops results scoring strictly below it.
	RelevanceThreshold float64

	// UseHybrid enables BM25 re-ranking by default.
	UseHybrid bool

	// HybridAlpha weights the fusion: alpha*vector + (1-alpha)*lexical.
	// Honoured verbatim, including 0 for pure lexical ranking.
	HybridAlpha float64

	// ExpansionEnabled turns on query expansion.
	ExpansionEnabled bool
}

// DefaultRetrievalConfig returns the standard retrieval tuning.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:               DefaultTopK,
		RelevanceThreshold: DefaultRelevanceThreshold,
		UseHybrid:          false,
		HybridAlpha:        DefaultHybridAlpha,
		ExpansionEnabled:   true,
	}
}

// scoredChunk is a candidate moving through the pipeline. The score
// starts as vector similarity and may be replaced by a fused score
// during hybrid re-ranking.
type scoredChunk struct {
	hit      driven.VectorHit
	score    float64
	phrasing string
}

// RetrievalService runs the hybrid retrieval pipeline: query
// expansion, per-phrasing vector search, optional lexical re-ranking,
// cross-phrasing merge, threshold filter and top-k cut. It holds no
// mutable state; concurrent calls are independent.
type RetrievalService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	expander driving.ExpansionService
	config   RetrievalConfig
	logger   *logrus.Logger
}

// Compile-time interface check.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// NewRetrievalService creates the retrieval service. The expander may
// be nil, which disables expansion regardless of configuration.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	expander driving.ExpansionService,
	config RetrievalConfig,
	log *logrus.Logger,
) *RetrievalService {
	if config.TopK < 1 {
		config.TopK = DefaultTopK
	}
	if log == nil {
		log = logrus.New()
	}

	return &RetrievalService{
		embedder: embedder,
		vectors:  vectors,
		expander: expander,
		config:   config,
		logger:   log,
	}
}

// Retrieve returns the tenant's most relevant chunks for the query,
// best first, at most top-k entries. An empty result means no stored
// chunk cleared the relevance threshold; it is not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, query, tenantID string, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant ID is empty", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	topK := s.config.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	threshold := s.config.RelevanceThreshold
	if opts.RelevanceThreshold > 0 {
		threshold = opts.RelevanceThreshold
	}
	useHybrid := s.config.UseHybrid
	alpha := s.config.HybridAlpha
	if opts.UseHybrid {
		// A per-request hybrid enable carries its own alpha.
		useHybrid = true
		alpha = opts.HybridAlpha
	}

	phrasings := s.phrasings(ctx, query, opts.DisableExpansion)
	s.logger.WithFields(logrus.Fields{
		"tenant":    tenantID,
		"phrasings": len(phrasings),
		"hybrid":    useHybrid,
		"top_k":     topK,
	}).Debug("retrieval started")

	// The candidate pool for the re-ranker is widened when hybrid mode
	// is on, then cut back to top-k per phrasing after fusion.
	fetchK := topK
	if useHybrid {
		fetchK = topK * 2
	}

	type phrasingOutcome struct {
		candidates []scoredChunk
		err        error
	}
	outcomes := make([]phrasingOutcome, len(phrasings))

	var wg sync.WaitGroup
	for i, phrasing := range phrasings {
		wg.Add(1)
		go func(slot int, phrasing string) {
			defer wg.Done()
			candidates, err := s.searchPhrasing(ctx, phrasing, tenantID, fetchK)
			if err == nil && useHybrid {
				candidates = s.rerank(phrasing, candidates, alpha, topK)
			}
			outcomes[slot] = phrasingOutcome{candidates: candidates, err: err}
		}(i, phrasing)
	}
	wg.Wait()

	// Join in phrasing insertion order so the merge's first-seen
	// tie-break stays deterministic under concurrent completion.
	var pool []scoredChunk
	var firstErr error
	failed := 0
	for i, outcome := range outcomes {
		if outcome.err != nil {
			failed++
			if firstErr == nil {
				firstErr = outcome.err
			}
			s.logger.WithError(outcome.err).WithField("phrasing", phrasings[i]).
				Warn("phrasing search failed")
			continue
		}
		pool = append(pool, outcome.candidates...)
	}
	if failed == len(phrasings) {
		return nil, fmt.Errorf("retrieving for tenant %s: %w", tenantID, firstErr)
	}

	merged := mergeByIdentity(pool)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})

	results := make([]domain.RetrievalResult, 0, topK)
	for _, c := range merged {
		if c.score < threshold {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Chunk: domain.Chunk{
				Content:         c.hit.Content,
				DocumentID:      c.hit.DocumentID,
				DocumentVersion: c.hit.DocumentVersion,
				SourceFilename:  c.hit.SourceFilename,
				ChunkIndex:      c.hit.ChunkIndex,
				TokenCount:      c.hit.TokenCount,
				PageLabel:       c.hit.PageLabel,
			},
			RelevanceScore: c.score,
			Phrasing:       c.phrasing,
		})
		if len(results) == topK {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"tenant":  tenantID,
		"pooled":  len(pool),
		"merged":  len(merged),
		"results": len(results),
	}).Debug("retrieval finished")

	return results, nil
}

// phrasings returns the ordered phrasing set: the original query
// first, then expansion variants when expansion is on.
func (s *RetrievalService) phrasings(ctx context.Context, query string, disableExpansion bool) []string {
	if disableExpansion || !s.config.ExpansionEnabled || s.expander == nil {
		return []string{query}
	}
	phrasings := s.expander.Expand(ctx, query)
	if len(phrasings) == 0 {
		return []string{query}
	}
	return phrasings
}

// searchPhrasing embeds one phrasing and fetches its nearest
// neighbours, converting the store's squared L2 distance over unit
// vectors to cosine similarity. The conversion is identical for every
// phrasing so merged scores stay comparable.
func (s *RetrievalService) searchPhrasing(ctx context.Context, phrasing, tenantID string, k int) ([]scoredChunk, error) {
	vector, err := s.embedder.Embed(ctx, phrasing)
	if err != nil {
		return nil, fmt.Errorf("embedding phrasing: %w", err)
	}

	hits, err := s.vectors.Query(ctx, tenantID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	candidates := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		candidates[i] = scoredChunk{
			hit:      hit,
			score:    1 - hit.Distance/2,
			phrasing: phrasing,
		}
	}
	return candidates, nil
}

// rerank fuses vector similarity with BM25 scores computed against
// only this phrasing's candidate set, then cuts the list to top-k.
// Lexical scores are normalized by the set's maximum, so they are
// comparable within the set but deliberately not across queries.
func (s *RetrievalService) rerank(phrasing string, candidates []scoredChunk, alpha float64, topK int) []scoredChunk {
	if len(candidates) < 2 {
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		return candidates
	}

	contents := make([]string, len(candidates))
	for i, c := range candidates {
		contents[i] = c.hit.Content
	}
	lexical := bm25.NewIndex(contents).Scores(phrasing)

	divisor := 0.0
	for _, v := range lexical {
		if v > divisor {
			divisor = v
		}
	}
	if divisor <= 0 {
		// No lexical signal at all; keep scores well-defined.
		divisor = 1
	}

	fused := make([]scoredChunk, len(candidates))
	for i, c := range candidates {
		c.score = alpha*c.score + (1-alpha)*(lexical[i]/divisor)
		fused[i] = c
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].score > fused[j].score
	})
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}

// chunkIdentity keys the cross-phrasing merge.
type chunkIdentity struct {
	documentID string
	version    int
	index      int
}

// mergeByIdentity deduplicates the pool on chunk identity, keeping the
// highest score per chunk. Exact ties keep the first-seen occurrence,
// so the result order is deterministic given the pool order.
func mergeByIdentity(pool []scoredChunk) []scoredChunk {
	position := make(map[chunkIdentity]int, len(pool))
	merged := make([]scoredChunk, 0, len(pool))

	for _, c := range pool {
		id := chunkIdentity{c.hit.DocumentID, c.hit.DocumentVersion, c.hit.ChunkIndex}
		if at, ok := position[id]; ok {
			if c.score > merged[at].score {
				merged[at] = c
			}
			continue
		}
		position[id] = len(merged)
		merged = append(merged, c)
	}

	return merged
}
