package domain

// RetrievalOptions configures a retrieval request.
// Zero values fall back to the service's configured defaults.
type RetrievalOptions struct {
	// TopK is the maximum number of results.
	TopK int

	// UseHybrid enables BM25 lexical re-ranking fused with vector
	// similarity.
	UseHybrid bool

	// HybridAlpha weights the fusion: alpha*vector + (1-alpha)*lexical.
	// Read only when UseHybrid is set, and then honoured verbatim,
	// including 0 for pure lexical ranking.
	HybridAlpha float64

	// RelevanceThreshold drops results scoring strictly below it.
	RelevanceThreshold float64

	// DisableExpansion skips query expansion for this request.
	DisableExpansion bool
}

// RetrievalResult represents a single ranked hit.
type RetrievalResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// RelevanceScore ranks the result; higher is better.
	// Vector-only scores are cosine similarity in [0, 1].
	RelevanceScore float64

	// Phrasing is the query phrasing that produced the winning score.
	Phrasing string
}
