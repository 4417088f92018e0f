package driven

import "context"

// VectorStore provides tenant-scoped storage and similarity search for
// chunk embeddings. Each tenant maps to one collection; the collection
// name is derived deterministically from the tenant ID so tenants can
// never read each other's chunks.
type VectorStore interface {
	// Upsert writes chunk records into the tenant's collection.
	// Records are keyed by VectorRecord.Key; re-upserting a key
	// replaces the stored entry.
	Upsert(ctx context.Context, tenantID string, records []VectorRecord) error

	// Query returns the k nearest neighbours to the query vector
	// within the tenant's collection, nearest first.
	Query(ctx context.Context, tenantID string, vector []float32, k int) ([]VectorHit, error)

	// DeleteDocument removes every chunk of the document, all versions.
	DeleteDocument(ctx context.Context, tenantID, documentID string) error

	// DeleteDocumentVersion removes the chunks of one document version.
	DeleteDocumentVersion(ctx context.Context, tenantID, documentID string, version int) error

	// Count returns the number of stored chunks for the tenant.
	Count(ctx context.Context, tenantID string) (int, error)

	// Close releases resources.
	Close() error
}

// VectorRecord is one chunk prepared for storage.
type VectorRecord struct {
	// Key is the storage identifier, from domain.Chunk.Key().
	Key string

	// Content is the chunk text.
	Content string

	// Embedding is the chunk's dense vector.
	Embedding []float32

	// DocumentID identifies the owning document.
	DocumentID string

	// DocumentVersion is the document revision.
	DocumentVersion int

	// SourceFilename is carried for citation.
	SourceFilename string

	// ChunkIndex is the chunk position within the document version.
	ChunkIndex int

	// TokenCount is the chunk's token count.
	TokenCount int

	// PageLabel is the source page for the chunk.
	PageLabel string
}

// VectorHit is a typed similarity search result, validated at the
// adapter edge.
type VectorHit struct {
	// Content is the matched chunk text.
	Content string

	// DocumentID identifies the owning document.
	DocumentID string

	// DocumentVersion is the document revision.
	DocumentVersion int

	// SourceFilename is the ingested file name.
	SourceFilename string

	// ChunkIndex is the chunk position within the document version.
	ChunkIndex int

	// TokenCount is the chunk's token count.
	TokenCount int

	// PageLabel is the source page for the chunk.
	PageLabel string

	// Distance is the index's raw distance, smaller = closer. All
	// backends serve squared L2, which over unit vectors equals
	// 2 - 2*cosine, so callers can recover cosine similarity as
	// 1 - Distance/2.
	Distance float64
}
