package driven

import (
	"github.com/custodia-labs/retrieva/internal/core/domain"
)

// Chunker splits extracted text into overlapping chunks sized for
// embedding. Implementations are deterministic: the same input always
// yields the same chunks.
type Chunker interface {
	// Chunk splits unpaged text.
	Chunk(text string, ref domain.ChunkRef) ([]domain.Chunk, error)

	// ChunkSegments splits paged text, chunking each segment
	// independently so no chunk spans a page boundary.
	ChunkSegments(segments []domain.PageSegment, ref domain.ChunkRef) ([]domain.Chunk, error)
}
