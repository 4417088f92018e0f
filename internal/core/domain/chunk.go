package domain

import "fmt"

// Chunk represents a retrievable unit of document text.
// Chunks contain whole sentences joined by single spaces; the
// chunker never splits inside a sentence.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// DocumentID links to the owning Document.
	DocumentID string

	// DocumentVersion is the document revision this chunk belongs to.
	DocumentVersion int

	// SourceFilename is the ingested file name, carried for citation.
	SourceFilename string

	// ChunkIndex is the zero-based position within the document version.
	// Indexes are contiguous per (DocumentID, DocumentVersion).
	ChunkIndex int

	// TokenCount is the whitespace-delimited word count of Content.
	TokenCount int

	// PageLabel identifies the source page or section, "1" for unpaged text.
	PageLabel string
}

// Key returns the storage identifier for the chunk. The format is shared
// with the vector store for upserts and deletes and must not change:
//
//	{document_id}_v{document_version}_{chunk_index}
func (c Chunk) Key() string {
	return fmt.Sprintf("%s_v%d_%d", c.DocumentID, c.DocumentVersion, c.ChunkIndex)
}

// PageSegment is one page or section of extracted document text.
// Callers ingesting paged formats supply one segment per page.
type PageSegment struct {
	// Text is the extracted text of the segment.
	Text string

	// PageLabel identifies the page, e.g. "1" or "iv".
	PageLabel string
}

// ChunkRef identifies the document a batch of chunks belongs to.
type ChunkRef struct {
	// DocumentID is the owning document identifier.
	DocumentID string

	// DocumentVersion is the document revision, starting at 1.
	DocumentVersion int

	// SourceFilename is stamped onto every produced chunk.
	SourceFilename string
}

// Validate checks the reference is usable for chunk production.
func (r ChunkRef) Validate() error {
	if r.DocumentID == "" {
		return fmt.Errorf("%w: document ID is required", ErrInvalidInput)
	}
	if r.DocumentVersion < 1 {
		return fmt.Errorf("%w: document version must be >= 1", ErrInvalidInput)
	}
	return nil
}
