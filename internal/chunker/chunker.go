// Package chunker assembles extracted document text into overlapping,
// sentence-aligned chunks sized for embedding and retrieval.
package chunker

import (
	"strings"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

// DefaultChunkSize is the default soft token limit per chunk.
const DefaultChunkSize = 300

// DefaultOverlap is the default token budget carried between chunks.
const DefaultOverlap = 50

// unpagedLabel is the page label for sources without pages.
const unpagedLabel = "1"

// Chunker splits text into chunks aligned to sentence boundaries.
// Sentences are never split; a single sentence longer than the chunk
// size becomes its own oversized chunk. Consecutive chunks share a
// trailing/leading sentence run bounded by the overlap budget.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the soft chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured soft token limit.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap budget.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits unpaged text into chunks. Empty or whitespace-only text
// produces no chunks and no error.
func (c *Chunker) Chunk(text string, ref domain.ChunkRef) ([]domain.Chunk, error) {
	return c.ChunkSegments([]domain.PageSegment{{Text: text, PageLabel: unpagedLabel}}, ref)
}

// ChunkSegments splits paged text into chunks. Chunk indexes form one
// continuous sequence across all segments; each chunk carries its
// segment's page label. A segment boundary is a hard break: overlap is
// never carried from one page into the next.
func (c *Chunker) ChunkSegments(segments []domain.PageSegment, ref domain.ChunkRef) ([]domain.Chunk, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	index := 0
	for _, seg := range segments {
		label := seg.PageLabel
		if label == "" {
			label = unpagedLabel
		}
		for _, content := range c.assemble(seg.Text) {
			chunks = append(chunks, domain.Chunk{
				Content:         content,
				DocumentID:      ref.DocumentID,
				DocumentVersion: ref.DocumentVersion,
				SourceFilename:  ref.SourceFilename,
				ChunkIndex:      index,
				TokenCount:      countTokens(content),
				PageLabel:       label,
			})
			index++
		}
	}
	return chunks, nil
}

// assemble walks one contiguous text's sentences and returns the chunk
// contents in order. The walk index always advances, so assembly
// terminates for any chunk size and overlap configuration.
func (c *Chunker) assemble(text string) []string {
	sentences := sentenceStream(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	for i := 0; i < len(sentences); i++ {
		sentence := sentences[i]
		if sentence == "" {
			// Paragraph marker, skipped for accumulation.
			continue
		}

		tokens := countTokens(sentence)
		if currentTokens+tokens > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			// Seed the next chunk with the closed chunk's tail,
			// bounded by the overlap budget.
			var carry []string
			carryTokens := 0
			for j := len(current) - 1; j >= 0; j-- {
				st := countTokens(current[j])
				if carryTokens+st > c.overlap {
					break
				}
				carry = append([]string{current[j]}, carry...)
				carryTokens += st
			}
			current = carry
			currentTokens = carryTokens
		}

		current = append(current, sentence)
		currentTokens += tokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
