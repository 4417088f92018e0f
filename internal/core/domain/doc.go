// Package domain defines the core business entities for Retrieva.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested document revision with status tracking
//   - Chunk: A retrievable unit of document text
//   - PageSegment: One page of extracted text supplied at ingestion
//   - RetrievalResult: A ranked chunk returned from retrieval
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
