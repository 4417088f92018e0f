package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGenerationUnavailable indicates the generation service failed or
	// is not configured. Query expansion degrades to the original query.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service failed or
	// is not configured. Ingestion and retrieval cannot proceed without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store cannot be
	// reached. Ingestion and retrieval cannot proceed without it.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrRegistryUnavailable indicates the document registry cannot be
	// reached.
	ErrRegistryUnavailable = errors.New("document registry unavailable")

	// ErrRateLimited indicates an AI provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
