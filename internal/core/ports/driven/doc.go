// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Chunker: Splits extracted text into overlapping chunks
//   - EmbeddingService: Generates dense vectors for chunks and queries
//   - VectorStore: Tenant-scoped vector storage and similarity search
//   - DocumentRegistry: Document record and processing log persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - GenerationService: Language model completions. Without it, query
//     expansion falls back to the original query only.
//   - PromptStore: Custom prompt templates. Without it, services use
//     their embedded defaults.
//   - AIConfigValidator: Provider connectivity checks. Without it,
//     settings are accepted without pinging the provider.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
