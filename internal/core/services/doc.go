// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The four services cover the ingestion pipeline (chunk, embed,
// store, record), hybrid retrieval (expand, search, merge, re-rank,
// filter), LLM query expansion, and settings management.
package services
