package driven

import (
	"context"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

// DocumentRegistry persists document records and their processing
// history. Backed by SQLite for metadata storage; chunk content and
// vectors live in the VectorStore, never here.
type DocumentRegistry interface {
	// Save stores or updates a document record.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// FindBySource retrieves the document for a tenant and source
	// filename, or domain.ErrNotFound when none exists.
	FindBySource(ctx context.Context, tenantID, sourceFilename string) (*domain.Document, error)

	// MarkCompleted records a successful ingestion with its counts.
	MarkCompleted(ctx context.Context, id string, chunkCount, tokenCount int) error

	// MarkFailed records a failed ingestion and its cause.
	MarkFailed(ctx context.Context, id string, message string) error

	// Delete removes a document record and its processing logs.
	Delete(ctx context.Context, id string) error

	// List returns the tenant's documents, newest first.
	List(ctx context.Context, tenantID string) ([]domain.Document, error)

	// AppendLog records one processing step outcome.
	AppendLog(ctx context.Context, log *domain.ProcessingLog) error

	// Logs returns a document's processing trace, oldest first.
	Logs(ctx context.Context, documentID string) ([]domain.ProcessingLog, error)

	// Close releases resources.
	Close() error
}
