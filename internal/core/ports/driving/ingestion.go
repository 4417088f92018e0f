package driving

import (
	"context"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

// IngestionService turns extracted text into searchable chunks.
type IngestionService interface {
	// Ingest chunks, embeds and stores unpaged text as a new document
	// version, superseding any prior version of the same filename.
	Ingest(ctx context.Context, tenantID, sourceFilename, text string) (*domain.Document, error)

	// IngestSegments is Ingest for paged sources.
	IngestSegments(ctx context.Context, tenantID, sourceFilename string, segments []domain.PageSegment) (*domain.Document, error)

	// Delete removes a document's chunks and registry record.
	Delete(ctx context.Context, tenantID, documentID string) error

	// List returns the tenant's documents, newest first.
	List(ctx context.Context, tenantID string) ([]domain.Document, error)

	// Logs returns a document's processing trace, oldest first.
	Logs(ctx context.Context, documentID string) ([]domain.ProcessingLog, error)

	// Stats summarises the tenant's stored state.
	Stats(ctx context.Context, tenantID string) (*TenantStats, error)
}

// TenantStats summarises one tenant's ingested state.
type TenantStats struct {
	// TenantID is the tenant the stats describe.
	TenantID string

	// Documents is the number of registry records.
	Documents int

	// CompletedDocuments is the number of records in the completed state.
	CompletedDocuments int

	// StoredChunks is the number of chunks in the vector store.
	StoredChunks int
}
