package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	// StatusPending means the document is recorded but not yet processed.
	StatusPending DocumentStatus = "pending"

	// StatusProcessing means chunking, embedding or storing is underway.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted means the document's chunks are searchable.
	StatusCompleted DocumentStatus = "completed"

	// StatusFailed means ingestion stopped; ErrorMessage holds the cause.
	StatusFailed DocumentStatus = "failed"
)

// IsValid reports whether the status is a known pipeline state.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is a final pipeline state.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents an ingested document in the registry. One record
// exists per (TenantID, SourceFilename); re-ingesting increments Version
// on that record, and the superseded version's chunks are removed from
// the vector store once the new version completes.
type Document struct {
	// ID is the unique identifier for this document revision.
	ID string

	// TenantID scopes the document to a tenant.
	TenantID string

	// SourceFilename is the logical file name supplied at ingestion.
	SourceFilename string

	// Version is the revision number, starting at 1.
	Version int

	// Status is the current pipeline state.
	Status DocumentStatus

	// ErrorMessage holds the failure cause when Status is failed.
	ErrorMessage string

	// ChunkCount is the number of chunks produced.
	ChunkCount int

	// TokenCount is the total token count across all chunks.
	TokenCount int

	// IngestedAt is when the record was created.
	IngestedAt time.Time

	// ProcessedAt is when ingestion reached a terminal state.
	ProcessedAt *time.Time

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
}

// ProcessingStep names a stage of the ingestion pipeline.
type ProcessingStep string

const (
	// StepChunking covers sentence splitting and chunk assembly.
	StepChunking ProcessingStep = "chunking"

	// StepEmbedding covers vector generation for chunk contents.
	StepEmbedding ProcessingStep = "embedding"

	// StepStoring covers vector store upserts.
	StepStoring ProcessingStep = "storing"

	// StepDeletion covers chunk removal for superseded versions.
	StepDeletion ProcessingStep = "deletion"
)

// LogStatus is the outcome recorded for a processing step.
type LogStatus string

const (
	// LogStarted marks the beginning of a step.
	LogStarted LogStatus = "started"

	// LogCompleted marks a successful step.
	LogCompleted LogStatus = "completed"

	// LogFailed marks a failed step.
	LogFailed LogStatus = "failed"
)

// ProcessingLog is one entry in a document's ingestion trace.
type ProcessingLog struct {
	// ID is the log entry identifier.
	ID int64

	// DocumentID links to the Document.
	DocumentID string

	// Step is the pipeline stage.
	Step ProcessingStep

	// Status is the step outcome.
	Status LogStatus

	// Message holds detail, such as counts or a failure cause.
	Message string

	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time
}
