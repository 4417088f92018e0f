package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
	"github.com/custodia-labs/retrieva/internal/core/ports/driving"
)

// IngestionService runs the write side of the pipeline: chunk, embed,
// store, supersede. Each (tenant, filename) pair maps to one document
// record whose version increments on re-ingestion; chunk keys embed
// the version, so a new version never collides with the one it
// replaces.
type IngestionService struct {
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	registry driven.DocumentRegistry
	logger   *logrus.Logger
}

// Compile-time interface check.
var _ driving.IngestionService = (*IngestionService)(nil)

// NewIngestionService creates the ingestion service.
func NewIngestionService(
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	registry driven.DocumentRegistry,
	log *logrus.Logger,
) *IngestionService {
	if log == nil {
		log = logrus.New()
	}

	return &IngestionService{
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		registry: registry,
		logger:   log,
	}
}

// Ingest chunks, embeds and stores unpaged text as a new document
// version, superseding any prior version of the same filename.
func (s *IngestionService) Ingest(ctx context.Context, tenantID, sourceFilename, text string) (*domain.Document, error) {
	return s.run(ctx, tenantID, sourceFilename, func(ref domain.ChunkRef) ([]domain.Chunk, error) {
		return s.chunker.Chunk(text, ref)
	})
}

// IngestSegments is Ingest for paged sources.
func (s *IngestionService) IngestSegments(ctx context.Context, tenantID, sourceFilename string, segments []domain.PageSegment) (*domain.Document, error) {
	return s.run(ctx, tenantID, sourceFilename, func(ref domain.ChunkRef) ([]domain.Chunk, error) {
		return s.chunker.ChunkSegments(segments, ref)
	})
}

// run executes the shared ingestion pipeline. chunkFn produces the
// chunks for the resolved document reference; everything after that is
// format-independent.
func (s *IngestionService) run(ctx context.Context, tenantID, sourceFilename string, chunkFn func(domain.ChunkRef) ([]domain.Chunk, error)) (*domain.Document, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant ID is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(sourceFilename) == "" {
		return nil, fmt.Errorf("%w: source filename is empty", domain.ErrInvalidInput)
	}

	doc, priorVersion, err := s.beginVersion(ctx, tenantID, sourceFilename)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"document": doc.ID,
		"version":  doc.Version,
	})
	log.WithField("filename", sourceFilename).Info("ingestion started")

	ref := domain.ChunkRef{
		DocumentID:      doc.ID,
		DocumentVersion: doc.Version,
		SourceFilename:  sourceFilename,
	}

	s.logStep(ctx, doc.ID, domain.StepChunking, domain.LogStarted, "")
	chunks, err := chunkFn(ref)
	if err != nil {
		s.fail(ctx, doc.ID, domain.StepChunking, err)
		return nil, fmt.Errorf("chunking %s: %w", sourceFilename, err)
	}
	s.logStep(ctx, doc.ID, domain.StepChunking, domain.LogCompleted,
		fmt.Sprintf("%d chunks", len(chunks)))

	if len(chunks) == 0 {
		// Nothing to embed or store. The record still completes so the
		// document shows up in listings with zero counts.
		if err := s.registry.MarkCompleted(ctx, doc.ID, 0, 0); err != nil {
			return nil, fmt.Errorf("completing document %s: %w", doc.ID, err)
		}
		log.Info("ingestion finished with no chunks")
		return s.registry.Get(ctx, doc.ID)
	}

	contents := make([]string, len(chunks))
	tokenCount := 0
	for i, chunk := range chunks {
		contents[i] = chunk.Content
		tokenCount += chunk.TokenCount
	}

	s.logStep(ctx, doc.ID, domain.StepEmbedding, domain.LogStarted,
		fmt.Sprintf("%d chunks", len(chunks)))
	vectors, err := s.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		s.fail(ctx, doc.ID, domain.StepEmbedding, err)
		return nil, fmt.Errorf("embedding %s: %w", sourceFilename, err)
	}
	if len(vectors) != len(chunks) {
		err := fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		s.fail(ctx, doc.ID, domain.StepEmbedding, err)
		return nil, err
	}
	s.logStep(ctx, doc.ID, domain.StepEmbedding, domain.LogCompleted, "")

	records := make([]driven.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = driven.VectorRecord{
			Key:             chunk.Key(),
			Content:         chunk.Content,
			Embedding:       vectors[i],
			DocumentID:      chunk.DocumentID,
			DocumentVersion: chunk.DocumentVersion,
			SourceFilename:  chunk.SourceFilename,
			ChunkIndex:      chunk.ChunkIndex,
			TokenCount:      chunk.TokenCount,
			PageLabel:       chunk.PageLabel,
		}
	}

	s.logStep(ctx, doc.ID, domain.StepStoring, domain.LogStarted, "")
	if err := s.vectors.Upsert(ctx, tenantID, records); err != nil {
		// A failed upsert may have landed part of the batch. Remove
		// whatever made it in so the failed version never serves.
		if cleanupErr := s.vectors.DeleteDocumentVersion(ctx, tenantID, doc.ID, doc.Version); cleanupErr != nil {
			log.WithError(cleanupErr).Warn("cleanup of partial upsert failed")
		}
		s.fail(ctx, doc.ID, domain.StepStoring, err)
		return nil, fmt.Errorf("storing %s: %w", sourceFilename, err)
	}
	s.logStep(ctx, doc.ID, domain.StepStoring, domain.LogCompleted,
		fmt.Sprintf("%d records", len(records)))

	if priorVersion > 0 {
		s.logStep(ctx, doc.ID, domain.StepDeletion, domain.LogStarted,
			fmt.Sprintf("superseding version %d", priorVersion))
		if err := s.vectors.DeleteDocumentVersion(ctx, tenantID, doc.ID, priorVersion); err != nil {
			// The new version is stored and ranked identically either
			// way; stale chunks only waste space until the next pass.
			s.logStep(ctx, doc.ID, domain.StepDeletion, domain.LogFailed, err.Error())
			log.WithError(err).WithField("prior_version", priorVersion).
				Warn("superseded version cleanup failed")
		} else {
			s.logStep(ctx, doc.ID, domain.StepDeletion, domain.LogCompleted, "")
		}
	}

	if err := s.registry.MarkCompleted(ctx, doc.ID, len(chunks), tokenCount); err != nil {
		return nil, fmt.Errorf("completing document %s: %w", doc.ID, err)
	}

	log.WithFields(logrus.Fields{
		"chunks": len(chunks),
		"tokens": tokenCount,
	}).Info("ingestion finished")

	return s.registry.Get(ctx, doc.ID)
}

// beginVersion resolves the document record for the filename and moves
// it into the processing state at the next version. It returns the
// record and the version being superseded, 0 when this is the first
// ingestion.
func (s *IngestionService) beginVersion(ctx context.Context, tenantID, sourceFilename string) (*domain.Document, int, error) {
	now := time.Now().UTC()
	priorVersion := 0

	doc, err := s.registry.FindBySource(ctx, tenantID, sourceFilename)
	switch {
	case err == nil:
		priorVersion = doc.Version
		doc.Version++
		doc.Status = domain.StatusProcessing
		doc.ErrorMessage = ""
		doc.ChunkCount = 0
		doc.TokenCount = 0
		doc.IngestedAt = now
		doc.ProcessedAt = nil
		doc.UpdatedAt = now
	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Document{
			ID:             uuid.NewString(),
			TenantID:       tenantID,
			SourceFilename: sourceFilename,
			Version:        1,
			Status:         domain.StatusProcessing,
			IngestedAt:     now,
			UpdatedAt:      now,
		}
	default:
		return nil, 0, fmt.Errorf("looking up %s: %w", sourceFilename, err)
	}

	if err := s.registry.Save(ctx, doc); err != nil {
		return nil, 0, fmt.Errorf("saving document record: %w", err)
	}
	return doc, priorVersion, nil
}

// Delete removes a document's chunks and registry record. The vector
// store is cleared first so a partial failure leaves the record
// visible rather than orphaning unreachable chunks.
func (s *IngestionService) Delete(ctx context.Context, tenantID, documentID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant ID is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document ID is empty", domain.ErrInvalidInput)
	}

	doc, err := s.registry.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("looking up document %s: %w", documentID, err)
	}
	if doc.TenantID != tenantID {
		// Cross-tenant IDs are indistinguishable from unknown ones.
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	if err := s.vectors.DeleteDocument(ctx, tenantID, documentID); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", documentID, err)
	}
	if err := s.registry.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("deleting record %s: %w", documentID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"document": documentID,
	}).Info("document deleted")
	return nil
}

// List returns the tenant's documents, newest first.
func (s *IngestionService) List(ctx context.Context, tenantID string) ([]domain.Document, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant ID is empty", domain.ErrInvalidInput)
	}
	docs, err := s.registry.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Logs returns a document's processing trace, oldest first.
func (s *IngestionService) Logs(ctx context.Context, documentID string) ([]domain.ProcessingLog, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document ID is empty", domain.ErrInvalidInput)
	}
	logs, err := s.registry.Logs(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing processing logs: %w", err)
	}
	return logs, nil
}

// Stats summarises the tenant's stored state.
func (s *IngestionService) Stats(ctx context.Context, tenantID string) (*driving.TenantStats, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant ID is empty", domain.ErrInvalidInput)
	}

	docs, err := s.registry.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	completed := 0
	for _, doc := range docs {
		if doc.Status == domain.StatusCompleted {
			completed++
		}
	}

	stored, err := s.vectors.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("counting stored chunks: %w", err)
	}

	return &driving.TenantStats{
		TenantID:           tenantID,
		Documents:          len(docs),
		CompletedDocuments: completed,
		StoredChunks:       stored,
	}, nil
}

// logStep appends one processing log entry. Log persistence is best
// effort and never interrupts the pipeline.
func (s *IngestionService) logStep(ctx context.Context, documentID string, step domain.ProcessingStep, status domain.LogStatus, message string) {
	entry := &domain.ProcessingLog{
		DocumentID: documentID,
		Step:       step,
		Status:     status,
		Message:    message,
	}
	if err := s.registry.AppendLog(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("document", documentID).
			Debug("processing log append failed")
	}
}

// fail records a step failure and marks the document failed.
func (s *IngestionService) fail(ctx context.Context, documentID string, step domain.ProcessingStep, cause error) {
	s.logStep(ctx, documentID, step, domain.LogFailed, cause.Error())
	if err := s.registry.MarkFailed(ctx, documentID, cause.Error()); err != nil {
		s.logger.WithError(err).WithField("document", documentID).
			Warn("marking document failed")
	}
}
