package driving

import (
	"context"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

// RetrievalService returns the most relevant chunks for a question.
type RetrievalService interface {
	// Retrieve runs the hybrid retrieval pipeline against one tenant's
	// chunks. An empty result is a normal outcome, not an error.
	Retrieve(ctx context.Context, query, tenantID string, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error)
}
