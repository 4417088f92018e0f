package driving

import "context"

// ExpansionService produces alternate phrasings for a query.
type ExpansionService interface {
	// Expand returns the normalized original query followed by up to
	// the configured number of deduplicated variants. It never fails:
	// generation errors degrade to the original query alone.
	Expand(ctx context.Context, query string) []string
}
