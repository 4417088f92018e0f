package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/retrieva/internal/core/domain"
)

var (
	queryTopK      int
	queryHybrid    bool
	queryAlpha     float64
	queryThreshold float64
	queryNoExpand  bool
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve the most relevant chunks for a question",
	Long: `Runs the retrieval pipeline against the tenant's documents:
LLM query expansion, vector search per phrasing, optional BM25
re-ranking fused with vector similarity, relevance filtering and a
top-k cut. Prints ranked chunks with their score, source and page.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 0,
		"maximum number of results (default from settings)")
	queryCmd.Flags().BoolVar(&queryHybrid, "hybrid", false,
		"enable BM25 re-ranking fused with vector similarity")
	queryCmd.Flags().Float64Var(&queryAlpha, "alpha", 0.7,
		"vector weight for hybrid fusion in [0,1]; overrides the configured hybrid_alpha")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0,
		"drop results scoring below this value (default from settings)")
	queryCmd.Flags().BoolVar(&queryNoExpand, "no-expand", false,
		"skip LLM query expansion for this query")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false,
		"output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

// resultView is the JSON output shape for one retrieval result.
type resultView struct {
	Content         string  `json:"content"`
	DocumentID      string  `json:"document_id"`
	DocumentVersion int     `json:"document_version"`
	SourceFilename  string  `json:"source_filename"`
	ChunkIndex      int     `json:"chunk_index"`
	PageLabel       string  `json:"page_label"`
	Score           float64 `json:"score"`
	Phrasing        string  `json:"phrasing"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	question := args[0]
	ctx := context.Background()

	opts := domain.RetrievalOptions{
		TopK:               queryTopK,
		RelevanceThreshold: queryThreshold,
		DisableExpansion:   queryNoExpand,
	}
	if queryHybrid {
		opts.UseHybrid = true
		opts.HybridAlpha = queryAlpha
		if !cmd.Flags().Changed("alpha") {
			// --hybrid without --alpha keeps the configured fusion weight.
			if settingsService != nil {
				if settings, err := settingsService.Get(); err == nil {
					opts.HybridAlpha = settings.Retrieval.HybridAlpha
				}
			}
		}
	}

	results, err := retrievalService.Retrieve(ctx, question, flagTenant, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputResultsJSON(cmd, results)
	}
	return outputResultsTable(cmd, results)
}

func outputResultsJSON(cmd *cobra.Command, results []domain.RetrievalResult) error {
	views := make([]resultView, len(results))
	for i, r := range results {
		views[i] = resultView{
			Content:         r.Chunk.Content,
			DocumentID:      r.Chunk.DocumentID,
			DocumentVersion: r.Chunk.DocumentVersion,
			SourceFilename:  r.Chunk.SourceFilename,
			ChunkIndex:      r.Chunk.ChunkIndex,
			PageLabel:       r.Chunk.PageLabel,
			Score:           r.RelevanceScore,
			Phrasing:        r.Phrasing,
		}
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultsTable(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (page %s, score %.2f)\n",
			i+1, r.Chunk.SourceFilename, r.Chunk.PageLabel, r.RelevanceScore)
		cmd.Printf("      %s\n", snippet(r.Chunk.Content, 200))
		cmd.Println()
	}

	return nil
}

// snippet collapses whitespace and truncates content for one-line display.
func snippet(content string, maxRunes int) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	runes := []rune(collapsed)
	if len(runes) <= maxRunes {
		return collapsed
	}
	return string(runes[:maxRunes]) + "..."
}
