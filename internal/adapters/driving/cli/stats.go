package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the tenant's storage statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := context.Background()
	stats, err := ingestionService.Stats(ctx, flagTenant)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Tenant: %s\n\n", stats.TenantID)
	cmd.Printf("  Documents: %d\n", stats.Documents)
	cmd.Printf("  Completed: %d\n", stats.CompletedDocuments)
	cmd.Printf("  Stored chunks: %d\n", stats.StoredChunks)
	return nil
}
