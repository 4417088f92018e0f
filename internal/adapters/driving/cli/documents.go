package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
	Long:  `List, delete, or inspect the processing history of ingested documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Long:  `Removes the document's chunks from the vector store and its record from the registry.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsLogsCmd = &cobra.Command{
	Use:   "logs [doc-id]",
	Short: "Show a document's processing history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsLogs,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsLogsCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := context.Background()
	docs, err := ingestionService.List(ctx, flagTenant)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for tenant: %s\n", flagTenant)
		return nil
	}

	cmd.Printf("Documents for tenant %s:\n\n", flagTenant)
	for i := range docs {
		cmd.Printf("  %s (v%d, %s)\n", docs[i].ID, docs[i].Version, docs[i].Status)
		cmd.Printf("    File: %s\n", docs[i].SourceFilename)
		cmd.Printf("    Chunks: %d (%d tokens)\n", docs[i].ChunkCount, docs[i].TokenCount)
		cmd.Printf("    Ingested: %s\n", docs[i].IngestedAt.Format("2006-01-02 15:04:05"))
		if docs[i].ErrorMessage != "" {
			cmd.Printf("    Error: %s\n", docs[i].ErrorMessage)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	if err := ingestionService.Delete(ctx, flagTenant, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentsLogs(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	logs, err := ingestionService.Logs(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get processing logs: %w", err)
	}

	if len(logs) == 0 {
		cmd.Printf("No processing logs for document: %s\n", docID)
		return nil
	}

	cmd.Printf("Processing log for document %s:\n\n", docID)
	for i := range logs {
		line := fmt.Sprintf("  [%s] %s", logs[i].Step, logs[i].Status)
		if logs[i].Message != "" {
			line += ": " + logs[i].Message
		}
		cmd.Printf("%s (%s)\n", line, logs[i].CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
