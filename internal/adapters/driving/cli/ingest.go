package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// ingestFilename overrides the recorded source filename.
var ingestFilename string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a text file for retrieval",
	Long: `Reads a file of already-extracted UTF-8 text, splits it into
sentence-aware overlapping chunks, embeds them and stores them for the
tenant. Format extraction (PDF, DOCX, ...) happens upstream; this
command expects plain text.

Re-ingesting the same filename creates a new document version and
removes the previous version's chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFilename, "filename", "",
		"source filename recorded for citations (default: the file's base name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	filename := ingestFilename
	if filename == "" {
		filename = filepath.Base(path)
	}

	ctx := context.Background()
	cmd.Printf("Ingesting %s for tenant %s...\n", filename, flagTenant)

	doc, err := ingestionService.Ingest(ctx, flagTenant, filename, string(data))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Document %s stored (version %d, %d chunks, %d tokens).\n",
		doc.ID, doc.Version, doc.ChunkCount, doc.TokenCount)
	return nil
}
