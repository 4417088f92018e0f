package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var expandCmd = &cobra.Command{
	Use:   "expand [question]",
	Short: "Show the phrasings a query expands into",
	Long: `Prints the normalized query followed by its LLM-generated
variants, in the order retrieval would search them. Useful for tuning
the expansion prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	rootCmd.AddCommand(expandCmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	if expansionService == nil {
		return errors.New("expansion service not configured")
	}

	phrasings := expansionService.Expand(context.Background(), args[0])
	if len(phrasings) == 0 {
		cmd.Println("No phrasings produced (empty query).")
		return nil
	}

	cmd.Println("Phrasings:")
	for i, p := range phrasings {
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	return nil
}
