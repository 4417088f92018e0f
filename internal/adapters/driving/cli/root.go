// Package cli implements the retrieva command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/retrieva/internal/core/ports/driving"
	"github.com/custodia-labs/retrieva/internal/logger"
)

// Services the commands run against. Injected by SetServices before
// Execute, either directly or through the registered initializer.
var (
	ingestionService driving.IngestionService
	retrievalService driving.RetrievalService
	expansionService driving.ExpansionService
	settingsService  driving.SettingsService
)

// version is stamped by main; "dev" for untagged builds.
var version = "dev"

// Global flag values.
var (
	flagTenant    string
	flagVerbose   bool
	flagConfigDir string
)

// Services bundles the driving ports the commands depend on.
type Services struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Expansion driving.ExpansionService
	Settings  driving.SettingsService
}

// Initializer builds the service set. It runs after global flags are
// parsed, so wiring can honour --config-dir and --verbose.
type Initializer func(configDir string, verbose bool) (*Services, error)

var initializer Initializer

var rootCmd = &cobra.Command{
	Use:   "retrieva",
	Short: "Multi-tenant retrieval engine for RAG pipelines",
	Long: `Retrieva ingests extracted document text into per-tenant vector
collections and answers questions with the most relevant chunks.

Ingestion splits text into sentence-aware overlapping chunks, embeds
them and stores them alongside a document registry. Retrieval expands
the query into multiple phrasings, searches each one, optionally
re-ranks with BM25 and returns the top results above the relevance
threshold.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		// version and help must work without a wired backend.
		switch cmd.Name() {
		case "version", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return nil
		}

		if settingsService != nil || initializer == nil {
			return nil
		}
		services, err := initializer(flagConfigDir, flagVerbose)
		if err != nil {
			return fmt.Errorf("initialising services: %w", err)
		}
		SetServices(services)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "default",
		"tenant whose documents the command operates on")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "",
		"configuration directory (default ~/.retrieva)")
}

// SetServices injects the service implementations the commands use.
func SetServices(s *Services) {
	if s == nil {
		ingestionService = nil
		retrievalService = nil
		expansionService = nil
		settingsService = nil
		return
	}
	ingestionService = s.Ingestion
	retrievalService = s.Retrieval
	expansionService = s.Expansion
	settingsService = s.Settings
}

// SetInitializer registers the wiring callback invoked after flag
// parsing. main sets it so the config directory flag takes effect
// before any store is opened.
func SetInitializer(fn Initializer) {
	initializer = fn
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
