package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/retrieva/internal/adapters/driven/ai"
	"github.com/custodia-labs/retrieva/internal/adapters/driven/config/file"
	"github.com/custodia-labs/retrieva/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/retrieva/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/retrieva/internal/adapters/driven/vector/chroma"
	"github.com/custodia-labs/retrieva/internal/adapters/driving/cli"
	"github.com/custodia-labs/retrieva/internal/chunker"
	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
	"github.com/custodia-labs/retrieva/internal/core/services"
	"github.com/custodia-labs/retrieva/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// .env provides API keys in development.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetInitializer(buildServices)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildServices wires the adapters and core services from settings.
// It runs lazily, after global flags are parsed, so --config-dir and
// --verbose are already in effect.
func buildServices(configDir string, _ bool) (*cli.Services, error) {
	log := logger.L()

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config store: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	applyEnvKeys(settings)

	embedder, err := buildEmbedder(settings)
	if err != nil {
		return nil, err
	}

	vectors, err := buildVectorStore(settings)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(settings, configDir)
	if err != nil {
		return nil, err
	}

	splitter := chunker.New(
		chunker.WithChunkSize(settings.Chunking.ChunkSize),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)

	expansionService := services.NewExpansionService(
		buildGenerator(settings, log),
		services.ExpansionConfig{Count: settings.Retrieval.ExpansionCount},
		log,
	)
	if store, err := file.NewPromptStore(promptDir(configDir)); err == nil {
		expansionService.SetPromptStore(store)
	} else {
		log.WithError(err).Warn("prompt store unavailable, using built-in prompts")
	}

	retrievalService := services.NewRetrievalService(embedder, vectors, expansionService,
		services.RetrievalConfig{
			TopK:               settings.Retrieval.TopK,
			RelevanceThreshold: settings.Retrieval.RelevanceThreshold,
			UseHybrid:          settings.Retrieval.UseHybrid,
			HybridAlpha:        settings.Retrieval.HybridAlpha,
			ExpansionEnabled:   settings.Retrieval.ExpansionEnabled,
		}, log)

	return &cli.Services{
		Ingestion: services.NewIngestionService(splitter, embedder, vectors, registry, log),
		Retrieval: retrievalService,
		Expansion: expansionService,
		Settings:  settingsService,
	}, nil
}

func buildEmbedder(settings *domain.AppSettings) (driven.EmbeddingService, error) {
	svc, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: run 'retrieva settings embedding' to configure a provider",
			domain.ErrEmbeddingUnavailable)
	}
	return svc, nil
}

// buildGenerator returns nil when the configured LLM provider cannot be
// constructed. Expansion degrades to the original query in that case,
// so a missing API key never blocks ingestion or plain vector search.
func buildGenerator(settings *domain.AppSettings, log *logrus.Logger) driven.GenerationService {
	svc, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		log.WithError(err).Warn("LLM provider unavailable, query expansion disabled")
		return nil
	}
	if svc == nil {
		log.Warn("LLM provider not configured, query expansion disabled")
		return nil
	}
	return svc
}

func buildVectorStore(settings *domain.AppSettings) (driven.VectorStore, error) {
	switch settings.VectorStore.Backend {
	case domain.VectorBackendChroma:
		store, err := chroma.NewStore(settings.VectorStore.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting vector store: %w", err)
		}
		return store, nil
	case domain.VectorBackendMemory:
		return memory.NewVectorStore(), nil
	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrInvalidInput, settings.VectorStore.Backend)
	}
}

func buildRegistry(settings *domain.AppSettings, configDir string) (driven.DocumentRegistry, error) {
	dataDir := settings.Registry.Path
	if dataDir == "" && configDir != "" {
		dataDir = filepath.Join(configDir, "data")
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening document registry: %w", err)
	}
	return store, nil
}

// applyEnvKeys fills missing API keys from the environment. GROQ_API_KEY
// serves the openai-compatible adapter when pointed at Groq.
func applyEnvKeys(settings *domain.AppSettings) {
	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	switch settings.LLM.Provider {
	case domain.AIProviderOpenAI:
		if settings.LLM.APIKey == "" {
			settings.LLM.APIKey = firstEnv("OPENAI_API_KEY", "GROQ_API_KEY")
		}
	case domain.AIProviderAnthropic:
		if settings.LLM.APIKey == "" {
			settings.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func promptDir(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "prompts")
}
