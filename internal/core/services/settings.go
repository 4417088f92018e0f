package services

import (
	"fmt"
	"strconv"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
	"github.com/custodia-labs/retrieva/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize       = "chunking.chunk_size"
	keyChunkOverlap    = "chunking.overlap"
	keyTopK            = "retrieval.top_k"
	keyThreshold       = "retrieval.relevance_threshold"
	keyUseHybrid       = "retrieval.use_hybrid"
	keyHybridAlpha     = "retrieval.hybrid_alpha"
	keyExpansionOn     = "retrieval.expansion_enabled"
	keyExpansionCount  = "retrieval.expansion_count"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedRate       = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMRate         = "llm.requests_per_second"
	keyVectorBackend   = "vector_store.backend"
	keyVectorURL       = "vector_store.url"
	keyRegistryPath    = "registry.path"
)

// defaultOllamaURL is applied when a local provider has no base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service. The validator may
// be nil, which skips provider connectivity checks.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, overlaying stored values
// on the defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			ChunkSize: s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			Overlap:   s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:               s.getInt(keyTopK, defaults.Retrieval.TopK),
			RelevanceThreshold: s.getFloat(keyThreshold, defaults.Retrieval.RelevanceThreshold),
			UseHybrid:          s.getBool(keyUseHybrid, defaults.Retrieval.UseHybrid),
			HybridAlpha:        s.getFloat(keyHybridAlpha, defaults.Retrieval.HybridAlpha),
			ExpansionEnabled:   s.getBool(keyExpansionOn, defaults.Retrieval.ExpansionEnabled),
			ExpansionCount:     s.getInt(keyExpansionCount, defaults.Retrieval.ExpansionCount),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRate),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRate),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend: s.getBackend(keyVectorBackend, defaults.VectorStore.Backend),
			URL:     s.getString(keyVectorURL, defaults.VectorStore.URL),
		},
		Registry: domain.RegistrySettings{
			Path: s.configStore.GetString(keyRegistryPath),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save chunking settings
	if err := s.configStore.Set(keyChunkSize, settings.Chunking.ChunkSize); err != nil {
		return fmt.Errorf("save chunk size: %w", err)
	}
	if err := s.configStore.Set(keyChunkOverlap, settings.Chunking.Overlap); err != nil {
		return fmt.Errorf("save overlap: %w", err)
	}

	// Save retrieval settings
	if err := s.configStore.Set(keyTopK, settings.Retrieval.TopK); err != nil {
		return fmt.Errorf("save top_k: %w", err)
	}
	if err := s.configStore.Set(keyThreshold, settings.Retrieval.RelevanceThreshold); err != nil {
		return fmt.Errorf("save relevance_threshold: %w", err)
	}
	if err := s.configStore.Set(keyUseHybrid, settings.Retrieval.UseHybrid); err != nil {
		return fmt.Errorf("save use_hybrid: %w", err)
	}
	if err := s.configStore.Set(keyHybridAlpha, settings.Retrieval.HybridAlpha); err != nil {
		return fmt.Errorf("save hybrid_alpha: %w", err)
	}
	if err := s.configStore.Set(keyExpansionOn, settings.Retrieval.ExpansionEnabled); err != nil {
		return fmt.Errorf("save expansion_enabled: %w", err)
	}
	if err := s.configStore.Set(keyExpansionCount, settings.Retrieval.ExpansionCount); err != nil {
		return fmt.Errorf("save expansion_count: %w", err)
	}

	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyEmbedDimensions, settings.Embedding.Dimensions); err != nil {
		return fmt.Errorf("save embedding dimensions: %w", err)
	}
	if settings.Embedding.RequestsPerSecond > 0 {
		if err := s.configStore.Set(keyEmbedRate, settings.Embedding.RequestsPerSecond); err != nil {
			return fmt.Errorf("save embedding requests_per_second: %w", err)
		}
	}

	// Save LLM settings
	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.LLM.RequestsPerSecond > 0 {
		if err := s.configStore.Set(keyLLMRate, settings.LLM.RequestsPerSecond); err != nil {
			return fmt.Errorf("save llm requests_per_second: %w", err)
		}
	}

	// Save vector store settings
	if err := s.configStore.Set(keyVectorBackend, settings.VectorStore.Backend.String()); err != nil {
		return fmt.Errorf("save vector backend: %w", err)
	}
	if err := s.configStore.Set(keyVectorURL, settings.VectorStore.URL); err != nil {
		return fmt.Errorf("save vector url: %w", err)
	}

	// Save registry settings
	if settings.Registry.Path != "" {
		if err := s.configStore.Set(keyRegistryPath, settings.Registry.Path); err != nil {
			return fmt.Errorf("save registry path: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	validProviders := domain.AllEmbeddingProviders()
	valid := false
	for _, p := range validProviders {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	dims := domain.EmbeddingDimensions()
	if d, ok := dims[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		defaults := domain.DefaultLLMModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.LLM.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.LLM.BaseURL = ""
	}

	// Set API key
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Retrieval option names accepted by SetRetrievalOption.
const (
	optionTopK           = "top_k"
	optionThreshold      = "relevance_threshold"
	optionUseHybrid      = "use_hybrid"
	optionHybridAlpha    = "hybrid_alpha"
	optionExpansionOn    = "expansion_enabled"
	optionExpansionCount = "expansion_count"
)

// SetRetrievalOption sets one retrieval tuning option by name. The
// value is parsed according to the option's type and validated against
// the same bounds as AppSettings.Validate.
func (s *SettingsService) SetRetrievalOption(name, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch name {
	case optionTopK:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("top_k must be an integer: %q", value)
		}
		settings.Retrieval.TopK = n
	case optionThreshold:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("relevance_threshold must be a number: %q", value)
		}
		settings.Retrieval.RelevanceThreshold = f
	case optionUseHybrid:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("use_hybrid must be a boolean: %q", value)
		}
		settings.Retrieval.UseHybrid = b
	case optionHybridAlpha:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("hybrid_alpha must be a number: %q", value)
		}
		settings.Retrieval.HybridAlpha = f
	case optionExpansionOn:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expansion_enabled must be a boolean: %q", value)
		}
		settings.Retrieval.ExpansionEnabled = b
	case optionExpansionCount:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expansion_count must be an integer: %q", value)
		}
		settings.Retrieval.ExpansionCount = n
	default:
		return fmt.Errorf("unknown retrieval option %q (valid: %s, %s, %s, %s, %s, %s)",
			name, optionTopK, optionThreshold, optionUseHybrid,
			optionHybridAlpha, optionExpansionOn, optionExpansionCount)
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	return s.Save(settings)
}

// Validate checks if current settings are coherent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	// Embedding is required for every ingest and query path.
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf(
			"embedding provider %q requires an API key",
			settings.Embedding.Provider.Description(),
		)
	}

	// An unconfigured LLM only disables expansion, which degrades
	// gracefully, unless expansion is explicitly enabled.
	if settings.Retrieval.ExpansionEnabled && !settings.LLM.IsConfigured() {
		return fmt.Errorf(
			"query expansion requires LLM provider %q to be configured",
			settings.LLM.Provider.Description(),
		)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current generation configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero distinguishes a stored zero from an absent key, for
// settings where zero is meaningful.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(key string, defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
