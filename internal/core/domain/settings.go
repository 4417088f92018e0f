package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API, or any compatible
	// endpoint selected via base URL.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI or compatible (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendChroma stores vectors in a ChromaDB server.
	VectorBackendChroma VectorBackend = "chroma"

	// VectorBackendMemory stores vectors in process memory.
	// Contents are lost on exit; intended for tests and experiments.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendChroma, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendChroma:
		return "ChromaDB (persistent, server)"
	case VectorBackendMemory:
		return "In-memory (ephemeral)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings holds chunk assembly configuration.
type ChunkingSettings struct {
	// ChunkSize is the soft token limit per chunk.
	ChunkSize int

	// Overlap is the token budget carried between consecutive chunks.
	Overlap int
}

// RetrievalSettings holds retrieval behaviour configuration.
type RetrievalSettings struct {
	// TopK is the default maximum number of results.
	TopK int

	// RelevanceThreshold drops results scoring strictly below it.
	RelevanceThreshold float64

	// UseHybrid enables BM25 re-ranking fused with vector similarity.
	UseHybrid bool

	// HybridAlpha weights the fusion: alpha*vector + (1-alpha)*lexical.
	HybridAlpha float64

	// ExpansionEnabled turns on LLM query expansion.
	ExpansionEnabled bool

	// ExpansionCount is the number of variants requested per query.
	ExpansionCount int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible services).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// RequestsPerSecond rate-limits provider calls; 0 means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the generation service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible services).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// RequestsPerSecond rate-limits provider calls; 0 means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the generation provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the vector store implementation.
	Backend VectorBackend

	// URL is the ChromaDB server address.
	URL string
}

// RegistrySettings holds document registry configuration.
type RegistrySettings struct {
	// Path is the SQLite database location. Empty means the default
	// under the config directory.
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Chunking holds chunk assembly settings.
	Chunking ChunkingSettings

	// Retrieval holds retrieval behaviour settings.
	Retrieval RetrievalSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds generation provider settings.
	LLM LLMSettings

	// VectorStore holds vector store settings.
	VectorStore VectorStoreSettings

	// Registry holds document registry settings.
	Registry RegistrySettings
}

// Validate checks cross-field constraints on the settings.
func (s AppSettings) Validate() error {
	if s.Chunking.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be >= 1", ErrInvalidInput)
	}
	if s.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be >= 0", ErrInvalidInput)
	}
	if s.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: top-k must be >= 1", ErrInvalidInput)
	}
	if s.Retrieval.HybridAlpha < 0 || s.Retrieval.HybridAlpha > 1 {
		return fmt.Errorf("%w: hybrid alpha must be in [0, 1]", ErrInvalidInput)
	}
	if s.Retrieval.RelevanceThreshold < 0 || s.Retrieval.RelevanceThreshold > 1 {
		return fmt.Errorf("%w: relevance threshold must be in [0, 1]", ErrInvalidInput)
	}
	if s.Retrieval.ExpansionCount < 1 {
		return fmt.Errorf("%w: expansion count must be >= 1", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Embedding.Provider == AIProviderAnthropic {
		return fmt.Errorf("%w: anthropic does not provide embeddings", ErrInvalidInput)
	}
	if !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", ErrInvalidInput, s.LLM.Provider)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidInput, s.VectorStore.Backend)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// The AI providers default to local Ollama so a fresh install works
// without API keys; cloud providers are opt-in via settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			ChunkSize: 300,
			Overlap:   50,
		},
		Retrieval: RetrievalSettings{
			TopK:               5,
			RelevanceThreshold: 0.1,
			UseHybrid:          false,
			HybridAlpha:        0.7,
			ExpansionEnabled:   true,
			ExpansionCount:     3,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    "llama3.2",
		},
		VectorStore: VectorStoreSettings{
			Backend: VectorBackendChroma,
			URL:     "http://localhost:8000",
		},
		Registry: RegistrySettings{},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllVectorBackends returns all available vector backends.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendChroma,
		VectorBackendMemory,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
