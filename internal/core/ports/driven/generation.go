package driven

import "context"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a generation exchange.
type ChatMessage struct {
	// Role is one of system, user or assistant.
	Role string

	// Content is the message text.
	Content string
}

// GenerateOptions configures a generation request.
type GenerateOptions struct {
	// MaxTokens limits the response length. 0 uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 to 1.0).
	Temperature float64

	// TopP is the nucleus sampling cutoff. 0 uses the provider default.
	TopP float64

	// StopWords are sequences that stop generation.
	StopWords []string
}

// GenerationService produces text from a language model. Query
// expansion is its only caller in this codebase; answer generation
// stays with downstream consumers.
//
// Implementations may include:
//   - Ollama (llama3.2, mistral)
//   - OpenAI and compatible endpoints (gpt-4o-mini, Groq-hosted models)
//   - Anthropic (claude-3-5-sonnet-latest)
type GenerationService interface {
	// Generate produces a completion for the given messages.
	Generate(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
