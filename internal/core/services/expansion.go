package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/retrieva/internal/core/domain"
	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
	"github.com/custodia-labs/retrieva/internal/core/ports/driving"
)

// Default expansion parameters. Low temperature and a short completion
// keep variant lists concise and mostly stable.
const (
	DefaultExpansionCount       = 3
	DefaultExpansionTemperature = 0.4
	DefaultExpansionMaxTokens   = 256
)

// minExpandableLength is the shortest query, in runes, worth sending
// to the generation collaborator.
const minExpandableLength = 3

// expansionSystemPrompt primes the model for the expansion task.
const expansionSystemPrompt = "You are a search query expansion specialist."

// expansionPromptTemplate asks for a fixed number of variations as a
// plain bulleted list, which parseVariants can read back.
const expansionPromptTemplate = `You are an AI assistant specialized in information retrieval.
Your task is to generate %d different variations of the given search query.

Rules:
1. Each variation must capture the same information need as the original query
2. Use different wording, synonyms, or related technical terms
3. Keep variations concise and focused
4. Output ONLY the variations as a bulleted list, no explanations

Original query: %s

Output format:
- variation 1
- variation 2`

// bulletLine matches one list item: an optional bullet or number
// prefix followed by the phrase text.
var bulletLine = regexp.MustCompile(`(?m)^\s*[-*•\d.]+\s*(.+)$`)

// ExpansionConfig holds query expansion tuning.
type ExpansionConfig struct {
	// Count is the number of variants requested per query.
	Count int

	// Temperature controls variant diversity.
	Temperature float64

	// MaxTokens bounds the generated list length.
	MaxTokens int
}

// DefaultExpansionConfig returns the standard expansion tuning.
func DefaultExpansionConfig() ExpansionConfig {
	return ExpansionConfig{
		Count:       DefaultExpansionCount,
		Temperature: DefaultExpansionTemperature,
		MaxTokens:   DefaultExpansionMaxTokens,
	}
}

// ExpansionService turns one query into several phrasings to improve
// recall against the embedding index. Expansion is an optimization:
// every failure path degrades to the original query alone, so callers
// never observe an error from it.
type ExpansionService struct {
	generator driven.GenerationService
	config    ExpansionConfig
	logger    *logrus.Logger

	mu      sync.RWMutex
	prompts driven.PromptStore
}

// Compile-time interface checks.
var (
	_ driving.ExpansionService = (*ExpansionService)(nil)
	_ driven.PromptStoreAware  = (*ExpansionService)(nil)
)

// NewExpansionService creates the expansion service. The generator may
// be nil, in which case Expand always returns the original query.
func NewExpansionService(generator driven.GenerationService, config ExpansionConfig, log *logrus.Logger) *ExpansionService {
	if config.Count < 1 {
		config.Count = DefaultExpansionCount
	}
	if config.Temperature <= 0 {
		config.Temperature = DefaultExpansionTemperature
	}
	if config.MaxTokens < 1 {
		config.MaxTokens = DefaultExpansionMaxTokens
	}
	if log == nil {
		log = logrus.New()
	}

	return &ExpansionService{
		generator: generator,
		config:    config,
		logger:    log,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *ExpansionService) SetPromptStore(store driven.PromptStore) {
	s.mu.Lock()
	s.prompts = store
	s.mu.Unlock()
}

// promptFor resolves a prompt by name, preferring the injected store
// and falling back to the embedded default.
func (s *ExpansionService) promptFor(name, fallback string) string {
	s.mu.RLock()
	store := s.prompts
	s.mu.RUnlock()

	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}

// Expand returns the trimmed original query first, then up to Count
// deduplicated lowercase variants in generation order. The stable
// ordering matters downstream: the retriever's merge breaks score ties
// by first-seen phrasing.
func (s *ExpansionService) Expand(ctx context.Context, query string) []string {
	original := strings.TrimSpace(query)
	if original == "" {
		return []string{}
	}
	if utf8.RuneCountInString(original) < minExpandableLength {
		return []string{original}
	}
	if s.generator == nil {
		return []string{original}
	}

	template := s.promptFor(driven.PromptQueryExpansion, expansionPromptTemplate)
	system := s.promptFor(driven.PromptExpansionSystem, expansionSystemPrompt)

	prompt := fmt.Sprintf(template, s.config.Count, original)
	raw, err := s.generator.Generate(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: prompt},
	}, driven.GenerateOptions{
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		s.logger.WithError(fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)).
			Warn("query expansion failed, continuing with original query")
		return []string{original}
	}

	phrasings := mergeVariants(original, parseVariants(raw), s.config.Count+1)
	if len(phrasings) == 1 {
		s.logger.WithField("query", original).Debug("expansion produced no usable variants")
	} else {
		s.logger.WithFields(logrus.Fields{
			"query":    original,
			"variants": len(phrasings) - 1,
		}).Debug("expanded query")
	}
	return phrasings
}

// parseVariants extracts normalized phrases from a bulleted or
// numbered list: trimmed, unquoted, lowercased, empties dropped.
func parseVariants(raw string) []string {
	var variants []string
	for _, m := range bulletLine.FindAllStringSubmatch(raw, -1) {
		v := strings.TrimSpace(m[1])
		v = stripWrappingQuotes(v)
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			variants = append(variants, v)
		}
	}
	return variants
}

// stripWrappingQuotes removes one leading and one trailing quote
// character, covering models that quote each list item.
func stripWrappingQuotes(s string) string {
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if len(s) > 0 && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

// mergeVariants anchors the original at position 0, deduplicates
// case-insensitively in order and caps the result at limit.
func mergeVariants(original string, variants []string, limit int) []string {
	phrasings := []string{original}
	seen := map[string]bool{strings.ToLower(original): true}

	for _, v := range variants {
		if len(phrasings) >= limit {
			break
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		phrasings = append(phrasings, v)
	}

	return phrasings
}
