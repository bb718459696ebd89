// Package llm provides generative text backends for practice recommendations.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/masterofmagic999/mugic/internal/domain/recommend"
)

// Provider names.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default models per provider.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Config selects and configures a backend.
type Config struct {
	Provider     string
	Model        string
	OpenAIAPIKey string
	GeminiAPIKey string
	// BaseURL overrides the provider endpoint.
	BaseURL string
}

// NewGenerator returns the backend named by cfg.Provider. It returns nil and
// no error for "none" or an empty provider, meaning templates only.
func NewGenerator(ctx context.Context, cfg Config) (recommend.TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderOpenAI)
		}
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderGemini)
		}
		gen, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("%w: %s (allowed: none, openai, gemini)", ErrUnknownProvider, cfg.Provider)
	}
}
