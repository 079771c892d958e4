// Package llm wraps the language-model providers used to classify recipes.
package llm

import (
	"context"
	"fmt"
	"time"

	"mealie-planner/internal/config"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   TokenUsage
	Latency time.Duration
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// New returns the generator of the configured provider.
func New(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	if _, err := cfg.LLMAPIKey(); err != nil {
		return nil, err
	}
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case config.ProviderGroq, "":
		return NewGroqClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
