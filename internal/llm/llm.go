// Package llm wraps the language-model collaborators behind a single
// prompt-in/text-out interface. The default provider is a local Ollama
// instance; an Anthropic-backed provider can be selected via configuration.
package llm

import (
	"context"
	"fmt"

	"github.com/untoldecay/devlog/internal/config"
)

// Client is the opaque collaborator: callers build the full prompt, set a
// per-invocation timeout on ctx, and treat any error as "use the fallback".
type Client interface {
	Name() string
	Available(ctx context.Context) bool
	Summarize(ctx context.Context, prompt string) (string, error)
}

// FromConfig builds the configured provider.
func FromConfig() (Client, error) {
	switch provider := config.GetString("llm.provider"); provider {
	case "", "ollama":
		return NewOllamaClient(config.GetString("ollama_base_url"), config.GetString("ollama_model"))
	case "anthropic":
		return NewAnthropicClient(config.GetString("anthropic.api-key"), config.GetString("anthropic.model"))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
