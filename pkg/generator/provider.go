package generator

import (
	"context"
	"fmt"

	"github.com/campusdesk/campusdesk/pkg/config"
)

// Provider is a remote LLM that completes a single prompt. Implementations
// return *upstream.Error so callers can tell quota exhaustion apart from other
// failures.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the provider adapter for cfg.
func NewProvider(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	switch cfg.ProviderType() {
	case "gemini":
		return NewGemini(ctx, cfg)
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", cfg.Name, cfg.Type)
	}
}
