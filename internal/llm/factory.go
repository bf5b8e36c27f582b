package llm

import (
	"context"
	"fmt"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// New builds the adapter for the named provider from its configuration.
func New(ctx context.Context, provider string, cfg config.ProviderConfig, logger *logging.Logger) (*Adapter, error) {
	switch provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, logger)
	case config.ProviderGroq:
		return NewGroq(cfg, logger)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg, logger)
	case config.ProviderClaude:
		return NewClaude(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
