package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// NewGemini builds an adapter backed by the LangChain Google AI client,
// which carries the API key and the functionDeclarations tool dialect on
// this module's behalf. The client manages its own endpoint, so a
// configured BaseURL is not used for this provider.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, logger *logging.Logger) (*Adapter, error) {
	caps := Capabilities{FunctionCalling: true, SystemMessages: false, MaxContextChars: 800_000}

	opts := []googleai.Option{
		googleai.WithAPIKey(cfg.APIKey),
	}
	if cfg.Model != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.Model))
	}

	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	return &Adapter{
		Name:    "gemini",
		impl:    newLangchainAdapter("gemini", client, caps, logger),
		timeout: timeoutFor(cfg),
	}, nil
}
