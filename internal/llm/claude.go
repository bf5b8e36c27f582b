package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// NewClaude builds an adapter backed by the LangChain Anthropic client,
// which speaks the Messages API (x-api-key auth, input_schema tool
// declarations) on this module's behalf.
func NewClaude(cfg config.ProviderConfig, logger *logging.Logger) (*Adapter, error) {
	caps := Capabilities{FunctionCalling: true, SystemMessages: true, MaxContextChars: 600_000}

	opts := []anthropic.Option{
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
		anthropic.WithHTTPClient(newProviderHTTPClient("claude", cfg, logger)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize claude client: %w", err)
	}
	return &Adapter{
		Name:    "claude",
		impl:    newLangchainAdapter("claude", client, caps, logger),
		timeout: timeoutFor(cfg),
	}, nil
}
