package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// NewOpenAI builds an adapter backed by the LangChain OpenAI client.
func NewOpenAI(cfg config.ProviderConfig, logger *logging.Logger) (*Adapter, error) {
	caps := Capabilities{FunctionCalling: true, SystemMessages: true, MaxContextChars: 400_000}
	return newOpenAICompatible("openai", cfg, caps, logger)
}

// NewGroq builds an adapter for Groq's OpenAI-compatible endpoint: the same
// LangChain OpenAI client pointed at a different base URL and model
// catalog.
func NewGroq(cfg config.ProviderConfig, logger *logging.Logger) (*Adapter, error) {
	caps := Capabilities{FunctionCalling: true, SystemMessages: true, MaxContextChars: 100_000}
	return newOpenAICompatible("groq", cfg, caps, logger)
}

func newOpenAICompatible(name string, cfg config.ProviderConfig, caps Capabilities, logger *logging.Logger) (*Adapter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(newProviderHTTPClient(name, cfg, logger)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", name, err)
	}
	return &Adapter{
		Name:    name,
		impl:    newLangchainAdapter(name, client, caps, logger),
		timeout: timeoutFor(cfg),
	}, nil
}
