// Package inference implements the three pluggable query processors
// (Simple, ReAct, ToolUse) that turn one user turn into zero or more tool
// calls plus a final text response.
package inference

import (
	"context"

	"github.com/tuannvm/llm-tool-engine/internal/llm"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/memory"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
	"github.com/tuannvm/llm-tool-engine/internal/toolexec"
)

// Strategy is the single capability every inference algorithm implements.
// A strategy never closes shared resources: only the Engine closes the
// registry, and only at shutdown, never on hot-swap.
type Strategy interface {
	ProcessQuery(ctx context.Context, text string) (string, error)
	BuildSystemPrompt() string
	Close()
}

// Generator is the slice of the LLM adapter a strategy consumes, satisfied
// by *llm.Adapter and by scripted fakes in tests.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Response, error)
	ProviderName() string
}

// ToolRunner is the slice of the tool executor a strategy consumes.
type ToolRunner interface {
	Execute(ctx context.Context, fullName string, args map[string]interface{}) toolexec.Outcome
}

// ToolSource is the registry view a strategy reads its tool catalog from.
type ToolSource interface {
	Tools() []registry.RawTool
}

// deps bundles what every strategy constructor needs, so adding a new
// strategy never means widening every existing constructor's signature.
type deps struct {
	adapter  Generator
	registry ToolSource
	executor ToolRunner
	memory   *memory.Memory
	logger   *logging.Logger
}
