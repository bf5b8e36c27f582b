package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuannvm/llm-tool-engine/internal/llm"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/memory"
)

// SimpleStrategy answers a turn with a single round-trip: the model is
// asked to either emit a `TOOL:<name>:{json}` directive or answer directly.
type SimpleStrategy struct {
	deps
}

// NewSimple builds a Simple strategy.
func NewSimple(adapter Generator, reg ToolSource, exec ToolRunner, mem *memory.Memory, logger *logging.Logger) *SimpleStrategy {
	return &SimpleStrategy{deps{adapter: adapter, registry: reg, executor: exec, memory: mem, logger: logger.WithName("simple-strategy")}}
}

// BuildSystemPrompt returns the instruction block prefixed to every prompt.
func (s *SimpleStrategy) BuildSystemPrompt() string {
	return "You are a helpful assistant. If a tool is needed, reply with exactly one line: " +
		"TOOL:<fully-qualified-tool-name>:{json-arguments}. Otherwise answer directly in plain text."
}

// Close is a no-op: Simple holds no resources of its own.
func (s *SimpleStrategy) Close() {}

func (s *SimpleStrategy) ProcessQuery(ctx context.Context, text string) (string, error) {
	tools := s.registry.Tools()
	prompt := s.BuildSystemPrompt() + "\n\n" +
		renderRecentTurns(s.memory.Recent(10)) +
		"Available tools:\n" + renderToolTable(tools) + "\n" +
		"User: " + text

	resp, err := s.adapter.Generate(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	call, ok := parseNamedDirective(resp.Text, "TOOL:")
	if !ok {
		return strings.TrimSpace(resp.Text), nil
	}

	outcome := s.executor.Execute(ctx, call.Name, call.Args)
	if outcome.Err != nil {
		return fmt.Sprintf("I tried to use %s but it failed: %s", call.Name, outcome.Err.Error()), nil
	}

	finalPrompt := fmt.Sprintf(
		"The user asked: %q\nThe tool %s returned:\n%s\nWrite the final user-facing answer.",
		text, call.Name, outcome.Result,
	)
	finalResp, err := s.adapter.Generate(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: finalPrompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(finalResp.Text), nil
}
