package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/llm"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/memory"
)

// StepKind discriminates a ReActStep's tagged variant.
type StepKind string

const (
	StepThought     StepKind = "THOUGHT"
	StepAction      StepKind = "ACTION"
	StepObservation StepKind = "OBSERVATION"
)

// Step is one entry in a ReAct run's ordered step log.
type Step struct {
	Kind StepKind
	Text string
	Tool string
	Args map[string]interface{}
}

// ReActStrategy implements the bounded Thought-Action-Observation loop.
type ReActStrategy struct {
	deps
	maxIterations int
}

// NewReAct builds a ReAct strategy with the given iteration bound (0 uses
// the default of 10).
func NewReAct(adapter Generator, reg ToolSource, exec ToolRunner, mem *memory.Memory, logger *logging.Logger, maxIterations int) *ReActStrategy {
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &ReActStrategy{
		deps:          deps{adapter: adapter, registry: reg, executor: exec, memory: mem, logger: logger.WithName("react-strategy")},
		maxIterations: maxIterations,
	}
}

func (r *ReActStrategy) BuildSystemPrompt() string {
	return "You are a reasoning agent. Think step by step. When you know the final answer, " +
		"reply with a line starting \"FINAL ANSWER:\" followed by the answer. When you need a tool, " +
		"reply with a line containing \"ACTION:\" and then, on a separate call, emit " +
		"FUNCTION_CALL:<name>:{json-arguments}."
}

func (r *ReActStrategy) Close() {}

var actionTerminators = []string{"need action:", "action:", "use tool", "call tool"}

func (r *ReActStrategy) ProcessQuery(ctx context.Context, text string) (string, error) {
	tools := r.registry.Tools()
	var steps []Step

	for i := 0; i < r.maxIterations; i++ {
		thoughtPrompt := r.BuildSystemPrompt() + "\n\n" +
			renderRecentTurns(r.memory.Recent(10)) +
			"Available tools:\n" + renderToolTable(tools) + "\n" +
			"Query: " + text + "\n" +
			renderStepLog(steps)

		resp, err := r.adapter.Generate(ctx, llm.Request{
			Messages: []llm.Message{{Role: "user", Content: thoughtPrompt}},
		})
		if err != nil {
			if errs.KindOf(err) == errs.KindEmptyResponse {
				steps = append(steps, Step{Kind: StepThought, Text: "(empty response)"})
				continue
			}
			return "", err
		}

		lower := strings.ToLower(resp.Text)
		if idx := strings.Index(lower, "final answer:"); idx >= 0 {
			answer := strings.TrimSpace(resp.Text[idx+len("final answer:"):])
			return answer, nil
		}

		needsAction := false
		for _, term := range actionTerminators {
			if strings.Contains(lower, term) {
				needsAction = true
				break
			}
		}

		steps = append(steps, Step{Kind: StepThought, Text: resp.Text})

		if !needsAction {
			continue
		}

		actionPrompt := "Given your reasoning, emit exactly one directive: FUNCTION_CALL:<name>:{json-arguments}\n" +
			"Available tools:\n" + renderToolTable(tools)
		actionResp, err := r.adapter.Generate(ctx, llm.Request{
			Messages: []llm.Message{{Role: "user", Content: actionPrompt}},
		})
		if err != nil {
			if errs.KindOf(err) == errs.KindEmptyResponse {
				continue
			}
			return "", err
		}

		call, ok := parseActionDirective(actionResp.Text)
		if !ok {
			continue
		}
		steps = append(steps, Step{Kind: StepAction, Tool: call.Name, Args: call.Args})

		outcome := r.executor.Execute(ctx, call.Name, call.Args)
		var obs string
		if outcome.Err != nil {
			obs = "error: " + outcome.Err.Error()
		} else {
			obs = outcome.Result
		}
		steps = append(steps, Step{Kind: StepObservation, Text: obs})
	}

	return fallbackFromThoughts(steps), nil
}

func renderStepLog(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		switch s.Kind {
		case StepThought:
			b.WriteString("Thought: " + s.Text + "\n")
		case StepAction:
			b.WriteString(fmt.Sprintf("Action: %s(%v)\n", s.Tool, s.Args))
		case StepObservation:
			b.WriteString("Observation: " + s.Text + "\n")
		}
	}
	return b.String()
}

// fallbackFromThoughts concatenates every recorded Thought, the observable
// behavior when maxIterations is exhausted without a FINAL ANSWER.
func fallbackFromThoughts(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		if s.Kind == StepThought {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(s.Text)
		}
	}
	if b.Len() == 0 {
		return "No final answer reached."
	}
	return b.String()
}
