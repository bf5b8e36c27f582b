package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/llm"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/memory"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
	"github.com/tuannvm/llm-tool-engine/internal/toolexec"
)

// maxExtractRetries bounds executeWithLLMRetry's correction loop: one
// initial extraction attempt plus this many corrections, never more than
// three executor calls total for one tool.
const maxExtractRetries = 2

// ToolUseStrategy implements the schema-aware strategy: it classifies query
// complexity, ranks tools by a weighted heuristic for the simple case, and
// falls back to an LLM-driven direct-response/single-tool/tool-chain
// decision with argument extraction and a bounded correction loop.
type ToolUseStrategy struct {
	deps
	learning           *learningRegister
	maxToolChainLength int
	defaultTimezone    string
	workspacePath      string
}

// NewToolUse builds a ToolUse strategy. maxToolChainLength <= 0 uses the
// default of 3. workspacePath is the resolved absolute path file-writing
// tool calls are anchored to; defaultTimezone is the IANA zone assumed for
// ambiguous time queries.
func NewToolUse(adapter Generator, reg ToolSource, exec ToolRunner, mem *memory.Memory, logger *logging.Logger, maxToolChainLength int, workspacePath, defaultTimezone string) *ToolUseStrategy {
	if maxToolChainLength <= 0 {
		maxToolChainLength = 3
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &ToolUseStrategy{
		deps:               deps{adapter: adapter, registry: reg, executor: exec, memory: mem, logger: logger.WithName("tooluse-strategy")},
		learning:           newLearningRegister(),
		maxToolChainLength: maxToolChainLength,
		defaultTimezone:    defaultTimezone,
		workspacePath:      workspacePath,
	}
}

func (t *ToolUseStrategy) BuildSystemPrompt() string {
	return "You are a tool-using assistant. Decide whether to answer directly, use exactly one tool, " +
		"or chain several tools. Reply with exactly one directive line: DIRECT_RESPONSE, " +
		"USE_TOOL:<name>, or TOOL_CHAIN:<name1>,<name2>,..."
}

func (t *ToolUseStrategy) Close() {}

func (t *ToolUseStrategy) ProcessQuery(ctx context.Context, text string) (string, error) {
	tools := t.registry.Tools()
	if len(tools) == 0 {
		return t.directAnswer(ctx, text)
	}

	if !isComplexQuery(text, tools) {
		if tool, ok := bestSingleTool(text, tools, t.learning); ok {
			return t.runSingleTool(ctx, text, tool)
		}
	}

	decision, err := t.decide(ctx, text, tools)
	if err != nil {
		return "", err
	}

	switch {
	case decision == "DIRECT_RESPONSE" || decision == "":
		return t.directAnswer(ctx, text)
	case strings.HasPrefix(decision, "USE_TOOL:"):
		name := strings.TrimSpace(strings.TrimPrefix(decision, "USE_TOOL:"))
		tool, ok := lookupToolByName(tools, name)
		if !ok {
			return t.directAnswer(ctx, text)
		}
		return t.runSingleTool(ctx, text, tool)
	case strings.HasPrefix(decision, "TOOL_CHAIN:"):
		names := strings.Split(strings.TrimPrefix(decision, "TOOL_CHAIN:"), ",")
		return t.runChain(ctx, text, tools, names)
	default:
		return t.directAnswer(ctx, text)
	}
}

func lookupToolByName(tools []registry.RawTool, name string) (registry.RawTool, bool) {
	for _, tl := range tools {
		if tl.FullName == name {
			return tl, true
		}
	}
	return registry.RawTool{}, false
}

// decide asks the model which of the three directives applies, since the
// single-tool ranking pass above only handles the simple case.
func (t *ToolUseStrategy) decide(ctx context.Context, text string, tools []registry.RawTool) (string, error) {
	prompt := t.BuildSystemPrompt() + "\n\n" +
		renderRecentTurns(t.memory.Recent(10)) +
		"Available tools:\n" + renderToolTable(tools) + "\n" +
		"Query: " + text

	resp, err := t.adapter.Generate(ctx, llm.Request{Messages: []llm.Message{{Role: "user", Content: prompt}}})
	if err != nil {
		if errs.KindOf(err) == errs.KindEmptyResponse {
			return "DIRECT_RESPONSE", nil
		}
		return "", err
	}
	for _, line := range strings.Split(resp.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "DIRECT_RESPONSE" || strings.HasPrefix(line, "USE_TOOL:") || strings.HasPrefix(line, "TOOL_CHAIN:") {
			return line, nil
		}
	}
	return "DIRECT_RESPONSE", nil
}

func (t *ToolUseStrategy) directAnswer(ctx context.Context, text string) (string, error) {
	prompt := "Answer the user directly, no tools are needed.\nQuery: " + text
	resp, err := t.adapter.Generate(ctx, llm.Request{Messages: []llm.Message{{Role: "user", Content: prompt}}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (t *ToolUseStrategy) runSingleTool(ctx context.Context, text string, tool registry.RawTool) (string, error) {
	outcome := t.executeWithLLMRetry(ctx, text, tool, "")
	if outcome.Err != nil {
		return fmt.Sprintf("I tried to use %s but it failed: %s", tool.FullName, outcome.Err.Error()), nil
	}
	return t.composeAnswer(ctx, text, []toolexec.Outcome{outcome})
}

// runChain executes a capped sequence of tools in order, halting at the
// first failure. Names beyond maxToolChainLength are dropped, with that
// truncation logged rather than silently applied.
func (t *ToolUseStrategy) runChain(ctx context.Context, text string, tools []registry.RawTool, names []string) (string, error) {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		if n := strings.TrimSpace(n); n != "" {
			trimmed = append(trimmed, n)
		}
	}
	if len(trimmed) > t.maxToolChainLength {
		t.logger.WarnKV("truncating tool chain", "requested", len(trimmed), "limit", t.maxToolChainLength)
		trimmed = trimmed[:t.maxToolChainLength]
	}

	var outcomes []toolexec.Outcome
	var prevResult string
	for _, name := range trimmed {
		tool, ok := lookupToolByName(tools, name)
		if !ok {
			continue
		}
		outcome := t.executeWithLLMRetry(ctx, text, tool, prevResult)
		outcomes = append(outcomes, outcome)
		if outcome.Err != nil {
			break
		}
		prevResult = outcome.Result
	}
	if len(outcomes) == 0 {
		return t.directAnswer(ctx, text)
	}
	return t.composeAnswer(ctx, text, outcomes)
}

// executeWithLLMRetry extracts arguments for a tool via the LLM, executes,
// and on a VALIDATION failure re-prompts with the failed arguments and the
// verbatim error message up to maxExtractRetries times. Any other error
// kind is returned immediately without a retry, so one tool never sees
// more than three executor calls.
func (t *ToolUseStrategy) executeWithLLMRetry(ctx context.Context, text string, tool registry.RawTool, prevResult string) toolexec.Outcome {
	var lastArgs map[string]interface{}
	var lastErr string

	for attempt := 0; attempt <= maxExtractRetries; attempt++ {
		var args map[string]interface{}
		var err error
		if attempt == 0 {
			args, err = t.extractParametersWithLLM(ctx, text, tool, prevResult)
		} else {
			args, err = t.correctParametersWithLLM(ctx, text, tool, lastArgs, lastErr)
		}
		if err != nil {
			return toolexec.Outcome{ToolName: tool.FullName, Err: errs.Wrap(errs.KindEmptyResponse, "failed to extract tool arguments", err)}
		}

		outcome := t.executor.Execute(ctx, tool.FullName, args)
		if outcome.Err == nil {
			t.learning.recordSuccess(tool.FullName)
			return outcome
		}
		t.learning.recordFailure(tool.FullName)

		if outcome.Err.Kind != errs.KindValidation {
			return outcome
		}
		lastArgs = args
		lastErr = outcome.Err.Error()
	}

	return toolexec.Outcome{ToolName: tool.FullName, Err: errs.New(errs.KindValidation, "exhausted retries: "+lastErr)}
}

func (t *ToolUseStrategy) extractParametersWithLLM(ctx context.Context, text string, tool registry.RawTool, prevResult string) (map[string]interface{}, error) {
	prompt := "Extract the JSON arguments for this tool from the query. Reply with only the JSON object.\n" +
		"Tool: " + tool.FullName + ": " + tool.Description + "\n" +
		"Schema: " + schemaSummary(tool) + "\n" +
		domainHints(tool, t.workspacePath, t.defaultTimezone)
	if prevResult != "" {
		prompt += "Result of the previous step:\n" + prevResult + "\n"
	}
	prompt += "Query: " + text

	resp, err := t.adapter.Generate(ctx, llm.Request{Messages: []llm.Message{{Role: "user", Content: prompt}}})
	if err != nil {
		return nil, err
	}
	return extractOutermostObject(resp.Text), nil
}

func (t *ToolUseStrategy) correctParametersWithLLM(ctx context.Context, text string, tool registry.RawTool, prevArgs map[string]interface{}, prevErr string) (map[string]interface{}, error) {
	prompt := "The previous arguments were rejected. Fix them and reply with only the corrected JSON object.\n" +
		"Tool: " + tool.FullName + ": " + tool.Description + "\n" +
		"Schema: " + schemaSummary(tool) + "\n" +
		domainHints(tool, t.workspacePath, t.defaultTimezone) +
		errorHints(prevErr, t.defaultTimezone) +
		fmt.Sprintf("Previous arguments: %v\n", prevArgs) +
		"Error: " + prevErr + "\n" +
		"Query: " + text

	resp, err := t.adapter.Generate(ctx, llm.Request{Messages: []llm.Message{{Role: "user", Content: prompt}}})
	if err != nil {
		return nil, err
	}
	return extractOutermostObject(resp.Text), nil
}

// composeAnswer asks the model for a final user-facing response in
// Portuguese summarizing every successful step's result, the observable
// behavior for both the single-tool and chain paths.
func (t *ToolUseStrategy) composeAnswer(ctx context.Context, text string, outcomes []toolexec.Outcome) (string, error) {
	var b strings.Builder
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		b.WriteString(o.ToolName + ": " + o.Result + "\n")
	}
	prompt := fmt.Sprintf(
		"Pergunta do usuario: %q\nResultados das ferramentas:\n%s\nEscreva a resposta final em portugues.",
		text, b.String(),
	)
	resp, err := t.adapter.Generate(ctx, llm.Request{Messages: []llm.Message{{Role: "user", Content: prompt}}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func schemaSummary(tool registry.RawTool) string {
	props, _ := tool.Schema["properties"].(map[string]interface{})
	var b strings.Builder
	b.WriteString("{")
	first := true
	for name, raw := range props {
		if !first {
			b.WriteString(", ")
		}
		first = false
		typ := "any"
		if m, ok := raw.(map[string]interface{}); ok {
			if s, ok := m["type"].(string); ok {
				typ = s
			}
		}
		b.WriteString(name + ": " + typ)
	}
	b.WriteString("}")
	return b.String()
}

// timezoneTable maps common place names to IANA zones, rendered into the
// timezone hint block so the model resolves city names the same way every
// time instead of inventing offsets.
var timezoneTable = []struct{ place, zone string }{
	{"San Francisco", "America/Los_Angeles"},
	{"New York", "America/New_York"},
	{"London", "Europe/London"},
	{"Paris", "Europe/Paris"},
	{"Tokyo", "Asia/Tokyo"},
	{"Sao Paulo", "America/Sao_Paulo"},
	{"Brasilia", "America/Sao_Paulo"},
}

func timezoneHint(defaultTimezone string) string {
	var b strings.Builder
	b.WriteString("Hint: the timezone argument is required and must be an IANA zone. Common places:\n")
	for _, e := range timezoneTable {
		b.WriteString("  " + e.place + " -> " + e.zone + "\n")
	}
	b.WriteString("If the place is ambiguous or not listed, use " + defaultTimezone + ".\n")
	return b.String()
}

const urlHint = "Hint: URLs must include an https:// prefix; a bare domain name should be expanded to its likely feed URL.\n"

// domainHints returns a tool-specific block of contextual defaults injected
// into the extraction prompt, since a bare schema is not enough for a model
// to resolve an ambiguous location, URL, or file path on its own.
func domainHints(tool registry.RawTool, workspacePath, defaultTimezone string) string {
	lower := strings.ToLower(tool.FullName + " " + tool.Description)
	var b strings.Builder

	switch {
	case strings.Contains(lower, "time") || strings.Contains(lower, "datetime"):
		b.WriteString(timezoneHint(defaultTimezone))
	case strings.Contains(lower, "feed") || strings.Contains(lower, "rss"):
		b.WriteString(urlHint)
	case strings.Contains(lower, "forecast") || strings.Contains(lower, "weather"):
		b.WriteString("Hint: location must be expressed as numeric latitude and longitude, not a place name.\n")
	case strings.Contains(lower, "write") || strings.Contains(lower, "create") || strings.Contains(lower, "file"):
		b.WriteString("Hint: any file path argument must be an absolute path rooted at " + workspacePath + ".\n")
	}
	return b.String()
}

// errorHints injects targeted guidance into a correction prompt when the
// validation error itself names a timezone or URL problem, independent of
// what the tool's name suggested at extraction time.
func errorHints(errMsg, defaultTimezone string) string {
	lower := strings.ToLower(errMsg)
	var b strings.Builder
	if strings.Contains(lower, "timezone") {
		b.WriteString(timezoneHint(defaultTimezone))
	}
	if strings.Contains(lower, "url") {
		b.WriteString(urlHint)
	}
	return b.String()
}
