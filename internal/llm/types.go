// Package llm implements the LLM Adapter component. LangChainGo is the
// gateway for every provider — one model client per provider, each owning
// its wire format, auth scheme, and tool-calling dialect — behind a shared
// Adapter that validates requests, normalizes responses into the tagged
// variant, and maps failures onto the error taxonomy.
package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/metrics"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
	"github.com/tuannvm/llm-tool-engine/internal/tracing"
)

// Message is one turn of conversation handed to an adapter. ToolCallID and
// Name are set only on a "tool" role message reporting a tool result back
// to the model.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	ToolCallID string
	Name       string
}

// ToolCall is a single function invocation an adapter's response asked for.
type ToolCall struct {
	ID        string
	Name      string // fully-qualified, matching registry.RawTool.FullName
	Arguments map[string]interface{}
}

// ResponseKind discriminates what kind of answer an adapter call produced,
// implementing the tagged LlmResponse variant: text, tool calls, or an
// error, never a thrown exception.
type ResponseKind string

const (
	ResponseText      ResponseKind = "TEXT"
	ResponseToolCalls ResponseKind = "TOOL_CALLS"
	ResponseEmpty     ResponseKind = "EMPTY"
)

// Response is the tagged result of one adapter call.
type Response struct {
	Kind      ResponseKind
	Text      string
	ToolCalls []ToolCall
}

// Request bundles everything an adapter needs to build one call.
type Request struct {
	Messages    []Message
	Tools       []registry.RawTool // empty when tools should not be offered this round
	Temperature float64
	MaxTokens   int
}

// Capabilities advertises what a provider supports, plus the context size
// ceiling its input validation enforces (in characters, not tokens, since
// the engine never tokenizes).
type Capabilities struct {
	FunctionCalling bool
	SystemMessages  bool
	Streaming       bool
	MaxContextChars int
}

// Adapter is the provider-agnostic wrapper every provider constructor
// returns; the provider-specific client sits behind its adapterImpl.
type Adapter struct {
	Name    string
	impl    adapterImpl
	timeout time.Duration // per-call deadline, surfaced as TIMEOUT when exceeded
}

// adapterImpl is satisfied by each concrete provider client.
type adapterImpl interface {
	generate(ctx context.Context, req Request) (Response, error)
	providerName() string
	capabilities() Capabilities
	healthy() bool
}

// Generate validates the request, dispatches to the underlying provider
// implementation, and records call metrics. An empty prompt or one beyond
// the provider's context ceiling is rejected with an INPUT error before
// any HTTP call is made; a parseable response with neither text nor a tool
// call surfaces as EMPTY_RESPONSE.
func (a *Adapter) Generate(ctx context.Context, req Request) (Response, error) {
	ctx, end := tracing.StartWithAttrs(ctx, "llm.Generate", "provider", a.Name)
	defer end()

	if err := a.validateRequest(req); err != nil {
		return Response{}, err
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.impl.generate(callCtx, req)
	metrics.LLMLatency.WithLabelValues(a.Name).Observe(time.Since(start).Seconds())

	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = errs.Wrap(errs.KindTimeout, a.Name+" call exceeded its deadline", err)
	}
	if err == nil && resp.Kind == ResponseEmpty {
		err = errs.New(errs.KindEmptyResponse, a.Name+" returned no text and no tool call")
	}

	errored := "false"
	if err != nil {
		errored = "true"
	}
	metrics.LLMCalls.With(prometheus.Labels{
		metrics.LabelProvider: a.Name,
		metrics.LabelError:    errored,
	}).Inc()

	return resp, err
}

// validateRequest enforces the two INPUT rules: a prompt must be non-empty
// and must fit within the provider's context ceiling. Neither is retried.
func (a *Adapter) validateRequest(req Request) *errs.Error {
	total := 0
	for _, m := range req.Messages {
		total += len(m.Content)
	}
	if total == 0 {
		return errs.New(errs.KindInput, "prompt is empty")
	}
	if max := a.impl.capabilities().MaxContextChars; max > 0 && total > max {
		return errs.New(errs.KindInput, "prompt exceeds the provider context limit")
	}
	return nil
}

// ProviderName returns the provider name, e.g. "openai".
func (a *Adapter) ProviderName() string {
	return a.impl.providerName()
}

// Capabilities reports what this provider supports.
func (a *Adapter) Capabilities() Capabilities {
	return a.impl.capabilities()
}

// IsHealthy is a cheap liveness hint: true unless the most recent call hit
// a network-level failure.
func (a *Adapter) IsHealthy() bool {
	return a.impl.healthy()
}
