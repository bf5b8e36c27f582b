package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/httpclient"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// langchainAdapter adapts one LangChainGo model client to the engine's
// adapter contract. LangChainGo is the gateway for every provider — it
// owns each provider's wire dialect and auth scheme, while this type owns
// collapsing its responses into the tagged Response variant and mapping
// its errors onto the shared taxonomy.
type langchainAdapter struct {
	name   string
	model  llms.Model
	caps   Capabilities
	logger *logging.Logger

	// unhealthy is set after a network-level failure and cleared by the
	// next call that reaches the provider at all. Single-writer under the
	// engine's cooperative turn loop.
	unhealthy bool
}

func newLangchainAdapter(name string, model llms.Model, caps Capabilities, logger *logging.Logger) *langchainAdapter {
	return &langchainAdapter{
		name:   name,
		model:  model,
		caps:   caps,
		logger: logger.WithName(name + "-adapter"),
	}
}

func (l *langchainAdapter) providerName() string { return l.name }

func (l *langchainAdapter) capabilities() Capabilities { return l.caps }

func (l *langchainAdapter) healthy() bool { return !l.unhealthy }

func (l *langchainAdapter) generate(ctx context.Context, req Request) (Response, error) {
	var opts []llms.CallOption
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(toLangchainTools(req.Tools)))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := l.model.GenerateContent(ctx, toMessageContent(req.Messages), opts...)
	if err != nil {
		return Response{}, l.classify(err)
	}
	l.unhealthy = false
	return normalizeContentResponse(resp), nil
}

// toMessageContent maps the engine's role strings onto LangChainGo message
// parts. A tool-result message becomes a ToolCallResponse part so providers
// that thread tool results natively see them as such rather than as prose.
func toMessageContent(msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "tool" {
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.Name,
					Content:    m.Content,
				}},
			})
			continue
		}
		out = append(out, llms.TextParts(roleFor(m.Role), m.Content))
	}
	return out
}

func roleFor(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// normalizeContentResponse collapses a provider response to the tagged
// variant: the first choice wins, a tool call wins over accompanying text,
// a JSON-string argument blob is parsed to a map, and no text with no tool
// call is EMPTY.
func normalizeContentResponse(resp *llms.ContentResponse) Response {
	if resp == nil || len(resp.Choices) == 0 {
		return Response{Kind: ResponseEmpty}
	}
	choice := resp.Choices[0]

	if len(choice.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			var args map[string]interface{}
			_ = json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args)
			calls = append(calls, ToolCall{ID: tc.ID, Name: tc.FunctionCall.Name, Arguments: args})
		}
		if len(calls) > 0 {
			return Response{Kind: ResponseToolCalls, ToolCalls: calls}
		}
	}
	if choice.FuncCall != nil {
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(choice.FuncCall.Arguments), &args)
		return Response{Kind: ResponseToolCalls, ToolCalls: []ToolCall{{Name: choice.FuncCall.Name, Arguments: args}}}
	}
	if choice.Content == "" {
		return Response{Kind: ResponseEmpty}
	}
	return Response{Kind: ResponseText, Text: choice.Content}
}

// classify maps a LangChainGo error onto the taxonomy: an HTTP rejection
// (the provider clients fold the status and body excerpt into the message)
// is PROVIDER_ERROR, a response with nothing in it is EMPTY_RESPONSE, and
// everything else is a transport failure, which also flips the health
// hint.
func (l *langchainAdapter) classify(err error) *errs.Error {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "status code"), strings.Contains(lower, "api error"):
		l.unhealthy = false
		return errs.Wrap(errs.KindProviderError, l.name+" rejected the request", err)
	case strings.Contains(lower, "no response"), strings.Contains(lower, "empty response"):
		l.unhealthy = false
		return errs.Wrap(errs.KindEmptyResponse, l.name+" returned no content", err)
	default:
		l.unhealthy = true
		return errs.Wrap(errs.KindTransport, "request to "+l.name+" failed", err)
	}
}

// newProviderHTTPClient builds the retrying HTTP client injected beneath a
// LangChain provider client, so every provider shares the same timeout,
// backoff, and request/response logging behavior.
func newProviderHTTPClient(name string, cfg config.ProviderConfig, logger *logging.Logger) *httpclient.Client {
	opts := httpclient.DefaultOptions()
	if cfg.TimeoutSecs > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	l := logger.WithName(name + "-http")
	opts.RequestLogger = func(method, url string, _ []byte) {
		l.DebugKV("request", "method", method, "url", url)
	}
	opts.ResponseLogger = func(status int, err error) {
		if err != nil {
			l.ErrorKV("response error", "error", err)
			return
		}
		l.DebugKV("response", "status", status)
	}
	return httpclient.NewClient(opts)
}

func timeoutFor(cfg config.ProviderConfig) time.Duration {
	if cfg.TimeoutSecs > 0 {
		return time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return 30 * time.Second
}
