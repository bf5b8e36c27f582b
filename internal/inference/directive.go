package inference

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tuannvm/llm-tool-engine/internal/llm"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
)

var codeBlockRegex = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// directiveCall is the parsed result of a `TOOL:<name>:{json}` or
// `FUNCTION_CALL:<name>:{json}` style directive line.
type directiveCall struct {
	Name string
	Args map[string]interface{}
}

// parseNamedDirective looks for `prefix<name>:{json-args}` anywhere in the
// text, trying direct parsing first, then a fenced code block, then the
// lenient "outermost braces" extraction — the same three-tier strategy
// used to detect tool calls in free-form model text.
func parseNamedDirective(text, prefix string) (*directiveCall, bool) {
	idx := strings.Index(text, prefix)
	if idx < 0 {
		return nil, false
	}
	rest := text[idx+len(prefix):]

	colon := strings.Index(rest, ":")
	if colon < 0 {
		return nil, false
	}
	name := strings.TrimSpace(rest[:colon])
	jsonPart := rest[colon+1:]

	if args, ok := tryDirectJSON(jsonPart); ok {
		return &directiveCall{Name: name, Args: args}, true
	}
	if args, ok := tryCodeBlockJSON(jsonPart); ok {
		return &directiveCall{Name: name, Args: args}, true
	}
	if args, ok := tryOutermostBraces(jsonPart); ok {
		return &directiveCall{Name: name, Args: args}, true
	}
	return nil, false
}

func tryDirectJSON(s string) (map[string]interface{}, bool) {
	s = strings.TrimSpace(s)
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(s), &args); err == nil {
		return args, true
	}
	return nil, false
}

func tryCodeBlockJSON(s string) (map[string]interface{}, bool) {
	m := codeBlockRegex.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(m[1]), &args); err == nil {
		return args, true
	}
	return nil, false
}

// tryOutermostBraces finds the first "{" and its matching "}" by brace
// depth, the lenient fallback for a model that wrapped its JSON in prose.
func tryOutermostBraces(s string) (map[string]interface{}, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return nil, false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(s[start:i+1]), &args); err == nil {
					return args, true
				}
				return nil, false
			}
		}
	}
	return nil, false
}

// parseActionDirective parses a ReAct Action response, which may arrive in
// either of two forms: a `FUNCTION_CALL:<name>:{json}` directive line, or a
// JSON array `[{"name": ..., "parameters": {...}}, ...]` of which the first
// element wins.
func parseActionDirective(text string) (*directiveCall, bool) {
	if call, ok := parseNamedDirective(text, "FUNCTION_CALL:"); ok {
		return call, true
	}
	return parseCallArray(text)
}

func parseCallArray(text string) (*directiveCall, bool) {
	stripped := text
	if m := codeBlockRegex.FindStringSubmatch(text); m != nil {
		stripped = m[1]
	}
	start := strings.Index(stripped, "[")
	if start < 0 {
		return nil, false
	}
	depth := 0
	for i := start; i < len(stripped); i++ {
		switch stripped[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				var arr []struct {
					Name       string                 `json:"name"`
					Parameters map[string]interface{} `json:"parameters"`
				}
				if err := json.Unmarshal([]byte(stripped[start:i+1]), &arr); err != nil || len(arr) == 0 || arr[0].Name == "" {
					return nil, false
				}
				args := arr[0].Parameters
				if args == nil {
					args = map[string]interface{}{}
				}
				return &directiveCall{Name: arr[0].Name, Args: args}, true
			}
		}
	}
	return nil, false
}

// extractOutermostObject parses the *entire* outermost {...} block in s,
// used by ToolUse's argument-extraction parser where there is no leading
// "name:" prefix to skip past first. On failure it returns an empty map
// rather than an error, so the caller's validation step fails and the
// retry/correction loop takes over.
func extractOutermostObject(s string) map[string]interface{} {
	stripped := stripCodeFences(s)
	if args, ok := tryOutermostBraces(stripped); ok {
		return args
	}
	return map[string]interface{}{}
}

func stripCodeFences(s string) string {
	if m := codeBlockRegex.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// renderToolTable formats the available tools as a human-readable table
// for a prompt: name, description, and a required-flagged parameter
// summary.
func renderToolTable(tools []registry.RawTool) string {
	var b strings.Builder
	for _, t := range tools {
		b.WriteString(fmt.Sprintf("- %s: %s\n", t.FullName, t.Description))
		props, _ := t.Schema["properties"].(map[string]interface{})
		required := map[string]bool{}
		if req, ok := t.Schema["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required[s] = true
				}
			}
		}
		for name := range props {
			mark := ""
			if required[name] {
				mark = " (required)"
			}
			b.WriteString(fmt.Sprintf("    %s%s\n", name, mark))
		}
	}
	return b.String()
}

// renderRecentTurns formats recent conversation history as alternating
// "User: …" / "Assistant: …" lines, the shape every strategy's prompt
// builder prefixes onto its instruction block.
func renderRecentTurns(msgs []llm.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "user":
			b.WriteString("User: " + m.Content + "\n")
		case "assistant":
			b.WriteString("Assistant: " + m.Content + "\n")
		}
	}
	return b.String()
}
