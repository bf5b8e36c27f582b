package llm

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/tuannvm/llm-tool-engine/internal/registry"
)

// normalizedSchema is the properties/required pair every tool conversion
// starts from, after three normalization rules providers otherwise choke
// on: an array property without "items" gets a permissive default, "required"
// is always present (possibly empty) rather than omitted, and a missing
// description is replaced with a placeholder so no provider ever receives
// an empty description field.
type normalizedSchema struct {
	properties map[string]interface{}
	required   []string
}

func normalizeSchema(raw map[string]interface{}) normalizedSchema {
	ns := normalizedSchema{
		properties: map[string]interface{}{},
		required:   []string{},
	}

	props, _ := raw["properties"].(map[string]interface{})
	for name, rawProp := range props {
		prop, ok := rawProp.(map[string]interface{})
		if !ok {
			prop = map[string]interface{}{}
		}
		prop = normalizeProperty(prop)
		ns.properties[name] = prop
	}

	if req, ok := raw["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				ns.required = append(ns.required, s)
			}
		}
	} else if req, ok := raw["required"].([]string); ok {
		ns.required = append(ns.required, req...)
	}

	return ns
}

func normalizeProperty(prop map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(prop))
	for k, v := range prop {
		out[k] = v
	}
	if out["description"] == nil || out["description"] == "" {
		out["description"] = "No description available"
	}
	if t, _ := out["type"].(string); t == "array" {
		if _, ok := out["items"]; !ok {
			out["items"] = map[string]interface{}{"type": "string"}
		}
	}
	return out
}

// toLangchainTools converts the registry's tool snapshot into LangChain
// function declarations. The gateway translates these into each provider's
// own dialect (tools/function, input_schema, functionDeclarations); the
// schema normalization above is what every dialect needs regardless.
func toLangchainTools(tools []registry.RawTool) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, t := range toolsByFullName(tools) {
		ns := normalizeSchema(t.Schema)
		desc := t.Description
		if desc == "" {
			desc = "No description available"
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.FullName,
				Description: desc,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": ns.properties,
					"required":   ns.required,
				},
			},
		})
	}
	return out
}

// toolsByFullName is a small helper keeping tool iteration order stable
// across a hot-swap reconversion.
func toolsByFullName(tools []registry.RawTool) []registry.RawTool {
	out := make([]registry.RawTool, len(tools))
	copy(out, tools)
	return out
}
