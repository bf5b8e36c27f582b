package inference

import (
	"strings"
	"testing"

	"github.com/tuannvm/llm-tool-engine/internal/registry"
)

func timeTool() registry.RawTool {
	return registry.RawTool{
		ServerName:  "time",
		LocalName:   "get_current_time",
		FullName:    "time_get_current_time",
		Description: "Get the current time in a timezone",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timezone": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"timezone"},
		},
	}
}

func rssTool() registry.RawTool {
	return registry.RawTool{
		ServerName:  "rss",
		LocalName:   "get_feed",
		FullName:    "rss_get_feed",
		Description: "Fetch an RSS feed",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{"type": "string"},
			},
		},
	}
}

func TestDomainHintsTimezone(t *testing.T) {
	hint := domainHints(timeTool(), "/w/documents", "America/Sao_Paulo")
	if !strings.Contains(hint, "America/Sao_Paulo") {
		t.Errorf("expected default timezone in hint, got %q", hint)
	}
}

func TestDomainHintsFeedURL(t *testing.T) {
	hint := domainHints(rssTool(), "/w/documents", "UTC")
	if !strings.Contains(hint, "https://") {
		t.Errorf("expected https hint for feed tool, got %q", hint)
	}
}

func TestDomainHintsForecast(t *testing.T) {
	hint := domainHints(weatherTool(), "/w/documents", "UTC")
	if !strings.Contains(hint, "latitude") {
		t.Errorf("expected lat/long hint for forecast tool, got %q", hint)
	}
}

func TestDomainHintsWorkspaceFile(t *testing.T) {
	hint := domainHints(fileTool(), "/w/documents", "UTC")
	if !strings.Contains(hint, "/w/documents") {
		t.Errorf("expected workspace path embedded in hint, got %q", hint)
	}
}

func TestDomainHintsNoMatchIsEmpty(t *testing.T) {
	other := registry.RawTool{FullName: "calc_add", Description: "Add two numbers"}
	if hint := domainHints(other, "/w/documents", "UTC"); hint != "" {
		t.Errorf("expected no hint for an unrelated tool, got %q", hint)
	}
}

func TestSchemaSummaryRendersPropertyTypes(t *testing.T) {
	summary := schemaSummary(weatherTool())
	if !strings.Contains(summary, "latitude: number") || !strings.Contains(summary, "longitude: number") {
		t.Errorf("expected both properties rendered with their types, got %q", summary)
	}
}

func TestSchemaSummaryEmptyProperties(t *testing.T) {
	summary := schemaSummary(registry.RawTool{Schema: map[string]interface{}{"type": "object"}})
	if summary != "{}" {
		t.Errorf("expected empty braces for a schema with no properties, got %q", summary)
	}
}
