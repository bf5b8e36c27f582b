package llm

import "testing"

func TestNormalizeSchemaDefaultsMissingDescription(t *testing.T) {
	raw := map[string]interface{}{
		"properties": map[string]interface{}{
			"city": map[string]interface{}{"type": "string"},
		},
	}
	ns := normalizeSchema(raw)

	prop, ok := ns.properties["city"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected city property to survive normalization")
	}
	if prop["description"] != "No description available" {
		t.Errorf("expected default description, got %v", prop["description"])
	}
}

func TestNormalizeSchemaArrayGetsDefaultItems(t *testing.T) {
	raw := map[string]interface{}{
		"properties": map[string]interface{}{
			"tags": map[string]interface{}{"type": "array"},
		},
	}
	ns := normalizeSchema(raw)

	prop := ns.properties["tags"].(map[string]interface{})
	items, ok := prop["items"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected items to be defaulted, got %v", prop["items"])
	}
	if items["type"] != "string" {
		t.Errorf("expected default item type string, got %v", items["type"])
	}
}

func TestNormalizeSchemaRequiredAlwaysPresent(t *testing.T) {
	ns := normalizeSchema(map[string]interface{}{})
	if ns.required == nil {
		t.Fatalf("expected required to be an empty slice, not nil")
	}
	if len(ns.required) != 0 {
		t.Errorf("expected no required fields, got %v", ns.required)
	}
}

func TestNormalizeSchemaPreservesRequiredList(t *testing.T) {
	raw := map[string]interface{}{
		"required": []interface{}{"city", "date"},
	}
	ns := normalizeSchema(raw)
	if len(ns.required) != 2 || ns.required[0] != "city" || ns.required[1] != "date" {
		t.Errorf("expected [city date], got %v", ns.required)
	}
}
