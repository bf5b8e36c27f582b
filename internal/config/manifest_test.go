package config

import "testing"

func TestExtractDependencyFlagsSeparatesMarkersFromEnv(t *testing.T) {
	env := map[string]string{
		"REQUIRES_NODEJS": "true",
		"REQUIRES_ENV":    "API_KEY, OTHER_KEY",
		"REAL_VAR":        "value",
	}
	flags, clean := ExtractDependencyFlags(env)

	if len(clean) != 1 || clean["REAL_VAR"] != "value" {
		t.Errorf("expected only REAL_VAR to survive into clean env, got %v", clean)
	}

	want := map[string]bool{
		string(NeedsNodeJS):          true,
		NeedsEnvPrefix + "API_KEY":   true,
		NeedsEnvPrefix + "OTHER_KEY": true,
	}
	if len(flags) != len(want) {
		t.Fatalf("expected %d flags, got %v", len(want), flags)
	}
	for _, f := range flags {
		if !want[f] {
			t.Errorf("unexpected flag %q", f)
		}
	}
}

func TestExtractDependencyFlagsFalsyMarkerIsDropped(t *testing.T) {
	flags, _ := ExtractDependencyFlags(map[string]string{"REQUIRE_UVX": "false"})
	if len(flags) != 0 {
		t.Errorf("expected no flags for a falsy marker, got %v", flags)
	}
}

func TestResolveServerDescriptorsSkipsDisabled(t *testing.T) {
	servers := map[string]MCPServerConfig{
		"on":  {Command: "npx", Priority: 1},
		"off": {Command: "npx", Disabled: true},
	}
	descriptors := ResolveServerDescriptors(servers)
	if len(descriptors) != 1 || descriptors[0].Name != "on" {
		t.Errorf("expected only the enabled server, got %v", descriptors)
	}
}

func TestResolveServerDescriptorsOrdersByPriorityThenName(t *testing.T) {
	servers := map[string]MCPServerConfig{
		"b": {Command: "npx", Priority: 1},
		"a": {Command: "npx", Priority: 2},
		"c": {Command: "npx", Priority: 2},
	}
	descriptors := ResolveServerDescriptors(servers)
	got := []string{descriptors[0].Name, descriptors[1].Name, descriptors[2].Name}
	want := []string{"a", "c", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected order %v, got %v", want, got)
			break
		}
	}
}

func TestExpandWorkspacePathHomePrefix(t *testing.T) {
	got := ExpandWorkspacePath("~/notes")
	if got == "~/notes" {
		t.Errorf("expected ~/ to be expanded, got %q", got)
	}
}

func TestExpandWorkspacePathIdempotentForAbsolutePath(t *testing.T) {
	once := ExpandWorkspacePath("/already/absolute/path")
	twice := ExpandWorkspacePath(once)
	if once != twice {
		t.Errorf("expected expansion of an absolute path to be idempotent, got %q then %q", once, twice)
	}
}

func TestApplyDefaultsFillsProviderTable(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if _, ok := cfg.LLM.Providers[ProviderOpenAI]; !ok {
		t.Errorf("expected openai provider defaults to be populated")
	}
	if cfg.MaxToolChain == 0 || cfg.MaxReActSteps == 0 {
		t.Errorf("expected non-zero tool chain and ReAct defaults")
	}
}
