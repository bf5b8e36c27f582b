package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSubstituteEnvironmentVariables(t *testing.T) {
	t.Setenv("CFG_TEST_KEY", "secret-from-env")

	cfg := &Config{}
	cfg.ApplyDefaults()
	pc := cfg.LLM.Providers[ProviderOpenAI]
	pc.APIKey = "${CFG_TEST_KEY}"
	cfg.LLM.Providers[ProviderOpenAI] = pc
	cfg.MCPServers = map[string]MCPServerConfig{
		"fs": {Env: map[string]string{"TOKEN": "${CFG_TEST_KEY}"}},
	}

	cfg.SubstituteEnvironmentVariables()

	if cfg.LLM.Providers[ProviderOpenAI].APIKey != "secret-from-env" {
		t.Errorf("expected ${VAR} substitution in API key, got %q", cfg.LLM.Providers[ProviderOpenAI].APIKey)
	}
	if cfg.MCPServers["fs"].Env["TOKEN"] != "secret-from-env" {
		t.Errorf("expected ${VAR} substitution in server env, got %q", cfg.MCPServers["fs"].Env["TOKEN"])
	}
}

func TestSubstituteLeavesUnsetPlaceholder(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	pc := cfg.LLM.Providers[ProviderGroq]
	pc.APIKey = "${CFG_TEST_DEFINITELY_UNSET}"
	cfg.LLM.Providers[ProviderGroq] = pc

	cfg.SubstituteEnvironmentVariables()
	if cfg.LLM.Providers[ProviderGroq].APIKey != "${CFG_TEST_DEFINITELY_UNSET}" {
		t.Errorf("expected an unset placeholder to pass through unchanged")
	}
}

func TestApplyEnvironmentVariablesSetsAPIKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "claude-key")

	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.ApplyEnvironmentVariables()

	if cfg.LLM.Providers[ProviderClaude].APIKey != "claude-key" {
		t.Errorf("expected ANTHROPIC_API_KEY picked up for claude, got %q", cfg.LLM.Providers[ProviderClaude].APIKey)
	}
}

func TestSetSessionOverride(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	cfg.SetSessionOverride(ProviderGroq, "typed-in-key")
	if cfg.LLM.Providers[ProviderGroq].APIKey != "typed-in-key" {
		t.Errorf("expected the session key applied, got %q", cfg.LLM.Providers[ProviderGroq].APIKey)
	}

	cfg.SetSessionOverride(ProviderGroq, "")
	if cfg.LLM.Providers[ProviderGroq].APIKey != "typed-in-key" {
		t.Errorf("expected an empty override to be ignored")
	}
}

func TestValidateRejectsMissingKey(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.LLM.Provider = ProviderGemini

	if err := cfg.ValidateAfterDefaults(); err == nil {
		t.Errorf("expected validation to fail without an API key")
	}
}

func writeManifest(t *testing.T, manifest string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{"LLM_PROVIDER", "LLM_STRATEGY", "OPENAI_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(v, "")
	}
}

func TestLoadConfigFileToleratesUnknownKeys(t *testing.T) {
	clearLLMEnv(t)
	path := writeManifest(t, `{
		"$schema": "https://example.com/schema.json",
		"someFutureKey": 42,
		"llm": {
			"provider": "openai",
			"providers": {"openai": {"model": "gpt-test", "apiKey": "file-key"}}
		}
	}`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("expected unknown keys to be tolerated, got %v", err)
	}
	if cfg.LLM.Providers[ProviderOpenAI].APIKey != "file-key" {
		t.Errorf("expected the file's API key to be loaded, got %q", cfg.LLM.Providers[ProviderOpenAI].APIKey)
	}
	if cfg.LLM.Providers[ProviderOpenAI].Model != "gpt-test" {
		t.Errorf("expected the file's model, got %q", cfg.LLM.Providers[ProviderOpenAI].Model)
	}
}

func TestLoadConfigEnvKeySurvivesPartialProviderEntry(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	path := writeManifest(t, `{
		"llm": {
			"provider": "openai",
			"providers": {"openai": {"model": "gpt-4o"}}
		}
	}`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("expected the env key to satisfy validation, got %v", err)
	}
	if cfg.LLM.Providers[ProviderOpenAI].APIKey != "sk-from-env" {
		t.Errorf("expected a manifest without apiKey to keep the env key, got %q", cfg.LLM.Providers[ProviderOpenAI].APIKey)
	}
	if cfg.LLM.Providers[ProviderOpenAI].Model != "gpt-4o" {
		t.Errorf("expected the manifest model applied, got %q", cfg.LLM.Providers[ProviderOpenAI].Model)
	}
}

func TestLoadConfigEnvKeyWinsOverFileKey(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	path := writeManifest(t, `{
		"llm": {
			"provider": "openai",
			"providers": {"openai": {"model": "gpt-4o", "apiKey": "sk-from-file"}}
		}
	}`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Providers[ProviderOpenAI].APIKey != "sk-from-env" {
		t.Errorf("expected the environment variable to take precedence over the file key, got %q", cfg.LLM.Providers[ProviderOpenAI].APIKey)
	}
}

func TestMergeFilePreservesUntouchedProviderFields(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	pc := cfg.LLM.Providers[ProviderClaude]
	pc.APIKey = "already-set"
	cfg.LLM.Providers[ProviderClaude] = pc

	cfg.mergeFile(&Config{LLM: LLMConfig{Providers: map[string]LLMProviderConfig{
		ProviderClaude: {Model: "claude-new"},
	}}})

	got := cfg.LLM.Providers[ProviderClaude]
	if got.Model != "claude-new" {
		t.Errorf("expected the model overlaid, got %q", got.Model)
	}
	if got.APIKey != "already-set" {
		t.Errorf("expected a partial entry to leave the existing key alone, got %q", got.APIKey)
	}
	if got.BaseURL == "" {
		t.Errorf("expected the default base URL preserved")
	}
}

func TestEnsureManifestFileCreatesStarter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	if err := EnsureManifestFile(path); err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("starter manifest not written: %v", err)
	}
	if !strings.Contains(string(data), "mcpServers") {
		t.Errorf("expected a server section in the starter manifest, got %s", data)
	}

	// A second call must not overwrite an existing file.
	if err := os.WriteFile(path, []byte(`{"version":"edited"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureManifestFile(path); err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "edited") {
		t.Errorf("expected the edited manifest to survive, got %s", data)
	}
}

func TestExpandWorkspacePathUserDocuments(t *testing.T) {
	got := ExpandWorkspacePath("${USER_DOCUMENTS}/notes")
	if strings.Contains(got, "${USER_DOCUMENTS}") {
		t.Errorf("expected the placeholder resolved, got %q", got)
	}
	if !strings.Contains(got, "Documents") {
		t.Errorf("expected a Documents-rooted path, got %q", got)
	}
}

func TestExpandWorkspacePathRelative(t *testing.T) {
	got := ExpandWorkspacePath("./documents")
	if !filepath.IsAbs(got) {
		t.Errorf("expected a relative path anchored to an absolute one, got %q", got)
	}
	if !strings.HasSuffix(got, "documents") {
		t.Errorf("expected the remainder preserved, got %q", got)
	}
}

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.MaxToolChain != 3 {
		t.Errorf("expected tool chain default 3, got %d", cfg.MaxToolChain)
	}
	if cfg.MaxReActSteps != 10 {
		t.Errorf("expected ReAct default 10, got %d", cfg.MaxReActSteps)
	}
	if cfg.DefaultTimezone == "" {
		t.Errorf("expected a default timezone")
	}
}
