// Package config handles loading and managing application configuration:
// the LLM provider table, the MCP server manifest, and the workspace path
// the file-writing tool is confined to.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// Provider name constants.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Config represents the full application configuration.
type Config struct {
	Version       string                     `json:"version"`
	LLM           LLMConfig                  `json:"llm"`
	MCPServers    map[string]MCPServerConfig `json:"mcpServers"`
	Workspace     WorkspaceConfig            `json:"workspace,omitempty"`
	Monitoring    MonitoringConfig           `json:"monitoring,omitempty"`
	MaxToolChain  int                        `json:"maxToolChain,omitempty"`
	MaxReActSteps int                        `json:"maxReActSteps,omitempty"`
	// DefaultTimezone is the IANA zone assumed when a time query names no
	// resolvable place.
	DefaultTimezone string `json:"defaultTimezone,omitempty"`
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider  string                       `json:"provider"`
	Strategy  string                       `json:"strategy,omitempty"` // "simple", "react", "tooluse"
	Providers map[string]LLMProviderConfig `json:"providers"`
}

// ProviderConfig is the per-provider settings type referenced throughout
// the llm package; kept as an alias so adapter constructors can take it
// directly without importing the LLMConfig wrapper.
type ProviderConfig = LLMProviderConfig

// LLMProviderConfig contains provider-specific settings.
type LLMProviderConfig struct {
	Model       string  `json:"model"`
	APIKey      string  `json:"apiKey,omitempty"`
	BaseURL     string  `json:"baseUrl,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	TimeoutSecs int     `json:"timeoutSeconds,omitempty"`
}

// MCPServerConfig describes one MCP tool server entry in the manifest. Env
// may carry both real subprocess environment variables and the
// REQUIRES_NODEJS / REQUIRE_UVX / REQUIRES_ONLINE / REQUIRES_ENV=<VAR>
// dependency-screening markers, which are stripped out before the rest of
// the map is handed to the subprocess (see ExtractDependencyFlags).
type MCPServerConfig struct {
	Command                  string            `json:"command,omitempty"`
	Args                     []string          `json:"args,omitempty"`
	Env                      map[string]string `json:"env,omitempty"`
	Disabled                 bool              `json:"disabled,omitempty"`
	InitializeTimeoutSeconds *int              `json:"initializeTimeoutSeconds,omitempty"`
	Priority                 int               `json:"priority,omitempty"`
}

// GetInitializeTimeout returns the configured timeout with a default fallback.
func (mcp *MCPServerConfig) GetInitializeTimeout() int {
	if mcp.InitializeTimeoutSeconds != nil {
		return *mcp.InitializeTimeoutSeconds
	}
	return 30
}

// WorkspaceConfig holds the root directory for file-writing tool calls. It
// is expanded with ExpandWorkspacePath and embedded in the file-tool
// extraction prompt as the absolute root every path argument must use.
type WorkspaceConfig struct {
	BasePath string `json:"basePath,omitempty"`
}

// MonitoringConfig contains monitoring and observability settings.
type MonitoringConfig struct {
	Enabled      bool   `json:"enabled,omitempty"`
	MetricsPort  int    `json:"metricsPort,omitempty"`
	LoggingLevel string `json:"loggingLevel,omitempty"`
	TracingOn    bool   `json:"tracingOn,omitempty"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Strategy == "" {
		c.LLM.Strategy = "tooluse"
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]LLMProviderConfig)
	}

	// Base URLs are endpoint roots; each provider client appends its own
	// request paths. Gemini's client manages its endpoint itself.
	defaults := map[string]LLMProviderConfig{
		ProviderOpenAI: {Model: "gpt-4o", Temperature: 0.7, BaseURL: "https://api.openai.com/v1"},
		ProviderGroq:   {Model: "llama-3.3-70b-versatile", Temperature: 0.7, BaseURL: "https://api.groq.com/openai/v1"},
		ProviderGemini: {Model: "gemini-1.5-pro", Temperature: 0.7},
		ProviderClaude: {Model: "claude-3-5-sonnet-20241022", Temperature: 0.7, BaseURL: "https://api.anthropic.com"},
	}
	for name, def := range defaults {
		if _, exists := c.LLM.Providers[name]; !exists {
			c.LLM.Providers[name] = def
		}
	}

	if c.MCPServers == nil {
		c.MCPServers = make(map[string]MCPServerConfig)
	}
	if c.Workspace.BasePath == "" {
		c.Workspace.BasePath = "./workspace"
	}
	c.Workspace.BasePath = ExpandWorkspacePath(c.Workspace.BasePath)

	if c.Monitoring.MetricsPort == 0 {
		c.Monitoring.MetricsPort = 9090
	}
	if c.Monitoring.LoggingLevel == "" {
		c.Monitoring.LoggingLevel = "info"
	}
	if c.MaxToolChain == 0 {
		c.MaxToolChain = 3
	}
	if c.MaxReActSteps == 0 {
		c.MaxReActSteps = 10
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = "America/Sao_Paulo"
	}
}

// envVarForProvider maps a provider name to the environment variable that
// carries its API key.
var envVarForProvider = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGroq:   "GROQ_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
	ProviderClaude: "ANTHROPIC_API_KEY",
}

// ApplyEnvironmentVariables applies environment variable overrides. These
// run after the config file has been merged, so an environment variable
// always wins over a property-file key; SetSessionOverride sits at this
// same precedence tier.
func (c *Config) ApplyEnvironmentVariables() {
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if strategy := os.Getenv("LLM_STRATEGY"); strategy != "" {
		c.LLM.Strategy = strategy
	}

	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]LLMProviderConfig)
	}
	for name, envVar := range envVarForProvider {
		pc := c.LLM.Providers[name]
		if apiKey := os.Getenv(envVar); apiKey != "" {
			pc.APIKey = apiKey
		}
		c.LLM.Providers[name] = pc
	}
}

// SetSessionOverride records an API key obtained interactively for this
// session. It sits at the same precedence tier as an environment variable:
// applied after the config file has been merged, it overrides whatever the
// file or the defaults supplied.
func (c *Config) SetSessionOverride(provider, apiKey string) {
	if apiKey == "" {
		return
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]LLMProviderConfig)
	}
	pc := c.LLM.Providers[provider]
	pc.APIKey = apiKey
	c.LLM.Providers[provider] = pc
}

// ValidateAfterDefaults validates configuration after defaults and
// environment substitution have both been applied.
func (c *Config) ValidateAfterDefaults() error {
	if _, exists := c.LLM.Providers[c.LLM.Provider]; !exists {
		return fmt.Errorf("LLM provider %q not configured", c.LLM.Provider)
	}
	providerConfig := c.LLM.Providers[c.LLM.Provider]
	if providerConfig.APIKey == "" || strings.HasPrefix(providerConfig.APIKey, "${") {
		return fmt.Errorf("%s environment variable not set", envVarForProvider[c.LLM.Provider])
	}
	return nil
}

// SubstituteEnvironmentVariables resolves ${VAR_NAME} placeholders left in
// provider API keys, base URLs, and MCP server env entries.
func (c *Config) SubstituteEnvironmentVariables() {
	for name, provider := range c.LLM.Providers {
		provider.APIKey = substituteEnvVars(provider.APIKey)
		provider.BaseURL = substituteEnvVars(provider.BaseURL)
		c.LLM.Providers[name] = provider
	}
	for name, server := range c.MCPServers {
		for k, v := range server.Env {
			server.Env[k] = substituteEnvVars(v)
		}
		c.MCPServers[name] = server
	}
}

func substituteEnvVars(input string) string {
	if strings.HasPrefix(input, "${") && strings.HasSuffix(input, "}") {
		varName := input[2 : len(input)-1]
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
	}
	return input
}

// LoadConfig loads configuration from a JSON manifest file plus the process
// environment, in the order: defaults -> config file -> environment
// variables -> ${VAR} substitution -> validation. Environment variables
// take precedence over property-file keys.
func LoadConfig(configFile string, logger *logging.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.DebugKV("no .env file loaded", "error", err)
		}
	} else if logger != nil {
		logger.InfoKV("loaded environment variables from .env file", "success", true)
	}

	cfg := &Config{}
	cfg.ApplyDefaults()

	if configFile != "" {
		if err := loadConfigFile(cfg, configFile, logger); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvironmentVariables()
	cfg.SubstituteEnvironmentVariables()

	if err := cfg.ValidateAfterDefaults(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(cfg *Config, configFile string, logger *logging.Logger) error {
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configFile)
	}

	configData, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoded into a scratch Config and merged field by field rather than
	// unmarshaled into the live one: a map-of-struct entry would otherwise
	// be replaced wholesale, so a manifest that sets only a provider's
	// model would silently erase a key supplied by the environment or the
	// defaults. Unknown keys are tolerated so hand-edited manifests
	// carrying extra fields (a $schema pointer, editor metadata) keep
	// loading.
	var fileCfg Config
	if err := json.Unmarshal(configData, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.mergeFile(&fileCfg)

	if logger != nil {
		logger.InfoKV("loaded configuration from file", "file", configFile)
	}
	return nil
}

// mergeFile overlays the non-zero values of a decoded manifest onto the
// receiver. Provider entries merge per field so partial entries compose
// with defaults and environment-supplied secrets instead of clobbering
// them.
func (c *Config) mergeFile(f *Config) {
	if f.Version != "" {
		c.Version = f.Version
	}
	if f.LLM.Provider != "" {
		c.LLM.Provider = f.LLM.Provider
	}
	if f.LLM.Strategy != "" {
		c.LLM.Strategy = f.LLM.Strategy
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]LLMProviderConfig)
	}
	for name, fp := range f.LLM.Providers {
		pc := c.LLM.Providers[name]
		if fp.Model != "" {
			pc.Model = fp.Model
		}
		if fp.APIKey != "" {
			pc.APIKey = fp.APIKey
		}
		if fp.BaseURL != "" {
			pc.BaseURL = fp.BaseURL
		}
		if fp.Temperature != 0 {
			pc.Temperature = fp.Temperature
		}
		if fp.MaxTokens != 0 {
			pc.MaxTokens = fp.MaxTokens
		}
		if fp.TimeoutSecs != 0 {
			pc.TimeoutSecs = fp.TimeoutSecs
		}
		c.LLM.Providers[name] = pc
	}
	if c.MCPServers == nil {
		c.MCPServers = make(map[string]MCPServerConfig)
	}
	for name, server := range f.MCPServers {
		c.MCPServers[name] = server
	}
	if f.Workspace.BasePath != "" {
		c.Workspace.BasePath = ExpandWorkspacePath(f.Workspace.BasePath)
	}
	if f.Monitoring.Enabled {
		c.Monitoring.Enabled = true
	}
	if f.Monitoring.MetricsPort != 0 {
		c.Monitoring.MetricsPort = f.Monitoring.MetricsPort
	}
	if f.Monitoring.LoggingLevel != "" {
		c.Monitoring.LoggingLevel = f.Monitoring.LoggingLevel
	}
	if f.Monitoring.TracingOn {
		c.Monitoring.TracingOn = true
	}
	if f.MaxToolChain != 0 {
		c.MaxToolChain = f.MaxToolChain
	}
	if f.MaxReActSteps != 0 {
		c.MaxReActSteps = f.MaxReActSteps
	}
	if f.DefaultTimezone != "" {
		c.DefaultTimezone = f.DefaultTimezone
	}
}

// ParseLoggingLevel is a thin convenience wrapper so callers don't need to
// import logging just to read Monitoring.LoggingLevel.
func ParseLoggingLevel(s string) logging.LogLevel {
	return logging.ParseLevel(s)
}
