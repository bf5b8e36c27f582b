// Package registry implements the MCP Registry (component B): it spawns
// and owns every MCP server subprocess connection, discovers each server's
// tool list, and exposes a fully-qualified name -> tool lookup the rest of
// the engine never has to string-split by convention.
package registry

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
)

// ConnectionState tracks the lifecycle of one server's subprocess
// connection.
type ConnectionState string

const (
	StateConnecting ConnectionState = "CONNECTING"
	StateReady      ConnectionState = "READY"
	StateFailed     ConnectionState = "FAILED"
	StateClosed     ConnectionState = "CLOSED"
)

// RawTool is the provider-agnostic tool descriptor a server reports: its
// FullName is serverName + "_" + local name, the convention every adapter
// and every strategy uses to address a specific server's tool without ever
// re-deriving the split itself.
type RawTool struct {
	ServerName  string
	LocalName   string
	FullName    string
	Description string
	Schema      map[string]interface{}
}

// ServerConnection owns one MCP subprocess and its discovered tool list.
type ServerConnection struct {
	Name  string
	State ConnectionState
	Tools []RawTool

	client *client.Client
	cancel context.CancelFunc
	logger *logging.Logger

	closeOnce sync.Once
}

// Registry owns every ServerConnection plus the derived lookup structures:
// the reverse FQN map and a compiled-schema cache, both invalidated on
// teardown.
type Registry struct {
	logger *logging.Logger

	mu          sync.RWMutex
	connections map[string]*ServerConnection
	toolIndex   map[string]RawTool // FullName -> RawTool, the reverse FQN map
	schemaCache map[string]*jsonschema.Schema
}

// New creates an empty Registry.
func New(logger *logging.Logger) *Registry {
	return &Registry{
		logger:      logger,
		connections: make(map[string]*ServerConnection),
		toolIndex:   make(map[string]RawTool),
		schemaCache: make(map[string]*jsonschema.Schema),
	}
}

// Connect screens and connects every enabled server descriptor in priority
// order, collecting discovery failures rather than aborting the whole
// startup: one bad server should not prevent the others from becoming
// available.
func (r *Registry) Connect(ctx context.Context, descriptors []config.ServerDescriptor) []error {
	var failures []error
	for _, d := range descriptors {
		if missing := screenDependencies(d.DependencyFlags); len(missing) > 0 {
			err := fmt.Errorf("server %q skipped, missing dependencies: %s", d.Name, strings.Join(missing, ", "))
			failures = append(failures, err)
			if r.logger != nil {
				r.logger.WarnKV("server skipped", "server", d.Name, "missing", missing)
			}
			continue
		}
		if err := r.connectOne(ctx, d); err != nil {
			failures = append(failures, fmt.Errorf("server %q: %w", d.Name, err))
		}
	}
	return failures
}

// screenDependencies checks each NEEDS_* flag against the environment,
// returning the ones that are not satisfied.
func screenDependencies(flags []string) []string {
	var missing []string
	for _, f := range flags {
		switch {
		case f == string(config.NeedsNodeJS):
			if _, err := exec.LookPath("node"); err != nil {
				missing = append(missing, f)
			}
		case f == string(config.NeedsUVX):
			if _, err := exec.LookPath("uvx"); err != nil {
				missing = append(missing, f)
			}
		case f == string(config.NeedsOnline):
			// Online reachability is informational only; this module does
			// not probe the network at startup.
		case strings.HasPrefix(f, config.NeedsEnvPrefix):
			varName := strings.TrimPrefix(f, config.NeedsEnvPrefix)
			if _, ok := lookupEnv(varName); !ok {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

func (r *Registry) connectOne(ctx context.Context, d config.ServerDescriptor) error {
	r.mu.Lock()
	r.connections[d.Name] = &ServerConnection{Name: d.Name, State: StateConnecting, logger: r.logger}
	r.mu.Unlock()

	finalEnv := buildEnv(d.Env)
	mcpClient, err := client.NewStdioMCPClient(d.Command, finalEnv, d.Args...)
	if err != nil {
		r.markFailed(d.Name)
		return errs.Wrap(errs.KindTransport, "failed to create MCP client", err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	if err := mcpClient.Start(connCtx); err != nil {
		cancel()
		r.markFailed(d.Name)
		return errs.Wrap(errs.KindTransport, "failed to start MCP subprocess", err)
	}

	initCtx, initCancel := context.WithTimeout(ctx, time.Duration(d.InitTimeout)*time.Second)
	defer initCancel()
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	if _, err := mcpClient.Initialize(initCtx, initReq); err != nil {
		cancel()
		r.markFailed(d.Name)
		return errs.Wrap(errs.KindTransport, "failed to initialize MCP server", err)
	}

	tools, err := discoverTools(initCtx, d.Name, mcpClient)
	if err != nil {
		cancel()
		r.markFailed(d.Name)
		return err
	}

	conn := &ServerConnection{
		Name:   d.Name,
		State:  StateReady,
		Tools:  tools,
		client: mcpClient,
		cancel: cancel,
		logger: r.logger,
	}

	if err := r.register(conn); err != nil {
		cancel()
		r.markFailed(d.Name)
		return err
	}

	if r.logger != nil {
		r.logger.InfoKV("server connected", "server", d.Name, "tools", len(tools))
	}
	return nil
}

// CollisionError reports two servers exposing the same fully-qualified
// tool name. It is a fatal configuration error: the engine must refuse to
// start rather than let one tool shadow the other.
type CollisionError struct {
	FullName string
	Server   string
	Existing string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("fully-qualified tool name collision: %q from server %q already registered from server %q", e.FullName, e.Server, e.Existing)
}

// register stores a connection and indexes its tools, rejecting any
// fully-qualified name already claimed by another server.
func (r *Registry) register(conn *ServerConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range conn.Tools {
		if existing, collides := r.toolIndex[t.FullName]; collides {
			return &CollisionError{FullName: t.FullName, Server: conn.Name, Existing: existing.ServerName}
		}
	}
	r.connections[conn.Name] = conn
	for _, t := range conn.Tools {
		r.toolIndex[t.FullName] = t
	}
	return nil
}

func discoverTools(ctx context.Context, serverName string, c *client.Client) ([]RawTool, error) {
	listResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, "tool discovery failed", err)
	}
	tools := make([]RawTool, 0, len(listResult.Tools))
	for _, t := range listResult.Tools {
		schema := schemaToMap(t.InputSchema)
		tools = append(tools, RawTool{
			ServerName:  serverName,
			LocalName:   t.Name,
			FullName:    serverName + "_" + t.Name,
			Description: t.Description,
			Schema:      schema,
		})
	}
	return tools, nil
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]interface{} {
	m := map[string]interface{}{
		"type": "object",
	}
	if len(schema.Properties) > 0 {
		m["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		m["required"] = schema.Required
	}
	return m
}

func (r *Registry) markFailed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.connections[name]; ok {
		c.State = StateFailed
	}
}

// Lookup resolves a fully-qualified tool name to its descriptor and
// connection, returning errs.KindUnknownTool or errs.KindServerUnavailable
// when the lookup cannot be satisfied.
func (r *Registry) Lookup(fullName string) (RawTool, *ServerConnection, *errs.Error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.toolIndex[fullName]
	if !ok {
		return RawTool{}, nil, errs.New(errs.KindUnknownTool, fmt.Sprintf("no tool registered as %q", fullName))
	}
	conn, ok := r.connections[tool.ServerName]
	if !ok || conn.State != StateReady {
		return RawTool{}, nil, errs.New(errs.KindServerUnavailable, fmt.Sprintf("server %q is not ready", tool.ServerName))
	}
	return tool, conn, nil
}

// Call invokes a tool by fully-qualified name against its owning server
// connection.
func (r *Registry) Call(ctx context.Context, fullName string, args map[string]interface{}) (string, *errs.Error) {
	tool, conn, lookupErr := r.Lookup(fullName)
	if lookupErr != nil {
		return "", lookupErr
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = tool.LocalName
	req.Params.Arguments = args

	result, err := conn.client.CallTool(ctx, req)
	if err != nil {
		isTimeout := ctx.Err() != nil
		return "", errs.Wrap(errs.ClassifyToolFailure(err.Error(), isTimeout, !isTimeout), "tool call failed", err)
	}
	if result.IsError {
		msg := extractText(result.Content)
		return "", errs.New(errs.ClassifyToolFailure(msg, false, false), msg)
	}
	return extractText(result.Content), nil
}

func extractText(content []mcp.Content) string {
	var b strings.Builder
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// Tools returns a stable-ordered snapshot of every currently registered
// tool, for conversion into a provider's schema dialect.
func (r *Registry) Tools() []RawTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RawTool, 0, len(r.toolIndex))
	for _, t := range r.toolIndex {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// CompiledSchema returns the cached compiled jsonschema.Schema for a tool,
// compiling and caching it on first use.
func (r *Registry) CompiledSchema(fullName string) (*jsonschema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.schemaCache[fullName]; ok {
		return s, nil
	}
	tool, ok := r.toolIndex[fullName]
	if !ok {
		return nil, fmt.Errorf("no tool registered as %q", fullName)
	}

	compiler := jsonschema.NewCompiler()
	resourceName := fullName + ".json"
	schemaBytes, err := marshalSchema(tool.Schema)
	if err != nil {
		return nil, err
	}
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaBytes)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	r.schemaCache[fullName] = schema
	return schema, nil
}

// Teardown closes every subprocess connection and clears every derived
// lookup structure. The engine calls it at shutdown and when its own
// construction fails; a hot-swap never calls it.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.connections {
		c.close()
	}
	r.connections = make(map[string]*ServerConnection)
	r.toolIndex = make(map[string]RawTool)
	r.schemaCache = make(map[string]*jsonschema.Schema)
}

func (c *ServerConnection) close() {
	c.closeOnce.Do(func() {
		c.State = StateClosed
		if c.cancel != nil {
			c.cancel()
		}
		if c.logger != nil {
			c.logger.InfoKV("server connection closed", "server", c.Name)
		}
	})
}

func buildEnv(extra map[string]string) []string {
	base := processEnviron()
	for k, v := range extra {
		base[k] = v
	}
	out := make([]string, 0, len(base))
	for k, v := range base {
		out = append(out, k+"="+v)
	}
	return out
}
