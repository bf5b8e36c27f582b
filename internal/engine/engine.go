// Package engine wires the LLM Adapter, MCP Registry, Tool Executor,
// Conversation Memory, and the active inference Strategy into the single
// entry point a caller drives one query at a time, and owns the hot-swap
// lifecycle that lets the active (adapter, strategy) pair be replaced
// without tearing down MCP subprocess connections or losing history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/inference"
	"github.com/tuannvm/llm-tool-engine/internal/llm"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/memory"
	"github.com/tuannvm/llm-tool-engine/internal/metrics"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
	"github.com/tuannvm/llm-tool-engine/internal/toolexec"
	"github.com/tuannvm/llm-tool-engine/internal/tracing"
)

// StrategyKind names one of the three pluggable inference algorithms.
type StrategyKind string

const (
	StrategySimple  StrategyKind = "simple"
	StrategyReAct   StrategyKind = "react"
	StrategyToolUse StrategyKind = "tooluse"
)

// Engine is the long-lived object a caller holds for the life of a
// session: one call to ProcessQuery per user turn, with HotSwap available
// at any point between turns.
type Engine struct {
	cfg    *config.Config
	logger *logging.Logger

	registry *registry.Registry
	memory   *memory.Memory

	mu       sync.Mutex // serializes ProcessQuery and HotSwap
	adapter  *llm.Adapter
	strategy inference.Strategy
	kind     StrategyKind
}

// New constructs an Engine, connecting every enabled MCP server and
// building the initial (adapter, strategy) pair from cfg.LLM.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	reg := registry.New(logger.WithName("registry"))
	descriptors := config.ResolveServerDescriptors(cfg.MCPServers)
	for _, failure := range reg.Connect(ctx, descriptors) {
		var collision *registry.CollisionError
		if errors.As(failure, &collision) {
			reg.Teardown()
			return nil, failure
		}
		logger.WarnKV("mcp server connect failure", "error", failure)
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger.WithName("engine"),
		registry: reg,
		memory:   memory.New(),
	}

	adapter, err := llm.New(ctx, cfg.LLM.Provider, cfg.LLM.Providers[cfg.LLM.Provider], logger)
	if err != nil {
		reg.Teardown()
		return nil, err
	}
	strategy, err := e.buildStrategy(adapter, StrategyKind(cfg.LLM.Strategy))
	if err != nil {
		reg.Teardown()
		return nil, err
	}

	e.adapter = adapter
	e.strategy = strategy
	e.kind = StrategyKind(cfg.LLM.Strategy)
	return e, nil
}

func (e *Engine) buildStrategy(adapter *llm.Adapter, kind StrategyKind) (inference.Strategy, error) {
	exec := toolexec.New(e.registry, e.logger.WithName("toolexec"), 30*time.Second)
	switch kind {
	case StrategySimple:
		return inference.NewSimple(adapter, e.registry, exec, e.memory, e.logger), nil
	case StrategyReAct:
		return inference.NewReAct(adapter, e.registry, exec, e.memory, e.logger, e.cfg.MaxReActSteps), nil
	case StrategyToolUse, "":
		return inference.NewToolUse(adapter, e.registry, exec, e.memory, e.logger, e.cfg.MaxToolChain, e.cfg.Workspace.BasePath, e.cfg.DefaultTimezone), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

// ProcessQuery runs one full turn: append the user message to Memory, run
// the active strategy, append the resulting assistant message, and return
// it. Concurrent with HotSwap, serialized behind the same mutex.
func (e *Engine) ProcessQuery(ctx context.Context, text string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, end := tracing.StartWithAttrs(ctx, "engine.ProcessQuery", "strategy", string(e.kind))
	defer end()

	e.memory.Append(llm.Message{Role: "user", Content: text})

	answer, err := e.strategy.ProcessQuery(ctx, text)

	errored := "false"
	if err != nil {
		errored = "true"
	}
	metrics.QueriesProcessed.With(prometheus.Labels{
		metrics.LabelStrategy: string(e.kind),
		metrics.LabelKind:     errored,
	}).Inc()

	if err != nil {
		return "", err
	}
	e.memory.Append(llm.Message{Role: "assistant", Content: answer})
	return answer, nil
}

// HotSwap atomically replaces the active (adapter, strategy) pair, leaving
// Memory and Registry untouched: MCP subprocess connections are never torn
// down by a hot-swap. It shares ProcessQuery's mutex, so a swap issued
// while a turn is in flight waits until that turn has completed.
func (e *Engine) HotSwap(ctx context.Context, provider string, kind StrategyKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	providerCfg, ok := e.cfg.LLM.Providers[provider]
	if !ok {
		return fmt.Errorf("provider %q not configured", provider)
	}
	if providerCfg.APIKey == "" {
		return fmt.Errorf("provider %q has no API key configured", provider)
	}
	newAdapter, err := llm.New(ctx, provider, providerCfg, e.logger)
	if err != nil {
		return err
	}
	newStrategy, err := e.buildStrategy(newAdapter, kind)
	if err != nil {
		return err
	}

	oldStrategy := e.strategy
	e.adapter = newAdapter
	e.strategy = newStrategy
	e.kind = kind
	oldStrategy.Close()

	metrics.HotSwaps.Inc()
	e.logger.InfoKV("hot-swap completed", "provider", provider, "strategy", string(kind))
	return nil
}

// Memory exposes the shared conversation transcript, used by callers that
// render history and by tests asserting it survives a hot-swap.
func (e *Engine) Memory() *memory.Memory {
	return e.memory
}

// Close tears down the registry's MCP subprocess connections. Call once at
// process shutdown, never as part of a hot-swap.
func (e *Engine) Close() {
	e.strategy.Close()
	e.registry.Teardown()
}
