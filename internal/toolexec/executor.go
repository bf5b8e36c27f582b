// Package toolexec implements the Tool Executor (component C): validates a
// tool call's arguments against the tool's JSON schema before invoking it
// through the registry, and classifies any failure into the shared error
// taxonomy.
package toolexec

import (
	"context"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/metrics"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
	"github.com/tuannvm/llm-tool-engine/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome is the tagged result of one tool execution: success carries the
// raw text result, failure carries a classified *errs.Error. Exactly one
// of Result/Err is set. ElapsedMillis is measured from argument dispatch
// to the first server reply and is never negative.
type Outcome struct {
	ToolName      string
	Result        string
	Err           *errs.Error
	ElapsedMillis int64
}

// Call is one (name, args) pair in a chain-mode request.
type Call struct {
	Name string
	Args map[string]interface{}
}

// backend is the slice of the registry the executor depends on, narrowed
// so tests can substitute a scripted implementation.
type backend interface {
	Lookup(fullName string) (registry.RawTool, *registry.ServerConnection, *errs.Error)
	Call(ctx context.Context, fullName string, args map[string]interface{}) (string, *errs.Error)
	CompiledSchema(fullName string) (*jsonschema.Schema, error)
}

// Executor validates and executes tool calls against a registry.
type Executor struct {
	registry backend
	logger   *logging.Logger
	timeout  time.Duration
}

// New creates an Executor bound to a registry. A zero timeout uses the
// default of 30 seconds.
func New(reg *registry.Registry, logger *logging.Logger, timeout time.Duration) *Executor {
	return newExecutor(reg, logger, timeout)
}

func newExecutor(b backend, logger *logging.Logger, timeout time.Duration) *Executor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Executor{registry: b, logger: logger, timeout: timeout}
}

// Execute validates args against the tool's schema and, if they pass,
// invokes it through the registry. A validation failure never reaches the
// subprocess.
func (e *Executor) Execute(ctx context.Context, fullName string, args map[string]interface{}) Outcome {
	ctx, end := tracing.Start(ctx, "toolexec.Execute")
	defer end()

	start := time.Now()
	outcome := e.execute(ctx, fullName, args)
	elapsed := time.Since(start)
	outcome.ElapsedMillis = elapsed.Milliseconds()
	metrics.ToolLatency.WithLabelValues(fullName).Observe(elapsed.Seconds())

	errored := "false"
	if outcome.Err != nil {
		errored = "true"
	}
	server := fullName
	metrics.ToolInvocations.With(prometheus.Labels{
		metrics.LabelTool:   fullName,
		metrics.LabelServer: server,
		metrics.LabelError:  errored,
	}).Inc()

	return outcome
}

// ExecuteChain runs a sequence of calls in order, halting at the first
// failure. The returned slice carries one Outcome per executed call, so a
// non-empty chain always yields at least one record.
func (e *Executor) ExecuteChain(ctx context.Context, calls []Call) []Outcome {
	outcomes := make([]Outcome, 0, len(calls))
	for _, c := range calls {
		outcome := e.Execute(ctx, c.Name, c.Args)
		outcomes = append(outcomes, outcome)
		if outcome.Err != nil {
			break
		}
	}
	return outcomes
}

func (e *Executor) execute(ctx context.Context, fullName string, args map[string]interface{}) Outcome {
	tool, _, lookupErr := e.registry.Lookup(fullName)
	if lookupErr != nil {
		return Outcome{ToolName: fullName, Err: lookupErr}
	}

	if err := e.validate(fullName, args); err != nil {
		return Outcome{ToolName: fullName, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, callErr := e.registry.Call(callCtx, fullName, args)
	if callErr != nil {
		if callCtx.Err() != nil {
			return Outcome{ToolName: fullName, Err: errs.New(errs.KindTimeout, "tool call timed out: "+tool.FullName)}
		}
		return Outcome{ToolName: fullName, Err: callErr}
	}
	return Outcome{ToolName: fullName, Result: result}
}

// validate compiles (once, cached) the tool's JSON schema and validates
// args against it, converting a jsonschema.ValidationError into the
// VALIDATION error kind while preserving its message verbatim so it still
// contains the substrings errs.ClassifyToolFailure matches on.
func (e *Executor) validate(fullName string, args map[string]interface{}) *errs.Error {
	schema, err := e.registry.CompiledSchema(fullName)
	if err != nil {
		return errs.Wrap(errs.KindValidation, "failed to compile schema for "+fullName, err)
	}
	if err := schema.Validate(toJSONValue(args)); err != nil {
		return errs.Wrap(errs.KindValidation, err.Error(), err)
	}
	return nil
}

// toJSONValue converts a map[string]interface{} into the interface{} shape
// jsonschema.Schema.Validate expects (it wants JSON-decoded
// values, not arbitrary Go values; a nil map becomes an empty object so
// "required" checks still run against a concrete value).
func toJSONValue(args map[string]interface{}) interface{} {
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}
