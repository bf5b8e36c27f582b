package toolexec

import (
	"context"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tuannvm/llm-tool-engine/internal/errs"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/registry"
)

// fakeBackend serves one tool with a real compiled schema and a scripted
// call result.
type fakeBackend struct {
	tool       registry.RawTool
	schema     *jsonschema.Schema
	callResult string
	callErr    *errs.Error
	calls      int
}

func (f *fakeBackend) Lookup(fullName string) (registry.RawTool, *registry.ServerConnection, *errs.Error) {
	if fullName != f.tool.FullName {
		return registry.RawTool{}, nil, errs.New(errs.KindUnknownTool, "no tool registered as "+fullName)
	}
	return f.tool, nil, nil
}

func (f *fakeBackend) Call(_ context.Context, _ string, _ map[string]interface{}) (string, *errs.Error) {
	f.calls++
	return f.callResult, f.callErr
}

func (f *fakeBackend) CompiledSchema(_ string) (*jsonschema.Schema, error) {
	return f.schema, nil
}

func newTimeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	schema, err := jsonschema.CompileString("time.json", `{
		"type": "object",
		"properties": {"timezone": {"type": "string"}},
		"required": ["timezone"]
	}`)
	if err != nil {
		t.Fatalf("schema compile failed: %v", err)
	}
	return &fakeBackend{
		tool: registry.RawTool{
			ServerName: "time",
			LocalName:  "get_current_time",
			FullName:   "time_get_current_time",
		},
		schema:     schema,
		callResult: "2026-08-01T14:05:00Z",
	}
}

func testExecutor(b *fakeBackend) *Executor {
	return newExecutor(b, logging.New("test", logging.LevelFatal), 0)
}

func TestExecuteUnknownTool(t *testing.T) {
	e := testExecutor(newTimeBackend(t))
	outcome := e.Execute(context.Background(), "nope_missing", nil)
	if outcome.Err == nil || outcome.Err.Kind != errs.KindUnknownTool {
		t.Errorf("expected UNKNOWN_TOOL, got %v", outcome.Err)
	}
	if outcome.ElapsedMillis < 0 {
		t.Errorf("expected non-negative elapsed, got %d", outcome.ElapsedMillis)
	}
}

func TestExecuteValidationFailureNeverReachesServer(t *testing.T) {
	b := newTimeBackend(t)
	e := testExecutor(b)

	outcome := e.Execute(context.Background(), "time_get_current_time", map[string]interface{}{})
	if outcome.Err == nil || outcome.Err.Kind != errs.KindValidation {
		t.Fatalf("expected VALIDATION, got %v", outcome.Err)
	}
	if !strings.Contains(strings.ToLower(outcome.Err.Message), "missing") {
		t.Errorf("expected a missing-property message, got %q", outcome.Err.Message)
	}
	if b.calls != 0 {
		t.Errorf("expected the subprocess never to be reached on a validation failure, got %d calls", b.calls)
	}
}

func TestExecuteSuccessRecordsElapsed(t *testing.T) {
	b := newTimeBackend(t)
	e := testExecutor(b)

	outcome := e.Execute(context.Background(), "time_get_current_time", map[string]interface{}{"timezone": "UTC"})
	if outcome.Err != nil {
		t.Fatalf("unexpected failure: %v", outcome.Err)
	}
	if outcome.Result != "2026-08-01T14:05:00Z" {
		t.Errorf("unexpected result %q", outcome.Result)
	}
	if outcome.ElapsedMillis < 0 {
		t.Errorf("expected elapsedMillis >= 0, got %d", outcome.ElapsedMillis)
	}
	if b.calls != 1 {
		t.Errorf("expected exactly one server call, got %d", b.calls)
	}
}

func TestExecuteServerFailureClassified(t *testing.T) {
	b := newTimeBackend(t)
	b.callErr = errs.New(errs.KindServerError, "upstream exploded")
	e := testExecutor(b)

	outcome := e.Execute(context.Background(), "time_get_current_time", map[string]interface{}{"timezone": "UTC"})
	if outcome.Err == nil || outcome.Err.Kind != errs.KindServerError {
		t.Errorf("expected SERVER_ERROR, got %v", outcome.Err)
	}
}

func TestExecuteChainHaltsAtFirstFailure(t *testing.T) {
	b := newTimeBackend(t)
	e := testExecutor(b)

	calls := []Call{
		{Name: "time_get_current_time", Args: map[string]interface{}{"timezone": "UTC"}},
		{Name: "nope_missing"},
		{Name: "time_get_current_time", Args: map[string]interface{}{"timezone": "UTC"}},
	}
	outcomes := e.ExecuteChain(context.Background(), calls)
	if len(outcomes) != 2 {
		t.Fatalf("expected execution to stop after the first failure, got %d outcomes", len(outcomes))
	}
	if outcomes[0].Err != nil {
		t.Errorf("expected first call to succeed, got %v", outcomes[0].Err)
	}
	if outcomes[1].Err == nil || outcomes[1].Err.Kind != errs.KindUnknownTool {
		t.Errorf("expected second call to fail with UNKNOWN_TOOL, got %v", outcomes[1].Err)
	}
}
