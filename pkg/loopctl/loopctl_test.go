package loopctl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/coreloop/agentcore/pkg/audit"
	"github.com/coreloop/agentcore/pkg/memory"
	"github.com/coreloop/agentcore/pkg/state"
	"github.com/coreloop/agentcore/pkg/toolrunner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	outputs []state.PlannerOutput
	calls   int
}

func (f *fakePlanner) Plan(ctx context.Context, request string, mem *memory.Store, s *state.State, loopID, maxLoops int) (state.PlannerOutput, error) {
	out := f.outputs[f.calls]
	if f.calls < len(f.outputs)-1 {
		f.calls++
	}
	return out, nil
}

type fakeResponder struct {
	outputs      []state.ResponderOutput
	calls        int
	limitReached bool
}

func (f *fakeResponder) Respond(ctx context.Context, request string, toolResults []toolrunner.ToolResult, mem *memory.Store, s *state.State, loopID int) (state.ResponderOutput, error) {
	out := f.outputs[f.calls]
	if f.calls < len(f.outputs)-1 {
		f.calls++
	}
	return out, nil
}

func (f *fakeResponder) RespondLimitReached(ctx context.Context, request string, mem *memory.Store, s *state.State, auditLogPath string) (state.ResponderOutput, error) {
	f.limitReached = true
	return state.ResponderOutput{Response: "limit reached summary", IsFinalAnswer: true}, nil
}

type fakeRunner struct{}

func (fakeRunner) ExecuteBatch(ctx context.Context, calls []toolrunner.ToolCall, loopID int) []toolrunner.ToolResult {
	results := make([]toolrunner.ToolResult, 0, len(calls))
	for _, c := range calls {
		results = append(results, toolrunner.ToolResult{ToolName: c.ToolName, Success: true, Output: "ok"})
	}
	return results
}

func newTestController(t *testing.T, p plannerStage, r responderStage, maxLoops int) *Controller {
	t.Helper()
	mem, err := memory.Load(filepath.Join(t.TempDir(), "memory.json"))
	require.NoError(t, err)
	auditLog, err := audit.Open(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)

	return &Controller{
		Planner:   p,
		Responder: r,
		Runner:    fakeRunner{},
		Memory:    mem,
		Audit:     auditLog,
		MaxLoops:  maxLoops,
	}
}

func TestRun_TerminatesOnFinalAnswer(t *testing.T) {
	p := &fakePlanner{outputs: []state.PlannerOutput{{NeedTools: false}}}
	r := &fakeResponder{outputs: []state.ResponderOutput{{Response: "done", IsFinalAnswer: true}}}

	c := newTestController(t, p, r, 5)
	result, err := c.Run(context.Background(), "do something")

	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestRun_TerminatesWhenPlannerNeedsNoTools(t *testing.T) {
	p := &fakePlanner{outputs: []state.PlannerOutput{{NeedTools: false}}}
	r := &fakeResponder{outputs: []state.ResponderOutput{{Response: "direct answer"}}}

	c := newTestController(t, p, r, 5)
	result, err := c.Run(context.Background(), "what is 2+2?")

	require.NoError(t, err)
	assert.Equal(t, "direct answer", result)
}

func TestRun_ContinuesAcrossLoopsUntilFinal(t *testing.T) {
	call := toolrunner.ToolCall{ToolName: "read_file", Args: map[string]any{"path": "a.txt"}}
	p := &fakePlanner{outputs: []state.PlannerOutput{
		{NeedTools: true, ToolCalls: []toolrunner.ToolCall{call}},
		{NeedTools: false},
	}}
	r := &fakeResponder{outputs: []state.ResponderOutput{
		{Response: "Still working. Next, I will check the other file.", NextAction: "next I will check the other file"},
		{Response: "all done", IsFinalAnswer: true},
	}}

	c := newTestController(t, p, r, 5)
	result, err := c.Run(context.Background(), "investigate")

	require.NoError(t, err)
	assert.Equal(t, "all done", result)
	assert.Equal(t, 1, p.calls) // planner index advanced once across the two loops
}

func TestRun_StopsAtMaxLoopsWithLimitReachedSynthesis(t *testing.T) {
	call := toolrunner.ToolCall{ToolName: "read_file", Args: map[string]any{"path": "a.txt"}}
	p := &fakePlanner{outputs: []state.PlannerOutput{
		{NeedTools: true, ToolCalls: []toolrunner.ToolCall{call}},
	}}
	r := &fakeResponder{outputs: []state.ResponderOutput{
		{Response: "Still working. Next, I will check more files.", NextAction: "next I will check more files"},
	}}

	c := newTestController(t, p, r, 2)
	result, err := c.Run(context.Background(), "investigate forever")

	require.NoError(t, err)
	assert.Equal(t, "limit reached summary", result)
	assert.True(t, r.limitReached)
}

func TestRun_RejectsNonPositiveMaxLoops(t *testing.T) {
	p := &fakePlanner{outputs: []state.PlannerOutput{{NeedTools: false}}}
	r := &fakeResponder{outputs: []state.ResponderOutput{{Response: "x"}}}

	c := newTestController(t, p, r, 0)
	_, err := c.Run(context.Background(), "x")
	assert.Error(t, err)
}
