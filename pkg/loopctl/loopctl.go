// Package loopctl implements the Loop Controller state machine driving one
// Planner -> Tool Runner -> Responder cycle per run(request), bounded by
// max_loops.
package loopctl

import (
	"context"
	"fmt"

	"github.com/coreloop/agentcore/pkg/agenterr"
	"github.com/coreloop/agentcore/pkg/audit"
	"github.com/coreloop/agentcore/pkg/logger"
	"github.com/coreloop/agentcore/pkg/memory"
	"github.com/coreloop/agentcore/pkg/planner"
	"github.com/coreloop/agentcore/pkg/ratelimit"
	"github.com/coreloop/agentcore/pkg/responder"
	"github.com/coreloop/agentcore/pkg/state"
	"github.com/coreloop/agentcore/pkg/toolrunner"
)

// plannerStage is satisfied by *planner.Planner; narrowed to an interface
// so the loop controller can be tested against fakes.
type plannerStage interface {
	Plan(ctx context.Context, request string, mem *memory.Store, s *state.State, loopID, maxLoops int) (state.PlannerOutput, error)
}

// responderStage is satisfied by *responder.Responder.
type responderStage interface {
	Respond(ctx context.Context, request string, toolResults []toolrunner.ToolResult, mem *memory.Store, s *state.State, loopID int) (state.ResponderOutput, error)
	RespondLimitReached(ctx context.Context, request string, mem *memory.Store, s *state.State, auditLogPath string) (state.ResponderOutput, error)
}

// runnerStage is satisfied by *toolrunner.Runner.
type runnerStage interface {
	ExecuteBatch(ctx context.Context, calls []toolrunner.ToolCall, loopID int) []toolrunner.ToolResult
}

// Controller wires the Planner, Tool Runner, and Responder into the loop
// state machine described by the loop controller contract.
type Controller struct {
	Planner   plannerStage
	Responder responderStage
	Runner    runnerStage
	Memory    *memory.Store
	Audit     *audit.Log
	Limiter   *ratelimit.Limiter
	MaxLoops  int
}

// New builds a Controller from its collaborators.
func New(p *planner.Planner, r *responder.Responder, runner *toolrunner.Runner, mem *memory.Store, auditLog *audit.Log, limiter *ratelimit.Limiter, maxLoops int) *Controller {
	return &Controller{
		Planner:   p,
		Responder: r,
		Runner:    runner,
		Memory:    mem,
		Audit:     auditLog,
		Limiter:   limiter,
		MaxLoops:  maxLoops,
	}
}

// Run executes one complete request: INIT -> (PLAN -> EXEC -> RESPOND)* -> DONE.
func (c *Controller) Run(ctx context.Context, request string) (string, error) {
	if c.MaxLoops <= 0 {
		return "", &agenterr.Invariant{Detail: fmt.Sprintf("max_loops must be positive, got %d", c.MaxLoops)}
	}

	s := state.New()

	for loopID := 1; ; loopID++ {
		if s.LoopCount != len(s.History) {
			return "", &agenterr.Invariant{Detail: fmt.Sprintf("loop_count (%d) out of sync with history length (%d)", s.LoopCount, len(s.History))}
		}

		plannerOut, err := c.Planner.Plan(ctx, request, c.Memory, s, loopID, c.MaxLoops)
		if err != nil {
			return "", err
		}
		s.ApplyPlannerDelta(plannerOut)

		var toolResults []toolrunner.ToolResult
		if plannerOut.NeedTools {
			toolResults = c.Runner.ExecuteBatch(ctx, plannerOut.ToolCalls, loopID)
		}

		responderOut, err := c.Responder.Respond(ctx, request, toolResults, c.Memory, s, loopID)
		if err != nil {
			return "", err
		}

		s.RecordLoop(state.LoopRecord{
			LoopID:          loopID,
			PlannerOutput:   plannerOut,
			ToolResults:     toolResults,
			ResponderOutput: responderOut,
		})

		if done, result := c.checkTermination(plannerOut, responderOut, s); done {
			return result, nil
		}

		if loopID >= c.MaxLoops {
			return c.finishOnLimitReached(ctx, request, s)
		}

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
	}
}

// checkTermination applies the termination checks from spec §4.5 in order,
// excluding the loop-exhaustion check (handled by the caller after
// recording the current loop).
func (c *Controller) checkTermination(plannerOut state.PlannerOutput, responderOut state.ResponderOutput, s *state.State) (bool, string) {
	if responderOut.IsFinalAnswer {
		return true, responderOut.Response
	}

	if !plannerOut.NeedTools {
		return true, responderOut.Response
	}

	if plannerOut.StopCondition == "loop_detected" {
		logger.InfoCF("loopctl", "terminating due to loop detection", map[string]any{})
		return true, responderOut.Response
	}

	if len(s.RemainingTasks) == 0 && !responder.HasImperativePhrasing(responderOut.Response) {
		return true, responderOut.Response
	}

	return false, ""
}

// finishOnLimitReached implements termination check 4: max_loops reached.
// The Responder is invoked one final time with a limit-reached synthesis
// instruction.
func (c *Controller) finishOnLimitReached(ctx context.Context, request string, s *state.State) (string, error) {
	auditPath := ""
	if c.Audit != nil {
		auditPath = c.Audit.Path()
	}

	out, err := c.Responder.RespondLimitReached(ctx, request, c.Memory, s, auditPath)
	if err != nil {
		return "", err
	}
	return out.Response, nil
}
