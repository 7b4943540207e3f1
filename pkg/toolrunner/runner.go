package toolrunner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreloop/agentcore/pkg/agenterr"
	"github.com/coreloop/agentcore/pkg/audit"
	"github.com/coreloop/agentcore/pkg/constraints"
	"github.com/coreloop/agentcore/pkg/logger"
)

// Runner dispatches ToolCalls against the six primitives, validating every
// call through Constraints and emitting one AuditEntry per invocation.
type Runner struct {
	Constraints constraints.Constraints
	Audit       *audit.Log
	Now         func() time.Time
}

// NewRunner builds a Runner with Now set to time.Now; tests can replace Now
// for deterministic duration_sec assertions (a nil Now also means time.Now).
func NewRunner(c constraints.Constraints, log *audit.Log) *Runner {
	return &Runner{Constraints: c, Audit: log, Now: time.Now}
}

// Execute runs one ToolCall to completion, converting any failure into a
// ToolResult rather than propagating an error — no runner failure aborts
// the loop.
func (r *Runner) Execute(ctx context.Context, call ToolCall, loopID int) ToolResult {
	start := r.now()

	output, exitCode, timedOut, runErr := r.dispatch(ctx, call)

	elapsed := r.now().Sub(start).Seconds()

	result := ToolResult{
		ToolName:    call.ToolName,
		ArgsEcho:    call.Args,
		DurationSec: elapsed,
	}

	switch {
	case timedOut:
		result.Success = false
		result.Error = "timeout"
		result.Output = constraints.TruncateOutput(output, r.Constraints.MaxOutputSize)
	case runErr != nil:
		result.Success = false
		result.Error = runErr.Error()
		if output != "" {
			result.Output = constraints.TruncateOutput(output, r.Constraints.MaxOutputSize)
		}
	case exitCode != nil && *exitCode != 0:
		result.Success = false
		result.Error = fmt.Sprintf("exit status %d", *exitCode)
		result.Output = constraints.TruncateOutput(output, r.Constraints.MaxOutputSize)
	default:
		result.Success = true
		result.Output = constraints.TruncateOutput(output, r.Constraints.MaxOutputSize)
	}
	result.ExitCode = exitCode
	result.OutputLength = len(output)

	logger.InfoCF("toolrunner", "executed tool call", map[string]any{
		"tool_name": call.ToolName,
		"loop_id":   loopID,
		"success":   result.Success,
		"duration":  elapsed,
	})

	if r.Audit != nil {
		if err := r.Audit.Append(audit.Entry{
			Timestamp:    r.now().UTC().Format(time.RFC3339Nano),
			LoopID:       loopID,
			ToolName:     call.ToolName,
			Args:         call.Args,
			Success:      result.Success,
			ExitCode:     result.ExitCode,
			DurationSec:  elapsed,
			OutputLength: result.OutputLength,
		}); err != nil {
			logger.WarnCF("toolrunner", "failed to append audit entry", map[string]any{"error": err.Error()})
		}
	}

	return result
}

// ExecuteBatch runs calls sequentially in the order given, preserving the
// ordering guarantee the spec places on a single Planner batch.
func (r *Runner) ExecuteBatch(ctx context.Context, calls []ToolCall, loopID int) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, r.Execute(ctx, call, loopID))
	}
	return results
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// dispatch runs the named primitive and normalises its return shape to
// (output, exitCode, timedOut, err). Only exec_cmd ever sets exitCode or
// timedOut.
func (r *Runner) dispatch(ctx context.Context, call ToolCall) (output string, exitCode *int, timedOut bool, err error) {
	args := FilterKnownArgs(call.ToolName, call.Args)

	switch call.ToolName {
	case "list_dir":
		output, err = listDir(r.Constraints, args)
	case "read_file":
		output, err = readFile(r.Constraints, args)
	case "write_file":
		output, err = writeFile(r.Constraints, args)
	case "edit_file":
		output, err = editFile(r.Constraints, args)
	case "grep":
		output, err = grep(r.Constraints, args)
	case "exec_cmd":
		var outcome execOutcome
		outcome, err = runExecCmd(ctx, r.Constraints, args)
		output = outcome.Output
		exitCode = outcome.ExitCode
		timedOut = outcome.TimedOut
	default:
		err = agenterr.New(agenterr.BadArgs, "unknown tool: "+call.ToolName)
	}
	return output, exitCode, timedOut, err
}

// IsRecoverable reports whether err is one of the recoverable agenterr
// kinds that must be converted into a failed ToolResult rather than
// propagated further up the loop.
func IsRecoverable(err error) bool {
	var e *agenterr.Error
	return errors.As(err, &e)
}
