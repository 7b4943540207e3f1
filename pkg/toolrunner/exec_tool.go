package toolrunner

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/coreloop/agentcore/pkg/agenterr"
	"github.com/coreloop/agentcore/pkg/constraints"
)

// execOutcome is the raw result of running one exec_cmd invocation, before
// it is folded into a ToolResult by the runner.
type execOutcome struct {
	Output   string
	ExitCode *int
	TimedOut bool
}

func runExecCmd(ctx context.Context, c constraints.Constraints, args map[string]any) (execOutcome, error) {
	command, ok := stringArg(args, "command")
	if !ok || command == "" {
		return execOutcome{}, agenterr.New(agenterr.BadArgs, "command is required")
	}

	if ok, reason := c.ValidateCommand(command); !ok {
		return execOutcome{}, agenterr.New(agenterr.CommandForbidden, reason)
	}

	requested := intArg(args, "timeout", 0)
	timeoutSec := c.EffectiveTimeout(requested)

	cmdCtx, cancel := context.WithTimeout(ctx, secondsToDuration(timeoutSec))
	defer cancel()

	cmd := buildShellCommand(cmdCtx, command, c.AllowedRoot)
	prepareForGroupKill(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return execOutcome{}, agenterr.Wrap(agenterr.IOFailure, "failed to start command", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-cmdCtx.Done():
		killProcessGroup(cmd)
		waitErr = <-done
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n[stderr]\n" + stderr.String()
	}

	if cmdCtx.Err() == context.DeadlineExceeded {
		return execOutcome{Output: output, TimedOut: true}, nil
	}

	var exitCode *int
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			exitCode = &code
		} else {
			return execOutcome{}, agenterr.Wrap(agenterr.IOFailure, "command failed to run: "+output, waitErr)
		}
	} else {
		zero := 0
		exitCode = &zero
	}

	return execOutcome{Output: output, ExitCode: exitCode}, nil
}
