package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coreloop/agentcore/internal/infra"
	"github.com/coreloop/agentcore/pkg/audit"
	"github.com/coreloop/agentcore/pkg/config"
	"github.com/coreloop/agentcore/pkg/constraints"
	"github.com/coreloop/agentcore/pkg/llmclient"
	"github.com/coreloop/agentcore/pkg/logger"
	"github.com/coreloop/agentcore/pkg/loopctl"
	"github.com/coreloop/agentcore/pkg/memory"
	"github.com/coreloop/agentcore/pkg/planner"
	"github.com/coreloop/agentcore/pkg/ratelimit"
	"github.com/coreloop/agentcore/pkg/responder"
	"github.com/coreloop/agentcore/pkg/toolrunner"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "agentcore",
		Short: "Runs the Planner/Tool Runner/Responder loop against a sandboxed workspace",
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the JSON configuration document")

	root.AddCommand(newRunCommand())
	root.AddCommand(newReplCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if _, err := os.Stat("./config.json"); err == nil {
		return "./config.json"
	}
	return filepath.Join(infra.ResolveHomeDir(), "config.json")
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [request]",
		Short: "Drives one loop to completion for a single request and prints the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, cfg, err := buildController(configPath)
			if err != nil {
				return err
			}
			return runRequest(cmd.Context(), controller, cfg, args[0])
		},
	}
}

func newReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Starts an interactive session with the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, cfg, err := buildController(configPath)
			if err != nil {
				return err
			}
			return runREPL(controller, cfg)
		},
	}
}

// buildController wires config, memory, audit, constraints, the LLM
// client, and the loop stages into a ready-to-run Controller.
func buildController(path string) (*loopctl.Controller, *config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.Debug.Enabled {
		logger.SetLevel(logger.DEBUG)
	}

	mem, err := memory.Load(cfg.Memory.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading memory: %w", err)
	}

	auditLog, err := audit.Open(cfg.Audit.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit log: %w", err)
	}

	allowedCommands := cfg.Security.AllowedCommands
	if !cfg.Security.ExecEnabled {
		allowedCommands = []string{}
	}
	cons, err := constraints.New(cfg.Workspace.Dir, allowedCommands, cfg.Security.TimeoutSec, cfg.Security.MaxOutputSize)
	if err != nil {
		return nil, nil, fmt.Errorf("building constraints: %w", err)
	}

	client := llmclient.New(cfg.VLLM.BaseURL, cfg.VLLM.APIKey, cfg.VLLM.Model)
	runner := toolrunner.NewRunner(cons, auditLog)
	p := planner.New(client, cfg.VLLM.Temperature, cfg.VLLM.MaxTokens, cfg.VLLM.EnableFunctionCalling)
	r := responder.New(client, cfg.VLLM.Temperature, cfg.VLLM.MaxTokens)
	limiter := ratelimit.New(cfg.Agent.LoopWaitSec)

	controller := loopctl.New(p, r, runner, mem, auditLog, limiter, cfg.Agent.MaxLoops)
	return controller, cfg, nil
}

func runRequest(ctx context.Context, controller *loopctl.Controller, cfg *config.Config, request string) error {
	requestID := uuid.New().String()
	logger.InfoCF("agentcore", "starting request", map[string]any{"request_id": requestID})

	reply, err := controller.Run(ctx, request)
	if err != nil {
		logger.ErrorCF("agentcore", "request failed", map[string]any{"request_id": requestID, "error": err.Error()})
		return err
	}

	logger.InfoCF("agentcore", "request completed", map[string]any{"request_id": requestID})
	fmt.Println(reply)
	return nil
}
