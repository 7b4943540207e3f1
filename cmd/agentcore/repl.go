package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/coreloop/agentcore/pkg/config"
	"github.com/coreloop/agentcore/pkg/logger"
	"github.com/coreloop/agentcore/pkg/loopctl"
)

// runREPL drives a minimal interactive terminal loop. The reserved words
// below are handled entirely here and never reach the loop controller.
func runREPL(controller *loopctl.Controller, cfg *config.Config) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "agentcore> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".agentcore_history"),
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline unavailable (%v), falling back to plain input\n", err)
		return runPlainREPL(controller, cfg)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			continue
		}

		if handleLine(controller, cfg, strings.TrimSpace(line)) {
			return nil
		}
	}
}

func runPlainREPL(controller *loopctl.Controller, cfg *config.Config) error {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("agentcore> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			continue
		}

		if handleLine(controller, cfg, strings.TrimSpace(line)) {
			return nil
		}
	}
}

// handleLine processes one line of REPL input, intercepting the reserved
// words (help, clear, debug ..., config, exit, quit) before anything
// reaches the loop controller. It returns true when the REPL should exit.
func handleLine(controller *loopctl.Controller, cfg *config.Config, input string) bool {
	if input == "" {
		return false
	}

	fields := strings.Fields(input)
	switch fields[0] {
	case "exit", "quit":
		fmt.Println("Goodbye!")
		return true
	case "help":
		printREPLHelp()
		return false
	case "clear":
		fmt.Print("\033[H\033[2J")
		return false
	case "config":
		fmt.Printf("vllm.base_url=%s vllm.model=%s workspace.dir=%s agent.max_loops=%d\n",
			cfg.VLLM.BaseURL, cfg.VLLM.Model, cfg.Workspace.Dir, cfg.Agent.MaxLoops)
		return false
	case "debug":
		handleDebugCommand(fields)
		return false
	}

	ctx := context.Background()
	reply, err := controller.Run(ctx, input)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return false
	}
	fmt.Println(reply)
	return false
}

func handleDebugCommand(fields []string) {
	if len(fields) < 2 {
		fmt.Println("usage: debug on|off|verbose|basic")
		return
	}
	switch fields[1] {
	case "on", "verbose":
		logger.SetLevel(logger.DEBUG)
		fmt.Println("debug logging enabled")
	case "off", "basic":
		logger.SetLevel(logger.INFO)
		fmt.Println("debug logging disabled")
	default:
		fmt.Println("usage: debug on|off|verbose|basic")
	}
}

func printREPLHelp() {
	fmt.Println("Reserved commands:")
	fmt.Println("  help                   Show this message")
	fmt.Println("  clear                  Clear the screen")
	fmt.Println("  debug on|off           Toggle debug logging")
	fmt.Println("  debug verbose|basic    Same as on|off")
	fmt.Println("  config                 Print the active configuration summary")
	fmt.Println("  exit, quit             Leave the session")
	fmt.Println("Anything else is sent to the agent as a request.")
}
