// Package responder implements the second LLM call of each loop iteration:
// given the tool results gathered during EXEC, it explains what happened,
// summarises the results, and either states the next action or signals a
// final answer.
package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreloop/agentcore/pkg/llmclient"
	"github.com/coreloop/agentcore/pkg/memory"
	"github.com/coreloop/agentcore/pkg/state"
	"github.com/coreloop/agentcore/pkg/toolcallparse"
	"github.com/coreloop/agentcore/pkg/toolrunner"
)

// Responder drives the Responder LLM call.
type Responder struct {
	Client      *llmclient.Client
	Temperature float64
	MaxTokens   int
}

// New builds a Responder bound to client with the given request-level
// options.
func New(client *llmclient.Client, temperature float64, maxTokens int) *Responder {
	return &Responder{Client: client, Temperature: temperature, MaxTokens: maxTokens}
}

// Respond issues one Responder LLM call summarising toolResults for
// request at loopID, given the current memory and state snapshots.
func (r *Responder) Respond(ctx context.Context, request string, toolResults []toolrunner.ToolResult, mem *memory.Store, s *state.State, loopID int) (state.ResponderOutput, error) {
	messages := []llmclient.Message{
		{Role: "system", Content: buildSystemPrompt(mem, s)},
		{Role: "user", Content: buildUserMessage(request, toolResults)},
	}

	resp, err := r.Client.Chat(ctx, messages, nil, llmclient.Options{
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return state.ResponderOutput{}, err
	}

	return parseResponse(resp.Content), nil
}

// RespondLimitReached issues the final, limit-reached Responder call per
// spec §4.5 step 4: summarise what was achieved, list unresolved tasks,
// and reference the audit log path.
func (r *Responder) RespondLimitReached(ctx context.Context, request string, mem *memory.Store, s *state.State, auditLogPath string) (state.ResponderOutput, error) {
	var b strings.Builder
	b.WriteString("The maximum number of loops has been reached before the goal could be confirmed complete.\n")
	b.WriteString("Summarise what was achieved, list unresolved tasks, and reference the audit log path so the user can inspect what happened.\n\n")
	fmt.Fprintf(&b, "Facts gathered: %v\n", s.Facts)
	fmt.Fprintf(&b, "Remaining tasks: %v\n", s.RemainingTasks)
	fmt.Fprintf(&b, "Audit log path: %s\n", auditLogPath)

	messages := []llmclient.Message{
		{Role: "system", Content: buildSystemPrompt(mem, s)},
		{Role: "user", Content: b.String()},
	}

	resp, err := r.Client.Chat(ctx, messages, nil, llmclient.Options{
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return state.ResponderOutput{}, err
	}

	out := parseResponse(resp.Content)
	out.IsFinalAnswer = true
	return out, nil
}

func buildSystemPrompt(mem *memory.Store, s *state.State) string {
	var b strings.Builder
	b.WriteString("You are the response stage of a tool-using agent. Explain what was executed and summarise the results. ")
	b.WriteString("Do not invent facts beyond the tool outputs. If the user's goal remains unmet, state the next action. ")
	b.WriteString("Otherwise, emit the final answer and include the structured block {\"is_final_answer\": true} in your response.\n\n")
	b.WriteString("Memory:\n")
	b.WriteString(memory.RenderPrompt(mem.Snapshot()))
	fmt.Fprintf(&b, "\nRemaining tasks: %v\n", s.RemainingTasks)
	return b.String()
}

func buildUserMessage(request string, toolResults []toolrunner.ToolResult) string {
	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(request)
	b.WriteString("\n\n")

	if len(toolResults) == 0 {
		b.WriteString("No tools were executed this loop.\n")
		return b.String()
	}

	b.WriteString("Tool results:\n")
	for _, tr := range toolResults {
		exitCode := "none"
		if tr.ExitCode != nil {
			exitCode = fmt.Sprintf("%d", *tr.ExitCode)
		}
		fmt.Fprintf(&b, "- tool_name=%s args=%v success=%v exit_code=%s output=%q",
			tr.ToolName, tr.ArgsEcho, tr.Success, exitCode, tr.Output)
		if tr.Error != "" {
			fmt.Fprintf(&b, " error=%q", tr.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseResponse extracts an optional structured {"is_final_answer":true}
// block from text and sets ResponderOutput accordingly; the full text is
// always kept as the natural-language response.
func parseResponse(text string) state.ResponderOutput {
	out := state.ResponderOutput{Response: text, Summary: text}

	if obj := toolcallparse.FirstJSONObject(text); obj != "" {
		var marker struct {
			IsFinalAnswer bool   `json:"is_final_answer"`
			NextAction    string `json:"next_action"`
		}
		if err := json.Unmarshal([]byte(obj), &marker); err == nil {
			out.IsFinalAnswer = marker.IsFinalAnswer
			out.NextAction = marker.NextAction
		}
	}

	if !out.IsFinalAnswer && out.NextAction == "" {
		out.NextAction = inferNextAction(text)
	}

	return out
}

var imperativeMarkers = []string{
	"next, i will", "next i will", "i will now", "i need to", "let me",
	"i'll", "next step", "then i will", "i plan to",
}

// HasImperativePhrasing reports whether text contains language indicating
// further work remains, used by the loop controller's early-exit heuristic.
func HasImperativePhrasing(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range imperativeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func inferNextAction(text string) string {
	if HasImperativePhrasing(text) {
		return text
	}
	return ""
}
