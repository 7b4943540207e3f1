// Package planner implements the first LLM call of each loop iteration:
// given the request, a memory snapshot, and the current state, it decides
// whether tools are needed and, if so, which ones to call with what
// arguments.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coreloop/agentcore/pkg/llmclient"
	"github.com/coreloop/agentcore/pkg/logger"
	"github.com/coreloop/agentcore/pkg/memory"
	"github.com/coreloop/agentcore/pkg/state"
	"github.com/coreloop/agentcore/pkg/toolcallparse"
	"github.com/coreloop/agentcore/pkg/toolrunner"
)

// Planner drives the Planner LLM call and its dual-mode response parsing.
type Planner struct {
	Client                *llmclient.Client
	Temperature           float64
	MaxTokens             int
	EnableFunctionCalling bool
}

// New builds a Planner bound to client with the given request-level
// options.
func New(client *llmclient.Client, temperature float64, maxTokens int, enableFunctionCalling bool) *Planner {
	return &Planner{
		Client:                client,
		Temperature:           temperature,
		MaxTokens:             maxTokens,
		EnableFunctionCalling: enableFunctionCalling,
	}
}

// Plan issues one Planner LLM call for request at loopID (of maxLoops
// total), given the current memory and state snapshots, and returns a
// validated PlannerOutput.
func (p *Planner) Plan(ctx context.Context, request string, mem *memory.Store, s *state.State, loopID, maxLoops int) (state.PlannerOutput, error) {
	if detected := detectLoop(s); detected {
		logger.WarnCF("planner", "identical tool call repeated three times, breaking loop", map[string]any{"loop_id": loopID})
		return state.PlannerOutput{NeedTools: false, StopCondition: "loop_detected"}, nil
	}

	systemPrompt := buildSystemPrompt(mem, s, loopID, maxLoops)
	userMessage := buildUserMessage(request, s, loopID)

	messages := []llmclient.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userMessage},
	}

	var tools []llmclient.ToolDefinition
	if p.EnableFunctionCalling {
		tools = renderToolDefinitions()
	}

	resp, err := p.Client.Chat(ctx, messages, tools, llmclient.Options{
		Temperature:           p.Temperature,
		MaxTokens:             p.MaxTokens,
		EnableFunctionCalling: p.EnableFunctionCalling,
	})
	if err != nil {
		return state.PlannerOutput{}, err
	}

	out := parseResponse(resp)
	validate(&out)
	return out, nil
}

// detectLoop inspects state.History for an identical (tool_name, args)
// repeated three times with the same result, synthesising a stop without
// another LLM call.
func detectLoop(s *state.State) bool {
	sameResult := make(map[string]int)
	for _, rec := range s.History {
		for i, call := range rec.PlannerOutput.ToolCalls {
			if s.RepeatedCallCount(call.ToolName, call.Args) < 3 {
				continue
			}
			var tr toolrunner.ToolResult
			if i < len(rec.ToolResults) {
				tr = rec.ToolResults[i]
			}
			key := fmt.Sprintf("%s\x00%v\x00%v\x00%s\x00%s", call.ToolName, call.Args, tr.Success, tr.Output, tr.Error)
			sameResult[key]++
			if sameResult[key] >= 3 {
				return true
			}
		}
	}
	return false
}

func buildSystemPrompt(mem *memory.Store, s *state.State, loopID, maxLoops int) string {
	var b strings.Builder
	b.WriteString("You are the planning stage of a tool-using agent. Decide whether tools are needed to satisfy the user's request.\n\n")
	b.WriteString("Available tools:\n")
	b.WriteString(toolrunner.RenderTextCatalogue())
	b.WriteString("\nMemory:\n")
	b.WriteString(memory.RenderPrompt(mem.Snapshot()))
	b.WriteString(fmt.Sprintf("\n\nState: loop %d/%d, facts:%v, remaining:%v\n", loopID, maxLoops, s.Facts, s.RemainingTasks))
	b.WriteString("\nRespond with strict JSON: {\"need_tools\":bool,\"tool_calls\":[{\"tool_name\":string,\"args\":object}],\"reason_brief\":string,\"stop_condition\":string}\n")
	return b.String()
}

func buildUserMessage(request string, s *state.State, loopID int) string {
	if loopID <= 1 {
		return request
	}

	var b strings.Builder
	b.WriteString(request)
	b.WriteString("\n\nPrior loops:\n")
	for _, rec := range s.History {
		toolSummaries := make([]string, 0, len(rec.ToolResults))
		for _, tr := range rec.ToolResults {
			toolSummaries = append(toolSummaries, fmt.Sprintf("%s(success=%v)", tr.ToolName, tr.Success))
		}
		fmt.Fprintf(&b, "- loop %d: reason=%q tools=%v next_action=%q\n",
			rec.LoopID, rec.PlannerOutput.ReasonBrief, toolSummaries, rec.ResponderOutput.NextAction)
	}
	return b.String()
}

func renderToolDefinitions() []llmclient.ToolDefinition {
	out := make([]llmclient.ToolDefinition, 0, len(toolrunner.Catalogue))
	for _, d := range toolrunner.Catalogue {
		out = append(out, llmclient.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": d.Parameters,
				"required":   d.Required,
			},
		})
	}
	return out
}

// parseResponse implements the dual-mode parsing contract: prefer
// structured tool_calls, then strict JSON in text, then TOOL_CALL: blocks,
// then a parse-failure fallback.
func parseResponse(resp *llmclient.Response) state.PlannerOutput {
	if len(resp.ToolCalls) > 0 {
		calls := make([]toolrunner.ToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			calls = append(calls, toolrunner.ToolCall{ToolName: tc.Name, Args: tc.Arguments})
		}
		return state.PlannerOutput{NeedTools: true, ToolCalls: calls}
	}

	if obj := toolcallparse.FirstJSONObject(resp.Content); obj != "" {
		var out state.PlannerOutput
		dec := json.NewDecoder(strings.NewReader(obj))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err == nil {
			return out
		}
	}

	if blocks := toolcallparse.ExtractMarkerBlocks(resp.Content); len(blocks) > 0 {
		calls := make([]toolrunner.ToolCall, 0, len(blocks))
		for _, block := range blocks {
			var raw struct {
				Name string         `json:"name"`
				Args map[string]any `json:"args"`
			}
			if err := json.Unmarshal([]byte(block), &raw); err == nil {
				calls = append(calls, toolrunner.ToolCall{ToolName: raw.Name, Args: raw.Args})
			}
		}
		if len(calls) > 0 {
			return state.PlannerOutput{NeedTools: true, ToolCalls: calls}
		}
	}

	return state.PlannerOutput{NeedTools: false, ToolCalls: nil, ReasonBrief: resp.Content, StopCondition: "parse_failed"}
}

// validate drops calls naming unknown tools or unknown argument keys, per
// the Planner's validation contract.
func validate(out *state.PlannerOutput) {
	known := toolrunner.Names()
	kept := out.ToolCalls[:0:0]
	for _, call := range out.ToolCalls {
		if _, ok := known[call.ToolName]; !ok {
			logger.WarnCF("planner", "dropping unknown tool", map[string]any{"tool_name": call.ToolName})
			continue
		}
		call.Args = toolrunner.FilterKnownArgs(call.ToolName, call.Args)
		kept = append(kept, call)
	}
	out.ToolCalls = kept
	if !out.NeedTools {
		out.ToolCalls = nil
	}
}
