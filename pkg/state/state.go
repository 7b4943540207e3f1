// Package state implements the per-conversation scratchpad threaded
// through one invocation of the loop controller: the loop counter, the
// accumulated facts and open tasks, the tool-result history, and the most
// recent result per tool. It is never persisted and never shared between
// requests.
package state

import (
	"fmt"

	"github.com/coreloop/agentcore/pkg/toolrunner"
)

// PlannerOutput is the strict-JSON contract returned by the Planner's LLM
// call. If NeedTools is false, ToolCalls must be empty.
type PlannerOutput struct {
	NeedTools     bool                  `json:"need_tools"`
	ToolCalls     []toolrunner.ToolCall `json:"tool_calls"`
	ReasonBrief   string                `json:"reason_brief"`
	StopCondition string                `json:"stop_condition"`

	// Delta fields the Planner may optionally emit to update State.
	NewFacts      []string `json:"new_facts,omitempty"`
	ResolvedTasks []string `json:"resolved_tasks,omitempty"`
	AddedTasks    []string `json:"added_tasks,omitempty"`
}

// ResponderOutput is the Responder's free-form reply plus its bookkeeping.
type ResponderOutput struct {
	Response      string `json:"response"`
	Summary       string `json:"summary"`
	NextAction    string `json:"next_action"`
	IsFinalAnswer bool   `json:"is_final_answer"`
}

// LoopRecord captures one complete iteration for inclusion in later prompts
// and for Planner loop-detection.
type LoopRecord struct {
	LoopID         int                      `json:"loop_id"`
	PlannerOutput  PlannerOutput            `json:"planner_output"`
	ToolResults    []toolrunner.ToolResult  `json:"tool_results"`
	ResponderOutput ResponderOutput         `json:"responder_output"`
}

// State is the per-request scratchpad. It is owned by a single run(request)
// invocation and must never be reused across requests.
type State struct {
	LoopCount       int
	History         []LoopRecord
	Facts           []string
	RemainingTasks  []string
	LastToolResults map[string]toolrunner.ToolResult

	factSet  map[string]struct{}
	taskSet  map[string]struct{}
}

// New returns an empty State, matching the "reset at the start of every
// top-level run(request)" lifecycle rule.
func New() *State {
	return &State{
		History:         nil,
		Facts:           nil,
		RemainingTasks:  nil,
		LastToolResults: make(map[string]toolrunner.ToolResult),
		factSet:         make(map[string]struct{}),
		taskSet:         make(map[string]struct{}),
	}
}

// RecordLoop appends rec to History and advances LoopCount, preserving the
// loop_count == len(history) invariant at the loop boundary. It also
// updates LastToolResults from rec.ToolResults.
func (s *State) RecordLoop(rec LoopRecord) {
	s.History = append(s.History, rec)
	s.LoopCount = len(s.History)

	for _, tr := range rec.ToolResults {
		s.LastToolResults[tr.ToolName] = tr
	}
}

// AddFacts appends new facts to Facts, deduplicating by exact string match
// and preserving insertion order.
func (s *State) AddFacts(facts []string) {
	for _, f := range facts {
		if f == "" {
			continue
		}
		if _, ok := s.factSet[f]; ok {
			continue
		}
		s.factSet[f] = struct{}{}
		s.Facts = append(s.Facts, f)
	}
}

// AddTasks appends new open subgoals, deduplicating by exact string match.
func (s *State) AddTasks(tasks []string) {
	for _, t := range tasks {
		if t == "" {
			continue
		}
		if _, ok := s.taskSet[t]; ok {
			continue
		}
		s.taskSet[t] = struct{}{}
		s.RemainingTasks = append(s.RemainingTasks, t)
	}
}

// ResolveTasks removes tasks from RemainingTasks that match resolved by
// exact string value.
func (s *State) ResolveTasks(resolved []string) {
	if len(resolved) == 0 || len(s.RemainingTasks) == 0 {
		return
	}
	done := make(map[string]struct{}, len(resolved))
	for _, r := range resolved {
		done[r] = struct{}{}
	}

	kept := s.RemainingTasks[:0:0]
	for _, t := range s.RemainingTasks {
		if _, ok := done[t]; ok {
			delete(s.taskSet, t)
			continue
		}
		kept = append(kept, t)
	}
	s.RemainingTasks = kept
}

// ApplyPlannerDelta folds a PlannerOutput's optional new_facts/added_tasks/
// resolved_tasks fields into State, in that order.
func (s *State) ApplyPlannerDelta(out PlannerOutput) {
	s.AddFacts(out.NewFacts)
	s.AddTasks(out.AddedTasks)
	s.ResolveTasks(out.ResolvedTasks)
}

// RepeatedCallCount returns how many times (toolName, args) appears in
// History with an identical argument map, used by the Planner's internal
// loop detector (three identical repeats with the same result).
func (s *State) RepeatedCallCount(toolName string, args map[string]any) int {
	count := 0
	for _, rec := range s.History {
		for _, call := range rec.PlannerOutput.ToolCalls {
			if call.ToolName == toolName && argsEqual(call.Args, args) {
				count++
			}
		}
	}
	return count
}

func argsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if fmtValue(v) != fmtValue(bv) {
			return false
		}
	}
	return true
}

func fmtValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
