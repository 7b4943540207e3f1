// Package toolcallparse implements the textual tool-call fallback: a
// brace-balanced, string-literal-aware scanner that extracts the first
// JSON object from a Planner response, plus the "TOOL_CALL: {...}" marker
// format some models emit instead of a bare object.
//
// The teacher's own FindMatchingBrace counts every '{'/'}' byte regardless
// of string-literal context, so a quoted brace inside an argument value
// (e.g. a write_file content field containing "{}") desynchronises the
// depth counter and truncates the match. FindMatchingBrace here tracks
// whether the scanner is inside a string literal and ignores braces there,
// honouring backslash escapes.
package toolcallparse

import (
	"encoding/json"
	"strings"
)

// FindMatchingBrace returns the index just past the closing brace that
// matches the opening brace at text[start], scanning depth with string-
// literal awareness. It returns start unchanged if no match is found or if
// text[start] is not '{'.
func FindMatchingBrace(text string, start int) int {
	if start < 0 || start >= len(text) || text[start] != '{' {
		return start
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return start
}

// FirstJSONObject scans text for the first top-level '{' and returns the
// brace-balanced substring starting there, or "" if none is found.
func FirstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}
	end := FindMatchingBrace(text, start)
	if end == start {
		return ""
	}
	return text[start:end]
}

// toolCallMarker is the literal prefix of the textual fallback protocol:
// "TOOL_CALL: {...}".
const toolCallMarker = "TOOL_CALL:"

// ExtractMarkerBlocks finds every "TOOL_CALL: {...}" block in text and
// returns the brace-balanced JSON payload of each, in order of appearance.
func ExtractMarkerBlocks(text string) []string {
	var blocks []string
	rest := text
	offset := 0
	for {
		idx := strings.Index(rest, toolCallMarker)
		if idx == -1 {
			break
		}
		searchFrom := offset + idx + len(toolCallMarker)
		braceStart := strings.IndexByte(text[searchFrom:], '{')
		if braceStart == -1 {
			break
		}
		braceStart += searchFrom

		end := FindMatchingBrace(text, braceStart)
		if end == braceStart {
			break
		}
		blocks = append(blocks, text[braceStart:end])

		offset = end
		rest = text[offset:]
	}
	return blocks
}

// rawToolCall mirrors the wire shape of one TOOL_CALL: block, which carries
// the tool name under "name" rather than the strict-JSON contract's
// "tool_name".
type rawToolCall struct {
	ToolName string         `json:"name"`
	Args     map[string]any `json:"args"`
}

// ParseMarkerBlocksAsToolCalls decodes each TOOL_CALL: block in text into a
// rawToolCall, skipping blocks that fail to parse.
func ParseMarkerBlocksAsToolCalls(text string) []rawToolCall {
	var calls []rawToolCall
	for _, block := range ExtractMarkerBlocks(text) {
		var call rawToolCall
		if err := json.Unmarshal([]byte(block), &call); err != nil {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}
