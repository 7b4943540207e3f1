package responder

import (
	"testing"

	"github.com/coreloop/agentcore/pkg/toolrunner"
	"github.com/stretchr/testify/assert"
)

func TestParseResponse_DetectsFinalAnswerBlock(t *testing.T) {
	out := parseResponse(`Here is the answer. {"is_final_answer": true}`)
	assert.True(t, out.IsFinalAnswer)
}

func TestParseResponse_NoBlockIsNotFinal(t *testing.T) {
	out := parseResponse(`I will now read the next file to continue.`)
	assert.False(t, out.IsFinalAnswer)
	assert.NotEmpty(t, out.NextAction)
}

func TestParseResponse_PlainTextWithoutImperativeHasNoNextAction(t *testing.T) {
	out := parseResponse(`The file contains three lines of configuration.`)
	assert.False(t, out.IsFinalAnswer)
	assert.Empty(t, out.NextAction)
}

func TestHasImperativePhrasing_DetectsFollowupLanguage(t *testing.T) {
	assert.True(t, HasImperativePhrasing("Next, I will check the other directory."))
	assert.False(t, HasImperativePhrasing("The directory contains two files."))
}

func TestBuildUserMessage_RendersToolResultFields(t *testing.T) {
	exitCode := 0
	results := []toolrunner.ToolResult{
		{ToolName: "read_file", ArgsEcho: map[string]any{"path": "a.txt"}, Success: true, ExitCode: &exitCode, Output: "hello"},
	}

	msg := buildUserMessage("read a.txt", results)
	assert.Contains(t, msg, "read_file")
	assert.Contains(t, msg, "success=true")
	assert.Contains(t, msg, "exit_code=0")
	assert.Contains(t, msg, "hello")
}

func TestBuildUserMessage_NoToolsExecuted(t *testing.T) {
	msg := buildUserMessage("just chat", nil)
	assert.Contains(t, msg, "No tools were executed")
}
