package toolcallparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindMatchingBrace_SimpleObject(t *testing.T) {
	text := `prefix {"a":1} suffix`
	start := 7
	end := FindMatchingBrace(text, start)
	assert.Equal(t, `{"a":1}`, text[start:end])
}

func TestFindMatchingBrace_NestedObject(t *testing.T) {
	text := `{"a":{"b":1},"c":2}`
	end := FindMatchingBrace(text, 0)
	assert.Equal(t, text, text[0:end])
}

func TestFindMatchingBrace_IgnoresBracesInsideStrings(t *testing.T) {
	text := `{"content":"this has a { brace } inside a string"}`
	end := FindMatchingBrace(text, 0)
	assert.Equal(t, text, text[0:end])
}

func TestFindMatchingBrace_HonoursEscapedQuotes(t *testing.T) {
	text := `{"content":"quote \" then brace {"}`
	end := FindMatchingBrace(text, 0)
	assert.Equal(t, text, text[0:end])
}

func TestFindMatchingBrace_NoMatchReturnsStart(t *testing.T) {
	text := `{"unterminated": true`
	end := FindMatchingBrace(text, 0)
	assert.Equal(t, 0, end)
}

func TestFirstJSONObject_FindsFirstTopLevelObject(t *testing.T) {
	text := `some preamble {"need_tools":true} trailing text`
	obj := FirstJSONObject(text)
	assert.Equal(t, `{"need_tools":true}`, obj)
}

func TestFirstJSONObject_NoObjectReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", FirstJSONObject("no braces here"))
}

func TestExtractMarkerBlocks_SingleBlock(t *testing.T) {
	text := `TOOL_CALL: {"name":"read_file","args":{"path":"a.txt"}}`
	blocks := ExtractMarkerBlocks(text)
	assert.Equal(t, []string{`{"name":"read_file","args":{"path":"a.txt"}}`}, blocks)
}

func TestExtractMarkerBlocks_MultipleBlocks(t *testing.T) {
	text := `TOOL_CALL: {"name":"a","args":{}}
some text
TOOL_CALL: {"name":"b","args":{}}`
	blocks := ExtractMarkerBlocks(text)
	assert.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], `"a"`)
	assert.Contains(t, blocks[1], `"b"`)
}

func TestExtractMarkerBlocks_BraceInStringDoesNotConfuseScan(t *testing.T) {
	text := `TOOL_CALL: {"name":"write_file","args":{"path":"x.json","content":"{}"}}`
	blocks := ExtractMarkerBlocks(text)
	require := assert.New(t)
	require.Len(blocks, 1)
	require.Contains(blocks[0], `"content":"{}"`)
}

func TestParseMarkerBlocksAsToolCalls(t *testing.T) {
	text := `TOOL_CALL: {"name":"list_dir","args":{"path":"."}}`
	calls := ParseMarkerBlocksAsToolCalls(text)
	assert.Len(t, calls, 1)
	assert.Equal(t, "list_dir", calls[0].ToolName)
	assert.Equal(t, ".", calls[0].Args["path"])
}

func TestParseMarkerBlocksAsToolCalls_SkipsUnparsable(t *testing.T) {
	text := `TOOL_CALL: {not valid json}`
	calls := ParseMarkerBlocksAsToolCalls(text)
	assert.Empty(t, calls)
}
