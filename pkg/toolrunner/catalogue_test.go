package toolrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames_ContainsAllSixPrimitives(t *testing.T) {
	names := Names()
	for _, want := range []string{"list_dir", "read_file", "write_file", "edit_file", "exec_cmd", "grep"} {
		_, ok := names[want]
		assert.True(t, ok, "missing primitive %s", want)
	}
	assert.Len(t, names, 6)
}

func TestFilterKnownArgs_DropsUnknownKeys(t *testing.T) {
	filtered := FilterKnownArgs("read_file", map[string]any{
		"path":      "a.txt",
		"not_a_key": "bogus",
	})

	_, hasPath := filtered["path"]
	_, hasBogus := filtered["not_a_key"]
	assert.True(t, hasPath)
	assert.False(t, hasBogus)
}

func TestFilterKnownArgs_UnknownToolPassesThrough(t *testing.T) {
	args := map[string]any{"anything": "value"}
	assert.Equal(t, args, FilterKnownArgs("no_such_tool", args))
}

func TestRenderTextCatalogue_ListsEveryPrimitive(t *testing.T) {
	rendered := RenderTextCatalogue()
	for _, want := range []string{"list_dir", "read_file", "write_file", "edit_file", "exec_cmd", "grep"} {
		assert.Contains(t, rendered, want)
	}
}
