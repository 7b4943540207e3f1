package toolrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_Grep_SubstringMatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello\nworld\nhello again\n"), 0o644))

	r := newTestRunner(t, root)
	result := r.Execute(context.Background(), ToolCall{ToolName: "grep", Args: map[string]any{
		"pattern": "hello", "path": "a.txt",
	}}, 1)

	require.True(t, result.Success)
	assert.Contains(t, result.Output, "a.txt:1:hello")
	assert.Contains(t, result.Output, "a.txt:3:hello again")
	assert.NotContains(t, result.Output, ":2:world")
}

func TestExecute_Grep_RecursesDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("needle here\n"), 0o644))

	r := newTestRunner(t, root)
	result := r.Execute(context.Background(), ToolCall{ToolName: "grep", Args: map[string]any{
		"pattern": "needle", "path": ".",
	}}, 1)

	require.True(t, result.Success)
	assert.Contains(t, result.Output, "needle here")
}

func TestExecute_Grep_RegexpPattern(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v1.2.3\nnotaversion\n"), 0o644))

	r := newTestRunner(t, root)
	result := r.Execute(context.Background(), ToolCall{ToolName: "grep", Args: map[string]any{
		"pattern": `v\d+\.\d+\.\d+`, "path": "a.txt",
	}}, 1)

	require.True(t, result.Success)
	assert.Contains(t, result.Output, "v1.2.3")
	assert.NotContains(t, result.Output, "notaversion")
}
