package constraints

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath_ConfinesToRoot(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, nil, 30, 4096)
	require.NoError(t, err)

	resolved, ok, reason := c.ValidatePath("notes/todo.txt")
	assert.True(t, ok)
	assert.Empty(t, reason)
	assert.True(t, strings.HasPrefix(resolved, c.AllowedRoot))
}

func TestValidatePath_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, nil, 30, 4096)
	require.NoError(t, err)

	_, ok, reason := c.ValidatePath("../../etc/passwd")
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestValidatePath_RejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	c, err := New(root, nil, 30, 4096)
	require.NoError(t, err)

	_, ok, _ := c.ValidatePath("escape/secret.txt")
	assert.False(t, ok)
}

func TestValidatePath_UnrestrictedRoot(t *testing.T) {
	c, err := New("/", nil, 30, 4096)
	require.NoError(t, err)

	_, ok, _ := c.ValidatePath("/etc/passwd")
	assert.True(t, ok)
}

func TestValidatePath_AllowsNonexistentWriteTarget(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	c, err := New(root, nil, 30, 4096)
	require.NoError(t, err)

	_, ok, reason := c.ValidatePath("sub/new_file.txt")
	assert.True(t, ok, reason)
}

func TestValidateCommand_EmptyAllowlistAcceptsAll(t *testing.T) {
	c, err := New(t.TempDir(), nil, 30, 4096)
	require.NoError(t, err)

	ok, _ := c.ValidateCommand("rm -rf /")
	assert.True(t, ok)
}

func TestValidateCommand_AllowlistRestricts(t *testing.T) {
	c, err := New(t.TempDir(), []string{"ls", "cat", "grep"}, 30, 4096)
	require.NoError(t, err)

	ok, _ := c.ValidateCommand("ls -la")
	assert.True(t, ok)

	ok, reason := c.ValidateCommand("rm -rf /")
	assert.False(t, ok)
	assert.Contains(t, reason, "rm")
}

func TestValidateCommand_EmptyCommand(t *testing.T) {
	c, err := New(t.TempDir(), []string{"ls"}, 30, 4096)
	require.NoError(t, err)

	ok, reason := c.ValidateCommand("   ")
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestEffectiveTimeout(t *testing.T) {
	c, err := New(t.TempDir(), nil, 30, 4096)
	require.NoError(t, err)

	assert.Equal(t, 30, c.EffectiveTimeout(0))
	assert.Equal(t, 30, c.EffectiveTimeout(-5))
	assert.Equal(t, 10, c.EffectiveTimeout(10))
	assert.Equal(t, 30, c.EffectiveTimeout(120))
}

func TestTruncateOutput_PassesThroughShortInput(t *testing.T) {
	assert.Equal(t, "hello", TruncateOutput("hello", 100))
}

func TestTruncateOutput_SplitsPrefixAndSuffix(t *testing.T) {
	s := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	out := TruncateOutput(s, 40)

	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 20)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 20)))
	assert.Contains(t, out, "chars hidden")
	assert.Contains(t, out, "60")
}

func TestTruncateOutput_ZeroCapIsNoop(t *testing.T) {
	assert.Equal(t, "anything", TruncateOutput("anything", 0))
}

func TestTruncateOutput_IsIdempotent(t *testing.T) {
	s := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	once := TruncateOutput(s, 40)
	twice := TruncateOutput(once, 40)

	assert.Equal(t, once, twice)
}
