package toolrunner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coreloop/agentcore/pkg/audit"
	"github.com/coreloop/agentcore/pkg/constraints"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecute_OutputLength_ReportsPreTruncationSize covers the 10000-byte
// output / max_output_size=1000 scenario: output_length must reflect the
// size before truncation, not the truncated Output field's length.
func TestExecute_OutputLength_ReportsPreTruncationSize(t *testing.T) {
	root := t.TempDir()
	content := strings.Repeat("x", 10000)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(content), 0o644))

	c, err := constraints.New(root, nil, 5, 1000)
	require.NoError(t, err)
	log, err := audit.Open(filepath.Join(root, "audit.jsonl"))
	require.NoError(t, err)
	r := NewRunner(c, log)

	result := r.Execute(context.Background(), ToolCall{ToolName: "read_file", Args: map[string]any{"path": "big.txt"}}, 1)

	require.True(t, result.Success)
	assert.Equal(t, 10000, result.OutputLength)
	assert.Less(t, len(result.Output), 10000)
}
