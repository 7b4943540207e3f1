package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot())
}

func TestAppendFact_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.AppendFact(CategoryUserPreferences, "editor", "vim"))
	require.NoError(t, s.AppendFact(CategoryFacts, "repo_language", "go"))

	reloaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())
	assert.Equal(t, "vim", reloaded.Snapshot()[CategoryUserPreferences]["editor"])
}

func TestAppendFact_OverwritesExistingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.AppendFact(CategoryEnvironment, "os", "linux"))
	require.NoError(t, s.AppendFact(CategoryEnvironment, "os", "darwin"))

	assert.Equal(t, "darwin", s.Snapshot()[CategoryEnvironment]["os"])
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendFact(CategoryFacts, "k", "v"))

	snap := s.Snapshot()
	snap[CategoryFacts]["k"] = "mutated"

	assert.Equal(t, "v", s.Snapshot()[CategoryFacts]["k"])
}

func TestPersist_ProducesValidJSONDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendFact(CategoryRepeatedDecisions, "deploy_target", "staging"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "staging", decoded[CategoryRepeatedDecisions]["deploy_target"])
}

func TestRenderPrompt_OrdersKnownCategoriesFirst(t *testing.T) {
	snapshot := map[string]map[string]any{
		"zzz_custom":           {"x": 1},
		CategoryFacts:          {"b": "2"},
		CategoryUserPreferences: {"a": "1"},
	}

	rendered := RenderPrompt(snapshot)

	prefIdx := indexOf(rendered, CategoryUserPreferences)
	factsIdx := indexOf(rendered, CategoryFacts)
	customIdx := indexOf(rendered, "zzz_custom")

	assert.True(t, prefIdx < factsIdx)
	assert.True(t, factsIdx < customIdx)
}

func TestRenderPrompt_EmptySnapshot(t *testing.T) {
	assert.Equal(t, "(no stored memory)", RenderPrompt(nil))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
