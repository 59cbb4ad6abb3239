package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepMergeNestedMappings(t *testing.T) {
	base := map[string]any{"a": 1, "b": map[string]any{"c": 2}}
	overlay := map[string]any{"b": map[string]any{"c": 3, "d": 4}}

	merged := DeepMerge(base, overlay)
	assert.Equal(t, map[string]any{
		"a": 1,
		"b": map[string]any{"c": 3, "d": 4},
	}, merged)
}

func TestDeepMergeListsReplaced(t *testing.T) {
	base := map[string]any{"ports": []any{80, 443}}
	overlay := map[string]any{"ports": []any{8080}}

	merged := DeepMerge(base, overlay)
	assert.Equal(t, []any{8080}, merged["ports"])
}

func TestDeepMergeTypeConflictTakesOverlay(t *testing.T) {
	base := map[string]any{"replicas": map[string]any{"min": 1}}
	overlay := map[string]any{"replicas": 3}

	merged := DeepMerge(base, overlay)
	assert.Equal(t, 3, merged["replicas"])
}

func TestDeepMergeEmptyOverlay(t *testing.T) {
	base := map[string]any{"a": 1, "b": map[string]any{"c": 2}}

	merged := DeepMerge(base, map[string]any{})
	assert.Equal(t, base, merged)
}

func TestDeepMergeDoesNotMutateInputs(t *testing.T) {
	base := map[string]any{"nested": map[string]any{"kept": true}}
	overlay := map[string]any{"nested": map[string]any{"added": 1}}

	merged := DeepMerge(base, overlay)
	require.Contains(t, merged["nested"], "added")

	assert.NotContains(t, base["nested"], "added")
	assert.NotContains(t, overlay["nested"], "kept")

	// Mutating the result must not leak back into either input.
	merged["nested"].(map[string]any)["kept"] = false
	assert.Equal(t, true, base["nested"].(map[string]any)["kept"])
}

func TestMergeStringMapsOverlayWins(t *testing.T) {
	a := map[string]string{"X": "1", "Y": "2"}
	b := map[string]string{"Y": "3", "Z": "4"}

	assert.Equal(t, map[string]string{"X": "1", "Y": "3", "Z": "4"}, mergeStringMaps(a, b))
	assert.Equal(t, "2", a["Y"])
}
