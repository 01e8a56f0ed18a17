package depgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSort(t *testing.T) {
	g := NewGraph(map[string][]string{
		"Make":      {"Survey", "Analytics"},
		"Survey":    {},
		"Analytics": {"Survey"},
		"Lint":      {},
		"Deploy":    {"Make", "Missing"},
	})

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"Lint", "Survey", "Analytics", "Make", "Deploy"}, sorted)
}

func TestTopologicalSortDeterministic(t *testing.T) {
	deps := map[string][]string{"c": {}, "b": {}, "a": {}, "d": {"a", "b", "c"}}
	first, err := NewGraph(deps).TopologicalSort()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := NewGraph(deps).TopologicalSort()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, first)
}

func TestDetectCycles(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		g := NewGraph(map[string][]string{"a": {"b"}, "b": {}})
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("cycle path", func(t *testing.T) {
		g := NewGraph(map[string][]string{
			"a": {"b"},
			"b": {"c"},
			"c": {"a"},
			"d": {"a"},
		})
		err := g.DetectCycles()
		require.Error(t, err)

		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
		assert.Contains(t, err.Error(), "a -> b -> c -> a")
	})

	t.Run("self dependency", func(t *testing.T) {
		g := NewGraph(map[string][]string{"a": {"a"}})
		var cycle *CycleError
		require.True(t, errors.As(g.DetectCycles(), &cycle))
		assert.Equal(t, []string{"a", "a"}, cycle.Path)
	})

	t.Run("sort reports the cycle", func(t *testing.T) {
		g := NewGraph(map[string][]string{"x": {"y"}, "y": {"x"}})
		_, err := g.TopologicalSort()
		var cycle *CycleError
		assert.True(t, errors.As(err, &cycle))
	})
}

func TestSubgraph(t *testing.T) {
	g := NewGraph(map[string][]string{"a": {"b", "c"}, "b": {"c"}, "c": {}})
	sub := g.Subgraph(map[string]bool{"a": true, "c": true, "zzz": true})
	assert.Equal(t, []string{"a", "c"}, sub.Nodes())

	sorted, err := sub.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sorted)
}
