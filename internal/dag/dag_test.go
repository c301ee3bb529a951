package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(t *testing.T, ids ...string) *Graph[int] {
	t.Helper()
	g := New[int]()
	for i, id := range ids {
		g.AddNode(id, i)
	}
	for i := 1; i < len(ids); i++ {
		require.NoError(t, g.AddEdge(ids[i-1], ids[i]))
	}
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := chain(t, "a", "b", "c")
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.EdgeCount())

	g.AddNode("a", 42)
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, 42, n.Data)
	assert.Equal(t, 3, g.Len(), "re-adding a node replaces its data")
}

func TestGraph_AddEdge_Errors(t *testing.T) {
	g := New[string]()
	g.AddNode("a", "")

	tests := []struct {
		name     string
		from, to string
	}{
		{"missing target", "a", "nope"},
		{"missing source", "nope", "a"},
		{"self loop", "a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, g.AddEdge(tt.from, tt.to))
		})
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := chain(t, "a", "b")
	require.NoError(t, g.AddEdge("a", "b"))
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"a"}, g.Parents("b"))
	assert.Equal(t, []string{"b"}, g.Children("a"))
}

func TestGraph_Edges(t *testing.T) {
	g := chain(t, "a", "b", "c")
	require.NoError(t, g.AddEdge("a", "c"))
	assert.Equal(t, []Edge{{"a", "b"}, {"a", "c"}, {"b", "c"}}, g.Edges())
}

func TestGraph_HasCycle(t *testing.T) {
	g := chain(t, "a", "b", "c")
	has, _ := g.HasCycle()
	assert.False(t, has)

	require.NoError(t, g.AddEdge("c", "a"))
	has, path := g.HasCycle()
	assert.True(t, has)
	assert.Equal(t, path[0], path[len(path)-1])
	assert.Len(t, path, 4)
}

func TestGraph_TopologicalSort(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{"insertion order when unconstrained", []string{"c", "a", "b"}, nil, []string{"c", "a", "b"}},
		{"forward edges keep order", []string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"b", "c"}}, []string{"a", "b", "c"}},
		{"backward edge reorders", []string{"a", "b", "c"}, [][2]string{{"c", "a"}}, []string{"c", "a", "b"}},
		{"diamond", []string{"d", "b", "c", "a"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[struct{}]()
			for _, id := range tt.nodes {
				g.AddNode(id, struct{}{})
			}
			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}
			nodes, err := g.TopologicalSort()
			require.NoError(t, err)

			got := make([]string, len(nodes))
			for i, n := range nodes {
				got[i] = n.ID
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGraph_TopologicalSort_Cycle(t *testing.T) {
	g := chain(t, "a", "b")
	require.NoError(t, g.AddEdge("b", "a"))
	_, err := g.TopologicalSort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestGraph_AncestorsAndRoots(t *testing.T) {
	g := chain(t, "a", "b", "c")
	g.AddNode("x", 0)
	require.NoError(t, g.AddEdge("x", "c"))

	assert.Equal(t, []string{"a", "b", "x"}, g.Ancestors("c"))
	assert.Empty(t, g.Ancestors("a"))
	assert.Equal(t, []string{"a", "x"}, g.Roots())
}
