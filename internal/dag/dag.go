// Package dag provides a small directed graph for ordering constraints.
// An edge a -> b reads "a must happen before b". It supports cycle
// detection, topological sorting and ancestor queries.
package dag

import (
	"fmt"
	"sort"
)

// Node represents a node in the graph.
type Node[T any] struct {
	// ID is the unique identifier
	ID string
	// Data holds the payload, typically the step the node stands for
	Data T
}

// Edge is a "before" constraint between two nodes.
type Edge struct {
	From string
	To   string
}

// Graph is a directed graph keyed by node ID.
type Graph[T any] struct {
	nodes   map[string]*Node[T]
	order   []string            // insertion order
	edges   map[string][]string // before -> after
	parents map[string][]string // after -> before
}

// New creates an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:   make(map[string]*Node[T]),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one.
func (g *Graph[T]) AddNode(id string, data T) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node[T]{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge records that from must precede to.
func (g *Graph[T]) AddEdge(from, to string) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("node %q does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("node %q does not exist", to)
	}
	if from == to {
		return fmt.Errorf("self-loop detected: %s", from)
	}

	if !contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
		g.parents[to] = append(g.parents[to], from)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph[T]) Node(id string) (*Node[T], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parents returns the nodes that must precede id.
func (g *Graph[T]) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the nodes that must follow id.
func (g *Graph[T]) Children(id string) []string {
	return g.edges[id]
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph[T]) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// Edges returns every edge, grouped by source in insertion order.
func (g *Graph[T]) Edges() []Edge {
	var out []Edge
	for _, from := range g.order {
		for _, to := range g.edges[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// HasCycle reports whether the graph contains a cycle, along with its path.
func (g *Graph[T]) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	via := make(map[string]string)

	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, next := range g.edges[id] {
			if !visited[next] {
				via[next] = id
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cycle = []string{next}
				for curr := id; curr != next; curr = via[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{next}, cycle...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalSort returns the nodes in an order satisfying every edge.
// Ties are broken by insertion order, so a graph whose edges all point
// forward in insertion order sorts back to that order.
func (g *Graph[T]) TopologicalSort() ([]*Node[T], error) {
	if hasCycle, path := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", path)
	}

	visited := make(map[string]bool)
	result := make([]*Node[T], 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, p := range g.parents[id] {
			visit(p)
		}
		result = append(result, g.nodes[id])
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// Ancestors returns every node that must transitively precede id, sorted.
func (g *Graph[T]) Ancestors(id string) []string {
	seen := make(map[string]bool)

	var walk func(nodeID string)
	walk = func(nodeID string) {
		for _, p := range g.parents[nodeID] {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(id)

	out := make([]string, 0, len(seen))
	for nodeID := range seen {
		out = append(out, nodeID)
	}
	sort.Strings(out)
	return out
}

// Roots returns nodes with no predecessors, in insertion order.
func (g *Graph[T]) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
