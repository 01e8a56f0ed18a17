// Package depgraph orders build types along their snapshot dependencies.
package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is a snapshot dependency DAG: each node maps to the nodes it depends
// on. Edges to ids that are not nodes are ignored.
type Graph struct {
	deps map[string][]string
}

// NewGraph creates a new dependency graph
func NewGraph(deps map[string][]string) *Graph {
	return &Graph{deps: deps}
}

// CycleError reports a dependency cycle; Path starts and ends at the same node
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in snapshot dependencies: %s", strings.Join(e.Path, " -> "))
}

// Nodes returns all node ids, sorted
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.deps))
	for id := range g.deps {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// DetectCycles performs cycle detection on the dependency graph using DFS.
// Nodes are visited in sorted order so the reported cycle is stable.
func (g *Graph) DetectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var stack []string

	for _, id := range g.Nodes() {
		if !visited[id] {
			if path := g.cycleDFS(id, visited, recStack, &stack); path != nil {
				return &CycleError{Path: path}
			}
		}
	}

	return nil
}

// cycleDFS performs DFS cycle detection from a given node and returns the
// cycle path if one is found
func (g *Graph) cycleDFS(node string, visited, recStack map[string]bool, stack *[]string) []string {
	visited[node] = true
	recStack[node] = true
	*stack = append(*stack, node)

	for _, dep := range g.deps[node] {
		if _, exists := g.deps[dep]; !exists {
			continue
		}
		if !visited[dep] {
			if path := g.cycleDFS(dep, visited, recStack, stack); path != nil {
				return path
			}
		} else if recStack[dep] {
			for i, id := range *stack {
				if id == dep {
					path := append([]string(nil), (*stack)[i:]...)
					return append(path, dep)
				}
			}
		}
	}

	*stack = (*stack)[:len(*stack)-1]
	recStack[node] = false
	return nil
}

// TopologicalSort performs topological sorting using Kahn's algorithm.
// Dependencies come before their dependents; ties are broken by id.
func (g *Graph) TopologicalSort() ([]string, error) {
	// Build reverse dependency graph (dependents: who depends on me)
	dependents := make(map[string][]string)
	inDegree := make(map[string]int)

	for id := range g.deps {
		inDegree[id] = 0
	}

	for id, deps := range g.deps {
		seen := make(map[string]bool)
		for _, dep := range deps {
			if _, exists := g.deps[dep]; !exists || seen[dep] {
				continue
			}
			seen[dep] = true
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	// Kahn's algorithm: process nodes with no dependencies first
	ready := make([]string, 0)
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	sorted := make([]string, 0, len(g.deps))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		sorted = append(sorted, current)

		released := false
		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(sorted) != len(g.deps) {
		if err := g.DetectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to topologically sort: possible cycle detected")
	}

	return sorted, nil
}

// Subgraph keeps only the given nodes and the edges between them
func (g *Graph) Subgraph(keep map[string]bool) *Graph {
	deps := make(map[string][]string, len(keep))
	for id := range keep {
		if _, exists := g.deps[id]; !exists {
			continue
		}
		kept := make([]string, 0)
		for _, dep := range g.deps[id] {
			if keep[dep] {
				kept = append(kept, dep)
			}
		}
		deps[id] = kept
	}
	return NewGraph(deps)
}
