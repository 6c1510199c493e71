// Package dag provides the dependency graph used to order control-network
// instances for evaluation. Node insertion order is significant: it is the
// tie-breaker that makes the topological order a pure function of the graph.
package dag

import (
	"fmt"
)

// node is a single vertex in the graph. index records insertion (declaration)
// order and breaks ties during topological sorting.
type node struct {
	id         string
	index      int
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a directed acyclic dependency graph over string node IDs.
type Graph struct {
	nodes map[string]*node
	seq   []*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}

	n := &node{
		id:         id,
		index:      len(g.seq),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.nodes[id] = n
	g.seq = append(g.seq, n)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Duplicate edges
// are collapsed. An error is returned if either node does not exist or if
// the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.seq)
}

// TopoSort returns the node IDs in topological order: for every edge, the
// source appears before the destination. Among nodes that are ready at the
// same time, insertion order wins, so the result is independent of map
// iteration and identical across runs. An error is returned if the graph
// contains a cycle.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, n := range g.seq {
		indegree[n.id] = len(n.deps)
	}

	ordered := make([]string, 0, len(g.seq))
	done := make(map[string]bool, len(g.seq))

	for len(ordered) < len(g.seq) {
		selected := ""
		for _, n := range g.seq {
			if !done[n.id] && indegree[n.id] == 0 {
				selected = n.id
				break
			}
		}
		if selected == "" {
			return nil, fmt.Errorf("no selectable node after ordering %d of %d: graph contains a cycle", len(ordered), len(g.seq))
		}

		done[selected] = true
		ordered = append(ordered, selected)
		for _, dep := range g.nodes[selected].dependents {
			indegree[dep.id]--
		}
	}

	return ordered, nil
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	// Classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil // Already visited and known to be safe.
		}
		if temporary[n.id] {
			// We've hit a node that's already in our recursion stack, so we have a cycle.
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true

		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}

		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	// Visit in insertion order so error messages are stable.
	for _, n := range g.seq {
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}
