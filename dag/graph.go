package dag

import (
	"fmt"
	"strings"
)

// Graph declares nodes and directed edges. Node order is preserved so that
// levels and cycle paths come out the same on every run.
type Graph struct {
	nodes []string
	index map[string]int
	Edges []Edge
}

// Edge represents a dependency: To runs after From.
type Edge struct {
	From string
	To   string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode registers a node; adding the same name twice is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge records from -> to. Both endpoints must already be nodes.
func (g *Graph) AddEdge(from, to string) error {
	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("dag: edge references unknown node %q", from)
	}
	if _, ok := g.index[to]; !ok {
		return fmt.Errorf("dag: edge references unknown node %q", to)
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to})
	return nil
}

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// CycleError is returned when the graph is not acyclic.
type CycleError struct {
	// Path lists one cycle, first node repeated at the end.
	Path []string
	// Blocked lists every node Kahn's algorithm could not schedule.
	Blocked []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dag: cycle detected: %s", strings.Join(e.Path, " -> "))
}

// BuildLevels uses Kahn's algorithm to group nodes by dependency level.
// Nodes within a level keep insertion order. Returns a *CycleError when
// some nodes can never reach in-degree zero.
func BuildLevels(g *Graph) ([][]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string)

	for _, e := range g.Edges {
		inDegree[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var queue []string
	for _, name := range g.nodes {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var levels [][]string
	visited := 0

	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(g.nodes) {
		var blocked []string
		for _, name := range g.nodes {
			if inDegree[name] > 0 {
				blocked = append(blocked, name)
			}
		}
		return nil, &CycleError{Path: FindCycle(g), Blocked: blocked}
	}

	return levels, nil
}
