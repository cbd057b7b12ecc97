package graph

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/kbukum/flowgraph/dag"
	"github.com/kbukum/flowgraph/errors"
)

// Index is the adjacency view of a document. It is read-only once built and
// safe for concurrent use.
type Index struct {
	doc      *Document
	byID     map[string]int
	out      map[string][]Edge
	in       map[string][]Edge
	children map[string][]string
	parents  map[string][]string
}

// NewIndex checks the document contract (unique node ids, edges that name
// existing nodes and declared ports) and builds the adjacency maps.
//
// Outgoing edges are ordered by the numeric suffix of their source port, so
// output10 follows output2. Ports without a suffix come first; ties keep
// document order.
func NewIndex(doc *Document) (*Index, error) {
	idx := &Index{
		doc:      doc,
		byID:     make(map[string]int, len(doc.Nodes)),
		out:      make(map[string][]Edge),
		in:       make(map[string][]Edge),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}

	for i, n := range doc.Nodes {
		if _, dup := idx.byID[n.ID]; dup {
			return nil, errors.DuplicateNode(n.ID)
		}
		idx.byID[n.ID] = i
	}

	for _, e := range doc.Edges {
		if err := idx.checkEndpoint(e.ID, e.Source); err != nil {
			return nil, err
		}
		if err := idx.checkEndpoint(e.ID, e.Target); err != nil {
			return nil, err
		}
		idx.out[e.Source.Cell] = append(idx.out[e.Source.Cell], e)
		idx.in[e.Target.Cell] = append(idx.in[e.Target.Cell], e)
		idx.parents[e.Target.Cell] = append(idx.parents[e.Target.Cell], e.Source.Cell)
	}

	for id, edges := range idx.out {
		slices.SortStableFunc(edges, func(a, b Edge) int {
			return comparePorts(a.Source.Port, b.Source.Port)
		})
		targets := make([]string, len(edges))
		for i, e := range edges {
			targets[i] = e.Target.Cell
		}
		idx.children[id] = targets
	}
	return idx, nil
}

func (idx *Index) checkEndpoint(edgeID string, ep Endpoint) error {
	i, ok := idx.byID[ep.Cell]
	if !ok {
		return errors.UnknownNode(edgeID, ep.Cell)
	}
	if ep.Port == "" {
		return nil
	}
	if _, ok := idx.doc.Nodes[i].Port(ep.Port); !ok {
		return errors.UnknownPort(edgeID, ep.Cell, ep.Port)
	}
	return nil
}

// Document returns the indexed document.
func (idx *Index) Document() *Document { return idx.doc }

// Node returns the node with the given id.
func (idx *Index) Node(id string) (Node, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Node{}, false
	}
	return idx.doc.Nodes[i], true
}

// Children returns target node ids in port order.
func (idx *Index) Children(id string) []string { return idx.children[id] }

// Parents returns source node ids in document order.
func (idx *Index) Parents(id string) []string { return idx.parents[id] }

// Out returns outgoing edges in port order.
func (idx *Index) Out(id string) []Edge { return idx.out[id] }

// In returns incoming edges in document order.
func (idx *Index) In(id string) []Edge { return idx.in[id] }

// Reachable lists the nodes reachable from id, id included, in depth-first
// preorder following child order.
func (idx *Index) Reachable(id string) []string {
	if _, ok := idx.byID[id]; !ok {
		return nil
	}
	seen := map[string]bool{}
	var order []string
	var visit func(string)
	visit = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)
		for _, c := range idx.children[n] {
			visit(c)
		}
	}
	visit(id)
	return order
}

// Subgraph builds a dependency graph over the given nodes and the edges
// between them.
func (idx *Index) Subgraph(ids []string) *dag.Graph {
	g := dag.New()
	in := make(map[string]bool, len(ids))
	for _, id := range ids {
		g.AddNode(id)
		in[id] = true
	}
	for _, id := range ids {
		for _, c := range idx.children[id] {
			if in[c] {
				// Both endpoints were added above.
				_ = g.AddEdge(id, c)
			}
		}
	}
	return g
}

// PortNumber returns the trailing decimal number of a port id, e.g. 10 for
// "output10".
func PortNumber(port string) (int, bool) {
	i := len(port)
	for i > 0 && port[i-1] >= '0' && port[i-1] <= '9' {
		i--
	}
	if i == len(port) {
		return 0, false
	}
	n, err := strconv.Atoi(port[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func comparePorts(a, b string) int {
	na, oka := PortNumber(a)
	nb, okb := PortNumber(b)
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return -1
	case !okb:
		return 1
	}
	return cmp.Compare(na, nb)
}
