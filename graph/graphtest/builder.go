// Package graphtest builds canvas documents for tests.
package graphtest

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/flowgraph/graph"
)

// Builder assembles a document node by node. Methods panic on misuse since
// they only run inside tests.
type Builder struct {
	doc   graph.Document
	edges int
}

// New returns an empty builder.
func New() *Builder { return &Builder{} }

// Start adds the entry sentinel with a single output port.
func (b *Builder) Start() *Builder {
	return b.add(graph.Node{ID: graph.StartID, Kind: graph.KindStart, Ports: []graph.Port{out("output")}})
}

// End adds an End node with a single input port.
func (b *Builder) End(id string) *Builder {
	return b.add(graph.Node{ID: id, Kind: graph.KindEnd, Ports: []graph.Port{in("input")}})
}

// Program adds a saved program node with a valid configuration for its kind.
func (b *Builder) Program(id string, kind graph.Kind) *Builder {
	p := SamplePayload(kind)
	p["hasDetailSaved"] = true
	return b.ProgramWith(id, kind, p)
}

// ProgramWith adds a program node with the given payload; nil leaves it empty.
func (b *Builder) ProgramWith(id string, kind graph.Kind, payload map[string]any) *Builder {
	n := graph.Node{ID: id, Kind: kind, Ports: []graph.Port{in("input"), out("output")}}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			panic(err)
		}
		n.Payload = raw
	}
	return b.add(n)
}

// Shell adds a saved Shell node.
func (b *Builder) Shell(id string) *Builder { return b.Program(id, graph.KindShell) }

// Fork adds a fork with ports input and output1..outputN.
func (b *Builder) Fork(id string, outputs int) *Builder {
	ports := []graph.Port{in("input")}
	for i := 1; i <= outputs; i++ {
		ports = append(ports, out(fmt.Sprintf("output%d", i)))
	}
	return b.add(graph.Node{ID: id, Kind: graph.KindFork, Ports: ports})
}

// Join adds a join with ports input1..inputN and output.
func (b *Builder) Join(id string, inputs int) *Builder {
	var ports []graph.Port
	for i := 1; i <= inputs; i++ {
		ports = append(ports, in(fmt.Sprintf("input%d", i)))
	}
	ports = append(ports, out("output"))
	return b.add(graph.Node{ID: id, Kind: graph.KindJoin, Ports: ports})
}

// Node adds an arbitrary node.
func (b *Builder) Node(n graph.Node) *Builder { return b.add(n) }

// Link connects from.fromPort to to.toPort.
func (b *Builder) Link(from, fromPort, to, toPort string) *Builder {
	b.edges++
	b.doc.Edges = append(b.doc.Edges, graph.Edge{
		ID:     fmt.Sprintf("e%d", b.edges),
		Source: graph.Endpoint{Cell: from, Port: fromPort},
		Target: graph.Endpoint{Cell: to, Port: toPort},
	})
	return b
}

// Chain links each consecutive pair output -> input.
func (b *Builder) Chain(ids ...string) *Builder {
	for i := 1; i < len(ids); i++ {
		b.Link(ids[i-1], "output", ids[i], "input")
	}
	return b
}

// Branch links fork output{n} to the input of target.
func (b *Builder) Branch(fork string, n int, target string) *Builder {
	return b.Link(fork, fmt.Sprintf("output%d", n), target, "input")
}

// Merge links the output of source to join input{n}.
func (b *Builder) Merge(source string, join string, n int) *Builder {
	return b.Link(source, "output", join, fmt.Sprintf("input%d", n))
}

// Named sets the document metadata defaults.
func (b *Builder) Named(workflow, system string) *Builder {
	b.doc.WorkflowName = workflow
	b.doc.SystemName = system
	return b
}

// Doc returns a copy of the document built so far.
func (b *Builder) Doc() *graph.Document {
	doc := b.doc
	doc.Nodes = append([]graph.Node(nil), b.doc.Nodes...)
	doc.Edges = append([]graph.Edge(nil), b.doc.Edges...)
	return &doc
}

// JSON encodes the document in the bare cells shape.
func (b *Builder) JSON() []byte {
	raw, err := b.Doc().Encode()
	if err != nil {
		panic(err)
	}
	return raw
}

// SamplePayload returns a configuration that satisfies the kind's schema.
func SamplePayload(kind graph.Kind) map[string]any {
	switch kind {
	case graph.KindShell:
		return map[string]any{"command": "echo hello"}
	case graph.KindPython:
		return map[string]any{"script": "print('hello')"}
	case graph.KindPromQL:
		return map[string]any{"query": "up", "datasource": "prometheus"}
	case graph.KindLocalFile:
		return map[string]any{"filePath": "/data/input.csv", "fileType": ".csv"}
	case graph.KindRemoteFile:
		return map[string]any{"url": "https://example.com/input.csv", "method": "GET"}
	case graph.KindUnknown, graph.KindStart, graph.KindEnd, graph.KindFork, graph.KindJoin:
	}
	return map[string]any{}
}

// Diamond builds start -> fork(a, b) -> join -> end, with Shell branches.
func Diamond() *Builder {
	return New().Start().Fork("fork", 2).Shell("a").Shell("b").Join("join", 2).End("end").
		Link(graph.StartID, "output", "fork", "input").
		Branch("fork", 1, "a").Branch("fork", 2, "b").
		Merge("a", "join", 1).Merge("b", "join", 2).
		Chain("join", "end")
}

// Linear builds start -> ids... -> end with Shell nodes.
func Linear(ids ...string) *Builder {
	b := New().Start()
	for _, id := range ids {
		b.Shell(id)
	}
	b.End("end")
	chain := append([]string{graph.StartID}, ids...)
	return b.Chain(append(chain, "end")...)
}

func (b *Builder) add(n graph.Node) *Builder {
	b.doc.Nodes = append(b.doc.Nodes, n)
	return b
}

func in(id string) graph.Port  { return graph.Port{ID: id, Group: graph.GroupInput} }
func out(id string) graph.Port { return graph.Port{ID: id, Group: graph.GroupOutput} }
