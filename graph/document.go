package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/flowgraph/errors"
)

// StartID is the reserved id of the entry sentinel.
const StartID = "start"

// Port groups that take part in saturation checks.
const (
	GroupInput  = "input"
	GroupOutput = "output"
)

// ShapeEdge is the cell shape that marks an edge; every other shape is a node.
const (
	ShapeEdge = "edge"
	ShapeNode = "rect"
)

// Port is a named anchor on a node.
type Port struct {
	ID    string `json:"id"`
	Group string `json:"group"`
}

// Endpoint addresses one port of one node.
type Endpoint struct {
	Cell string `json:"cell"`
	Port string `json:"port,omitempty"`
}

// Node is one drawn vertex.
type Node struct {
	ID    string
	Kind  Kind
	Ports []Port
	// Payload is the editor-owned configuration, compacted. Nil when absent.
	Payload json.RawMessage
}

// Port returns the declared port with the given id.
func (n Node) Port(id string) (Port, bool) {
	for _, p := range n.Ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// PortsIn returns the ports of the given group in declaration order.
func (n Node) PortsIn(group string) []Port {
	var out []Port
	for _, p := range n.Ports {
		if p.Group == group {
			out = append(out, p)
		}
	}
	return out
}

// Edge is one directed connection between two ports.
type Edge struct {
	ID     string
	Source Endpoint
	Target Endpoint
}

// Document is a decoded canvas graph.
type Document struct {
	Nodes []Node
	Edges []Edge
	// WorkflowName and SystemName are the editor's metadata defaults, if the
	// stored document carried them.
	WorkflowName string
	SystemName   string
	// Raw is the compacted source the document was decoded from.
	Raw json.RawMessage
}

type wireDocument struct {
	Cells        []wireCell     `json:"cells"`
	GraphData    *wireGraphData `json:"graphData,omitempty"`
	WorkflowName string         `json:"workflowName,omitempty"`
	SystemName   string         `json:"systemName,omitempty"`
}

type wireGraphData struct {
	Cells        []wireCell `json:"cells"`
	WorkflowName string     `json:"workflowName,omitempty"`
	SystemName   string     `json:"systemName,omitempty"`
}

type wireCell struct {
	ID       string          `json:"id"`
	Shape    string          `json:"shape"`
	NodeType string          `json:"nodeType,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Ports    *wirePorts      `json:"ports,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Source   *wireEndpoint   `json:"source,omitempty"`
	Target   *wireEndpoint   `json:"target,omitempty"`
}

type wirePorts struct {
	Items []Port `json:"items"`
}

// UnmarshalJSON accepts both {"items": [...]} and a bare port array.
func (p *wirePorts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &p.Items)
	}
	type plain wirePorts
	return json.Unmarshal(data, (*plain)(p))
}

type wireEndpoint Endpoint

// UnmarshalJSON accepts both {"cell": ..., "port": ...} and a bare cell id.
func (e *wireEndpoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Cell)
	}
	return json.Unmarshal(data, (*Endpoint)(e))
}

// Decode parses a canvas document. Both the bare {"cells": [...]} shape and
// the editor's storage shape {"graphData": {"cells": [...]}} are accepted.
func Decode(data []byte) (*Document, error) {
	var raw bytes.Buffer
	if err := json.Compact(&raw, data); err != nil {
		return nil, errors.InvalidDocument("malformed JSON", err)
	}

	var wire wireDocument
	if err := json.Unmarshal(raw.Bytes(), &wire); err != nil {
		return nil, errors.InvalidDocument("unexpected structure", err)
	}

	cells := wire.Cells
	doc := &Document{
		WorkflowName: wire.WorkflowName,
		SystemName:   wire.SystemName,
		Raw:          json.RawMessage(raw.Bytes()),
	}
	if cells == nil && wire.GraphData != nil {
		cells = wire.GraphData.Cells
		if doc.WorkflowName == "" {
			doc.WorkflowName = wire.GraphData.WorkflowName
		}
		if doc.SystemName == "" {
			doc.SystemName = wire.GraphData.SystemName
		}
	}
	if cells == nil {
		return nil, errors.InvalidDocument("no cells", nil)
	}

	for i, c := range cells {
		if c.Shape == ShapeEdge {
			edge, err := decodeEdge(i, c)
			if err != nil {
				return nil, err
			}
			doc.Edges = append(doc.Edges, edge)
			continue
		}
		node, err := decodeNode(i, c)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	return doc, nil
}

func decodeNode(i int, c wireCell) (Node, error) {
	if c.ID == "" {
		return Node{}, errors.InvalidDocument(fmt.Sprintf("cell %d has no id", i), nil)
	}
	kind, err := resolveKind(c)
	if err != nil {
		return Node{}, err
	}
	node := Node{ID: c.ID, Kind: kind}
	if c.Ports != nil {
		node.Ports = c.Ports.Items
	}
	payload, err := compactPayload(c.Data)
	if err != nil {
		return Node{}, errors.InvalidDocument(fmt.Sprintf("node %q has malformed data", c.ID), err)
	}
	node.Payload = payload
	return node, nil
}

func resolveKind(c wireCell) (Kind, error) {
	name := c.NodeType
	if name == "" {
		name = c.Kind
	}
	if strings.TrimSpace(name) == "" {
		if c.ID == StartID {
			return KindStart, nil
		}
		return KindUnknown, errors.UnknownKind(c.ID, "")
	}
	kind, ok := ParseKind(name)
	if !ok {
		return KindUnknown, errors.UnknownKind(c.ID, name)
	}
	return kind, nil
}

func decodeEdge(i int, c wireCell) (Edge, error) {
	if c.Source == nil || c.Target == nil || c.Source.Cell == "" || c.Target.Cell == "" {
		return Edge{}, errors.InvalidDocument(fmt.Sprintf("edge cell %d lacks a source or target", i), nil)
	}
	id := c.ID
	if id == "" {
		id = fmt.Sprintf("edge#%d", i)
	}
	return Edge{ID: id, Source: Endpoint(*c.Source), Target: Endpoint(*c.Target)}, nil
}

func compactPayload(data json.RawMessage) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// RawJSON returns the source document verbatim, or an encoding of the
// document's cells when it was built in code rather than decoded.
func (d *Document) RawJSON() (json.RawMessage, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	return d.Encode()
}

// Encode serializes the document in the bare cells shape accepted by Decode.
func (d *Document) Encode() (json.RawMessage, error) {
	wire := wireDocument{
		Cells:        make([]wireCell, 0, len(d.Nodes)+len(d.Edges)),
		WorkflowName: d.WorkflowName,
		SystemName:   d.SystemName,
	}
	for _, n := range d.Nodes {
		c := wireCell{ID: n.ID, Shape: ShapeNode, Data: n.Payload}
		if n.Kind != KindStart || n.ID != StartID {
			c.NodeType = n.Kind.String()
		}
		if len(n.Ports) > 0 {
			c.Ports = &wirePorts{Items: n.Ports}
		}
		wire.Cells = append(wire.Cells, c)
	}
	for _, e := range d.Edges {
		src, dst := wireEndpoint(e.Source), wireEndpoint(e.Target)
		wire.Cells = append(wire.Cells, wireCell{ID: e.ID, Shape: ShapeEdge, Source: &src, Target: &dst})
	}
	out, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return out, nil
}

// Node returns the node with the given id.
func (d *Document) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
