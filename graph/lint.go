package graph

import "fmt"

// Editor limits on the number of fork outputs and join inputs.
const (
	MinBranchPorts = 2
	MaxBranchPorts = 10
)

// Lint finding codes. Findings are informational and never block compilation.
const (
	LintPortCount     = "PORT_COUNT"
	LintEdgeDirection = "EDGE_DIRECTION"
	LintSelfLoop      = "SELF_LOOP"
	LintSharedPort    = "SHARED_PORT"
	LintUnreachable   = "UNREACHABLE"
)

// Finding is one lint observation.
type Finding struct {
	Code    string `json:"code"`
	NodeID  string `json:"nodeId,omitempty"`
	EdgeID  string `json:"edgeId,omitempty"`
	Message string `json:"message"`
}

// Lint reports authoring issues the validator tolerates: branch port counts
// outside the editor limits, edges running against port direction, self
// loops, ports shared by several edges on nodes that do not fan out or in,
// and nodes unreachable from the start node.
func Lint(idx *Index) []Finding {
	var findings []Finding
	doc := idx.Document()

	for _, n := range doc.Nodes {
		var group string
		switch n.Kind {
		case KindFork:
			group = GroupOutput
		case KindJoin:
			group = GroupInput
		default:
			continue
		}
		if c := len(n.PortsIn(group)); c < MinBranchPorts || c > MaxBranchPorts {
			findings = append(findings, Finding{
				Code:    LintPortCount,
				NodeID:  n.ID,
				Message: fmt.Sprintf("%s %q has %d %s ports, expected %d to %d", n.Kind, n.ID, c, group, MinBranchPorts, MaxBranchPorts),
			})
		}
	}

	shared := map[Endpoint]int{}
	for _, e := range doc.Edges {
		if e.Source.Cell == e.Target.Cell {
			findings = append(findings, Finding{
				Code: LintSelfLoop, NodeID: e.Source.Cell, EdgeID: e.ID,
				Message: fmt.Sprintf("edge %q connects node %q to itself", e.ID, e.Source.Cell),
			})
		}
		if f, ok := directionFinding(idx, e); ok {
			findings = append(findings, f)
		}
		if e.Source.Port != "" {
			shared[e.Source]++
		}
		if e.Target.Port != "" {
			shared[e.Target]++
		}
	}

	for _, n := range doc.Nodes {
		for _, p := range n.Ports {
			count := shared[Endpoint{Cell: n.ID, Port: p.ID}]
			if count < 2 || fansOut(n.Kind, p.Group) {
				continue
			}
			findings = append(findings, Finding{
				Code: LintSharedPort, NodeID: n.ID,
				Message: fmt.Sprintf("port %q of node %q carries %d edges", p.ID, n.ID, count),
			})
		}
	}

	if _, ok := idx.Node(StartID); ok {
		reachable := map[string]bool{}
		for _, id := range idx.Reachable(StartID) {
			reachable[id] = true
		}
		for _, n := range doc.Nodes {
			if !reachable[n.ID] {
				findings = append(findings, Finding{
					Code: LintUnreachable, NodeID: n.ID,
					Message: fmt.Sprintf("node %q is not reachable from the start node", n.ID),
				})
			}
		}
	}
	return findings
}

func fansOut(kind Kind, group string) bool {
	return (kind == KindFork && group == GroupOutput) || (kind == KindJoin && group == GroupInput)
}

func directionFinding(idx *Index, e Edge) (Finding, bool) {
	src, _ := idx.Node(e.Source.Cell)
	dst, _ := idx.Node(e.Target.Cell)
	sp, sok := src.Port(e.Source.Port)
	tp, tok := dst.Port(e.Target.Port)
	if (sok && sp.Group == GroupInput) || (tok && tp.Group == GroupOutput) {
		return Finding{
			Code: LintEdgeDirection, EdgeID: e.ID, NodeID: e.Source.Cell,
			Message: fmt.Sprintf("edge %q does not run from an output port to an input port", e.ID),
		}, true
	}
	return Finding{}, false
}
