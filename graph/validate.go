package graph

import (
	"encoding/json"

	"github.com/kbukum/flowgraph/errors"
)

// SaveState carries the editor's per-node "detail saved" flags. An entry
// overrides the hasDetailSaved mark in the node payload.
type SaveState map[string]bool

// Diagnostic identifies why a document is not compilable.
type Diagnostic struct {
	Code    errors.ErrorCode `json:"code"`
	NodeID  string           `json:"nodeId,omitempty"`
	PortID  string           `json:"portId,omitempty"`
	NodeIDs []string         `json:"nodeIds,omitempty"`
	Message string           `json:"message"`
}

// Result is the outcome of Validate.
type Result struct {
	Valid bool        `json:"valid"`
	Error *Diagnostic `json:"error,omitempty"`
}

// Err converts a failed result to an AppError; nil when valid.
func (r Result) Err() error {
	if r.Valid || r.Error == nil {
		return nil
	}
	return r.Error.AppError()
}

// AppError rebuilds the coded error the diagnostic came from.
func (d Diagnostic) AppError() *errors.AppError {
	switch d.Code {
	case errors.ErrCodeUnconnectedPort:
		return errors.UnconnectedPort(d.NodeID, d.PortID)
	case errors.ErrCodeMissingEndNode:
		return errors.MissingEndNode()
	case errors.ErrCodeNoProgramNode:
		return errors.NoProgramNode()
	case errors.ErrCodeUnsavedNodeDetail:
		if len(d.NodeIDs) > 0 {
			return errors.UnsavedNodeDetail(d.NodeIDs...)
		}
		return errors.UnsavedNodeDetail(d.NodeID)
	}
	return errors.Validation(d.Message)
}

// Report is the outcome of ValidateAll.
type Report struct {
	Valid  bool         `json:"valid"`
	Errors []Diagnostic `json:"errors,omitempty"`
}

// Validate decides whether doc is compilable. Checks run in order and stop at
// the first failure: port saturation, end presence, program presence, saved
// configuration. It never modifies doc.
func Validate(doc *Document, saved SaveState) Result {
	for _, check := range checks {
		if diags := check(doc, saved, true); len(diags) > 0 {
			return Result{Valid: false, Error: &diags[0]}
		}
	}
	return Result{Valid: true}
}

// ValidateAll runs every check and reports every failure, so an editor can
// flag all offending nodes at once.
func ValidateAll(doc *Document, saved SaveState) Report {
	var all []Diagnostic
	for _, check := range checks {
		all = append(all, check(doc, saved, false)...)
	}
	return Report{Valid: len(all) == 0, Errors: all}
}

type checkFunc func(doc *Document, saved SaveState, first bool) []Diagnostic

var checks = []checkFunc{checkPorts, checkEnd, checkProgram, checkSaved}

func diagnostic(err *errors.AppError) Diagnostic {
	d := Diagnostic{Code: err.Code, NodeID: err.NodeID(), PortID: err.PortID(), Message: err.Message}
	if ids, ok := err.Details[errors.DetailNodes].([]string); ok && len(ids) > 1 {
		d.NodeIDs = ids
	}
	return d
}

func checkPorts(doc *Document, _ SaveState, first bool) []Diagnostic {
	attached := make(map[Endpoint]bool, 2*len(doc.Edges))
	for _, e := range doc.Edges {
		attached[e.Source] = true
		attached[e.Target] = true
	}

	var diags []Diagnostic
	for _, n := range doc.Nodes {
		for _, p := range n.Ports {
			if p.Group != GroupInput && p.Group != GroupOutput {
				continue
			}
			if attached[Endpoint{Cell: n.ID, Port: p.ID}] {
				continue
			}
			diags = append(diags, diagnostic(errors.UnconnectedPort(n.ID, p.ID)))
			if first {
				return diags
			}
		}
	}
	return diags
}

func checkEnd(doc *Document, _ SaveState, _ bool) []Diagnostic {
	for _, n := range doc.Nodes {
		if n.Kind == KindEnd {
			return nil
		}
	}
	return []Diagnostic{diagnostic(errors.MissingEndNode())}
}

func checkProgram(doc *Document, _ SaveState, _ bool) []Diagnostic {
	for _, n := range doc.Nodes {
		if n.Kind.IsProgram() {
			return nil
		}
	}
	return []Diagnostic{diagnostic(errors.NoProgramNode())}
}

func checkSaved(doc *Document, saved SaveState, first bool) []Diagnostic {
	var unsaved []string
	for _, n := range doc.Nodes {
		if !n.Kind.IsProgram() || IsSaved(n, saved) {
			continue
		}
		if first {
			return []Diagnostic{diagnostic(errors.UnsavedNodeDetail(n.ID))}
		}
		unsaved = append(unsaved, n.ID)
	}
	if len(unsaved) == 0 {
		return nil
	}
	return []Diagnostic{diagnostic(errors.UnsavedNodeDetail(unsaved...))}
}

// IsSaved reports whether the editor marked the node's configuration as
// saved, either through saved or the payload's hasDetailSaved field.
func IsSaved(n Node, saved SaveState) bool {
	if v, ok := saved[n.ID]; ok {
		return v
	}
	if len(n.Payload) == 0 {
		return false
	}
	var mark struct {
		HasDetailSaved bool `json:"hasDetailSaved"`
	}
	if err := json.Unmarshal(n.Payload, &mark); err != nil {
		return false
	}
	return mark.HasDetailSaved
}
