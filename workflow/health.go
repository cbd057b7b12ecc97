package workflow

import (
	"context"
	"encoding/json"

	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/observability"
)

var probeDocument = &graph.Document{
	Nodes: []graph.Node{
		{ID: graph.StartID, Kind: graph.KindStart, Ports: []graph.Port{{ID: "output", Group: graph.GroupOutput}}},
		{ID: "probe", Kind: graph.KindShell, Ports: []graph.Port{{ID: "input", Group: graph.GroupInput}, {ID: "output", Group: graph.GroupOutput}},
			Payload: json.RawMessage(`{"command":"true","hasDetailSaved":true}`)},
		{ID: "end", Kind: graph.KindEnd, Ports: []graph.Port{{ID: "input", Group: graph.GroupInput}}},
	},
	Edges: []graph.Edge{
		{ID: "e1", Source: graph.Endpoint{Cell: graph.StartID, Port: "output"}, Target: graph.Endpoint{Cell: "probe", Port: "input"}},
		{ID: "e2", Source: graph.Endpoint{Cell: "probe", Port: "output"}, Target: graph.Endpoint{Cell: "end", Port: "input"}},
	},
	WorkflowName: "health-probe",
}

// NewHealthChecker reports the service healthy while it can compile a
// minimal start -> shell -> end document.
func NewHealthChecker(svc Service) observability.HealthChecker {
	return &healthChecker{svc: svc}
}

type healthChecker struct {
	svc Service
}

func (h *healthChecker) CheckHealth(ctx context.Context) observability.Health {
	res, err := h.svc.Compile(ctx, Request{Document: probeDocument})
	if err != nil {
		return observability.Health{Name: "compiler", Status: observability.HealthStatusDown, Message: err.Error()}
	}
	if len(res.Workflow.Tasks) != 1 || len(res.Anomalies) > 0 {
		return observability.Health{Name: "compiler", Status: observability.HealthStatusDegraded, Message: "probe compiled to an unexpected workflow"}
	}
	return observability.Health{Name: "compiler", Status: observability.HealthStatusUp}
}
