package workflow

import (
	"encoding/json"

	"github.com/kbukum/flowgraph/errors"
)

// TaskType is the orchestration engine's task discriminator.
type TaskType string

const (
	TaskSimple TaskType = "SIMPLE"
	TaskFork   TaskType = "FORK"
	TaskJoin   TaskType = "JOIN"
)

// Task names of the control tasks.
const (
	TaskNameFork = "fork"
	TaskNameJoin = "join"
)

// Task is one unit of the emitted workflow.
type Task struct {
	Name              string
	TaskReferenceName string
	Type              TaskType
	// ForkTasks holds one task list per branch (FORK only).
	ForkTasks [][]Task
	// JoinOn holds each branch's end reference (JOIN only).
	JoinOn []string
	// NodeData is the node payload (SIMPLE only), serialized as a JSON string.
	NodeData json.RawMessage
}

type wireTask struct {
	Name              string    `json:"name"`
	TaskReferenceName string    `json:"taskReferenceName,omitempty"`
	Type              TaskType  `json:"type"`
	ForkTasks         *[][]Task `json:"forkTasks,omitempty"`
	JoinOn            *[]string `json:"joinOn,omitempty"`
	NodeData          *string   `json:"nodeData,omitempty"`
}

// MarshalJSON writes the engine's wire shape. FORK always carries forkTasks
// and JOIN always carries joinOn, even when empty.
func (t Task) MarshalJSON() ([]byte, error) {
	w := wireTask{Name: t.Name, TaskReferenceName: t.TaskReferenceName, Type: t.Type}
	switch t.Type {
	case TaskFork:
		branches := make([][]Task, len(t.ForkTasks))
		for i, b := range t.ForkTasks {
			branches[i] = b
			if branches[i] == nil {
				branches[i] = []Task{}
			}
		}
		w.ForkTasks = &branches
	case TaskJoin:
		on := t.JoinOn
		if on == nil {
			on = []string{}
		}
		w.JoinOn = &on
	case TaskSimple:
		if len(t.NodeData) > 0 {
			s := string(t.NodeData)
			w.NodeData = &s
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the wire shape written by MarshalJSON.
func (t *Task) UnmarshalJSON(data []byte) error {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Task{Name: w.Name, TaskReferenceName: w.TaskReferenceName, Type: w.Type}
	if w.ForkTasks != nil {
		t.ForkTasks = *w.ForkTasks
	}
	if w.JoinOn != nil {
		t.JoinOn = *w.JoinOn
	}
	if w.NodeData != nil {
		t.NodeData = json.RawMessage(*w.NodeData)
	}
	return nil
}

// Workflow is a compiled canvas. Each compile returns a fresh value.
type Workflow struct {
	Name       string `json:"name"`
	SystemName string `json:"systemName"`
	Tasks      []Task `json:"tasks"`
	// RawData is the source document, verbatim, as a JSON string.
	RawData string `json:"rawData"`
}

// Anomaly is a structural problem that did not stop compilation.
type Anomaly struct {
	Code    errors.ErrorCode `json:"code"`
	NodeID  string           `json:"nodeId,omitempty"`
	Message string           `json:"message"`
}

// Result is a compiled workflow plus the anomalies found on the way.
type Result struct {
	Workflow  *Workflow `json:"workflow"`
	Anomalies []Anomaly `json:"anomalies,omitempty"`
}

// Metadata names the workflow and its target system. Empty fields fall back
// to the document's stored metadata, then to the compiler defaults.
type Metadata struct {
	WorkflowName string `json:"workflowName"`
	SystemName   string `json:"systemName"`
}

// CountTasks returns the number of tasks, nested branch tasks included.
func CountTasks(tasks []Task) int {
	n := len(tasks)
	for _, t := range tasks {
		for _, b := range t.ForkTasks {
			n += CountTasks(b)
		}
	}
	return n
}
