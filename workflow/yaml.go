package workflow

import (
	"encoding/json"

	"go.yaml.in/yaml/v3"
)

type yamlWorkflow struct {
	Name       string     `yaml:"name"`
	SystemName string     `yaml:"systemName"`
	Tasks      []yamlTask `yaml:"tasks"`
}

type yamlTask struct {
	Name              string       `yaml:"name"`
	TaskReferenceName string       `yaml:"taskReferenceName,omitempty"`
	Type              TaskType     `yaml:"type"`
	ForkTasks         [][]yamlTask `yaml:"forkTasks,omitempty"`
	JoinOn            []string     `yaml:"joinOn,omitempty"`
	NodeData          any          `yaml:"nodeData,omitempty"`
}

// MarshalYAML renders wf for reading. Node data is expanded into nested
// mappings and the raw source document is left out.
func MarshalYAML(wf *Workflow) ([]byte, error) {
	return yaml.Marshal(yamlWorkflow{
		Name:       wf.Name,
		SystemName: wf.SystemName,
		Tasks:      toYAMLTasks(wf.Tasks),
	})
}

func toYAMLTasks(tasks []Task) []yamlTask {
	out := make([]yamlTask, 0, len(tasks))
	for _, t := range tasks {
		yt := yamlTask{
			Name:              t.Name,
			TaskReferenceName: t.TaskReferenceName,
			Type:              t.Type,
			JoinOn:            t.JoinOn,
		}
		for _, branch := range t.ForkTasks {
			yt.ForkTasks = append(yt.ForkTasks, toYAMLTasks(branch))
		}
		if len(t.NodeData) > 0 {
			var data any
			if err := json.Unmarshal(t.NodeData, &data); err != nil {
				yt.NodeData = string(t.NodeData)
			} else {
				yt.NodeData = data
			}
		}
		out = append(out, yt)
	}
	return out
}
