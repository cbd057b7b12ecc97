package workflow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/flowgraph/config"
	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/graph/graphtest"
)

var testMeta = Metadata{WorkflowName: "wf", SystemName: "conductor"}

func mustCompile(t *testing.T, doc *graph.Document, opts Options) *Result {
	t.Helper()
	res, err := NewCompiler(opts).Compile(doc, testMeta)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return res
}

func compileErr(t *testing.T, doc *graph.Document, opts Options, meta Metadata) *errors.AppError {
	t.Helper()
	res, err := NewCompiler(opts).Compile(doc, meta)
	if err == nil {
		t.Fatalf("Compile() = %+v, want error", res)
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("Compile() error %T is not an AppError", err)
	}
	return appErr
}

// shape renders tasks compactly: refs for SIMPLE, FORK[..|..] and JOIN(ref<-a,b).
func shape(tasks []Task) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		switch t.Type {
		case TaskFork:
			branches := make([]string, 0, len(t.ForkTasks))
			for _, b := range t.ForkTasks {
				branches = append(branches, shape(b))
			}
			parts = append(parts, "FORK["+strings.Join(branches, "|")+"]")
		case TaskJoin:
			parts = append(parts, "JOIN("+t.TaskReferenceName+"<-"+strings.Join(t.JoinOn, ",")+")")
		default:
			parts = append(parts, t.TaskReferenceName)
		}
	}
	return strings.Join(parts, " ")
}

func TestCompile_Linear(t *testing.T) {
	doc := graphtest.Linear("a", "b", "c").Doc()
	res := mustCompile(t, doc, Options{})

	wf := res.Workflow
	if wf.Name != "wf" || wf.SystemName != "conductor" {
		t.Errorf("metadata = %q/%q", wf.Name, wf.SystemName)
	}
	if len(wf.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(wf.Tasks))
	}
	for i, ref := range []string{"a", "b", "c"} {
		task := wf.Tasks[i]
		if task.TaskReferenceName != ref || task.Name != "shell" || task.Type != TaskSimple {
			t.Errorf("task %d = %+v", i, task)
		}
		node, _ := doc.Node(ref)
		if string(task.NodeData) != string(node.Payload) {
			t.Errorf("task %d nodeData = %s, want %s", i, task.NodeData, node.Payload)
		}
	}
	if len(res.Anomalies) != 0 {
		t.Errorf("unexpected anomalies: %+v", res.Anomalies)
	}
}

func TestCompile_TaskNamePerKind(t *testing.T) {
	b := graphtest.New().Start().End("end")
	ids := []string{graph.StartID}
	for _, k := range []graph.Kind{graph.KindShell, graph.KindPython, graph.KindPromQL, graph.KindLocalFile, graph.KindRemoteFile} {
		id := "n-" + k.String()
		b.Program(id, k)
		ids = append(ids, id)
	}
	b.Chain(append(ids, "end")...)

	res := mustCompile(t, b.Doc(), Options{})
	want := []string{"shell", "python", "promql", "localfile", "remotefile"}
	for i, task := range res.Workflow.Tasks {
		if task.Name != want[i] {
			t.Errorf("task %d name = %q, want %q", i, task.Name, want[i])
		}
	}
}

func TestCompile_Diamond(t *testing.T) {
	res := mustCompile(t, graphtest.Diamond().Doc(), Options{})

	if got := shape(res.Workflow.Tasks); got != "FORK[a|b] JOIN(join<-a,b)" {
		t.Fatalf("shape = %q", got)
	}
	fork, join := res.Workflow.Tasks[0], res.Workflow.Tasks[1]
	if fork.Name != TaskNameFork || fork.TaskReferenceName != "fork" {
		t.Errorf("fork task = %+v", fork)
	}
	if join.Name != TaskNameJoin || join.Type != TaskJoin {
		t.Errorf("join task = %+v", join)
	}
	if len(join.JoinOn) != len(fork.ForkTasks) {
		t.Errorf("joinOn has %d entries for %d branches", len(join.JoinOn), len(fork.ForkTasks))
	}
}

func TestCompile_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		build func() *graphtest.Builder
		want  string
	}{
		{
			name: "unequal branches",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Fork("f", 2).Shell("A").Shell("B").Shell("C").Join("j", 2).End("end").
					Link(graph.StartID, "output", "f", "input").
					Branch("f", 1, "A").Chain("A", "C").Merge("C", "j", 1).
					Branch("f", 2, "B").Merge("B", "j", 2).
					Chain("j", "end")
			},
			want: "FORK[A C|B] JOIN(j<-C,B)",
		},
		{
			name: "tasks after the join",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Shell("pre").Fork("f", 2).Shell("a").Shell("b").Join("j", 2).Shell("post").End("end").
					Chain(graph.StartID, "pre", "f").
					Branch("f", 1, "a").Branch("f", 2, "b").
					Merge("a", "j", 1).Merge("b", "j", 2).
					Chain("j", "post", "end")
			},
			want: "pre FORK[a|b] JOIN(j<-a,b) post",
		},
		{
			name: "nested fork",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Fork("f1", 2).Fork("f2", 2).Shell("a").Shell("b").Shell("c").
					Join("j2", 2).Join("j1", 2).End("end").
					Link(graph.StartID, "output", "f1", "input").
					Branch("f1", 1, "f2").
					Branch("f2", 1, "a").Branch("f2", 2, "b").
					Merge("a", "j2", 1).Merge("b", "j2", 2).
					Link("j2", "output", "j1", "input1").
					Branch("f1", 2, "c").Merge("c", "j1", 2).
					Chain("j1", "end")
			},
			want: "FORK[FORK[a|b] JOIN(j2<-a,b)|c] JOIN(j1<-j2,c)",
		},
		{
			name: "branch wired straight into the join",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Fork("f", 2).Shell("a").Join("j", 2).End("end").
					Link(graph.StartID, "output", "f", "input").
					Branch("f", 1, "a").Merge("a", "j", 1).
					Link("f", "output2", "j", "input2").
					Chain("j", "end")
			},
			want: "FORK[a|] JOIN(j<-a,j)",
		},
		{
			name: "branches meeting at an end node",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Fork("f", 2).Shell("a").Shell("b").End("end").
					Link(graph.StartID, "output", "f", "input").
					Branch("f", 1, "a").Branch("f", 2, "b").
					Chain("a", "end").Chain("b", "end")
			},
			want: "FORK[a|b] JOIN(end<-a,b)",
		},
		{
			name: "fallback entry without a start node",
			build: func() *graphtest.Builder {
				return graphtest.New().Shell("a").Shell("b").End("end").Chain("a", "b", "end")
			},
			want: "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustCompile(t, tt.build().Doc(), Options{StrictJoin: true})
			if got := shape(res.Workflow.Tasks); got != tt.want {
				t.Errorf("shape = %q, want %q", got, tt.want)
			}
			if len(res.Anomalies) != 0 {
				t.Errorf("unexpected anomalies: %+v", res.Anomalies)
			}
		})
	}
}

func TestCompile_BranchOrderFollowsPortNumber(t *testing.T) {
	const n = 12
	b := graphtest.New().Start().Fork("f", n).Join("j", n).End("end").
		Link(graph.StartID, "output", "f", "input").
		Chain("j", "end")
	// Wire the branches in reverse so edge order cannot be mistaken for port order.
	for i := n; i >= 1; i-- {
		id := fmt.Sprintf("p%d", i)
		b.Shell(id).Branch("f", i, id).Merge(id, "j", i)
	}

	res := mustCompile(t, b.Doc(), Options{})
	fork, join := res.Workflow.Tasks[0], res.Workflow.Tasks[1]
	if len(fork.ForkTasks) != n || len(join.JoinOn) != n {
		t.Fatalf("got %d branches and %d joinOn entries", len(fork.ForkTasks), len(join.JoinOn))
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("p%d", i+1)
		if got := fork.ForkTasks[i][0].TaskReferenceName; got != want {
			t.Errorf("branch %d = %q, want %q", i, got, want)
		}
		if join.JoinOn[i] != want {
			t.Errorf("joinOn[%d] = %q, want %q", i, join.JoinOn[i], want)
		}
	}
}

func TestCompile_Anomalies(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *graphtest.Builder
		wantShape string
		wantCode  errors.ErrorCode
		wantNode  string
	}{
		{
			name: "dead end",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Shell("a").Chain(graph.StartID, "a")
			},
			wantShape: "a",
			wantCode:  errors.ErrCodeDeadEnd,
			wantNode:  "a",
		},
		{
			name: "branching program node",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Shell("a").Shell("b").Shell("c").End("end").
					Chain(graph.StartID, "a", "b", "end").Chain("a", "c", "end")
			},
			wantShape: "a",
			wantCode:  errors.ErrCodeAmbiguousBranch,
			wantNode:  "a",
		},
		{
			name: "branches never reconverge",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Fork("f", 2).Shell("a").Shell("b").End("end1").End("end2").
					Link(graph.StartID, "output", "f", "input").
					Branch("f", 1, "a").Branch("f", 2, "b").
					Chain("a", "end1").Chain("b", "end2")
			},
			wantShape: "FORK[a|b] JOIN(<-a,b)",
			wantCode:  errors.ErrCodeUnresolvedJoin,
			wantNode:  "f",
		},
		{
			name: "join without successor",
			build: func() *graphtest.Builder {
				return graphtest.New().Start().Fork("f", 2).Shell("a").Shell("b").Join("j", 2).
					Link(graph.StartID, "output", "f", "input").
					Branch("f", 1, "a").Branch("f", 2, "b").
					Merge("a", "j", 1).Merge("b", "j", 2)
			},
			wantShape: "FORK[a|b] JOIN(j<-a,b)",
			wantCode:  errors.ErrCodeDeadEnd,
			wantNode:  "j",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustCompile(t, tt.build().Doc(), Options{})
			if got := shape(res.Workflow.Tasks); got != tt.wantShape {
				t.Errorf("shape = %q, want %q", got, tt.wantShape)
			}
			if len(res.Anomalies) != 1 {
				t.Fatalf("anomalies = %+v, want exactly one", res.Anomalies)
			}
			a := res.Anomalies[0]
			if a.Code != tt.wantCode || a.NodeID != tt.wantNode {
				t.Errorf("anomaly = %+v, want %s at %s", a, tt.wantCode, tt.wantNode)
			}
			if a.Message == "" {
				t.Error("anomaly has no message")
			}
		})
	}
}

func TestCompile_StrictJoin(t *testing.T) {
	doc := graphtest.New().Start().Fork("f", 2).Shell("a").Shell("b").End("end1").End("end2").
		Link(graph.StartID, "output", "f", "input").
		Branch("f", 1, "a").Branch("f", 2, "b").
		Chain("a", "end1").Chain("b", "end2").Doc()

	appErr := compileErr(t, doc, Options{StrictJoin: true}, testMeta)
	if appErr.Code != errors.ErrCodeUnresolvedJoin {
		t.Errorf("code = %s, want %s", appErr.Code, errors.ErrCodeUnresolvedJoin)
	}
	if appErr.NodeID() != "f" {
		t.Errorf("node = %q, want f", appErr.NodeID())
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  *graph.Document
		want errors.ErrorCode
	}{
		{
			name: "start with two children",
			doc: graphtest.New().Start().Shell("a").Shell("b").End("end").
				Chain(graph.StartID, "a", "end").Chain(graph.StartID, "b", "end").Doc(),
			want: errors.ErrCodeAmbiguousEntry,
		},
		{
			name: "start without children",
			doc:  graphtest.New().Start().Shell("a").End("end").Chain("a", "end").Doc(),
			want: errors.ErrCodeAmbiguousEntry,
		},
		{
			name: "two parentless programs",
			doc:  graphtest.New().Shell("a").Shell("b").End("end").Chain("a", "end").Chain("b", "end").Doc(),
			want: errors.ErrCodeAmbiguousEntry,
		},
		{
			name: "cycle",
			doc: graphtest.New().Start().Shell("a").Shell("b").
				Chain(graph.StartID, "a", "b", "a").Doc(),
			want: errors.ErrCodeCycleDetected,
		},
		{
			name: "edge to unknown node",
			doc:  graphtest.Linear("a").Link("a", "output", "ghost", "input").Doc(),
			want: errors.ErrCodeUnknownNode,
		},
		{
			name: "edge to unknown port",
			doc:  graphtest.Linear("a").Link("a", "output", "end", "bogus").Doc(),
			want: errors.ErrCodeUnknownPort,
		},
		{
			name: "duplicate node",
			doc:  graphtest.Linear("a").Shell("a").Doc(),
			want: errors.ErrCodeDuplicateNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := compileErr(t, tt.doc, Options{}, testMeta)
			if appErr.Code != tt.want {
				t.Errorf("code = %s, want %s (%v)", appErr.Code, tt.want, appErr)
			}
		})
	}
}

func TestCompile_CycleReportsPath(t *testing.T) {
	doc := graphtest.New().Start().Shell("a").Shell("b").
		Chain(graph.StartID, "a", "b", "a").Doc()

	appErr := compileErr(t, doc, Options{}, testMeta)
	nodes, ok := appErr.Details[errors.DetailNodes].([]string)
	if !ok {
		t.Fatalf("details = %+v, want a node path", appErr.Details)
	}
	for _, id := range []string{"a", "b"} {
		found := false
		for _, n := range nodes {
			if n == id {
				found = true
			}
		}
		if !found {
			t.Errorf("cycle path %v does not contain %q", nodes, id)
		}
	}
}

func TestWalker_EnterDetectsRevisit(t *testing.T) {
	w := &walker{onPath: map[string]bool{}}
	for _, id := range []string{"x", "y", "z"} {
		if err := w.enter(id); err != nil {
			t.Fatalf("enter(%q) error = %v", id, err)
		}
	}
	err := w.enter("y")
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeCycleDetected {
		t.Fatalf("enter(y) error = %v, want CYCLE_DETECTED", err)
	}
	if got := appErr.Details[errors.DetailNodes]; !reflect.DeepEqual(got, []string{"y", "z", "y"}) {
		t.Errorf("path = %v", got)
	}

	w.leave(1)
	if err := w.enter("y"); err != nil {
		t.Errorf("enter(y) after leave error = %v", err)
	}
}

func TestCompile_Metadata(t *testing.T) {
	opts := Options{AllowedSystems: []string{config.SystemConductor, config.SystemAirflow}, DefaultSystem: config.SystemConductor}

	tests := []struct {
		name       string
		doc        *graph.Document
		meta       Metadata
		wantName   string
		wantSystem string
		wantErr    bool
	}{
		{
			name:       "request metadata",
			doc:        graphtest.Linear("a").Doc(),
			meta:       Metadata{WorkflowName: "req", SystemName: config.SystemAirflow},
			wantName:   "req",
			wantSystem: config.SystemAirflow,
		},
		{
			name:       "document metadata",
			doc:        graphtest.Linear("a").Named("stored", config.SystemAirflow).Doc(),
			wantName:   "stored",
			wantSystem: config.SystemAirflow,
		},
		{
			name:       "request wins over document",
			doc:        graphtest.Linear("a").Named("stored", config.SystemAirflow).Doc(),
			meta:       Metadata{WorkflowName: "req"},
			wantName:   "req",
			wantSystem: config.SystemAirflow,
		},
		{
			name:       "default system",
			doc:        graphtest.Linear("a").Doc(),
			meta:       Metadata{WorkflowName: "req"},
			wantName:   "req",
			wantSystem: config.SystemConductor,
		},
		{
			name:    "missing name",
			doc:     graphtest.Linear("a").Doc(),
			wantErr: true,
		},
		{
			name:    "name too long",
			doc:     graphtest.Linear("a").Doc(),
			meta:    Metadata{WorkflowName: strings.Repeat("x", MaxNameLength+1)},
			wantErr: true,
		},
		{
			name:    "system not allowed",
			doc:     graphtest.Linear("a").Doc(),
			meta:    Metadata{WorkflowName: "req", SystemName: "cron"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewCompiler(opts).Compile(tt.doc, tt.meta)
			if tt.wantErr {
				appErr, ok := errors.AsAppError(err)
				if !ok || appErr.Code != errors.ErrCodeInvalidInput {
					t.Fatalf("error = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if res.Workflow.Name != tt.wantName || res.Workflow.SystemName != tt.wantSystem {
				t.Errorf("metadata = %q/%q, want %q/%q", res.Workflow.Name, res.Workflow.SystemName, tt.wantName, tt.wantSystem)
			}
		})
	}
}

func TestCompile_CheckPayloads(t *testing.T) {
	doc := graphtest.New().Start().ProgramWith("a", graph.KindShell, map[string]any{"hasDetailSaved": true}).End("end").
		Chain(graph.StartID, "a", "end").Doc()

	if _, err := NewCompiler(Options{}).Compile(doc, testMeta); err != nil {
		t.Fatalf("without payload checks: error = %v", err)
	}

	appErr := compileErr(t, doc, Options{CheckPayloads: true}, testMeta)
	if appErr.Code != errors.ErrCodeInvalidPayload || appErr.NodeID() != "a" {
		t.Errorf("error = %v, want INVALID_PAYLOAD at a", appErr)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.CompilerConfig{
		StrictJoin:     true,
		CheckPayloads:  true,
		AllowedSystems: []string{config.SystemConductor},
		DefaultSystem:  config.SystemConductor,
	})
	if !opts.StrictJoin || !opts.CheckPayloads || opts.DefaultSystem != config.SystemConductor || len(opts.AllowedSystems) != 1 {
		t.Errorf("options = %+v", opts)
	}
	if c := NewCompiler(opts); c.Options().Payloads == nil {
		t.Error("expected the default payload registry when payload checks are on")
	}
}

func TestCompile_RawDataRoundTrip(t *testing.T) {
	data := graphtest.Diamond().JSON()
	doc, err := graph.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	first := mustCompile(t, doc, Options{})
	if first.Workflow.RawData != string(data) {
		t.Errorf("rawData = %s, want %s", first.Workflow.RawData, data)
	}

	again, err := graph.Decode([]byte(first.Workflow.RawData))
	if err != nil {
		t.Fatalf("Decode(rawData) error = %v", err)
	}
	second := mustCompile(t, again, Options{})
	if !reflect.DeepEqual(first.Workflow.Tasks, second.Workflow.Tasks) {
		t.Errorf("tasks differ after round trip:\n%s\n%s", shape(first.Workflow.Tasks), shape(second.Workflow.Tasks))
	}
}

func TestCompile_RawDataWithoutSource(t *testing.T) {
	doc := graphtest.Linear("a").Doc()
	res := mustCompile(t, doc, Options{})

	var raw map[string]any
	if err := json.Unmarshal([]byte(res.Workflow.RawData), &raw); err != nil {
		t.Fatalf("rawData is not JSON: %v", err)
	}
	if _, ok := raw["cells"]; !ok {
		t.Errorf("rawData = %s, want a cells document", res.Workflow.RawData)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	doc := graphtest.Diamond().Doc()
	c := NewCompiler(Options{})

	first, err := c.Compile(doc, testMeta)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compile(doc, testMeta)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("compiling the same document twice gave different results")
	}
	if first.Workflow == second.Workflow {
		t.Error("expected a fresh workflow per compile")
	}
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		sets [][]string
		want string
	}{
		{nil, ""},
		{[][]string{{"a", "b"}}, "a"},
		{[][]string{{"a", "b"}, {"b", "a"}}, "a"},
		{[][]string{{"a", "b"}, {"b"}}, "b"},
		{[][]string{{"a"}, {"b"}}, ""},
		{[][]string{{}, {"b"}}, ""},
	}
	for _, tt := range tests {
		if got := intersect(tt.sets); got != tt.want {
			t.Errorf("intersect(%v) = %q, want %q", tt.sets, got, tt.want)
		}
	}
}
