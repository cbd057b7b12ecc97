package workflow

import (
	stderrors "errors"
	"fmt"
	"slices"

	"github.com/kbukum/flowgraph/config"
	"github.com/kbukum/flowgraph/dag"
	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/payload"
	"github.com/kbukum/flowgraph/util"
	"github.com/kbukum/flowgraph/validation"
)

// MaxNameLength bounds workflow names.
const MaxNameLength = 128

// Options tune a Compiler.
type Options struct {
	// StrictJoin turns an unresolved join into an error instead of an anomaly.
	StrictJoin bool
	// CheckPayloads validates program node configurations before compiling.
	CheckPayloads bool
	// Payloads is the schema registry used by CheckPayloads. Defaults to
	// payload.DefaultRegistry().
	Payloads *payload.Registry
	// AllowedSystems restricts the target system; empty allows any.
	AllowedSystems []string
	// DefaultSystem is used when neither the request nor the document names one.
	DefaultSystem string
}

// OptionsFromConfig maps the compiler section of the application config.
func OptionsFromConfig(cfg config.CompilerConfig) Options {
	return Options{
		StrictJoin:     cfg.StrictJoin,
		CheckPayloads:  cfg.CheckPayloads,
		AllowedSystems: cfg.AllowedSystems,
		DefaultSystem:  cfg.DefaultSystem,
	}
}

// Compiler turns canvas documents into workflows. It holds no mutable state
// and is safe for concurrent use.
type Compiler struct {
	opts Options
}

// NewCompiler creates a Compiler.
func NewCompiler(opts Options) *Compiler {
	if opts.CheckPayloads && opts.Payloads == nil {
		opts.Payloads = payload.DefaultRegistry()
	}
	return &Compiler{opts: opts}
}

// Options returns the compiler's options.
func (c *Compiler) Options() Options { return c.opts }

// Compile transforms doc into a workflow. Contract violations (unknown nodes
// or ports, ambiguous entry, cycles) return an error and no workflow; soft
// structural problems are reported as anomalies next to the workflow.
//
// Compile does not run the validator; callers gate on graph.Validate first.
func (c *Compiler) Compile(doc *graph.Document, meta Metadata) (*Result, error) {
	meta, err := c.resolveMetadata(doc, meta)
	if err != nil {
		return nil, err
	}

	idx, err := graph.NewIndex(doc)
	if err != nil {
		return nil, err
	}

	if c.opts.CheckPayloads {
		if err := c.opts.Payloads.CheckAll(doc); err != nil {
			return nil, err
		}
	}

	root, entry, err := resolveEntry(idx)
	if err != nil {
		return nil, err
	}

	if err := checkAcyclic(idx, root); err != nil {
		return nil, err
	}

	w := &walker{idx: idx, strict: c.opts.StrictJoin, onPath: map[string]bool{}}
	if root != entry {
		// The root is never revisited on an acyclic graph.
		_ = w.enter(root)
	}
	seg, err := w.walk(entry, false)
	if err != nil {
		return nil, err
	}

	raw, err := doc.RawJSON()
	if err != nil {
		return nil, err
	}

	tasks := seg.tasks
	if tasks == nil {
		tasks = []Task{}
	}
	return &Result{
		Workflow: &Workflow{
			Name:       meta.WorkflowName,
			SystemName: meta.SystemName,
			Tasks:      tasks,
			RawData:    string(raw),
		},
		Anomalies: w.anomalies,
	}, nil
}

func (c *Compiler) resolveMetadata(doc *graph.Document, meta Metadata) (Metadata, error) {
	resolved := Metadata{
		WorkflowName: util.Coalesce(meta.WorkflowName, doc.WorkflowName),
		SystemName:   util.Coalesce(meta.SystemName, doc.SystemName, c.opts.DefaultSystem),
	}

	v := validation.New().
		Required("workflowName", resolved.WorkflowName).
		MaxLength("workflowName", resolved.WorkflowName, MaxNameLength).
		Required("systemName", resolved.SystemName)
	if len(c.opts.AllowedSystems) > 0 {
		v.OneOf("systemName", resolved.SystemName, c.opts.AllowedSystems)
	}
	if appErr := v.Validate(); appErr != nil {
		return Metadata{}, appErr
	}
	return resolved, nil
}

// resolveEntry returns the root the walk is anchored at and the first node
// to walk. With a start node the entry is its only child; otherwise the
// entry is the only parentless fork or program node.
func resolveEntry(idx *graph.Index) (root, entry string, err error) {
	if _, ok := idx.Node(graph.StartID); ok {
		children := idx.Children(graph.StartID)
		if len(children) != 1 {
			return "", "", errors.AmbiguousEntry(children)
		}
		return graph.StartID, children[0], nil
	}

	var candidates []string
	for _, n := range idx.Document().Nodes {
		if len(idx.Parents(n.ID)) > 0 {
			continue
		}
		if n.Kind == graph.KindFork || n.Kind.IsProgram() {
			candidates = append(candidates, n.ID)
		}
	}
	if len(candidates) != 1 {
		return "", "", errors.AmbiguousEntry(candidates)
	}
	return candidates[0], candidates[0], nil
}

func checkAcyclic(idx *graph.Index, root string) error {
	_, err := dag.BuildLevels(idx.Subgraph(idx.Reachable(root)))
	if err == nil {
		return nil
	}
	var cycle *dag.CycleError
	if stderrors.As(err, &cycle) {
		return errors.CycleDetected(cycle.Path)
	}
	return errors.Internal(err)
}

// segment is the outcome of one walk.
type segment struct {
	tasks []Task
	// endRef is the reference of the last emitted task; for a nested fork it
	// is the nested join's reference.
	endRef string
	// stoppedAt is the join a branch walk stopped in front of.
	stoppedAt string
}

type walker struct {
	idx       *graph.Index
	strict    bool
	onPath    map[string]bool
	path      []string
	anomalies []Anomaly
}

func (w *walker) enter(id string) error {
	if w.onPath[id] {
		start := 0
		for i, p := range w.path {
			if p == id {
				start = i
				break
			}
		}
		cycle := append(append([]string(nil), w.path[start:]...), id)
		return errors.CycleDetected(cycle)
	}
	w.onPath[id] = true
	w.path = append(w.path, id)
	return nil
}

// leave pops the path back to depth n.
func (w *walker) leave(n int) {
	for _, id := range w.path[n:] {
		delete(w.onPath, id)
	}
	w.path = w.path[:n]
}

func (w *walker) anomaly(code errors.ErrorCode, nodeID, format string, args ...any) {
	w.anomalies = append(w.anomalies, Anomaly{Code: code, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

// next returns the only child of id. Zero or several children stop the walk
// and are recorded as anomalies.
func (w *walker) next(id string) string {
	children := w.idx.Children(id)
	switch len(children) {
	case 1:
		return children[0]
	case 0:
		w.anomaly(errors.ErrCodeDeadEnd, id, "node %q has no successor", id)
	default:
		w.anomaly(errors.ErrCodeAmbiguousBranch, id, "node %q has %d successors but is not a fork", id, len(children))
	}
	return ""
}

// walk follows single successors from id. A branch walk stops in front of a
// join or a start node; every walk stops at an end node.
func (w *walker) walk(id string, branch bool) (segment, error) {
	var seg segment
	for cur := id; cur != ""; {
		node, ok := w.idx.Node(cur)
		if !ok {
			return seg, errors.UnknownNode("", cur)
		}

		switch node.Kind {
		case graph.KindEnd:
			return seg, nil

		case graph.KindStart:
			if branch {
				return seg, nil
			}
			if err := w.enter(cur); err != nil {
				return seg, err
			}
			cur = w.next(cur)

		case graph.KindJoin:
			if branch {
				seg.stoppedAt = cur
				return seg, nil
			}
			if err := w.enter(cur); err != nil {
				return seg, err
			}
			cur = w.next(cur)

		case graph.KindFork:
			if err := w.enter(cur); err != nil {
				return seg, err
			}
			fork, join, after, err := w.fork(cur)
			if err != nil {
				return seg, err
			}
			seg.tasks = append(seg.tasks, fork, join)
			seg.endRef = join.TaskReferenceName
			cur = after

		case graph.KindShell, graph.KindPython, graph.KindPromQL, graph.KindLocalFile, graph.KindRemoteFile:
			if err := w.enter(cur); err != nil {
				return seg, err
			}
			seg.tasks = append(seg.tasks, Task{
				Name:              node.Kind.TaskName(),
				TaskReferenceName: node.ID,
				Type:              TaskSimple,
				NodeData:          node.Payload,
			})
			seg.endRef = node.ID
			cur = w.next(cur)

		case graph.KindUnknown:
			return seg, errors.UnknownKind(node.ID, "")
		}
	}
	return seg, nil
}

// fork resolves the fork at forkID: it walks every branch in port order,
// finds the join the branches reconverge on and returns the FORK and JOIN
// tasks plus the node to resume at.
func (w *walker) fork(forkID string) (Task, Task, string, error) {
	edges := w.idx.Out(forkID)
	branches := make([][]Task, 0, len(edges))
	joinOn := make([]string, 0, len(edges))
	candidates := make([][]string, 0, len(edges))

	for _, e := range edges {
		first := e.Target.Cell
		depth := len(w.path)
		seg, err := w.walk(first, true)
		w.leave(depth)
		if err != nil {
			return Task{}, Task{}, "", err
		}

		tasks := seg.tasks
		if tasks == nil {
			tasks = []Task{}
		}
		branches = append(branches, tasks)

		end := util.Coalesce(seg.endRef, first)
		joinOn = append(joinOn, end)

		// A branch wired straight into the join offers the join itself.
		if seg.endRef == "" && seg.stoppedAt == first {
			candidates = append(candidates, []string{first})
		} else {
			candidates = append(candidates, w.idx.Children(end))
		}
	}

	forkTask := Task{Name: TaskNameFork, TaskReferenceName: forkID, Type: TaskFork, ForkTasks: branches}
	joinID := intersect(candidates)
	joinTask := Task{Name: TaskNameJoin, TaskReferenceName: joinID, Type: TaskJoin, JoinOn: joinOn}

	if joinID == "" {
		if w.strict {
			return Task{}, Task{}, "", errors.UnresolvedJoin(forkID)
		}
		w.anomaly(errors.ErrCodeUnresolvedJoin, forkID, "branches of fork %q do not reconverge on a common node", forkID)
		return forkTask, joinTask, "", nil
	}

	if n, _ := w.idx.Node(joinID); n.Kind == graph.KindEnd {
		// Branches that meet at an end node finish the walk there.
		return forkTask, joinTask, joinID, nil
	}
	if err := w.enter(joinID); err != nil {
		return Task{}, Task{}, "", err
	}
	return forkTask, joinTask, w.next(joinID), nil
}

// intersect returns the first element of the first set, in its order, that
// every other set contains.
func intersect(sets [][]string) string {
	if len(sets) == 0 {
		return ""
	}
	for _, candidate := range sets[0] {
		common := true
		for _, other := range sets[1:] {
			if !slices.Contains(other, candidate) {
				common = false
				break
			}
		}
		if common {
			return candidate
		}
	}
	return ""
}
