package payload

import (
	"encoding/json"
	"sync"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/util"
	"github.com/kbukum/flowgraph/validation"
)

// Factory returns a fresh zero configuration to decode into.
type Factory func() Config

// Registry maps program kinds to their configuration schema.
type Registry struct {
	mu        sync.RWMutex
	factories map[graph.Kind]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[graph.Kind]Factory)}
}

// DefaultRegistry returns a registry with every built-in program kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(graph.KindShell, func() Config { return &Shell{} })
	r.Register(graph.KindPython, func() Config { return &Python{} })
	r.Register(graph.KindPromQL, func() Config { return &PromQL{} })
	r.Register(graph.KindLocalFile, func() Config { return &LocalFile{} })
	r.Register(graph.KindRemoteFile, func() Config { return &RemoteFile{} })
	return r
}

// Register sets the schema for kind, replacing any previous one.
func (r *Registry) Register(kind graph.Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Get returns the schema factory for kind.
func (r *Registry) Get(kind graph.Kind) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []graph.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedKeys(r.factories)
}

// Decode parses and validates raw as the configuration of kind. A nil raw
// decodes as an empty object, so required fields still fail.
func (r *Registry) Decode(kind graph.Kind, raw json.RawMessage) (Config, error) {
	f, ok := r.Get(kind)
	if !ok {
		return nil, errors.InvalidInput("kind", "no configuration schema for "+kind.String())
	}
	cfg := f()
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.InvalidInput("data", err.Error()).WithCause(err)
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check validates the configuration of a program node. Nodes of other kinds
// and kinds without a registered schema pass.
func (r *Registry) Check(n graph.Node) error {
	if !n.Kind.IsProgram() {
		return nil
	}
	if _, ok := r.Get(n.Kind); !ok {
		return nil
	}
	if _, err := r.Decode(n.Kind, n.Payload); err != nil {
		return errors.InvalidPayload(n.ID, err)
	}
	return nil
}

// CheckAll validates every program node of doc and returns the first failure.
func (r *Registry) CheckAll(doc *graph.Document) error {
	for _, n := range doc.Nodes {
		if err := r.Check(n); err != nil {
			return err
		}
	}
	return nil
}
