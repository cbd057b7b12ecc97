package dag

import (
	"errors"
	"slices"
	"testing"
)

func build(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestBuildLevels_Linear(t *testing.T) {
	g := build(t, []string{"start", "a", "b", "end"}, [][2]string{
		{"start", "a"}, {"a", "b"}, {"b", "end"},
	})

	levels, err := BuildLevels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 4 {
		t.Fatalf("expected 4 levels, got %d: %v", len(levels), levels)
	}
	for i, want := range []string{"start", "a", "b", "end"} {
		if len(levels[i]) != 1 || levels[i][0] != want {
			t.Errorf("level %d = %v, want [%s]", i, levels[i], want)
		}
	}
}

func TestBuildLevels_Diamond(t *testing.T) {
	g := build(t, []string{"fork", "b2", "b1", "join"}, [][2]string{
		{"fork", "b1"}, {"fork", "b2"}, {"b1", "join"}, {"b2", "join"},
	})

	levels, err := BuildLevels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %v", levels)
	}
	if !slices.Equal(levels[1], []string{"b1", "b2"}) {
		t.Errorf("expected parallel level in edge order [b1 b2], got %v", levels[1])
	}
}

func TestBuildLevels_Cycle(t *testing.T) {
	g := build(t, []string{"start", "a", "b", "c"}, [][2]string{
		{"start", "a"}, {"a", "b"}, {"b", "c"}, {"c", "a"},
	})

	_, err := BuildLevels(g)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Path, []string{"a", "b", "c", "a"}) {
		t.Errorf("unexpected cycle path %v", cycleErr.Path)
	}
	if !slices.Equal(cycleErr.Blocked, []string{"a", "b", "c"}) {
		t.Errorf("unexpected blocked nodes %v", cycleErr.Blocked)
	}
	if err.Error() != "dag: cycle detected: a -> b -> c -> a" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestBuildLevels_Empty(t *testing.T) {
	levels, err := BuildLevels(New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("expected no levels, got %v", levels)
	}
}

func TestFindCycle(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{"acyclic", []string{"a", "b"}, [][2]string{{"a", "b"}}, nil},
		{"self loop", []string{"a"}, [][2]string{{"a", "a"}}, []string{"a", "a"}},
		{"two node", []string{"x", "y"}, [][2]string{{"x", "y"}, {"y", "x"}}, []string{"x", "y", "x"}},
		{"cycle behind tail", []string{"s", "a", "b"}, [][2]string{{"s", "a"}, {"a", "b"}, {"b", "a"}}, []string{"a", "b", "a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FindCycle(build(t, tc.nodes, tc.edges))
			if !slices.Equal(got, tc.want) {
				t.Errorf("FindCycle() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAddNode_Idempotent(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("a")
	g.AddNode("b")
	if g.Len() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Len())
	}
	if !slices.Equal(g.Nodes(), []string{"a", "b"}) {
		t.Errorf("unexpected nodes %v", g.Nodes())
	}
}

func TestAddEdge_UnknownNode(t *testing.T) {
	g := New()
	g.AddNode("a")
	if err := g.AddEdge("a", "ghost"); err == nil {
		t.Error("expected error for unknown target")
	}
	if err := g.AddEdge("ghost", "a"); err == nil {
		t.Error("expected error for unknown source")
	}
}
