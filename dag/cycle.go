package dag

const (
	white = iota
	gray
	black
)

// FindCycle returns one cycle as a node path with the first node repeated
// at the end, or nil when the graph is acyclic. Traversal follows insertion
// order so the reported cycle is stable.
func FindCycle(g *Graph) []string {
	adjacency := make(map[string][]string)
	for _, e := range g.Edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	color := make(map[string]int, len(g.nodes))
	var path []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		path = append(path, node)

		for _, next := range adjacency[node] {
			switch color[next] {
			case gray:
				start := 0
				for i, n := range path {
					if n == next {
						start = i
						break
					}
				}
				cycle := append([]string(nil), path[start:]...)
				return append(cycle, next)
			case white:
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		color[node] = black
		return nil
	}

	for _, name := range g.nodes {
		if color[name] == white {
			if cycle := dfs(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
