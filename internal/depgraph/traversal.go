// File: internal/depgraph/traversal.go
package depgraph

import "domainlens/api/schemas"

// FindCycles runs a depth-first traversal over the directed graph,
// maintaining the current path stack and a recursion-stack set. Hitting a
// node already on the recursion stack records the sub-path from that node to
// the current one as a cycle.
//
// Overlapping cycles are NOT deduplicated. The over-reporting bias is
// intentional: downstream consumers prefer recall over precision here.
func FindCycles(g *schemas.DependencyGraph) [][]string {
	adj := adjacency(g)
	var cycles [][]string

	visited := make(map[string]struct{}, len(g.Nodes))
	onStack := make(map[string]struct{})
	var stack []string

	var visit func(node string)
	visit = func(node string) {
		visited[node] = struct{}{}
		onStack[node] = struct{}{}
		stack = append(stack, node)

		for _, next := range adj[node] {
			if _, ok := onStack[next]; ok {
				// Record the sub-path from next back to the current node.
				start := 0
				for i, n := range stack {
					if n == next {
						start = i
						break
					}
				}
				cycle := make([]string, len(stack)-start)
				copy(cycle, stack[start:])
				cycles = append(cycles, cycle)
				continue
			}
			if _, ok := visited[next]; !ok {
				visit(next)
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, node)
	}

	for _, node := range sortedNodes(g) {
		if _, ok := visited[node]; !ok {
			visit(node)
		}
	}
	return cycles
}

// FindConnectedComponents groups nodes by breadth-first traversal over the
// undirected view of the graph. This is a weak-signal grouping heuristic,
// not a correctness-critical connectivity guarantee.
func FindConnectedComponents(g *schemas.DependencyGraph) [][]string {
	adj := undirectedAdjacency(g)
	visited := make(map[string]struct{}, len(g.Nodes))
	var components [][]string

	for _, start := range sortedNodes(g) {
		if _, ok := visited[start]; ok {
			continue
		}

		component := []string{}
		queue := []string{start}
		visited[start] = struct{}{}

		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)

			for _, next := range adj[node] {
				if _, ok := visited[next]; !ok {
					visited[next] = struct{}{}
					queue = append(queue, next)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// FindAllDependencies returns the breadth-first forward closure from start:
// every file start transitively imports.
func FindAllDependencies(g *schemas.DependencyGraph, start string) []string {
	return bfsClosure(adjacency(g), start)
}

// FindAllDependents returns the breadth-first reverse closure from start:
// every file that transitively imports start.
func FindAllDependents(g *schemas.DependencyGraph, start string) []string {
	return bfsClosure(reverseAdjacency(g), start)
}

func bfsClosure(adj map[string][]string, start string) []string {
	visited := map[string]struct{}{start: {}}
	var result []string
	queue := []string{start}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, next := range adj[node] {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			result = append(result, next)
			queue = append(queue, next)
		}
	}
	return result
}
