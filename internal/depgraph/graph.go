// File: internal/depgraph/graph.go
// Description: Builds the directed import graph for one analysis batch and
// exposes sorted adjacency views for deterministic traversal.

package depgraph

import (
	"sort"

	"domainlens/api/schemas"
)

// Build constructs the dependency graph for a batch of file analyses. The
// node set is every analyzed path; each import whose specifier resolves to a
// known file becomes one edge, annotated with the imported names and whether
// any of those names is re-exported by the importing file.
func Build(analyses []schemas.FileAnalysis) *schemas.DependencyGraph {
	known := make(map[string]struct{}, len(analyses))
	for _, a := range analyses {
		known[a.Path] = struct{}{}
	}

	g := &schemas.DependencyGraph{Nodes: known}

	for _, a := range analyses {
		exports := make(map[string]struct{}, len(a.Exports))
		for _, e := range a.Exports {
			exports[e] = struct{}{}
		}

		for _, imp := range a.Imports {
			target := ResolveImportPath(a.Path, imp.Specifier, known)
			if target == "" {
				continue
			}

			reexport := false
			for _, name := range imp.Names {
				if _, ok := exports[name]; ok {
					reexport = true
					break
				}
			}

			g.Edges = append(g.Edges, schemas.GraphEdge{
				Source:        a.Path,
				Target:        target,
				ImportedNames: imp.Names,
				IsReexport:    reexport,
			})
		}
	}
	return g
}

// adjacency materializes a sorted forward adjacency map. Sorting makes every
// traversal independent of input edge ordering.
func adjacency(g *schemas.DependencyGraph) map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	for _, targets := range adj {
		sort.Strings(targets)
	}
	return adj
}

// reverseAdjacency materializes the sorted reverse adjacency map.
func reverseAdjacency(g *schemas.DependencyGraph) map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for _, sources := range adj {
		sort.Strings(sources)
	}
	return adj
}

// undirectedAdjacency merges both edge directions, for component analysis.
func undirectedAdjacency(g *schemas.DependencyGraph) map[string][]string {
	seen := make(map[string]map[string]struct{}, len(g.Nodes))
	add := func(a, b string) {
		if seen[a] == nil {
			seen[a] = make(map[string]struct{})
		}
		seen[a][b] = struct{}{}
	}
	for _, e := range g.Edges {
		add(e.Source, e.Target)
		add(e.Target, e.Source)
	}

	adj := make(map[string][]string, len(seen))
	for node, neighbors := range seen {
		list := make([]string, 0, len(neighbors))
		for n := range neighbors {
			list = append(list, n)
		}
		sort.Strings(list)
		adj[node] = list
	}
	return adj
}

// sortedNodes returns the node set in lexical order.
func sortedNodes(g *schemas.DependencyGraph) []string {
	nodes := make([]string, 0, len(g.Nodes))
	for n := range g.Nodes {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}
