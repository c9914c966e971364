package schemas

// GraphEdge is a resolved local import from one analyzed file to another.
type GraphEdge struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	ImportedNames []string `json:"imported_names,omitempty"`
	IsReexport    bool     `json:"is_reexport"`
}

// DependencyGraph is the directed import graph over one analysis batch.
// It is built once and read-only afterwards; traversal helpers live in
// internal/depgraph.
type DependencyGraph struct {
	Nodes map[string]struct{} `json:"nodes"`
	Edges []GraphEdge         `json:"edges"`
}

// HasNode reports whether path is part of the analyzed batch.
func (g *DependencyGraph) HasNode(path string) bool {
	_, ok := g.Nodes[path]
	return ok
}
