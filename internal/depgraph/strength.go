// File: internal/depgraph/strength.go
package depgraph

import "domainlens/api/schemas"

const (
	strengthDirectEdge    = 0.5
	strengthReexport      = 0.2
	strengthPerName       = 0.05
	strengthPerNameCap    = 0.2
	strengthSameComponent = 0.1
)

// RelationshipStrength scores how tightly two files are coupled. The score
// is symmetric: a direct edge in either direction contributes the base, a
// re-exporting edge adds more, imported-name count adds a capped amount, and
// sharing a connected component without a direct edge adds a weak signal.
// The total is capped at 1.0.
func RelationshipStrength(g *schemas.DependencyGraph, a, b string) float64 {
	var direct *schemas.GraphEdge
	for i := range g.Edges {
		e := &g.Edges[i]
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			direct = e
			break
		}
	}

	score := 0.0
	if direct != nil {
		score = strengthDirectEdge
		if direct.IsReexport {
			score += strengthReexport
		}
		nameBonus := strengthPerName * float64(len(direct.ImportedNames))
		if nameBonus > strengthPerNameCap {
			nameBonus = strengthPerNameCap
		}
		score += nameBonus
	} else if sameComponent(g, a, b) {
		score += strengthSameComponent
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func sameComponent(g *schemas.DependencyGraph, a, b string) bool {
	for _, component := range FindConnectedComponents(g) {
		foundA, foundB := false, false
		for _, n := range component {
			if n == a {
				foundA = true
			}
			if n == b {
				foundB = true
			}
		}
		if foundA && foundB {
			return true
		}
		if foundA || foundB {
			return false
		}
	}
	return false
}
