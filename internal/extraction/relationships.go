// File: internal/extraction/relationships.go
package extraction

import (
	"sort"

	"domainlens/api/schemas"
)

const (
	candidateImportStrength      = 0.5
	candidateSharedStateStrength = 0.8
)

// CalculateRelationships computes inter-candidate relationships for every
// ordered pair of merged candidates: a dependency relationship when any
// graph edge crosses from one candidate's files into the other's, and a
// shared_state relationship when their context-name sets intersect.
// Candidates are replaced, not mutated.
func (e *Extractor) CalculateRelationships(candidates []schemas.DomainCandidate, graph *schemas.DependencyGraph) []schemas.DomainCandidate {
	out := make([]schemas.DomainCandidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		var rels []schemas.DomainRelationship
		for j := range out {
			if i == j {
				continue
			}
			a, b := &out[i], &out[j]

			if crossingEdge(graph, a.SourceFiles, b.SourceFiles) {
				rels = append(rels, schemas.DomainRelationship{
					Type:     schemas.RelDependency,
					From:     a.ID,
					To:       b.ID,
					Strength: candidateImportStrength,
					Evidence: []string{"imports"},
				})
			}

			if shared := sharedContexts(a, b); len(shared) > 0 {
				rels = append(rels, schemas.DomainRelationship{
					Type:     schemas.RelSharedState,
					From:     a.ID,
					To:       b.ID,
					Strength: candidateSharedStateStrength,
					Evidence: shared,
				})
			}
		}
		out[i].Relationships = rels
	}
	return out
}

func crossingEdge(graph *schemas.DependencyGraph, from, to map[string]struct{}) bool {
	for _, e := range graph.Edges {
		if _, ok := from[e.Source]; !ok {
			continue
		}
		if _, ok := to[e.Target]; ok {
			return true
		}
	}
	return false
}

// sharedContexts returns the sorted intersection of the two candidates'
// context-name sets.
func sharedContexts(a, b *schemas.DomainCandidate) []string {
	setA := contextNameSet(a)
	if len(setA) == 0 {
		return nil
	}

	var shared []string
	for name := range contextNameSet(b) {
		if _, ok := setA[name]; ok {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	return shared
}

func contextNameSet(c *schemas.DomainCandidate) map[string]struct{} {
	set := make(map[string]struct{})
	for i := range c.Patterns {
		for _, name := range c.Patterns[i].ContextNames() {
			set[name] = struct{}{}
		}
	}
	return set
}
