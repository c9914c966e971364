// File: internal/clustering/relationships.go
// Description: Domain-level relationship analysis: classifies how clustered
// domains relate, and detects cycles on the domain dependency graph.

package clustering

import (
	"fmt"
	"sort"

	"domainlens/api/schemas"
	"domainlens/internal/depgraph"
)

// Relationship strengths at the domain level. Shared state couples domains
// most tightly, event flow less so, plain imports least.
const (
	strengthSharedState = 0.8
	strengthEventFlow   = 0.6
	strengthDependency  = 0.5
)

// relationshipEvidence accumulates everything observed between one ordered
// pair of domains before classification.
type relationshipEvidence struct {
	importCount    int
	sharedContexts []string
	callbackFlows  []string
}

func (ev *relationshipEvidence) empty() bool {
	return ev.importCount == 0 && len(ev.sharedContexts) == 0 && len(ev.callbackFlows) == 0
}

// AnalyzeAllRelationships examines every ordered pair of clusters and emits
// one relationship per pair with observed evidence. Strength is symmetric;
// From/To record which side the crossing was observed on.
func (e *Engine) AnalyzeAllRelationships(clusters []Cluster, summaries []schemas.DomainSummary, graph *schemas.DependencyGraph) []schemas.DomainRelationship {
	if len(clusters) != len(summaries) {
		return nil
	}

	var rels []schemas.DomainRelationship
	for i := range clusters {
		for j := range clusters {
			if i == j {
				continue
			}
			ev := gatherEvidence(&clusters[i], &clusters[j], graph)
			if ev.empty() {
				continue
			}
			relType, strength := DetermineRelationshipType(ev)
			rels = append(rels, schemas.DomainRelationship{
				Type:     relType,
				From:     summaries[i].ID,
				To:       summaries[j].ID,
				Strength: strength,
				Evidence: describeEvidence(ev),
			})
		}
	}
	return rels
}

// DetermineRelationshipType classifies a pair from its evidence. Shared
// context names dominate, then callback flow, then import-only crossings.
func DetermineRelationshipType(ev *relationshipEvidence) (schemas.RelationshipType, float64) {
	switch {
	case len(ev.sharedContexts) > 0:
		return schemas.RelSharedState, strengthSharedState
	case len(ev.callbackFlows) > 0:
		return schemas.RelEventFlow, strengthEventFlow
	default:
		return schemas.RelDependency, strengthDependency
	}
}

// gatherEvidence inspects graph edges crossing from a into b, plus the
// context names both sides touch.
func gatherEvidence(a, b *Cluster, graph *schemas.DependencyGraph) *relationshipEvidence {
	ev := &relationshipEvidence{}
	aFiles, bFiles := a.SourceFiles(), b.SourceFiles()
	bCallbacks := callbackNames(b)

	for _, edge := range graph.Edges {
		if _, ok := aFiles[edge.Source]; !ok {
			continue
		}
		if _, ok := bFiles[edge.Target]; !ok {
			continue
		}
		ev.importCount++
		for _, name := range edge.ImportedNames {
			if _, ok := bCallbacks[name]; ok {
				ev.callbackFlows = append(ev.callbackFlows, name)
			}
		}
	}

	aContexts := a.contextNames()
	for name := range b.contextNames() {
		if _, ok := aContexts[name]; ok {
			ev.sharedContexts = append(ev.sharedContexts, name)
		}
	}
	sort.Strings(ev.sharedContexts)
	sort.Strings(ev.callbackFlows)
	return ev
}

func callbackNames(c *Cluster) map[string]struct{} {
	names := make(map[string]struct{})
	for i := range c.Candidates {
		for j := range c.Candidates[i].Patterns {
			for _, n := range c.Candidates[i].Patterns[j].CallbackNames() {
				names[n] = struct{}{}
			}
		}
	}
	return names
}

func describeEvidence(ev *relationshipEvidence) []string {
	var out []string
	if ev.importCount > 0 {
		out = append(out, fmt.Sprintf("%d crossing import(s)", ev.importCount))
	}
	for _, c := range ev.sharedContexts {
		out = append(out, "shared context: "+c)
	}
	for _, cb := range ev.callbackFlows {
		out = append(out, "callback: "+cb)
	}
	return out
}

// DetectCyclicDependencies builds a domain-level graph from the dependency
// relationships and reuses the file-level cycle search on it. Each returned
// slice is a chain of domain IDs forming a cycle.
func DetectCyclicDependencies(rels []schemas.DomainRelationship) [][]string {
	g := schemas.DependencyGraph{Nodes: make(map[string]struct{})}
	seen := make(map[string]struct{})
	for _, r := range rels {
		if r.Type != schemas.RelDependency {
			continue
		}
		g.Nodes[r.From] = struct{}{}
		g.Nodes[r.To] = struct{}{}
		key := r.From + "->" + r.To
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g.Edges = append(g.Edges, schemas.GraphEdge{Source: r.From, Target: r.To})
	}
	if len(g.Edges) == 0 {
		return nil
	}
	return depgraph.FindCycles(&g)
}
