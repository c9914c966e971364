// File: internal/clustering/cluster.go
// Description: Refines merged domain candidates into clusters using graph
// connectivity and naming similarity, then lifts clusters into domain
// summaries with computed boundaries.

package clustering

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/config"
	"domainlens/internal/extraction"
)

// Engine clusters candidates and analyzes domain-level relationships.
type Engine struct {
	cfg    config.ClusteringConfig
	logger *zap.Logger
}

// NewEngine creates a clustering Engine.
func NewEngine(cfg config.ClusteringConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger.Named("clustering")}
}

// Cluster is a connected group of candidates believed to form one domain.
// Undersized clusters carry NeedsReview; they stay standalone singleton
// domains rather than being pooled or discarded.
type Cluster struct {
	Candidates  []schemas.DomainCandidate
	NeedsReview bool
}

// SourceFiles returns the union of the member candidates' file sets.
func (c *Cluster) SourceFiles() map[string]struct{} {
	files := make(map[string]struct{})
	for i := range c.Candidates {
		for f := range c.Candidates[i].SourceFiles {
			files[f] = struct{}{}
		}
	}
	return files
}

// lead returns the highest-confidence member, which lends the cluster its
// identity.
func (c *Cluster) lead() *schemas.DomainCandidate {
	best := &c.Candidates[0]
	for i := range c.Candidates[1:] {
		if c.Candidates[i+1].Confidence > best.Confidence {
			best = &c.Candidates[i+1]
		}
	}
	return best
}

// contextNames returns every context name referenced by the cluster's
// patterns.
func (c *Cluster) contextNames() map[string]struct{} {
	names := make(map[string]struct{})
	for i := range c.Candidates {
		for j := range c.Candidates[i].Patterns {
			for _, n := range c.Candidates[i].Patterns[j].ContextNames() {
				names[n] = struct{}{}
			}
		}
	}
	return names
}

// PerformClustering groups candidates via union-find: two candidates join
// when a graph edge crosses between their file sets (either direction) or
// their names are similar. Groups smaller than minClusterSize are broken
// back into singleton clusters flagged for review.
func (e *Engine) PerformClustering(candidates []schemas.DomainCandidate, graph *schemas.DependencyGraph, minClusterSize int) []Cluster {
	if minClusterSize < 1 {
		minClusterSize = e.cfg.MinClusterSize
	}
	if len(candidates) == 0 {
		return nil
	}

	parent := make([]int, len(candidates))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) { parent[find(a)] = find(b) }

	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if e.related(&candidates[i], &candidates[j], graph) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]schemas.DomainCandidate)
	var order []int
	for i := range candidates {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], candidates[i])
	}

	var clusters []Cluster
	for _, root := range order {
		group := groups[root]
		if len(group) >= minClusterSize {
			clusters = append(clusters, Cluster{Candidates: group})
			continue
		}
		// Undersized: emit each member as its own reviewed singleton.
		for _, c := range group {
			clusters = append(clusters, Cluster{Candidates: []schemas.DomainCandidate{c}, NeedsReview: true})
		}
	}

	e.logger.Debug("Clustering complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("clusters", len(clusters)),
	)
	return clusters
}

// related reports whether two candidates belong together: connected through
// the import graph or similarly named.
func (e *Engine) related(a, b *schemas.DomainCandidate, graph *schemas.DependencyGraph) bool {
	if similarNames(a.Name, b.Name) {
		return true
	}
	return filesConnected(graph, a.SourceFiles, b.SourceFiles) ||
		filesConnected(graph, b.SourceFiles, a.SourceFiles)
}

// similarNames holds for equal normalized names or one name containing the
// other (minimum three characters, so "cart" and "cartitems" join while
// single letters never do).
func similarNames(a, b string) bool {
	na, nb := extraction.NormalizeName(a), extraction.NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) < 3 || len(nb) < 3 {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func filesConnected(graph *schemas.DependencyGraph, from, to map[string]struct{}) bool {
	for _, edge := range graph.Edges {
		if _, ok := from[edge.Source]; !ok {
			continue
		}
		if _, ok := to[edge.Target]; ok {
			return true
		}
	}
	return false
}

// ClustersToDomainSummaries lifts each cluster into a DomainSummary:
// identity from the highest-confidence member, confidence as the arithmetic
// mean over members, and boundaries computed from edges crossing the cluster
// plus shared-context evidence against the other clusters.
func (e *Engine) ClustersToDomainSummaries(clusters []Cluster, graph *schemas.DependencyGraph) []schemas.DomainSummary {
	summaries := make([]schemas.DomainSummary, 0, len(clusters))

	for i := range clusters {
		cluster := &clusters[i]
		lead := cluster.lead()
		files := cluster.SourceFiles()

		total := 0.0
		for _, c := range cluster.Candidates {
			total += c.Confidence
		}
		confidence := total / float64(len(cluster.Candidates))

		summary := schemas.DomainSummary{
			ID:          lead.ID,
			Name:        lead.Name,
			Description: describeCluster(cluster),
			SourceFiles: sortedKeys(files),
			SuggestedBy: lead.SuggestedBy,
			Confidence:  confidence,
			NeedsReview: cluster.NeedsReview,
			Boundaries:  boundaries(files, graph),
		}
		if cluster.NeedsReview {
			summary.ReviewNotes = append(summary.ReviewNotes, "cluster below minimum size; kept as standalone domain")
		}

		summary.Entities, summary.Actions = entitiesAndActions(cluster)
		summary.Boundaries.SharedState = sharedStateWithOthers(cluster, clusters)

		summaries = append(summaries, summary)
	}
	return summaries
}

// boundaries collects import/export crossings for a file set: outside
// targets the cluster imports, and cluster files that outside files import.
func boundaries(files map[string]struct{}, graph *schemas.DependencyGraph) schemas.DomainBoundaries {
	imports := make(map[string]struct{})
	exports := make(map[string]struct{})

	for _, edge := range graph.Edges {
		_, srcIn := files[edge.Source]
		_, dstIn := files[edge.Target]
		switch {
		case srcIn && !dstIn:
			imports[edge.Target] = struct{}{}
		case !srcIn && dstIn:
			exports[edge.Target] = struct{}{}
		}
	}

	return schemas.DomainBoundaries{
		Imports: sortedKeys(imports),
		Exports: sortedKeys(exports),
	}
}

// sharedStateWithOthers intersects this cluster's context names with every
// other cluster's.
func sharedStateWithOthers(cluster *Cluster, all []Cluster) []string {
	mine := cluster.contextNames()
	if len(mine) == 0 {
		return nil
	}

	shared := make(map[string]struct{})
	for i := range all {
		if &all[i] == cluster {
			continue
		}
		for name := range all[i].contextNames() {
			if _, ok := mine[name]; ok {
				shared[name] = struct{}{}
			}
		}
	}
	if len(shared) == 0 {
		return nil
	}
	return sortedKeys(shared)
}

// entitiesAndActions derives the summary's entity and action lists from the
// cluster's patterns: contexts and components suggest entities, reducer
// actions and callbacks suggest actions.
func entitiesAndActions(cluster *Cluster) (entities, actions []string) {
	entitySet := make(map[string]struct{})
	actionSet := make(map[string]struct{})

	for i := range cluster.Candidates {
		for j := range cluster.Candidates[i].Patterns {
			p := &cluster.Candidates[i].Patterns[j]
			switch p.Kind {
			case schemas.KindContext:
				if p.Context != nil {
					entitySet[p.Context.ContextName] = struct{}{}
				}
			case schemas.KindComponent:
				entitySet[p.Name] = struct{}{}
			case schemas.KindForm:
				entitySet[p.Name] = struct{}{}
			case schemas.KindReducer:
				if p.Reducer != nil {
					for _, a := range p.Reducer.Actions {
						actionSet[a] = struct{}{}
					}
				}
			}
			for _, cb := range p.CallbackNames() {
				actionSet[cb] = struct{}{}
			}
		}
	}
	return sortedKeys(entitySet), sortedKeys(actionSet)
}

func describeCluster(cluster *Cluster) string {
	strategies := make(map[schemas.Strategy]struct{})
	for _, c := range cluster.Candidates {
		strategies[c.SuggestedBy] = struct{}{}
	}
	names := make([]string, 0, len(strategies))
	for s := range strategies {
		names = append(names, string(s))
	}
	sort.Strings(names)

	return fmt.Sprintf("Domain %q grouped from %d candidate(s) suggested by %s signals",
		cluster.lead().Name, len(cluster.Candidates), strings.Join(names, ", "))
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
