// File: internal/clustering/clustering_test.go

package clustering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.NewDefaultConfig()
	return NewEngine(cfg.Clustering, zap.NewNop())
}

func candidate(name string, confidence float64, files ...string) schemas.DomainCandidate {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	return schemas.DomainCandidate{
		ID:          uuid.NewString(),
		Name:        name,
		SuggestedBy: schemas.StrategyContext,
		SourceFiles: set,
		Confidence:  confidence,
	}
}

func graphWithEdges(edges ...schemas.GraphEdge) *schemas.DependencyGraph {
	g := &schemas.DependencyGraph{Nodes: make(map[string]struct{}), Edges: edges}
	for _, e := range edges {
		g.Nodes[e.Source] = struct{}{}
		g.Nodes[e.Target] = struct{}{}
	}
	return g
}

func withContextPattern(c schemas.DomainCandidate, contextName string) schemas.DomainCandidate {
	c.Patterns = append(c.Patterns, schemas.Pattern{
		Kind:    schemas.KindContext,
		Name:    contextName,
		Context: &schemas.ContextMeta{ContextName: contextName, HasProvider: true},
	})
	return c
}

func TestPerformClusteringJoinsConnectedCandidates(t *testing.T) {
	e := newTestEngine(t)
	a := candidate("auth", 0.9, "src/auth/AuthContext.tsx")
	b := candidate("session", 0.7, "src/session/useSession.ts")
	graph := graphWithEdges(schemas.GraphEdge{
		Source: "src/session/useSession.ts",
		Target: "src/auth/AuthContext.tsx",
	})

	clusters := e.PerformClustering([]schemas.DomainCandidate{a, b}, graph, 2)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Candidates, 2)
	assert.False(t, clusters[0].NeedsReview)
}

func TestPerformClusteringJoinsSimilarNames(t *testing.T) {
	e := newTestEngine(t)
	a := candidate("cart", 0.8, "src/cart/CartContext.tsx")
	b := candidate("cart-items", 0.6, "src/cart/items/list.ts")
	graph := graphWithEdges()

	clusters := e.PerformClustering([]schemas.DomainCandidate{a, b}, graph, 2)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Candidates, 2)
}

func TestPerformClusteringUndersizedBecomeSingletons(t *testing.T) {
	e := newTestEngine(t)
	a := candidate("auth", 0.9, "src/auth/a.ts")
	b := candidate("billing", 0.8, "src/billing/b.ts")
	graph := graphWithEdges()

	clusters := e.PerformClustering([]schemas.DomainCandidate{a, b}, graph, 2)

	require.Len(t, clusters, 2)
	for _, c := range clusters {
		assert.Len(t, c.Candidates, 1)
		assert.True(t, c.NeedsReview, "undersized clusters are kept but flagged")
	}
}

func TestPerformClusteringEmptyInput(t *testing.T) {
	e := newTestEngine(t)
	assert.Nil(t, e.PerformClustering(nil, graphWithEdges(), 2))
}

func TestClustersToDomainSummaries(t *testing.T) {
	e := newTestEngine(t)
	lead := withContextPattern(candidate("auth", 0.9, "src/auth/AuthContext.tsx"), "AuthContext")
	other := candidate("auth", 0.7, "src/auth/useAuth.ts")
	cluster := Cluster{Candidates: []schemas.DomainCandidate{other, lead}}

	graph := graphWithEdges(
		schemas.GraphEdge{Source: "src/auth/useAuth.ts", Target: "src/shared/api.ts"},
		schemas.GraphEdge{Source: "src/app/App.tsx", Target: "src/auth/AuthContext.tsx"},
	)

	summaries := e.ClustersToDomainSummaries([]Cluster{cluster}, graph)
	require.Len(t, summaries, 1)
	s := summaries[0]

	assert.Equal(t, lead.ID, s.ID, "identity comes from the highest-confidence member")
	assert.Equal(t, "auth", s.Name)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9, "mean of member confidences")
	assert.ElementsMatch(t, []string{"src/auth/AuthContext.tsx", "src/auth/useAuth.ts"}, s.SourceFiles)
	assert.Equal(t, []string{"src/shared/api.ts"}, s.Boundaries.Imports)
	assert.Equal(t, []string{"src/auth/AuthContext.tsx"}, s.Boundaries.Exports)
	assert.Contains(t, s.Entities, "AuthContext")
	assert.False(t, s.NeedsReview)
}

func TestSummariesFlagUndersizedClusters(t *testing.T) {
	e := newTestEngine(t)
	cluster := Cluster{Candidates: []schemas.DomainCandidate{candidate("misc", 0.6, "src/misc/x.ts")}, NeedsReview: true}

	summaries := e.ClustersToDomainSummaries([]Cluster{cluster}, graphWithEdges())
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].NeedsReview)
	assert.NotEmpty(t, summaries[0].ReviewNotes)
}

func TestSharedStateBoundary(t *testing.T) {
	e := newTestEngine(t)
	a := Cluster{Candidates: []schemas.DomainCandidate{
		withContextPattern(candidate("auth", 0.9, "src/auth/a.ts"), "UserContext"),
	}}
	b := Cluster{Candidates: []schemas.DomainCandidate{
		withContextPattern(candidate("profile", 0.8, "src/profile/p.ts"), "UserContext"),
	}}

	summaries := e.ClustersToDomainSummaries([]Cluster{a, b}, graphWithEdges())
	require.Len(t, summaries, 2)
	assert.Equal(t, []string{"UserContext"}, summaries[0].Boundaries.SharedState)
	assert.Equal(t, []string{"UserContext"}, summaries[1].Boundaries.SharedState)
}

func TestAnalyzeAllRelationshipsDependency(t *testing.T) {
	e := newTestEngine(t)
	clusters := []Cluster{
		{Candidates: []schemas.DomainCandidate{candidate("cart", 0.8, "src/cart/c.ts")}},
		{Candidates: []schemas.DomainCandidate{candidate("catalog", 0.8, "src/catalog/k.ts")}},
	}
	graph := graphWithEdges(schemas.GraphEdge{
		Source: "src/cart/c.ts", Target: "src/catalog/k.ts", ImportedNames: []string{"getProduct"},
	})
	summaries := e.ClustersToDomainSummaries(clusters, graph)

	rels := e.AnalyzeAllRelationships(clusters, summaries, graph)
	require.Len(t, rels, 1)
	assert.Equal(t, schemas.RelDependency, rels[0].Type)
	assert.Equal(t, summaries[0].ID, rels[0].From)
	assert.Equal(t, summaries[1].ID, rels[0].To)
	assert.InDelta(t, strengthDependency, rels[0].Strength, 1e-9)
	assert.Contains(t, rels[0].Evidence, "1 crossing import(s)")
}

func TestAnalyzeAllRelationshipsSharedStateWins(t *testing.T) {
	e := newTestEngine(t)
	clusters := []Cluster{
		{Candidates: []schemas.DomainCandidate{
			withContextPattern(candidate("auth", 0.9, "src/auth/a.ts"), "UserContext"),
		}},
		{Candidates: []schemas.DomainCandidate{
			withContextPattern(candidate("profile", 0.8, "src/profile/p.ts"), "UserContext"),
		}},
	}
	graph := graphWithEdges(schemas.GraphEdge{Source: "src/auth/a.ts", Target: "src/profile/p.ts"})
	summaries := e.ClustersToDomainSummaries(clusters, graph)

	rels := e.AnalyzeAllRelationships(clusters, summaries, graph)
	require.NotEmpty(t, rels)

	var forward *schemas.DomainRelationship
	for i := range rels {
		if rels[i].From == summaries[0].ID {
			forward = &rels[i]
		}
	}
	require.NotNil(t, forward)
	assert.Equal(t, schemas.RelSharedState, forward.Type, "shared context outranks plain imports")
	assert.InDelta(t, strengthSharedState, forward.Strength, 1e-9)
	assert.Contains(t, forward.Evidence, "shared context: UserContext")
}

func TestAnalyzeAllRelationshipsEventFlow(t *testing.T) {
	e := newTestEngine(t)
	target := candidate("checkout", 0.8, "src/checkout/form.tsx")
	target.Patterns = append(target.Patterns, schemas.Pattern{
		Kind:      schemas.KindComponent,
		Name:      "CheckoutForm",
		Component: &schemas.ComponentMeta{Callbacks: []string{"onSubmitOrder"}},
	})
	clusters := []Cluster{
		{Candidates: []schemas.DomainCandidate{candidate("cart", 0.8, "src/cart/c.ts")}},
		{Candidates: []schemas.DomainCandidate{target}},
	}
	graph := graphWithEdges(schemas.GraphEdge{
		Source: "src/cart/c.ts", Target: "src/checkout/form.tsx", ImportedNames: []string{"onSubmitOrder"},
	})
	summaries := e.ClustersToDomainSummaries(clusters, graph)

	rels := e.AnalyzeAllRelationships(clusters, summaries, graph)
	require.Len(t, rels, 1)
	assert.Equal(t, schemas.RelEventFlow, rels[0].Type)
	assert.Contains(t, rels[0].Evidence, "callback: onSubmitOrder")
}

func TestDetectCyclicDependencies(t *testing.T) {
	rels := []schemas.DomainRelationship{
		{Type: schemas.RelDependency, From: "A", To: "B"},
		{Type: schemas.RelDependency, From: "B", To: "A"},
		{Type: schemas.RelSharedState, From: "A", To: "C"},
	}

	cycles := DetectCyclicDependencies(rels)
	require.NotEmpty(t, cycles)
	for _, cycle := range cycles {
		assert.NotContains(t, cycle, "C", "non-dependency relationships do not form cycles")
	}
}

func TestDetectConflicts(t *testing.T) {
	e := newTestEngine(t)
	summaries := []schemas.DomainSummary{
		{ID: "d1", Name: "auth", Confidence: 0.9, SourceFiles: []string{"src/shared/session.ts", "src/auth/a.ts"}},
		{ID: "d2", Name: "Auth", Confidence: 0.7, SourceFiles: []string{"src/shared/session.ts"}},
	}
	rels := []schemas.DomainRelationship{
		{Type: schemas.RelDependency, From: "d1", To: "d2"},
		{Type: schemas.RelDependency, From: "d2", To: "d1"},
	}

	conflicts := e.DetectConflicts(summaries, rels)

	byType := make(map[schemas.ConflictType][]schemas.DomainConflict)
	for _, c := range conflicts {
		byType[c.Type] = append(byType[c.Type], c)
	}

	require.Len(t, byType[schemas.ConflictOwnership], 1)
	ownership := byType[schemas.ConflictOwnership][0]
	assert.ElementsMatch(t, []string{"d1", "d2"}, ownership.DomainIDs)
	require.Len(t, ownership.Suggested, 3, "one assign per claimant plus skip")
	assert.Equal(t, schemas.ResolutionSkip, ownership.Suggested[2].Kind)
	assert.InDelta(t, 0.3, ownership.Suggested[2].Confidence, 1e-9)

	require.Len(t, byType[schemas.ConflictNaming], 1, "names normalize to the same token")
	require.Len(t, byType[schemas.ConflictBoundary], 1, "mutual dependency reported once per pair")
}
