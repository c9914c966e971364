// File: internal/extraction/extraction_test.go
package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/config"
	"domainlens/internal/depgraph"
)

func testExtractor() *Extractor {
	return New(config.ExtractionConfig{
		MergeOverlapRatio:  0.8,
		AmbiguityThreshold: 0.5,
		MaxReducerActions:  8,
	}, zap.NewNop())
}

// authBatch builds the five-file scenario: a context with provider, a
// consuming hook, a reducer, a provider component and one unrelated utility
// file with no patterns.
func authBatch() []schemas.FileAnalysis {
	return []schemas.FileAnalysis{
		{
			Path:       "src/auth/AuthContext.tsx",
			Confidence: 0.9,
			Patterns: []schemas.Pattern{{
				Kind: schemas.KindContext, Name: "AuthContext", SourceFile: "src/auth/AuthContext.tsx",
				Confidence: 0.9,
				Context:    &schemas.ContextMeta{ContextName: "AuthContext", HasProvider: true},
			}},
		},
		{
			Path:       "src/auth/useAuth.ts",
			Confidence: 0.85,
			Patterns: []schemas.Pattern{{
				Kind: schemas.KindHook, Name: "useAuth", SourceFile: "src/auth/useAuth.ts",
				Confidence: 0.85,
				Hook:       &schemas.HookMeta{IsCustom: true, UsesContexts: []string{"AuthContext"}},
			}},
		},
		{
			Path:       "src/auth/authReducer.ts",
			Confidence: 0.8,
			Patterns: []schemas.Pattern{{
				Kind: schemas.KindReducer, Name: "authReducer", SourceFile: "src/auth/authReducer.ts",
				Confidence: 0.8,
				Reducer:    &schemas.ReducerMeta{Actions: []string{"LOGIN", "LOGOUT", "REFRESH"}},
			}},
		},
		{
			Path:       "src/auth/AuthProvider.tsx",
			Confidence: 0.9,
			Patterns: []schemas.Pattern{{
				Kind: schemas.KindComponent, Name: "AuthProvider", SourceFile: "src/auth/AuthProvider.tsx",
				Confidence: 0.9,
				Component:  &schemas.ComponentMeta{UsesContexts: []string{"AuthContext"}},
			}},
		},
		{Path: "src/misc/UtilFile.ts", Confidence: 0.7},
	}
}

func TestExtractMergesAuthDomain(t *testing.T) {
	analyses := authBatch()
	graph := depgraph.Build(analyses)

	result := testExtractor().Extract(analyses, graph)

	// All strategies agree on "auth"; the utility file stays unclaimed.
	var authCandidates []schemas.DomainCandidate
	for _, c := range result.Candidates {
		if c.HasFile("src/misc/UtilFile.ts") {
			t.Fatalf("utility file was claimed by candidate %q", c.Name)
		}
		if c.Name == "auth" {
			authCandidates = append(authCandidates, c)
		}
	}
	require.Len(t, authCandidates, 1, "expected exactly one merged auth candidate")

	auth := authCandidates[0]
	assert.Equal(t, schemas.StrategyContext, auth.SuggestedBy, "highest-confidence member wins identity")
	assert.InDelta(t, 0.9, auth.Confidence, 1e-9)
	assert.Len(t, auth.SourceFiles, 4)
	for _, f := range []string{
		"src/auth/AuthContext.tsx", "src/auth/useAuth.ts",
		"src/auth/authReducer.ts", "src/auth/AuthProvider.tsx",
	} {
		assert.True(t, auth.HasFile(f), "missing %s", f)
	}
}

func TestGenericHooksProduceNoCandidates(t *testing.T) {
	analyses := []schemas.FileAnalysis{{
		Path:       "src/cart/useLocalStorage.ts",
		Confidence: 0.9,
		Patterns: []schemas.Pattern{{
			Kind: schemas.KindHook, Name: "useLocalStorage", Confidence: 0.9,
			Hook: &schemas.HookMeta{IsCustom: true},
		}},
	}}

	got := testExtractor().extractFromHooks(analyses)
	assert.Empty(t, got)
}

func TestContextWithoutProviderIgnored(t *testing.T) {
	analyses := []schemas.FileAnalysis{{
		Path:       "src/theme/ThemeContext.ts",
		Confidence: 0.9,
		Patterns: []schemas.Pattern{{
			Kind: schemas.KindContext, Name: "ThemeContext", Confidence: 0.9,
			Context: &schemas.ContextMeta{ContextName: "ThemeContext", HasProvider: false},
		}},
	}}

	got := testExtractor().extractFromContexts(analyses)
	assert.Empty(t, got)
}

func TestReducerNameFallsBackThroughChain(t *testing.T) {
	e := testExtractor()

	// Directory name is a stop word, so the pattern name decides.
	fromPattern := e.extractFromReducers([]schemas.FileAnalysis{{
		Path: "src/reducers/cartReducer.ts",
		Patterns: []schemas.Pattern{{
			Kind: schemas.KindReducer, Name: "cartReducer",
			Reducer: &schemas.ReducerMeta{Actions: []string{"ADD"}},
		}},
	}})
	require.Len(t, fromPattern, 1)
	assert.Equal(t, "cart", fromPattern[0].Name)

	// Directory carries the domain.
	fromDir := e.extractFromReducers([]schemas.FileAnalysis{{
		Path: "src/checkout/reducer.ts",
		Patterns: []schemas.Pattern{{
			Kind: schemas.KindReducer, Name: "reducer",
			Reducer: &schemas.ReducerMeta{Actions: []string{"PAY"}},
		}},
	}})
	require.Len(t, fromDir, 1)
	assert.Equal(t, "checkout", fromDir[0].Name)
}

func TestFirstReducerPerFileOnly(t *testing.T) {
	got := testExtractor().extractFromReducers([]schemas.FileAnalysis{{
		Path: "src/cart/state.ts",
		Patterns: []schemas.Pattern{
			{Kind: schemas.KindReducer, Name: "cartReducer", Reducer: &schemas.ReducerMeta{Actions: []string{"ADD"}}},
			{Kind: schemas.KindReducer, Name: "wishlistReducer", Reducer: &schemas.ReducerMeta{Actions: []string{"SAVE"}}},
		},
	}})
	require.Len(t, got, 1)
	assert.Equal(t, "cartReducer", got[0].Patterns[0].Name)
}

func candidate(id, name string, confidence float64, files ...string) schemas.DomainCandidate {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	return schemas.DomainCandidate{
		ID: id, Name: name, SuggestedBy: schemas.StrategyHook,
		SourceFiles: set, Confidence: confidence,
	}
}

func TestMergeNeverDropsOrDuplicatesFiles(t *testing.T) {
	input := []schemas.DomainCandidate{
		candidate("a", "cart", 0.7, "f1", "f2"),
		candidate("b", "cart", 0.8, "f2", "f3"),
		candidate("c", "orders", 0.6, "f4"),
	}

	merged := testExtractor().MergeCandidates(input)
	require.Len(t, merged, 2)

	claimed := make(map[string]int)
	for _, c := range merged {
		for f := range c.SourceFiles {
			claimed[f]++
		}
	}
	for _, f := range []string{"f1", "f2", "f3", "f4"} {
		assert.Equal(t, 1, claimed[f], "file %s must appear in exactly one output candidate", f)
	}
}

// The merge pass compares later candidates against the group seed, not the
// accumulated union. B joins A's group while C, which only resembles B,
// stays out: the single pass is deliberately non-transitive.
func TestMergeIsNotTransitive(t *testing.T) {
	a := candidate("a", "cart", 0.9, "f1", "f2", "f3", "f4", "f5")
	b := candidate("b", "basket", 0.8, "f4", "f5")  // overlap with A: 2/2 = 1.0
	c := candidate("c", "basket2", 0.7, "f5", "f9") // overlap with B: 1/2, name differs from A

	merged := testExtractor().MergeCandidates([]schemas.DomainCandidate{a, b, c})
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].ID)
	assert.Len(t, merged[0].SourceFiles, 5)
	assert.Equal(t, "c", merged[1].ID)
}

func TestMergeDeduplicatesPatterns(t *testing.T) {
	shared := schemas.Pattern{Kind: schemas.KindHook, Name: "useCart", Location: schemas.SourceLocation{StartLine: 10}}
	a := candidate("a", "cart", 0.9, "f1")
	a.Patterns = []schemas.Pattern{shared}
	b := candidate("b", "cart", 0.7, "f1")
	b.Patterns = []schemas.Pattern{shared, {Kind: schemas.KindHook, Name: "useCart", Location: schemas.SourceLocation{StartLine: 42}}}

	merged := testExtractor().MergeCandidates([]schemas.DomainCandidate{a, b})
	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Patterns, 2, "same (kind,name,line) deduplicated, different line kept")
}

func TestCalculateRelationships(t *testing.T) {
	analyses := []schemas.FileAnalysis{
		{Path: "src/cart/index.ts", Imports: []schemas.ImportRecord{{Specifier: "../orders/api", Names: []string{"fetchOrders"}}}},
		{Path: "src/orders/api.ts", Exports: []string{"fetchOrders"}},
	}
	graph := depgraph.Build(analyses)

	cart := candidate("cart", "cart", 0.8, "src/cart/index.ts")
	orders := candidate("orders", "orders", 0.8, "src/orders/api.ts")

	out := testExtractor().CalculateRelationships([]schemas.DomainCandidate{cart, orders}, graph)
	require.Len(t, out, 2)

	require.Len(t, out[0].Relationships, 1)
	rel := out[0].Relationships[0]
	assert.Equal(t, schemas.RelDependency, rel.Type)
	assert.Equal(t, "cart", rel.From)
	assert.Equal(t, "orders", rel.To)
	assert.InDelta(t, 0.5, rel.Strength, 1e-9)

	// No reverse import, no shared context.
	assert.Empty(t, out[1].Relationships)
}

func TestDisjointCandidatesHaveNoRelationships(t *testing.T) {
	analyses := []schemas.FileAnalysis{
		{Path: "src/cart/index.ts"},
		{Path: "src/orders/index.ts"},
	}
	graph := depgraph.Build(analyses)

	out := testExtractor().CalculateRelationships([]schemas.DomainCandidate{
		candidate("cart", "cart", 0.8, "src/cart/index.ts"),
		candidate("orders", "orders", 0.8, "src/orders/index.ts"),
	}, graph)

	assert.Empty(t, out[0].Relationships)
	assert.Empty(t, out[1].Relationships)
}

func TestSharedContextRelationship(t *testing.T) {
	cart := candidate("cart", "cart", 0.8, "f1")
	cart.Patterns = []schemas.Pattern{{
		Kind: schemas.KindHook, Name: "useCart",
		Hook: &schemas.HookMeta{IsCustom: true, UsesContexts: []string{"SessionContext"}},
	}}
	account := candidate("account", "account", 0.8, "f2")
	account.Patterns = []schemas.Pattern{{
		Kind: schemas.KindContext, Name: "SessionContext",
		Context: &schemas.ContextMeta{ContextName: "SessionContext", HasProvider: true},
	}}

	graph := &schemas.DependencyGraph{Nodes: map[string]struct{}{"f1": {}, "f2": {}}}
	out := testExtractor().CalculateRelationships([]schemas.DomainCandidate{cart, account}, graph)

	require.Len(t, out[0].Relationships, 1)
	assert.Equal(t, schemas.RelSharedState, out[0].Relationships[0].Type)
	assert.InDelta(t, 0.8, out[0].Relationships[0].Strength, 1e-9)
	assert.Equal(t, []string{"SessionContext"}, out[0].Relationships[0].Evidence)
}

func TestDetectAmbiguousPatternsSplitSuggestion(t *testing.T) {
	nineActions := []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9"}
	analyses := []schemas.FileAnalysis{{
		Path:       "src/orders/ordersReducer.ts",
		Confidence: 0.9,
		Patterns: []schemas.Pattern{{
			Kind: schemas.KindReducer, Name: "ordersReducer", Confidence: 0.9,
			Reducer: &schemas.ReducerMeta{Actions: nineActions},
		}},
	}}

	flagged := testExtractor().DetectAmbiguousPatterns(analyses, nil, 0.5)
	require.Len(t, flagged, 1)

	var split *schemas.Resolution
	var skip *schemas.Resolution
	for i := range flagged[0].Suggested {
		switch flagged[0].Suggested[i].Kind {
		case schemas.ResolutionSplit:
			split = &flagged[0].Suggested[i]
		case schemas.ResolutionSkip:
			skip = &flagged[0].Suggested[i]
		}
	}
	require.NotNil(t, split, "oversized reducer must offer a split resolution")
	assert.Equal(t, 2, split.SplitCount, "ceil(9/5) = 2")
	assert.InDelta(t, 0.6, split.Confidence, 1e-9)

	require.NotNil(t, skip, "skip option is always present")
	assert.InDelta(t, 0.3, skip.Confidence, 1e-9)
}

func TestDetectAmbiguousPatternsMultiClaim(t *testing.T) {
	analyses := []schemas.FileAnalysis{{
		Path:       "src/shared/session.ts",
		Confidence: 0.9,
		Patterns: []schemas.Pattern{{
			Kind: schemas.KindHook, Name: "useSession", Confidence: 0.9,
			Hook: &schemas.HookMeta{IsCustom: true},
		}},
	}}
	claimants := []schemas.DomainCandidate{
		candidate("cart", "cart", 0.8, "src/shared/session.ts"),
		candidate("account", "account", 0.9, "src/shared/session.ts"),
	}

	flagged := testExtractor().DetectAmbiguousPatterns(analyses, claimants, 0.5)
	require.Len(t, flagged, 1)
	assert.Contains(t, flagged[0].Reason, "claimed by 2 domains")

	var assigns []schemas.Resolution
	for _, r := range flagged[0].Suggested {
		if r.Kind == schemas.ResolutionAssign {
			assigns = append(assigns, r)
		}
	}
	require.Len(t, assigns, 2, "one assign option per claimant")
	assert.InDelta(t, 0.8, assigns[0].Confidence, 1e-9, "assign confidence mirrors the claimant")
	assert.InDelta(t, 0.9, assigns[1].Confidence, 1e-9)
}

func TestLowConfidenceAndReviewFlagsAreNotErrors(t *testing.T) {
	analyses := []schemas.FileAnalysis{{
		Path:       "src/cart/maybe.ts",
		Confidence: 0.3,
		Patterns: []schemas.Pattern{
			{Kind: schemas.KindComponent, Name: "Maybe", Confidence: 0.2, Component: &schemas.ComponentMeta{}},
			{Kind: schemas.KindHook, Name: "useCheckout", Confidence: 0.9, NeedsReview: true, Hook: &schemas.HookMeta{IsCustom: true}},
		},
	}}

	flagged := testExtractor().DetectAmbiguousPatterns(analyses, nil, 0.5)
	require.Len(t, flagged, 2, "low confidence and review flags both route to the ambiguity channel")
	for _, f := range flagged {
		assert.Nil(t, f.Resolution, "ambiguities start unresolved and are never auto-resolved")
	}
}
