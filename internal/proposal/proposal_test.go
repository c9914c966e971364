// File: internal/proposal/proposal_test.go

package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainlens/api/schemas"
)

func testDomain() schemas.DomainSummary {
	return schemas.DomainSummary{
		ID:         "dom-auth",
		Name:       "auth",
		Confidence: 0.8,
	}
}

func testPatterns() []schemas.Pattern {
	return []schemas.Pattern{
		{
			Kind:       schemas.KindContext,
			Name:       "AuthContext",
			Confidence: 0.9,
			Context: &schemas.ContextMeta{
				ContextName: "AuthContext",
				HasProvider: true,
				ValueFields: []string{"user", "token"},
			},
		},
		{
			Kind:       schemas.KindReducer,
			Name:       "authReducer",
			Confidence: 0.8,
			Reducer: &schemas.ReducerMeta{
				Actions:     []string{"LOGIN", "LOGOUT"},
				StateFields: []string{"loading"},
			},
		},
		{
			Kind:       schemas.KindComponent,
			Name:       "LoginForm",
			Confidence: 0.7,
			Component:  &schemas.ComponentMeta{Callbacks: []string{"onLogin"}},
		},
	}
}

func TestGenerateDerivesFieldsWithProvenance(t *testing.T) {
	g := NewGenerator(zap.NewNop())

	p := g.Generate(testDomain(), testPatterns(), nil, nil)

	assert.Equal(t, "dom-auth", p.DomainID)
	assert.Equal(t, "auth", p.DomainName)
	assert.InDelta(t, 0.8, p.Confidence, 1e-9, "no enrichment means no scaling")

	require.Len(t, p.Entities, 1)
	assert.Equal(t, "AuthContext", p.Entities[0].Path)
	assert.Equal(t, schemas.SourcePattern, p.Entities[0].Source)
	assert.Equal(t, "AuthContext", p.Entities[0].SourceName)
	assert.InDelta(t, 0.9, p.Entities[0].Confidence, 1e-9)

	statePaths := fieldPaths(p.State)
	assert.ElementsMatch(t, []string{"AuthContext.user", "AuthContext.token", "loading"}, statePaths)

	intentPaths := fieldPaths(p.Intents)
	assert.ElementsMatch(t, []string{"LOGIN", "LOGOUT", "onLogin"}, intentPaths)

	require.NoError(t, Validate(&p))
}

func TestGenerateMergesEnrichment(t *testing.T) {
	g := NewGenerator(zap.NewNop())

	p := g.Generate(testDomain(), testPatterns(),
		[]string{"Session", "authcontext"}, // authcontext dedups against AuthContext
		[]string{"refreshToken", "LOGIN"},  // LOGIN dedups against the reducer action
	)

	entityPaths := fieldPaths(p.Entities)
	assert.ElementsMatch(t, []string{"AuthContext", "Session"}, entityPaths, "case-insensitive dedup")

	intentPaths := fieldPaths(p.Intents)
	assert.Contains(t, intentPaths, "refreshToken")
	assert.Len(t, intentPaths, 4)

	var session *schemas.ProposedField
	for i := range p.Entities {
		if p.Entities[i].Path == "Session" {
			session = &p.Entities[i]
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, schemas.SourceEnrichment, session.Source)
	assert.InDelta(t, enrichmentFieldConfidence, session.Confidence, 1e-9)

	assert.InDelta(t, 0.8*enrichmentScale, p.Confidence, 1e-9, "new content scales confidence")
}

func TestGenerateEnrichmentScalingCapped(t *testing.T) {
	g := NewGenerator(zap.NewNop())
	domain := testDomain()
	domain.Confidence = 0.9

	p := g.Generate(domain, testPatterns(), []string{"Session"}, nil)
	assert.InDelta(t, enrichmentCeiling, p.Confidence, 1e-9)
}

func TestGenerateNoScalingWhenNothingNew(t *testing.T) {
	g := NewGenerator(zap.NewNop())

	p := g.Generate(testDomain(), testPatterns(),
		[]string{"AUTHCONTEXT"}, []string{"login", ""})

	assert.InDelta(t, 0.8, p.Confidence, 1e-9,
		"enrichment that only repeats derived fields does not scale confidence")
}

func TestValidateRejectsMissingProvenance(t *testing.T) {
	p := schemas.SchemaProposal{
		ID:         "p1",
		DomainID:   "d1",
		DomainName: "auth",
		Confidence: 0.5,
		Entities: []schemas.ProposedField{
			{Path: "User", Type: "entity", Source: schemas.SourcePattern},
		},
	}
	err := Validate(&p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provenance")
}

func TestValidateRejectsOutOfRangeConfidence(t *testing.T) {
	p := schemas.SchemaProposal{ID: "p1", DomainID: "d1", DomainName: "auth", Confidence: 1.2}
	require.Error(t, Validate(&p))
}

func TestMergeFlattensAlternatives(t *testing.T) {
	g := NewGenerator(zap.NewNop())
	a := g.Generate(testDomain(), testPatterns(), nil, nil)
	b := g.Generate(testDomain(), nil, []string{"Session"}, []string{"refreshToken"})

	merged, alternatives, err := g.Merge(a, b)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, merged.ID)
	assert.Empty(t, merged.ParentID)
	assert.ElementsMatch(t, []string{"AuthContext", "Session"}, fieldPaths(merged.Entities))
	assert.Contains(t, fieldPaths(merged.Intents), "refreshToken")

	require.Len(t, alternatives, 2)
	for _, alt := range alternatives {
		assert.Equal(t, merged.ID, alt.ParentID, "alternatives back-reference the merged proposal")
	}
	// Inputs remain untouched.
	assert.Empty(t, a.ParentID)
	assert.Empty(t, b.ParentID)

	require.NoError(t, Validate(&merged))
}

func TestMergeKeepsFirstProvenanceOnCollision(t *testing.T) {
	g := NewGenerator(zap.NewNop())
	a := g.Generate(testDomain(), testPatterns(), nil, nil)
	b := g.Generate(testDomain(), nil, []string{"authcontext"}, nil)

	merged, _, err := g.Merge(a, b)
	require.NoError(t, err)

	require.Len(t, merged.Entities, 1)
	assert.Equal(t, schemas.SourcePattern, merged.Entities[0].Source,
		"earlier proposal wins the tie, provenance preserved")
}

func TestMergeRejectsCrossDomain(t *testing.T) {
	g := NewGenerator(zap.NewNop())
	a := g.Generate(testDomain(), nil, nil, nil)
	other := testDomain()
	other.ID = "dom-billing"
	b := g.Generate(other, nil, nil, nil)

	_, _, err := g.Merge(a, b)
	require.Error(t, err)
}

func fieldPaths(fields []schemas.ProposedField) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Path)
	}
	return out
}
