// File: internal/proposal/proposal.go
// Description: Derives schema proposals from domain summaries and their
// patterns, merges optional enrichment output, and validates/combines
// proposals without losing field provenance.

package proposal

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"domainlens/api/schemas"
)

const (
	// enrichmentFieldConfidence is assigned to fields contributed by the
	// enrichment provider; their text is plausible but unverified against
	// the source.
	enrichmentFieldConfidence = 0.6

	// enrichmentScale is applied to the proposal confidence when enrichment
	// contributed at least one new field, capped at enrichmentCeiling.
	enrichmentScale   = 1.1
	enrichmentCeiling = 0.95
)

// Generator produces schema proposals for discovered domains.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a proposal Generator.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger.Named("proposal")}
}

// Generate derives a proposal from the domain's own patterns. Contexts and
// forms suggest entities, reducer/hook state fields suggest state, and
// reducer actions plus callbacks suggest intents. When llmEntities or
// llmActions are supplied they are merged by case-insensitive name against
// the derived fields; if any new content was added the overall confidence is
// scaled by enrichmentScale, capped at enrichmentCeiling.
func (g *Generator) Generate(domain schemas.DomainSummary, patterns []schemas.Pattern, llmEntities, llmActions []string) schemas.SchemaProposal {
	p := schemas.SchemaProposal{
		ID:          uuid.NewString(),
		DomainID:    domain.ID,
		DomainName:  domain.Name,
		Confidence:  domain.Confidence,
		NeedsReview: domain.NeedsReview,
		ReviewNotes: append([]string(nil), domain.ReviewNotes...),
	}

	for i := range patterns {
		g.deriveFields(&p, &patterns[i])
	}

	enriched := false
	if added := mergeNames(&p.Entities, llmEntities, "entity"); added {
		enriched = true
	}
	if added := mergeNames(&p.Intents, llmActions, "intent"); added {
		enriched = true
	}
	if enriched {
		p.Confidence = math.Min(p.Confidence*enrichmentScale, enrichmentCeiling)
		g.logger.Debug("Enrichment merged into proposal",
			zap.String("domain", domain.Name),
			zap.Float64("confidence", p.Confidence),
		)
	}
	return p
}

// deriveFields appends the fields one pattern contributes. Duplicate paths
// (case-insensitive) are dropped; the first producer keeps provenance.
func (g *Generator) deriveFields(p *schemas.SchemaProposal, pat *schemas.Pattern) {
	switch pat.Kind {
	case schemas.KindContext:
		if pat.Context == nil {
			return
		}
		appendField(&p.Entities, patternField(pat, pat.Context.ContextName, "entity",
			fmt.Sprintf("context %s", pat.Context.ContextName)))
		for _, f := range pat.Context.ValueFields {
			appendField(&p.State, patternField(pat, pat.Context.ContextName+"."+f, "state",
				fmt.Sprintf("context value field from %s", pat.Context.ContextName)))
		}
	case schemas.KindForm:
		if pat.Form == nil {
			return
		}
		appendField(&p.Entities, patternField(pat, pat.Name, "entity",
			fmt.Sprintf("form %s", pat.Name)))
		for _, f := range pat.Form.Fields {
			appendField(&p.State, patternField(pat, pat.Name+"."+f, "state",
				fmt.Sprintf("form field from %s", pat.Name)))
		}
	case schemas.KindReducer:
		if pat.Reducer == nil {
			return
		}
		for _, f := range pat.Reducer.StateFields {
			appendField(&p.State, patternField(pat, f, "state",
				fmt.Sprintf("reducer state field from %s", pat.Name)))
		}
		for _, a := range pat.Reducer.Actions {
			appendField(&p.Intents, patternField(pat, a, "intent",
				fmt.Sprintf("reducer action from %s", pat.Name)))
		}
	case schemas.KindHook:
		if pat.Hook == nil {
			return
		}
		for _, f := range pat.Hook.StateFields {
			appendField(&p.State, patternField(pat, f, "state",
				fmt.Sprintf("hook state field from %s", pat.Name)))
		}
	}

	for _, cb := range pat.CallbackNames() {
		appendField(&p.Intents, patternField(pat, cb, "intent",
			fmt.Sprintf("callback from %s", pat.Name)))
	}
}

func patternField(pat *schemas.Pattern, path, fieldType, description string) schemas.ProposedField {
	return schemas.ProposedField{
		Path:        path,
		Type:        fieldType,
		Description: description,
		Source:      schemas.SourcePattern,
		SourceName:  pat.Name,
		Confidence:  pat.Confidence,
	}
}

// appendField adds a field unless its path is already present
// (case-insensitive).
func appendField(list *[]schemas.ProposedField, f schemas.ProposedField) bool {
	if f.Path == "" {
		return false
	}
	for i := range *list {
		if strings.EqualFold((*list)[i].Path, f.Path) {
			return false
		}
	}
	*list = append(*list, f)
	return true
}

// mergeNames folds enrichment-supplied names into a field list, reporting
// whether anything new was added.
func mergeNames(list *[]schemas.ProposedField, names []string, fieldType string) bool {
	added := false
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if appendField(list, schemas.ProposedField{
			Path:       n,
			Type:       fieldType,
			Source:     schemas.SourceEnrichment,
			SourceName: "enrichment",
			Confidence: enrichmentFieldConfidence,
		}) {
			added = true
		}
	}
	return added
}

// Validate checks a proposal's structural integrity, in particular that
// every field carries provenance.
func Validate(p *schemas.SchemaProposal) error {
	if p.DomainID == "" {
		return fmt.Errorf("proposal %s: missing domain id", p.ID)
	}
	if p.DomainName == "" {
		return fmt.Errorf("proposal %s: missing domain name", p.ID)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("proposal %s: confidence %.3f out of range", p.ID, p.Confidence)
	}
	for _, group := range [][]schemas.ProposedField{p.Entities, p.State, p.Intents} {
		for i := range group {
			f := &group[i]
			if f.Path == "" {
				return fmt.Errorf("proposal %s: field with empty path", p.ID)
			}
			if f.Source != schemas.SourcePattern && f.Source != schemas.SourceEnrichment {
				return fmt.Errorf("proposal %s: field %s has unknown source %q", p.ID, f.Path, f.Source)
			}
			if f.SourceName == "" {
				return fmt.Errorf("proposal %s: field %s lost its provenance", p.ID, f.Path)
			}
		}
	}
	return nil
}

// Merge combines alternative proposals for the same domain into one. Fields
// are unioned by case-insensitive path, earlier proposals winning ties, so
// provenance is never overwritten. The inputs are returned as flattened
// alternatives carrying the merged proposal's ID in ParentID.
func (g *Generator) Merge(proposals ...schemas.SchemaProposal) (schemas.SchemaProposal, []schemas.SchemaProposal, error) {
	if len(proposals) == 0 {
		return schemas.SchemaProposal{}, nil, fmt.Errorf("merge: no proposals given")
	}
	for i := 1; i < len(proposals); i++ {
		if proposals[i].DomainID != proposals[0].DomainID {
			return schemas.SchemaProposal{}, nil, fmt.Errorf("merge: proposals span domains %q and %q",
				proposals[0].DomainID, proposals[i].DomainID)
		}
	}

	merged := schemas.SchemaProposal{
		ID:         uuid.NewString(),
		DomainID:   proposals[0].DomainID,
		DomainName: proposals[0].DomainName,
	}
	for i := range proposals {
		p := &proposals[i]
		for j := range p.Entities {
			appendField(&merged.Entities, p.Entities[j])
		}
		for j := range p.State {
			appendField(&merged.State, p.State[j])
		}
		for j := range p.Intents {
			appendField(&merged.Intents, p.Intents[j])
		}
		if p.Confidence > merged.Confidence {
			merged.Confidence = p.Confidence
		}
		merged.NeedsReview = merged.NeedsReview || p.NeedsReview
		merged.ReviewNotes = append(merged.ReviewNotes, p.ReviewNotes...)
	}

	alternatives := make([]schemas.SchemaProposal, len(proposals))
	copy(alternatives, proposals)
	for i := range alternatives {
		alternatives[i].ParentID = merged.ID
	}
	return merged, alternatives, nil
}
