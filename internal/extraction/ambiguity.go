// File: internal/extraction/ambiguity.go
package extraction

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"domainlens/api/schemas"
)

const (
	splitResolutionConfidence = 0.6
	skipResolutionConfidence  = 0.3
	// actionsPerSplitDomain sizes the suggested split: ceil(actions / 5).
	actionsPerSplitDomain = 5
)

// DetectAmbiguousPatterns flags every pattern that fails a confidence or
// ownership check: confidence below threshold, an explicit review mark,
// more than one merged candidate claiming its source file, or a reducer
// with more than the configured number of distinct actions.
//
// Suggested resolutions are generated per cause and surfaced to the HITL
// channel; they are never applied automatically.
func (e *Extractor) DetectAmbiguousPatterns(analyses []schemas.FileAnalysis, merged []schemas.DomainCandidate, threshold float64) []schemas.AmbiguousPattern {
	maxActions := e.cfg.MaxReducerActions
	if maxActions <= 0 {
		maxActions = 8
	}

	var flagged []schemas.AmbiguousPattern

	for _, a := range analyses {
		var claimants []schemas.DomainCandidate
		for _, c := range merged {
			if c.HasFile(a.Path) {
				claimants = append(claimants, c)
			}
		}

		for _, p := range a.Patterns {
			var reasons []string

			if p.Confidence < threshold {
				reasons = append(reasons, fmt.Sprintf("confidence %.2f below threshold %.2f", p.Confidence, threshold))
			}
			if p.NeedsReview {
				reasons = append(reasons, "pattern explicitly marked for review")
			}
			if len(claimants) > 1 {
				reasons = append(reasons, fmt.Sprintf("file claimed by %d domains", len(claimants)))
			}

			actionCount := distinctReducerActions(&p)
			if actionCount > maxActions {
				reasons = append(reasons, fmt.Sprintf("reducer has %d distinct actions", actionCount))
			}

			if len(reasons) == 0 {
				continue
			}

			flagged = append(flagged, schemas.AmbiguousPattern{
				ID:        uuid.New().String(),
				FilePath:  a.Path,
				Pattern:   p,
				Reason:    strings.Join(reasons, "; "),
				Suggested: suggestResolutions(claimants, actionCount, maxActions),
			})
		}
	}
	return flagged
}

// suggestResolutions builds the option list for one ambiguity: one assign
// option per claimant, a split option when the reducer is oversized, and the
// always-present skip option.
func suggestResolutions(claimants []schemas.DomainCandidate, actionCount, maxActions int) []schemas.Resolution {
	var resolutions []schemas.Resolution

	for _, c := range claimants {
		resolutions = append(resolutions, schemas.Resolution{
			ID:         uuid.New().String(),
			Kind:       schemas.ResolutionAssign,
			Label:      fmt.Sprintf("Assign to domain %q", c.Name),
			DomainID:   c.ID,
			Confidence: c.Confidence,
		})
	}

	if actionCount > maxActions {
		splitCount := int(math.Ceil(float64(actionCount) / float64(actionsPerSplitDomain)))
		resolutions = append(resolutions, schemas.Resolution{
			ID:         uuid.New().String(),
			Kind:       schemas.ResolutionSplit,
			Label:      fmt.Sprintf("Split into %d domains", splitCount),
			SplitCount: splitCount,
			Confidence: splitResolutionConfidence,
		})
	}

	resolutions = append(resolutions, schemas.Resolution{
		ID:         uuid.New().String(),
		Kind:       schemas.ResolutionSkip,
		Label:      "Skip, mark for manual review",
		Confidence: skipResolutionConfidence,
	})
	return resolutions
}

func distinctReducerActions(p *schemas.Pattern) int {
	if p.Kind != schemas.KindReducer || p.Reducer == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(p.Reducer.Actions))
	for _, action := range p.Reducer.Actions {
		seen[action] = struct{}{}
	}
	return len(seen)
}
