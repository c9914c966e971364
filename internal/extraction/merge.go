// File: internal/extraction/merge.go
package extraction

import (
	"fmt"

	"domainlens/api/schemas"
)

// MergeCandidates collapses overlapping candidates in a greedy single pass.
// Two candidates merge when their normalized names are equal OR their
// file-set overlap ratio (|intersection| / min(|A|,|B|)) reaches the
// configured threshold.
//
// Each unconsumed candidate in input order seeds a group; later candidates
// are compared against the SEED, not the accumulated union. This is
// deliberately not a transitive closure: A may absorb B while C, which would
// have merged with B, stays separate because it does not match A. Downstream
// behavior depends on these exact single-pass semantics.
func (e *Extractor) MergeCandidates(candidates []schemas.DomainCandidate) []schemas.DomainCandidate {
	overlapThreshold := e.cfg.MergeOverlapRatio
	if overlapThreshold <= 0 {
		overlapThreshold = 0.8
	}

	consumed := make([]bool, len(candidates))
	var merged []schemas.DomainCandidate

	for i := range candidates {
		if consumed[i] {
			continue
		}
		seed := candidates[i]
		group := []schemas.DomainCandidate{seed}
		consumed[i] = true

		for j := i + 1; j < len(candidates); j++ {
			if consumed[j] {
				continue
			}
			if shouldMerge(seed, candidates[j], overlapThreshold) {
				group = append(group, candidates[j])
				consumed[j] = true
			}
		}

		merged = append(merged, mergeGroup(group))
	}
	return merged
}

func shouldMerge(a, b schemas.DomainCandidate, overlapThreshold float64) bool {
	if NormalizeName(a.Name) == NormalizeName(b.Name) {
		return true
	}
	return overlapRatio(a.SourceFiles, b.SourceFiles) >= overlapThreshold
}

// overlapRatio is |A ∩ B| / min(|A|, |B|); 0 when either set is empty.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	intersection := 0
	for f := range small {
		if _, ok := large[f]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(small))
}

// mergeGroup folds a group into one candidate. Identity (id, name,
// suggestedBy, confidence) comes from the single highest-confidence member;
// the file set is the union; the pattern list is the union deduplicated by
// (kind, name, start line).
func mergeGroup(group []schemas.DomainCandidate) schemas.DomainCandidate {
	best := group[0]
	for _, c := range group[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}

	files := make(map[string]struct{})
	var patterns []schemas.Pattern
	seen := make(map[string]struct{})

	for _, c := range group {
		for f := range c.SourceFiles {
			files[f] = struct{}{}
		}
		for _, p := range c.Patterns {
			key := fmt.Sprintf("%s|%s|%d", p.Kind, p.Name, p.Location.StartLine)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			patterns = append(patterns, p)
		}
	}

	return schemas.DomainCandidate{
		ID:          best.ID,
		Name:        best.Name,
		SuggestedBy: best.SuggestedBy,
		SourceFiles: files,
		Patterns:    patterns,
		Confidence:  best.Confidence,
	}
}
