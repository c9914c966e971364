// File: internal/clustering/conflicts.go
// Description: Detects disagreements between discovered domains. Conflicts
// are described, never auto-resolved; suggestions go to the HITL channel.

package clustering

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"domainlens/api/schemas"
	"domainlens/internal/extraction"
)

const skipResolutionConfidence = 0.3

// DetectConflicts reports ownership, naming and boundary conflicts among the
// summarized domains.
func (e *Engine) DetectConflicts(summaries []schemas.DomainSummary, rels []schemas.DomainRelationship) []schemas.DomainConflict {
	var conflicts []schemas.DomainConflict
	conflicts = append(conflicts, ownershipConflicts(summaries)...)
	conflicts = append(conflicts, namingConflicts(summaries)...)
	conflicts = append(conflicts, boundaryConflicts(summaries, rels)...)
	return conflicts
}

// ownershipConflicts finds files claimed by more than one domain.
func ownershipConflicts(summaries []schemas.DomainSummary) []schemas.DomainConflict {
	claims := make(map[string][]int)
	for i := range summaries {
		for _, f := range summaries[i].SourceFiles {
			claims[f] = append(claims[f], i)
		}
	}

	files := make([]string, 0, len(claims))
	for f, owners := range claims {
		if len(owners) > 1 {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	var conflicts []schemas.DomainConflict
	for _, f := range files {
		owners := claims[f]
		ids := make([]string, 0, len(owners))
		suggested := make([]schemas.Resolution, 0, len(owners)+1)
		for _, idx := range owners {
			s := &summaries[idx]
			ids = append(ids, s.ID)
			suggested = append(suggested, schemas.Resolution{
				ID:         uuid.NewString(),
				Kind:       schemas.ResolutionAssign,
				Label:      fmt.Sprintf("Assign %s to domain %q", f, s.Name),
				DomainID:   s.ID,
				Confidence: s.Confidence,
			})
		}
		suggested = append(suggested, skipResolution(f))
		conflicts = append(conflicts, schemas.DomainConflict{
			Type:      schemas.ConflictOwnership,
			DomainIDs: ids,
			Detail:    fmt.Sprintf("file %s is claimed by %d domains", f, len(owners)),
			Suggested: suggested,
		})
	}
	return conflicts
}

// namingConflicts finds distinct domains whose normalized names collide.
func namingConflicts(summaries []schemas.DomainSummary) []schemas.DomainConflict {
	byName := make(map[string][]int)
	var order []string
	for i := range summaries {
		n := extraction.NormalizeName(summaries[i].Name)
		if n == "" {
			continue
		}
		if _, seen := byName[n]; !seen {
			order = append(order, n)
		}
		byName[n] = append(byName[n], i)
	}

	var conflicts []schemas.DomainConflict
	for _, n := range order {
		idxs := byName[n]
		if len(idxs) < 2 {
			continue
		}
		ids := make([]string, 0, len(idxs))
		for _, idx := range idxs {
			ids = append(ids, summaries[idx].ID)
		}
		conflicts = append(conflicts, schemas.DomainConflict{
			Type:      schemas.ConflictNaming,
			DomainIDs: ids,
			Detail:    fmt.Sprintf("%d domains normalize to the same name %q", len(idxs), n),
		})
	}
	return conflicts
}

// boundaryConflicts finds mutual dependency pairs: A imports B and B imports
// A at the domain level, indicating a boundary drawn through coupled code.
func boundaryConflicts(summaries []schemas.DomainSummary, rels []schemas.DomainRelationship) []schemas.DomainConflict {
	deps := make(map[string]struct{})
	for _, r := range rels {
		if r.Type == schemas.RelDependency {
			deps[r.From+"->"+r.To] = struct{}{}
		}
	}

	names := make(map[string]string, len(summaries))
	for i := range summaries {
		names[summaries[i].ID] = summaries[i].Name
	}

	reported := make(map[string]struct{})
	var conflicts []schemas.DomainConflict
	for _, r := range rels {
		if r.Type != schemas.RelDependency {
			continue
		}
		if _, mutual := deps[r.To+"->"+r.From]; !mutual {
			continue
		}
		// Report each unordered pair once.
		key := pairKey(r.From, r.To)
		if _, done := reported[key]; done {
			continue
		}
		reported[key] = struct{}{}
		conflicts = append(conflicts, schemas.DomainConflict{
			Type:      schemas.ConflictBoundary,
			DomainIDs: []string{r.From, r.To},
			Detail: fmt.Sprintf("domains %q and %q import each other; the boundary between them cuts coupled code",
				names[r.From], names[r.To]),
		})
	}
	return conflicts
}

func skipResolution(file string) schemas.Resolution {
	return schemas.Resolution{
		ID:         uuid.NewString(),
		Kind:       schemas.ResolutionSkip,
		Label:      fmt.Sprintf("Leave %s unassigned", file),
		Confidence: skipResolutionConfidence,
	}
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
