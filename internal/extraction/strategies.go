// File: internal/extraction/strategies.go
package extraction

import (
	"path"
	"sort"

	"github.com/google/uuid"

	"domainlens/api/schemas"
)

// extractFromContexts builds one candidate per context that has a provider.
// The candidate absorbs the defining file plus every file whose patterns
// reference the same context name.
func (e *Extractor) extractFromContexts(analyses []schemas.FileAnalysis) []schemas.DomainCandidate {
	var candidates []schemas.DomainCandidate

	for _, a := range analyses {
		for _, p := range a.Patterns {
			if p.Kind != schemas.KindContext || p.Context == nil || !p.Context.HasProvider {
				continue
			}
			contextName := p.Context.ContextName

			files := map[string]struct{}{a.Path: {}}
			patterns := []schemas.Pattern{}

			for _, other := range analyses {
				claimed := other.Path == a.Path
				if !claimed {
					for _, op := range other.Patterns {
						if containsName(op.ContextNames(), contextName) {
							claimed = true
							break
						}
					}
				}
				if claimed {
					files[other.Path] = struct{}{}
					patterns = append(patterns, other.Patterns...)
				}
			}

			candidates = append(candidates, schemas.DomainCandidate{
				ID:          uuid.New().String(),
				Name:        nameFromContext(contextName),
				SuggestedBy: schemas.StrategyContext,
				SourceFiles: files,
				Patterns:    patterns,
				Confidence:  confidenceContext,
			})
		}
	}
	return candidates
}

// extractFromReducers builds one candidate per source file containing
// reducer patterns, considering only the first reducer in each file. The
// name resolves directory-first, then pattern name, then filename.
func (e *Extractor) extractFromReducers(analyses []schemas.FileAnalysis) []schemas.DomainCandidate {
	var candidates []schemas.DomainCandidate

	for _, a := range analyses {
		var reducer *schemas.Pattern
		for i := range a.Patterns {
			if a.Patterns[i].Kind == schemas.KindReducer {
				reducer = &a.Patterns[i]
				break
			}
		}
		if reducer == nil {
			continue
		}

		name := nameFromDirectory(a.Path)
		if name == "" {
			name = nameFromReducer(reducer.Name)
		}
		if name == "" {
			name = nameFromFile(a.Path)
		}

		candidates = append(candidates, schemas.DomainCandidate{
			ID:          uuid.New().String(),
			Name:        name,
			SuggestedBy: schemas.StrategyReducer,
			SourceFiles: map[string]struct{}{a.Path: {}},
			Patterns:    []schemas.Pattern{*reducer},
			Confidence:  confidenceReducer,
		})
	}
	return candidates
}

// extractFromHooks builds one candidate per custom, non-generic hook. The
// directory-derived name is preferred over the hook name with its prefix
// stripped.
func (e *Extractor) extractFromHooks(analyses []schemas.FileAnalysis) []schemas.DomainCandidate {
	var candidates []schemas.DomainCandidate

	for _, a := range analyses {
		for _, p := range a.Patterns {
			if p.Kind != schemas.KindHook || p.Hook == nil || !p.Hook.IsCustom {
				continue
			}
			if isGenericHook(p.Name) {
				continue
			}

			name := nameFromDirectory(a.Path)
			if name == "" {
				name = nameFromHook(p.Name)
			}

			candidates = append(candidates, schemas.DomainCandidate{
				ID:          uuid.New().String(),
				Name:        name,
				SuggestedBy: schemas.StrategyHook,
				SourceFiles: map[string]struct{}{a.Path: {}},
				Patterns:    []schemas.Pattern{p},
				Confidence:  confidenceHook,
			})
		}
	}
	return candidates
}

// extractFromFileStructure builds one candidate per directory that holds at
// least two analyzable files and has a domain-like name. Its confidence is
// the average per-file confidence, capped at the strategy base.
func (e *Extractor) extractFromFileStructure(analyses []schemas.FileAnalysis) []schemas.DomainCandidate {
	byDir := make(map[string][]schemas.FileAnalysis)
	for _, a := range analyses {
		byDir[path.Dir(a.Path)] = append(byDir[path.Dir(a.Path)], a)
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var candidates []schemas.DomainCandidate
	for _, dir := range dirs {
		group := byDir[dir]
		if len(group) < 2 {
			continue
		}
		name := nameFromDirectory(group[0].Path)
		if name == "" {
			continue
		}

		files := make(map[string]struct{}, len(group))
		var patterns []schemas.Pattern
		total := 0.0
		for _, a := range group {
			files[a.Path] = struct{}{}
			patterns = append(patterns, a.Patterns...)
			total += a.Confidence
		}

		confidence := total / float64(len(group))
		if confidence > confidenceFileStructure {
			confidence = confidenceFileStructure
		}

		candidates = append(candidates, schemas.DomainCandidate{
			ID:          uuid.New().String(),
			Name:        name,
			SuggestedBy: schemas.StrategyFileStructure,
			SourceFiles: files,
			Patterns:    patterns,
			Confidence:  confidence,
		})
	}
	return candidates
}

func containsName(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
