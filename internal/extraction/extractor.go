// File: internal/extraction/extractor.go
// Description: Runs the four independent domain-candidate strategies over a
// pattern batch, then merges, relates and audits the results.

package extraction

import (
	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/config"
)

// Base confidences per strategy. File-structure candidates may score lower
// than their base, never higher.
const (
	confidenceContext       = 0.9
	confidenceReducer       = 0.8
	confidenceHook          = 0.7
	confidenceFileStructure = 0.6
)

// Extractor discovers domain candidates from a batch of file analyses and a
// prebuilt dependency graph.
type Extractor struct {
	cfg    config.ExtractionConfig
	logger *zap.Logger
}

// New creates an Extractor.
func New(cfg config.ExtractionConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, logger: logger.Named("extraction")}
}

// Result bundles everything extraction produces for one batch.
type Result struct {
	Candidates []schemas.DomainCandidate
	Ambiguous  []schemas.AmbiguousPattern
}

// Extract runs all four strategies in a fixed order, merges overlapping
// candidates, computes inter-candidate relationships and flags ambiguous
// patterns. The input analyses are read-only.
func (e *Extractor) Extract(analyses []schemas.FileAnalysis, graph *schemas.DependencyGraph) Result {
	var raw []schemas.DomainCandidate
	raw = append(raw, e.extractFromContexts(analyses)...)
	raw = append(raw, e.extractFromReducers(analyses)...)
	raw = append(raw, e.extractFromHooks(analyses)...)
	raw = append(raw, e.extractFromFileStructure(analyses)...)

	e.logger.Debug("Strategies produced raw candidates", zap.Int("count", len(raw)))

	merged := e.MergeCandidates(raw)
	merged = e.CalculateRelationships(merged, graph)
	ambiguous := e.DetectAmbiguousPatterns(analyses, merged, e.cfg.AmbiguityThreshold)

	e.logger.Info("Candidate extraction complete",
		zap.Int("raw_candidates", len(raw)),
		zap.Int("merged_candidates", len(merged)),
		zap.Int("ambiguous_patterns", len(ambiguous)),
	)

	return Result{Candidates: merged, Ambiguous: ambiguous}
}
