// File: internal/orchestrator/pipeline.go
// Description: End-to-end pipeline run: analysis, extraction, clustering,
// enrichment, proposal generation, transform hand-off. Every stage operates
// on immutable values and persists a snapshot at its effect boundary.

package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/analyzer"
	"domainlens/internal/clustering"
	"domainlens/internal/config"
	"domainlens/internal/depgraph"
	"domainlens/internal/enrichment"
	"domainlens/internal/extraction"
	"domainlens/internal/proposal"
	"domainlens/internal/snapstore"
)

// Stage names used for snapshots and stage records.
const (
	StageAnalysis   = "analysis"
	StageExtraction = "extraction"
	StageClustering = "clustering"
	StageTransform  = "transform"
)

// Pipeline drives a full discovery run on top of an orchestrator.
type Pipeline struct {
	orch      *Orchestrator
	cfg       *config.Config
	port      schemas.EffectPort
	analyzer  *analyzer.Analyzer
	extractor *extraction.Extractor
	clusterer *clustering.Engine
	generator *proposal.Generator
	enricher  *enrichment.Enricher
	logger    *zap.Logger
}

// NewPipeline assembles the pipeline components around an orchestrator.
func NewPipeline(orch *Orchestrator, cfg *config.Config, port schemas.EffectPort, enricher *enrichment.Enricher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enricher == nil {
		enricher = enrichment.NewEnricher(nil, cfg.Enrichment, logger)
	}
	return &Pipeline{
		orch:      orch,
		cfg:       cfg,
		port:      port,
		analyzer:  analyzer.New(cfg.Analyzer, port, logger),
		extractor: extraction.New(cfg.Extraction, logger),
		clusterer: clustering.NewEngine(cfg.Clustering, logger),
		generator: proposal.NewGenerator(logger),
		enricher:  enricher,
		logger:    logger.Named("pipeline"),
	}
}

// Outcome is everything a completed run produced.
type Outcome struct {
	Report        schemas.AnalysisReport
	Graph         *schemas.DependencyGraph
	Candidates    []schemas.DomainCandidate
	Ambiguous     []schemas.AmbiguousPattern
	Domains       []schemas.DomainSummary
	Relationships []schemas.DomainRelationship
	Conflicts     []schemas.DomainConflict
	Cycles        [][]string
	Proposals     []schemas.SchemaProposal
}

// Run executes the full pipeline. Any stage error fails the orchestrator and
// is returned; recovery requires an explicit resume from the host.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	outcome := &Outcome{}
	p.orch.RegisterStages(StageAnalysis, StageExtraction, StageClustering, StageTransform)

	run := func(stage string, fn func() error) error {
		p.orch.StartStage(stage)
		if err := fn(); err != nil {
			p.orch.FailStage(stage)
			if failErr := p.orch.Fail(err); failErr != nil {
				p.logger.Warn("Could not record failure", zap.Error(failErr))
			}
			return fmt.Errorf("stage %s: %w", stage, err)
		}
		return nil
	}

	// A restored or resumed orchestrator is already in ANALYZING; only a
	// fresh session needs the first transition.
	if p.orch.Phase() == schemas.PhaseInit {
		if err := p.orch.Advance(); err != nil { // INIT -> ANALYZING
			return nil, err
		}
	}

	if err := run(StageAnalysis, func() error { return p.runAnalysis(ctx, outcome) }); err != nil {
		return nil, err
	}
	if err := run(StageExtraction, func() error { return p.runExtraction(ctx, outcome) }); err != nil {
		return nil, err
	}

	if err := p.orch.Advance(); err != nil { // ANALYZING -> SUMMARIZING
		return nil, err
	}
	if err := run(StageClustering, func() error { return p.runClustering(ctx, outcome) }); err != nil {
		return nil, err
	}

	if err := p.orch.Advance(); err != nil { // SUMMARIZING -> TRANSFORMING
		return nil, err
	}
	if err := run(StageTransform, func() error { return p.runTransform(ctx, outcome) }); err != nil {
		return nil, err
	}

	if err := p.orch.Advance(); err != nil { // TRANSFORMING -> COMPLETE
		return nil, err
	}
	return outcome, nil
}

func (p *Pipeline) runAnalysis(ctx context.Context, outcome *Outcome) error {
	result, err := p.analyzer.Run(ctx)
	if err != nil {
		return err
	}

	p.orch.SetTotal(len(result.Tasks))
	for _, task := range result.Tasks {
		p.orch.RecordTask(task)
	}

	outcome.Report = result.Report
	outcome.Graph = depgraph.Build(result.Report.Files)

	version, err := p.orch.SaveSnapshot(ctx, StageAnalysis, result.Report)
	if err != nil {
		return err
	}
	p.orch.FinishStage(StageAnalysis, snapshotRef(StageAnalysis, version))
	return nil
}

func (p *Pipeline) runExtraction(ctx context.Context, outcome *Outcome) error {
	result := p.extractor.Extract(outcome.Report.Files, outcome.Graph)
	outcome.Candidates = result.Candidates
	outcome.Ambiguous = result.Ambiguous

	for i := range outcome.Ambiguous {
		p.orch.EmitAmbiguity(outcome.Ambiguous[i])
	}
	if err := p.resolveAmbiguities(ctx, outcome); err != nil {
		return err
	}

	version, err := p.orch.SaveSnapshot(ctx, StageExtraction, outcome.Candidates)
	if err != nil {
		return err
	}
	p.orch.FinishStage(StageExtraction, snapshotRef(StageExtraction, version))
	return nil
}

// resolveAmbiguities routes each ambiguous pattern through the HITL channel
// when a responder is configured. Without one, patterns stay open: they are
// never silently dropped or auto-resolved.
func (p *Pipeline) resolveAmbiguities(ctx context.Context, outcome *Outcome) error {
	if !p.orch.HasResponder() {
		return nil
	}

	for i := range outcome.Ambiguous {
		amb := &outcome.Ambiguous[i]

		options := make([]schemas.HITLOption, 0, len(amb.Suggested)+1)
		for _, res := range amb.Suggested {
			options = append(options, schemas.HITLOption{
				ID:          res.ID,
				Label:       res.Label,
				Description: fmt.Sprintf("confidence %.2f", res.Confidence),
			})
		}
		options = append(options, schemas.HITLOption{ID: schemas.OptionSkip, Label: "Skip, decide later"})

		resp, err := p.orch.AwaitHITL(ctx, schemas.HITLRequest{
			ID:       amb.ID,
			File:     amb.FilePath,
			Pattern:  &amb.Pattern,
			Question: fmt.Sprintf("How should this pattern be handled? (%s)", amb.Reason),
			Options:  options,
		})
		if err != nil {
			return err
		}

		amb.Resolution = p.chosenResolution(amb, resp)
	}
	return nil
}

func (p *Pipeline) chosenResolution(amb *schemas.AmbiguousPattern, resp schemas.HITLResponse) *schemas.Resolution {
	if resp.OptionID == schemas.OptionSkip {
		res := schemas.Resolution{
			ID:         schemas.OptionSkip,
			Kind:       schemas.ResolutionSkip,
			Label:      "Skipped by reviewer",
			Confidence: 1.0, // a human decided
		}
		return &res
	}
	for i := range amb.Suggested {
		if amb.Suggested[i].ID == resp.OptionID {
			res := amb.Suggested[i]
			return &res
		}
	}
	p.logger.Warn("HITL response named an unknown option, leaving pattern open",
		zap.String("pattern_id", amb.ID),
		zap.String("option", resp.OptionID),
	)
	return nil
}

func (p *Pipeline) runClustering(ctx context.Context, outcome *Outcome) error {
	clusters := p.clusterer.PerformClustering(outcome.Candidates, outcome.Graph, p.cfg.Clustering.MinClusterSize)
	outcome.Domains = p.clusterer.ClustersToDomainSummaries(clusters, outcome.Graph)
	outcome.Relationships = p.clusterer.AnalyzeAllRelationships(clusters, outcome.Domains, outcome.Graph)
	outcome.Conflicts = p.clusterer.DetectConflicts(outcome.Domains, outcome.Relationships)
	outcome.Cycles = clustering.DetectCyclicDependencies(outcome.Relationships)

	p.orch.SetDomains(outcome.Domains)
	outcome.Proposals = p.generateProposals(ctx, outcome, clusters)

	version, err := p.orch.SaveSnapshot(ctx, StageClustering, outcome.Domains)
	if err != nil {
		return err
	}
	p.orch.FinishStage(StageClustering, snapshotRef(StageClustering, version))
	return nil
}

// generateProposals derives one proposal per domain, enriched when a
// provider is available. Enrichment failure is never fatal: the proposal
// falls back to heuristic-only derivation.
func (p *Pipeline) generateProposals(ctx context.Context, outcome *Outcome, clusters []clustering.Cluster) []schemas.SchemaProposal {
	enrichmentActive := p.enricher.Enabled()
	proposals := make([]schemas.SchemaProposal, 0, len(outcome.Domains))

	for i := range outcome.Domains {
		domain := outcome.Domains[i]
		patterns := clusterPatterns(&clusters[i])

		var llmEntities, llmActions []string
		if enrichmentActive {
			var err error
			llmEntities, llmActions, err = p.enricher.EnrichDomain(ctx, domain, p.orch.CurrentModel())
			if err != nil {
				p.logger.Warn("Enrichment unavailable, continuing heuristic-only",
					zap.String("domain", domain.Name),
					zap.Error(err),
				)
				enrichmentActive = false
				llmEntities, llmActions = nil, nil
			}
		}

		prop := p.generator.Generate(domain, patterns, llmEntities, llmActions)
		if err := proposal.Validate(&prop); err != nil {
			p.logger.Warn("Generated proposal failed validation, flagging for review",
				zap.String("domain", domain.Name),
				zap.Error(err),
			)
			prop.NeedsReview = true
			prop.ReviewNotes = append(prop.ReviewNotes, err.Error())
		}
		proposals = append(proposals, prop)
	}
	return proposals
}

func (p *Pipeline) runTransform(ctx context.Context, outcome *Outcome) error {
	for i := range outcome.Proposals {
		prop := &outcome.Proposals[i]
		content, err := snapstore.Encode(prop)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s.domain.json", prop.DomainName)
		if err := p.port.WriteDomainFile(ctx, name, content); err != nil {
			return fmt.Errorf("failed to hand off proposal for domain %q: %w", prop.DomainName, err)
		}
		p.port.LogEffect("write_domain_file", map[string]string{"name": name, "domain_id": prop.DomainID})
	}

	version, err := p.orch.SaveSnapshot(ctx, StageTransform, outcome.Proposals)
	if err != nil {
		return err
	}
	p.orch.FinishStage(StageTransform, snapshotRef(StageTransform, version))
	return nil
}

func clusterPatterns(c *clustering.Cluster) []schemas.Pattern {
	var patterns []schemas.Pattern
	for i := range c.Candidates {
		patterns = append(patterns, c.Candidates[i].Patterns...)
	}
	return patterns
}

func snapshotRef(stage string, version int64) string {
	return fmt.Sprintf("%s@v%d", stage, version)
}
