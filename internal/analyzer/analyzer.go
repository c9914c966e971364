// File: internal/analyzer/analyzer.go
// Description: Per-file analysis loop. Files are fed one at a time to the
// external pattern detector behind the effect port; a configurable
// concurrency bound exists but defaults to 1: the pipeline is sequential by
// contract and the bound is observable behavior, not an accident.

package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"domainlens/api/schemas"
	"domainlens/internal/config"
)

// Analyzer drives file scanning and per-file pattern detection.
type Analyzer struct {
	cfg    config.AnalyzerConfig
	port   schemas.EffectPort
	logger *zap.Logger
}

// New creates an Analyzer over the given effect port.
func New(cfg config.AnalyzerConfig, port schemas.EffectPort, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Analyzer{cfg: cfg, port: port, logger: logger.Named("analyzer")}
}

// Result is one analysis batch: the detector report plus a task record per
// file. Failed files appear as failed tasks, never as report entries.
type Result struct {
	Report schemas.AnalysisReport
	Tasks  []schemas.Task
}

// Run scans the batch and analyzes every file. A per-file failure is
// recorded as a failed task and does not halt the loop; partial failure is
// expected and tolerated.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	paths, err := a.port.ScanFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan files: %w", err)
	}
	paths = a.filterExcluded(paths)

	analyses := make([]*schemas.FileAnalysis, len(paths))
	tasks := make([]schemas.Task, len(paths))

	sem := semaphore.NewWeighted(int64(a.cfg.Concurrency))
	var wg sync.WaitGroup

	for i, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("analysis interrupted: %w", err)
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer sem.Release(1)

			analysis, err := a.port.AnalyzeFile(ctx, path)
			if err != nil {
				a.logger.Warn("File analysis failed",
					zap.String("path", path),
					zap.Error(err),
				)
				tasks[i] = schemas.Task{ID: path, State: schemas.TaskFailed, Error: err.Error()}
				return
			}
			analyses[i] = &analysis
			tasks[i] = schemas.Task{
				ID:     path,
				State:  schemas.TaskCompleted,
				Result: fmt.Sprintf("%d pattern(s)", len(analysis.Patterns)),
			}
		}(i, path)
	}
	wg.Wait()

	report := schemas.AnalysisReport{}
	for _, analysis := range analyses {
		if analysis != nil {
			report.Files = append(report.Files, *analysis)
		}
	}

	a.logger.Info("Analysis batch complete",
		zap.Int("scanned", len(paths)),
		zap.Int("analyzed", len(report.Files)),
		zap.Int("failed", len(paths)-len(report.Files)),
	)
	return &Result{Report: report, Tasks: tasks}, nil
}

// filterExcluded drops paths under any excluded directory.
func (a *Analyzer) filterExcluded(paths []string) []string {
	if len(a.cfg.ExcludeDirs) == 0 {
		return paths
	}
	kept := paths[:0:0]
	for _, p := range paths {
		if !a.excluded(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func (a *Analyzer) excluded(path string) bool {
	for _, dir := range a.cfg.ExcludeDirs {
		for _, segment := range strings.Split(path, "/") {
			if segment == dir {
				return true
			}
		}
	}
	return false
}

// AggregateConfidence is the arithmetic mean of per-file confidences, 0 for
// an empty report.
func AggregateConfidence(files []schemas.FileAnalysis) float64 {
	if len(files) == 0 {
		return 0
	}
	total := 0.0
	for i := range files {
		total += files[i].Confidence
	}
	return total / float64(len(files))
}
