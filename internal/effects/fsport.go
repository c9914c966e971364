// File: internal/effects/fsport.go
// Description: Filesystem-backed implementation of the effect port. The core
// only ever talks to this boundary; it never touches the filesystem or the
// snapshot store directly.

package effects

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/snapstore"
)

// sourceExtensions are the file types the pattern detector understands.
var sourceExtensions = map[string]struct{}{
	".ts":  {},
	".tsx": {},
	".js":  {},
	".jsx": {},
}

// FileSystemPort serves file scans and per-file analyses from a detector
// report on disk, delegates snapshots to a store, and writes finished
// domain files to an output directory.
type FileSystemPort struct {
	root   string
	outDir string
	store  schemas.SnapshotStore
	logger *zap.Logger
	byPath map[string]schemas.FileAnalysis
}

// NewFileSystemPort loads the detector report at reportPath and binds the
// port to the given source root and output directory.
func NewFileSystemPort(root, reportPath, outDir string, store schemas.SnapshotStore, logger *zap.Logger) (*FileSystemPort, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector report: %w", err)
	}
	var report schemas.AnalysisReport
	if err := snapstore.Decode(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to parse detector report %s: %w", reportPath, err)
	}

	byPath := make(map[string]schemas.FileAnalysis, len(report.Files))
	for _, f := range report.Files {
		byPath[f.Path] = f
	}

	return &FileSystemPort{
		root:   root,
		outDir: outDir,
		store:  store,
		logger: logger.Named("effects.fs"),
		byPath: byPath,
	}, nil
}

// ScanFiles walks the source root and returns every source file path,
// relative to the root, in sorted order. With no root configured, the
// report's own file list is the scan result.
func (p *FileSystemPort) ScanFiles(ctx context.Context) ([]string, error) {
	if p.root == "" {
		paths := make([]string, 0, len(p.byPath))
		for path := range p.byPath {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		return paths, nil
	}

	var paths []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := sourceExtensions[filepath.Ext(path)]; !ok {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", p.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// AnalyzeFile returns the detector's record for one file. A file the
// detector never produced output for is a per-file failure; the caller
// records it and moves on.
func (p *FileSystemPort) AnalyzeFile(_ context.Context, path string) (schemas.FileAnalysis, error) {
	analysis, ok := p.byPath[path]
	if !ok {
		return schemas.FileAnalysis{}, fmt.Errorf("no detector output for %s", path)
	}
	return analysis, nil
}

// SaveSnapshot delegates to the snapshot store.
func (p *FileSystemPort) SaveSnapshot(ctx context.Context, stage string, data, state json.RawMessage) (int64, error) {
	return p.store.Save(ctx, stage, data, state)
}

// LoadSnapshot delegates to the snapshot store.
func (p *FileSystemPort) LoadSnapshot(ctx context.Context, stage string) (schemas.Snapshot, error) {
	return p.store.Load(ctx, stage)
}

// LogEffect records a side effect for audit purposes.
func (p *FileSystemPort) LogEffect(effectType string, payload interface{}) {
	p.logger.Debug("Effect",
		zap.String("type", effectType),
		zap.Any("payload", payload),
	)
}

// WriteDomainFile hands a finished proposal to the downstream transformer by
// writing it under the output directory. Name must be a bare file name.
func (p *FileSystemPort) WriteDomainFile(_ context.Context, name string, content []byte) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid domain file name %q", name)
	}
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	target := filepath.Join(p.outDir, name)
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write domain file: %w", err)
	}
	p.logger.Info("Domain file written", zap.String("path", target))
	return nil
}
