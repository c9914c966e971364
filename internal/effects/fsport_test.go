// File: internal/effects/fsport_test.go

package effects

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainlens/internal/snapstore"
)

const testReport = `{
	"files": [
		{"path": "src/auth/AuthContext.tsx", "confidence": 0.9,
		 "patterns": [{"kind": "context", "name": "AuthContext", "source_file": "src/auth/AuthContext.tsx",
		               "location": {"start_line": 1, "end_line": 20}, "confidence": 0.9,
		               "context": {"context_name": "AuthContext", "has_provider": true}}]},
		{"path": "src/auth/useAuth.ts", "confidence": 0.8}
	]
}`

func writeTestTree(t *testing.T) (root, reportPath, outDir string) {
	t.Helper()
	dir := t.TempDir()

	root = filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "auth"), 0o755))
	for _, f := range []string{"auth/AuthContext.tsx", "auth/useAuth.ts"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("export {}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth", "readme.md"), []byte("docs"), 0o644))

	reportPath = filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(reportPath, []byte(testReport), 0o644))

	outDir = filepath.Join(dir, "out")
	return root, reportPath, outDir
}

func TestScanFilesWalksSourceTree(t *testing.T) {
	root, reportPath, outDir := writeTestTree(t)
	port, err := NewFileSystemPort(root, reportPath, outDir, snapstore.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)

	paths, err := port.ScanFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"auth/AuthContext.tsx", "auth/useAuth.ts"}, paths,
		"only source extensions, sorted, relative to root")
}

func TestScanFilesWithoutRootUsesReport(t *testing.T) {
	_, reportPath, outDir := writeTestTree(t)
	port, err := NewFileSystemPort("", reportPath, outDir, snapstore.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)

	paths, err := port.ScanFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/auth/AuthContext.tsx", "src/auth/useAuth.ts"}, paths)
}

func TestAnalyzeFile(t *testing.T) {
	_, reportPath, outDir := writeTestTree(t)
	port, err := NewFileSystemPort("", reportPath, outDir, snapstore.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)

	analysis, err := port.AnalyzeFile(context.Background(), "src/auth/AuthContext.tsx")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, analysis.Confidence, 1e-9)
	require.Len(t, analysis.Patterns, 1)
	require.NotNil(t, analysis.Patterns[0].Context)
	assert.True(t, analysis.Patterns[0].Context.HasProvider)

	_, err = port.AnalyzeFile(context.Background(), "src/unknown.ts")
	assert.Error(t, err, "missing detector output is a per-file failure")
}

func TestNewFileSystemPortBadReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(reportPath, []byte("not json"), 0o644))

	_, err := NewFileSystemPort("", reportPath, dir, snapstore.NewMemoryStore(), zap.NewNop())
	require.Error(t, err)
}

func TestWriteDomainFile(t *testing.T) {
	_, reportPath, outDir := writeTestTree(t)
	port, err := NewFileSystemPort("", reportPath, outDir, snapstore.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, port.WriteDomainFile(context.Background(), "auth.domain.json", []byte(`{"domain_name":"auth"}`)))

	content, err := os.ReadFile(filepath.Join(outDir, "auth.domain.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"domain_name":"auth"}`, string(content))

	assert.Error(t, port.WriteDomainFile(context.Background(), "../escape.json", nil))
	assert.Error(t, port.WriteDomainFile(context.Background(), "nested/name.json", nil))
}

func TestSnapshotDelegation(t *testing.T) {
	_, reportPath, outDir := writeTestTree(t)
	store := snapstore.NewMemoryStore()
	port, err := NewFileSystemPort("", reportPath, outDir, store, zap.NewNop())
	require.NoError(t, err)

	version, err := port.SaveSnapshot(context.Background(), "analysis", []byte(`{"a":1}`), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	snap, err := port.LoadSnapshot(context.Background(), "analysis")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
}
