package schemas

// ImportRecord is one import statement observed in an analyzed file.
// Specifier is the literal module specifier as written in the source;
// Names are the bindings the file pulls in.
type ImportRecord struct {
	Specifier string   `json:"specifier"`
	Names     []string `json:"names,omitempty"`
}

// FileAnalysis is the per-file record handed over by the external pattern
// detector. The core never parses source text; this is all it knows about a
// file.
type FileAnalysis struct {
	Path       string         `json:"path"`
	Imports    []ImportRecord `json:"imports,omitempty"`
	Exports    []string       `json:"exports,omitempty"`
	Patterns   []Pattern      `json:"patterns,omitempty"`
	Confidence float64        `json:"confidence"`
}

// AnalysisReport is the full detector output for one analysis batch.
type AnalysisReport struct {
	RootDir string         `json:"root_dir,omitempty"`
	Files   []FileAnalysis `json:"files"`
}
