// File: internal/depgraph/resolve.go
package depgraph

import (
	"path"
	"strings"
)

// resolutionSuffixes is the fixed, ordered list of extension and index
// suffixes tried after the literal path. Order matters: first match wins.
var resolutionSuffixes = []string{
	".ts", ".tsx", ".js", ".jsx",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

// ResolveImportPath resolves a module specifier written in fromFile against
// the set of known analyzed files. Non-relative specifiers are external
// packages and resolve to "". A relative specifier is joined onto fromFile's
// directory and tried literally, then with each suffix in order; if nothing
// in known matches, the import is broken or unanalyzed and resolves to ""
// (the caller drops it, no edge is created).
func ResolveImportPath(fromFile, specifier string, known map[string]struct{}) string {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return ""
	}

	base := path.Clean(path.Join(path.Dir(fromFile), specifier))

	if _, ok := known[base]; ok {
		return base
	}
	for _, suffix := range resolutionSuffixes {
		candidate := base + suffix
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}
