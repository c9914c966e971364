// File: internal/extraction/naming.go
package extraction

import (
	"path"
	"strings"
)

// directoryStopWords are directory names that carry no domain meaning and
// must never become a domain name.
var directoryStopWords = map[string]struct{}{
	"use": {}, "reducer": {}, "reducers": {}, "hook": {}, "hooks": {},
	"src": {}, "lib": {}, "app": {}, "pages": {}, "components": {},
	"component": {}, "utils": {}, "util": {}, "helpers": {}, "common": {},
	"shared": {}, "state": {}, "store": {}, "stores": {}, "context": {},
	"contexts": {}, "providers": {}, "types": {}, "constants": {},
	"services": {}, "api": {}, "assets": {}, "styles": {}, "test": {},
	"tests": {}, "__tests__": {},
}

// genericHookFamilies is the denylist of hook-name fragments that mark a
// hook as a generic utility rather than a domain signal. Matched against the
// lowercased hook name with its "use" prefix stripped.
var genericHookFamilies = []string{
	"effect", "state", "ref", "memo", "callback", "reducer", "context",
	"storage", "fetch", "query", "toggle", "debounce", "throttle",
	"interval", "timeout", "previous", "mount", "unmount", "window",
	"media", "event", "listener", "layout", "resize", "scroll", "hover",
	"focus", "click", "online", "async", "boolean", "counter", "array",
	"input", "form",
}

// NormalizeName lowercases a name and strips everything but letters and
// digits, so "AuthContext", "auth-context" and "auth_context" compare equal.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// nameFromContext derives a domain name from a context name:
// "AuthContext" becomes "auth".
func nameFromContext(contextName string) string {
	name := strings.TrimSuffix(contextName, "Context")
	name = strings.TrimSuffix(name, "context")
	if name == "" {
		name = contextName
	}
	return strings.ToLower(name)
}

// nameFromHook strips the "use" prefix: "useCart" becomes "cart".
func nameFromHook(hookName string) string {
	name := strings.TrimPrefix(hookName, "use")
	if name == "" {
		name = hookName
	}
	return strings.ToLower(name)
}

// nameFromReducer strips the "Reducer"/"reducer" suffix:
// "cartReducer" becomes "cart".
func nameFromReducer(patternName string) string {
	name := strings.TrimSuffix(patternName, "Reducer")
	name = strings.TrimSuffix(name, "reducer")
	if name == "" {
		name = patternName
	}
	return strings.ToLower(name)
}

// nameFromDirectory derives a domain name from a file's directory, or ""
// when the directory name is a stop word and carries no domain meaning.
func nameFromDirectory(filePath string) string {
	dir := strings.ToLower(path.Base(path.Dir(filePath)))
	if dir == "." || dir == "/" {
		return ""
	}
	if _, stop := directoryStopWords[dir]; stop {
		return ""
	}
	return dir
}

// nameFromFile falls back to the file's base name, minus extension and any
// reducer suffix.
func nameFromFile(filePath string) string {
	base := path.Base(filePath)
	base = strings.TrimSuffix(base, path.Ext(base))
	return nameFromReducer(base)
}

// isGenericHook reports whether the hook name belongs to one of the generic
// utility families that never indicate a domain.
func isGenericHook(hookName string) bool {
	stem := strings.ToLower(strings.TrimPrefix(hookName, "use"))
	for _, family := range genericHookFamilies {
		if strings.Contains(stem, family) {
			return true
		}
	}
	return false
}
