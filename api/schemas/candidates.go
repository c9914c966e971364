package schemas

// Strategy identifies which extraction heuristic suggested a candidate.
type Strategy string

const (
	StrategyContext       Strategy = "context"
	StrategyReducer       Strategy = "reducer"
	StrategyHook          Strategy = "hook"
	StrategyFileStructure Strategy = "file_structure"
)

// RelationshipType classifies how two domains (or candidates) relate.
type RelationshipType string

const (
	RelDependency  RelationshipType = "dependency"
	RelSharedState RelationshipType = "shared_state"
	RelEventFlow   RelationshipType = "event_flow"
	RelComposition RelationshipType = "composition"
)

// DomainRelationship is a directional record of a symmetric computation:
// strength is the same both ways, but From/To preserve which side the
// evidence was observed on.
type DomainRelationship struct {
	Type     RelationshipType `json:"type"`
	From     string           `json:"from"`
	To       string           `json:"to"`
	Strength float64          `json:"strength"`
	Evidence []string         `json:"evidence,omitempty"`
}

// DomainCandidate is a provisional grouping of files believed to represent
// one business domain. Candidates are replaced, never mutated: merge and
// relationship passes produce new values.
type DomainCandidate struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	SuggestedBy   Strategy             `json:"suggested_by"`
	SourceFiles   map[string]struct{}  `json:"source_files"`
	Patterns      []Pattern            `json:"patterns"`
	Confidence    float64              `json:"confidence"`
	Relationships []DomainRelationship `json:"relationships,omitempty"`
}

// HasFile reports whether the candidate claims the given file.
func (c *DomainCandidate) HasFile(path string) bool {
	_, ok := c.SourceFiles[path]
	return ok
}

// ResolutionKind enumerates the ways an ambiguous pattern can be settled.
type ResolutionKind string

const (
	ResolutionAssign ResolutionKind = "assign"
	ResolutionSplit  ResolutionKind = "split"
	ResolutionSkip   ResolutionKind = "skip"
)

// Resolution is one suggested way out of an ambiguity. Resolutions are
// surfaced to the HITL channel and never applied automatically.
type Resolution struct {
	ID         string         `json:"id"`
	Kind       ResolutionKind `json:"kind"`
	Label      string         `json:"label"`
	DomainID   string         `json:"domain_id,omitempty"`
	SplitCount int            `json:"split_count,omitempty"`
	Confidence float64        `json:"confidence"`
}

// AmbiguousPattern records a pattern that failed a confidence or ownership
// check. Its terminal state is resolved (Resolution set); otherwise it stays
// open indefinitely, never silently discarded.
type AmbiguousPattern struct {
	ID         string       `json:"id"`
	FilePath   string       `json:"file_path"`
	Pattern    Pattern      `json:"pattern"`
	Reason     string       `json:"reason"`
	Suggested  []Resolution `json:"suggested_resolutions"`
	Resolution *Resolution  `json:"resolution,omitempty"`
}

// ConflictType classifies a disagreement between discovered domains.
type ConflictType string

const (
	ConflictOwnership ConflictType = "ownership"
	ConflictNaming    ConflictType = "naming"
	ConflictBoundary  ConflictType = "boundary"
)

// DomainConflict names a disagreement that a human (or a deliberate policy)
// has to settle; the engine only detects and describes it.
type DomainConflict struct {
	Type      ConflictType `json:"type"`
	DomainIDs []string     `json:"domain_ids"`
	Detail    string       `json:"detail"`
	Suggested []Resolution `json:"suggested_resolutions,omitempty"`
}
