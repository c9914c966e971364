package schemas

// DomainBoundaries describes what crosses a domain's edge: files it imports
// from outside, files outside that import it, and context names shared with
// other domains.
type DomainBoundaries struct {
	Imports     []string `json:"imports,omitempty"`
	Exports     []string `json:"exports,omitempty"`
	SharedState []string `json:"shared_state,omitempty"`
}

// DomainSummary is the clustered, possibly enriched view of one discovered
// domain, ready for schema proposal generation.
type DomainSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	SourceFiles []string         `json:"source_files"`
	Entities    []string         `json:"entities,omitempty"`
	Actions     []string         `json:"actions,omitempty"`
	Boundaries  DomainBoundaries `json:"boundaries"`
	SuggestedBy Strategy         `json:"suggested_by"`
	Confidence  float64          `json:"confidence"`
	NeedsReview bool             `json:"needs_review"`
	ReviewNotes []string         `json:"review_notes,omitempty"`
}
