package schemas

// FieldSource tags where a proposed field came from, so provenance survives
// merging and re-derivation.
type FieldSource string

const (
	SourcePattern    FieldSource = "pattern"
	SourceEnrichment FieldSource = "enrichment"
)

// ProposedField is one entity/state/intent field in a schema proposal.
// Source must always identify the pattern or enrichment pass that produced
// the field.
type ProposedField struct {
	Path        string      `json:"path"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Source      FieldSource `json:"source"`
	SourceName  string      `json:"source_name"`
	Confidence  float64     `json:"confidence"`
}

// SchemaProposal is a structured draft of one domain's shape. Each
// derivation is a new immutable value; enrichment arriving later produces a
// fresh proposal rather than patching an old one.
//
// Alternatives are stored flat: a sibling proposal carries the ParentID of
// the proposal it is an alternative to, instead of being embedded in it.
type SchemaProposal struct {
	ID          string          `json:"id"`
	ParentID    string          `json:"parent_id,omitempty"`
	DomainID    string          `json:"domain_id"`
	DomainName  string          `json:"domain_name"`
	Entities    []ProposedField `json:"entities,omitempty"`
	State       []ProposedField `json:"state,omitempty"`
	Intents     []ProposedField `json:"intents,omitempty"`
	Confidence  float64         `json:"confidence"`
	NeedsReview bool            `json:"needs_review"`
	ReviewNotes []string        `json:"review_notes,omitempty"`
}
