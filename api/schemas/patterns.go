package schemas

// PatternKind identifies the structural idiom a detected pattern represents.
type PatternKind string

const (
	KindComponent PatternKind = "component"
	KindHook      PatternKind = "hook"
	KindContext   PatternKind = "context"
	KindReducer   PatternKind = "reducer"
	KindEffect    PatternKind = "effect"
	KindForm      PatternKind = "form"
	KindUnknown   PatternKind = "unknown"
)

// SourceLocation pins a pattern to a span inside its source file.
type SourceLocation struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Pattern is a single structurally detected code idiom, produced by the
// external pattern detector. Patterns are immutable once ingested: every
// downstream pass reads them and produces new values.
//
// The kind-specific attributes live in exactly one of the Meta fields,
// selected by Kind. This replaces the detector's open-ended metadata bag
// with a validated, typed variant per kind.
type Pattern struct {
	Kind        PatternKind    `json:"kind"`
	Name        string         `json:"name"`
	SourceFile  string         `json:"source_file"`
	Location    SourceLocation `json:"location"`
	Confidence  float64        `json:"confidence"`
	NeedsReview bool           `json:"needs_review"`

	Component *ComponentMeta `json:"component,omitempty"`
	Hook      *HookMeta      `json:"hook,omitempty"`
	Context   *ContextMeta   `json:"context,omitempty"`
	Reducer   *ReducerMeta   `json:"reducer,omitempty"`
	Effect    *EffectMeta    `json:"effect,omitempty"`
	Form      *FormMeta      `json:"form,omitempty"`
}

// ComponentMeta carries the attributes of a component definition.
type ComponentMeta struct {
	Props        []string `json:"props,omitempty"`
	UsesContexts []string `json:"uses_contexts,omitempty"`
	Callbacks    []string `json:"callbacks,omitempty"`
}

// HookMeta carries the attributes of a hook-style state primitive.
type HookMeta struct {
	IsCustom     bool     `json:"is_custom"`
	UsesContexts []string `json:"uses_contexts,omitempty"`
	StateFields  []string `json:"state_fields,omitempty"`
}

// ContextMeta carries the attributes of a context/provider idiom.
type ContextMeta struct {
	ContextName string   `json:"context_name"`
	HasProvider bool     `json:"has_provider"`
	ValueFields []string `json:"value_fields,omitempty"`
}

// ReducerMeta carries the attributes of a reducer-style state machine.
type ReducerMeta struct {
	Actions     []string `json:"actions,omitempty"`
	StateFields []string `json:"state_fields,omitempty"`
}

// EffectMeta carries the attributes of an effect block.
type EffectMeta struct {
	Dependencies []string `json:"dependencies,omitempty"`
	Callbacks    []string `json:"callbacks,omitempty"`
}

// FormMeta carries the attributes of a form idiom.
type FormMeta struct {
	Fields []string `json:"fields,omitempty"`
}

// ContextNames returns every context name this pattern defines or consumes.
// Used by the context extraction strategy to pull consumer files into a
// candidate, and by the shared-state relationship pass.
func (p *Pattern) ContextNames() []string {
	switch p.Kind {
	case KindContext:
		if p.Context != nil && p.Context.ContextName != "" {
			return []string{p.Context.ContextName}
		}
	case KindComponent:
		if p.Component != nil {
			return p.Component.UsesContexts
		}
	case KindHook:
		if p.Hook != nil {
			return p.Hook.UsesContexts
		}
	}
	return nil
}

// CallbackNames returns callback identifiers crossing out of this pattern,
// the raw evidence for event_flow relationships.
func (p *Pattern) CallbackNames() []string {
	switch p.Kind {
	case KindComponent:
		if p.Component != nil {
			return p.Component.Callbacks
		}
	case KindEffect:
		if p.Effect != nil {
			return p.Effect.Callbacks
		}
	}
	return nil
}
