package schemas

import (
	"context"
	"encoding/json"
	"time"
)

// -- Snapshot Store --

// Snapshot is one versioned, immutable capture of a stage's data and state.
type Snapshot struct {
	Stage     string          `json:"stage"`
	Version   int64           `json:"version"`
	Data      json.RawMessage `json:"data"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// SnapshotStore persists stage snapshots with a monotonically increasing
// version per session. The design assumes a single active runtime per
// session; the only required locking discipline is an atomic
// read-modify-write of the version counter.
type SnapshotStore interface {
	// Save persists a new snapshot for the named stage and returns its version.
	Save(ctx context.Context, stage string, data, state json.RawMessage) (int64, error)
	// Load returns the latest snapshot for the named stage.
	Load(ctx context.Context, stage string) (Snapshot, error)
}

// -- Effect Port --

// EffectPort is the abstract boundary through which the core touches the
// outside world. The core never reads a filesystem or datastore directly.
type EffectPort interface {
	// ScanFiles lists the paths in scope for the current analysis batch.
	ScanFiles(ctx context.Context) ([]string, error)
	// AnalyzeFile asks the external pattern detector for one file's analysis.
	AnalyzeFile(ctx context.Context, path string) (FileAnalysis, error)
	// SaveSnapshot persists a stage snapshot.
	SaveSnapshot(ctx context.Context, stage string, data, state json.RawMessage) (int64, error)
	// LoadSnapshot returns the latest snapshot for a stage.
	LoadSnapshot(ctx context.Context, stage string) (Snapshot, error)
	// LogEffect records a side effect for audit purposes.
	LogEffect(effectType string, payload interface{})
	// WriteDomainFile hands a finished proposal to the downstream transformer.
	WriteDomainFile(ctx context.Context, name string, content []byte) error
}

// -- Enrichment Provider --

// EnrichmentMessage is one turn of an enrichment conversation.
type EnrichmentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EnrichmentOptions controls a single completion call.
type EnrichmentOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	ForceJSON   bool    `json:"force_json"`
}

// EnrichmentUsage reports token accounting for one completion.
type EnrichmentUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the provider's answer.
type Completion struct {
	Content      string          `json:"content"`
	Usage        EnrichmentUsage `json:"usage"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// EnrichmentClient is the optional large-language-model collaborator. The
// core must produce correct, if less complete, output with this client
// entirely absent.
type EnrichmentClient interface {
	// Complete produces a completion for the given conversation.
	Complete(ctx context.Context, messages []EnrichmentMessage, opts EnrichmentOptions) (Completion, error)
	// Close releases any resources held by the client.
	Close() error
}

// -- HITL Channel --

// HITLResponder is the external human channel. Respond blocks until a human
// (or the host acting for one) answers; cancelling ctx is the only way to
// give up waiting.
type HITLResponder interface {
	Respond(ctx context.Context, req HITLRequest) (HITLResponse, error)
}
