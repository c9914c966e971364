package schemas

import "time"

// Phase is the orchestrator's position in the pipeline. Phases only advance
// forward, with two exceptions: FAILED is reachable from any non-terminal
// phase, and an explicit resume re-enters ANALYZING.
type Phase string

const (
	PhaseInit         Phase = "INIT"
	PhaseAnalyzing    Phase = "ANALYZING"
	PhaseSummarizing  Phase = "SUMMARIZING"
	PhaseTransforming Phase = "TRANSFORMING"
	PhaseComplete     Phase = "COMPLETE"
	PhaseFailed       Phase = "FAILED"
)

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// StageStatus tracks a single injected stage runner.
type StageStatus string

const (
	StageIdle    StageStatus = "IDLE"
	StageRunning StageStatus = "RUNNING"
	StageWaiting StageStatus = "WAITING"
	StageDone    StageStatus = "DONE"
	StageFailed  StageStatus = "FAILED"
)

// StageRecord is the orchestrator's bookkeeping for one child stage.
type StageRecord struct {
	ID          string      `json:"id"`
	Status      StageStatus `json:"status"`
	SnapshotRef string      `json:"snapshot_ref,omitempty"`
}

// TaskState tracks one unit of work inside a stage's persisted state.
// in_progress tasks found during restore are reset to pending, guaranteeing
// at-least-once reprocessing of interrupted work.
type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskInProgress TaskState = "in_progress"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
	TaskSkipped    TaskState = "skipped"
)

// Task is one trackable unit of work (typically a file to analyze).
type Task struct {
	ID     string    `json:"id"`
	State  TaskState `json:"state"`
	Error  string    `json:"error,omitempty"`
	Result string    `json:"result,omitempty"`
}

// Progress holds the orchestrator's counters.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Blocked   int `json:"blocked"`
	Skipped   int `json:"skipped"`
}

// Remaining is the number of units not yet accounted for.
func (p Progress) Remaining() int {
	r := p.Total - p.Completed - p.Skipped
	if r < 0 {
		return 0
	}
	return r
}

// HITLOption is one answer a human may pick. OptionSkip is always legal.
type HITLOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// OptionSkip is the reserved option ID for declining to decide.
const OptionSkip = "__skip__"

// HITLRequest is an escalation sent out to the human channel. The
// orchestrator stops advancing until a response arrives; there is no
// timeout at this layer.
type HITLRequest struct {
	ID       string       `json:"id"`
	File     string       `json:"file,omitempty"`
	Pattern  *Pattern     `json:"pattern,omitempty"`
	Question string       `json:"question"`
	Options  []HITLOption `json:"options"`
}

// HITLResponse is the human's answer.
type HITLResponse struct {
	OptionID    string `json:"option_id"`
	CustomInput string `json:"custom_input,omitempty"`
}

// HITLRecord is one completed request/response exchange. History is
// append-only.
type HITLRecord struct {
	Timestamp time.Time    `json:"timestamp"`
	Request   HITLRequest  `json:"request"`
	Response  HITLResponse `json:"response"`
}

// HITLState is the orchestrator's human-escalation sub-state.
type HITLState struct {
	Pending bool         `json:"pending"`
	Request *HITLRequest `json:"request,omitempty"`
	History []HITLRecord `json:"history,omitempty"`
}

// OrchestratorMeta holds attempt counters and the active model identifier.
type OrchestratorMeta struct {
	Attempts     int     `json:"attempts"`
	CurrentModel string  `json:"current_model,omitempty"`
	ContextUsage float64 `json:"context_usage"`
	LastError    string  `json:"last_error,omitempty"`
}

// OrchestratorState is the full snapshot-able view of the state machine.
type OrchestratorState struct {
	SessionID string           `json:"session_id"`
	Phase     Phase            `json:"phase"`
	Progress  Progress         `json:"progress"`
	Domains   []DomainSummary  `json:"domains,omitempty"`
	Stages    []StageRecord    `json:"stages,omitempty"`
	HITL      HITLState        `json:"hitl"`
	Meta      OrchestratorMeta `json:"meta"`
	Tasks     map[string]Task  `json:"tasks,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}
