// File: internal/orchestrator/orchestrator.go
// Description: The pipeline state machine. Phases advance strictly forward
// (INIT -> ANALYZING -> SUMMARIZING -> TRANSFORMING -> COMPLETE); FAILED is
// reachable from any non-terminal phase and an explicit resume re-enters
// ANALYZING. Outbound notifications accumulate in an event queue drained by
// the host after each step.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/snapstore"
)

// Orchestrator owns the session state and mediates every transition. All
// methods are safe for concurrent use; the design still assumes a single
// active runtime per session.
type Orchestrator struct {
	mu    sync.Mutex
	state schemas.OrchestratorState

	store     schemas.SnapshotStore
	responder schemas.HITLResponder
	logger    *zap.Logger

	events    []schemas.Event
	startedAt time.Time
	clock     func() time.Time
}

// New creates an orchestrator in the INIT phase.
func New(sessionID string, store schemas.SnapshotStore, responder schemas.HITLResponder, model string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		store:     store,
		responder: responder,
		logger:    logger.Named("orchestrator"),
		clock:     time.Now,
	}
	o.state = schemas.OrchestratorState{
		SessionID: sessionID,
		Phase:     schemas.PhaseInit,
		Tasks:     make(map[string]schemas.Task),
		Meta:      schemas.OrchestratorMeta{CurrentModel: model},
		UpdatedAt: o.clock(),
	}
	return o
}

// State returns a copy of the current state.
func (o *Orchestrator) State() schemas.OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.copyStateLocked()
}

func (o *Orchestrator) copyStateLocked() schemas.OrchestratorState {
	st := o.state
	st.Tasks = make(map[string]schemas.Task, len(o.state.Tasks))
	for k, v := range o.state.Tasks {
		st.Tasks[k] = v
	}
	st.Stages = append([]schemas.StageRecord(nil), o.state.Stages...)
	st.Domains = append([]schemas.DomainSummary(nil), o.state.Domains...)
	st.HITL.History = append([]schemas.HITLRecord(nil), o.state.HITL.History...)
	if o.state.HITL.Request != nil {
		req := *o.state.HITL.Request
		st.HITL.Request = &req
	}
	return st
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() schemas.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Phase
}

// -- Phase transitions --

// forward lists the only legal forward step out of each phase.
var forward = map[schemas.Phase]schemas.Phase{
	schemas.PhaseInit:         schemas.PhaseAnalyzing,
	schemas.PhaseAnalyzing:    schemas.PhaseSummarizing,
	schemas.PhaseSummarizing:  schemas.PhaseTransforming,
	schemas.PhaseTransforming: schemas.PhaseComplete,
}

// Advance moves the state machine to the next phase.
func (o *Orchestrator) Advance() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, ok := forward[o.state.Phase]
	if !ok {
		return fmt.Errorf("no forward transition from phase %s", o.state.Phase)
	}
	o.setPhaseLocked(next)
	return nil
}

// Fail transitions to FAILED and records the error. FAILED is reachable from
// any non-terminal phase; failing twice is an error.
func (o *Orchestrator) Fail(cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase.Terminal() {
		return fmt.Errorf("cannot fail from terminal phase %s", o.state.Phase)
	}
	o.state.Meta.LastError = cause.Error()
	o.setPhaseLocked(schemas.PhaseFailed)
	o.emitLocked(schemas.EventStageFailed, cause.Error(), nil)
	return nil
}

// Resume re-enters ANALYZING after a failure or a restored snapshot.
// Recovery is always explicit, never automatic.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == schemas.PhaseComplete {
		return fmt.Errorf("cannot resume a completed session")
	}
	o.state.Meta.Attempts++
	o.state.Meta.LastError = ""
	o.setPhaseLocked(schemas.PhaseAnalyzing)
	return nil
}

func (o *Orchestrator) setPhaseLocked(next schemas.Phase) {
	prev := o.state.Phase
	o.state.Phase = next
	o.touchLocked()
	o.logger.Info("Phase transition",
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	o.emitLocked(schemas.EventPhaseChanged, fmt.Sprintf("%s -> %s", prev, next), nil)
}

// -- Progress and derived values --

// SetTotal initializes the progress counters for a batch and starts the
// processing-rate clock.
func (o *Orchestrator) SetTotal(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Progress = schemas.Progress{Total: total}
	o.startedAt = o.clock()
	o.touchLocked()
}

// RecordTask stores a task outcome and updates the counters.
func (o *Orchestrator) RecordTask(task schemas.Task) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev, existed := o.state.Tasks[task.ID]
	o.state.Tasks[task.ID] = task

	// Adjust counters, undoing the previous state's contribution first.
	if existed {
		switch prev.State {
		case schemas.TaskCompleted, schemas.TaskFailed:
			o.state.Progress.Completed--
		case schemas.TaskSkipped:
			o.state.Progress.Skipped--
		}
	}
	switch task.State {
	case schemas.TaskCompleted, schemas.TaskFailed:
		o.state.Progress.Completed++
	case schemas.TaskSkipped:
		o.state.Progress.Skipped++
	}
	o.touchLocked()
	o.emitLocked(schemas.EventProgress, task.ID, o.state.Progress)
}

// Confidence is completed/total, 0 when total is 0.
func (o *Orchestrator) Confidence() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Progress.Total == 0 {
		return 0
	}
	return float64(o.state.Progress.Completed) / float64(o.state.Progress.Total)
}

// CanProceed reports whether the pipeline may advance: no pending HITL
// request and not FAILED.
func (o *Orchestrator) CanProceed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.state.HITL.Pending && o.state.Phase != schemas.PhaseFailed
}

// EstimatedTimeRemaining derives an ETA from the observed processing rate,
// falling back to one unit per second before any rate has been observed.
func (o *Orchestrator) EstimatedTimeRemaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	remaining := o.state.Progress.Remaining()
	if remaining == 0 {
		return 0
	}

	completed := o.state.Progress.Completed
	elapsed := o.clock().Sub(o.startedAt).Seconds()
	if completed > 0 && elapsed > 0 {
		rate := float64(completed) / elapsed
		return time.Duration(float64(remaining) / rate * float64(time.Second))
	}
	return time.Duration(remaining) * time.Second
}

// -- Stages --

// RegisterStages seeds IDLE records for stages that have not been seen yet,
// so hosts can render the whole plan before anything runs. Stages that
// already carry a status keep it.
func (o *Orchestrator) RegisterStages(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		if o.stageIndexLocked(id) < 0 {
			o.state.Stages = append(o.state.Stages, schemas.StageRecord{ID: id, Status: schemas.StageIdle})
		}
	}
	o.touchLocked()
}

// StartStage records a stage as running, creating it on first sight.
func (o *Orchestrator) StartStage(id string) {
	o.setStageStatus(id, schemas.StageRunning, "")
}

// FinishStage records a stage as done, with an optional snapshot reference.
func (o *Orchestrator) FinishStage(id, snapshotRef string) {
	o.setStageStatus(id, schemas.StageDone, snapshotRef)
}

// FailStage records a stage failure.
func (o *Orchestrator) FailStage(id string) {
	o.setStageStatus(id, schemas.StageFailed, "")
}

func (o *Orchestrator) setStageStatus(id string, status schemas.StageStatus, snapshotRef string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if i := o.stageIndexLocked(id); i >= 0 {
		o.state.Stages[i].Status = status
		if snapshotRef != "" {
			o.state.Stages[i].SnapshotRef = snapshotRef
		}
		o.touchLocked()
		return
	}
	o.state.Stages = append(o.state.Stages, schemas.StageRecord{ID: id, Status: status, SnapshotRef: snapshotRef})
	o.touchLocked()
}

func (o *Orchestrator) stageIndexLocked(id string) int {
	for i := range o.state.Stages {
		if o.state.Stages[i].ID == id {
			return i
		}
	}
	return -1
}

// retagStagesLocked rewrites every stage currently in from to to, flipping
// RUNNING stages to WAITING while a HITL request is pending and back.
func (o *Orchestrator) retagStagesLocked(from, to schemas.StageStatus) {
	for i := range o.state.Stages {
		if o.state.Stages[i].Status == from {
			o.state.Stages[i].Status = to
		}
	}
}

// SetDomains stores the discovered domains and announces each one.
func (o *Orchestrator) SetDomains(domains []schemas.DomainSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Domains = append([]schemas.DomainSummary(nil), domains...)
	for i := range domains {
		o.emitLocked(schemas.EventDomainDiscovered, domains[i].Name, domains[i])
	}
	o.touchLocked()
}

// UpgradeModel swaps the active model identifier. Caller-driven, never
// automatic.
func (o *Orchestrator) UpgradeModel(model string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.state.Meta.CurrentModel
	o.state.Meta.CurrentModel = model
	o.touchLocked()
	o.logger.Info("Model upgraded",
		zap.String("from", prev),
		zap.String("to", model),
	)
}

// CurrentModel returns the active model identifier.
func (o *Orchestrator) CurrentModel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Meta.CurrentModel
}

// HasResponder reports whether a HITL channel is wired in.
func (o *Orchestrator) HasResponder() bool {
	return o.responder != nil
}

// -- Events --

func (o *Orchestrator) emitLocked(eventType schemas.EventType, message string, payload interface{}) {
	o.events = append(o.events, schemas.Event{
		Type:      eventType,
		Timestamp: o.clock(),
		Phase:     o.state.Phase,
		Message:   message,
		Payload:   payload,
	})
}

// EmitAmbiguity queues an ambiguity notification.
func (o *Orchestrator) EmitAmbiguity(amb schemas.AmbiguousPattern) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emitLocked(schemas.EventAmbiguityFound, amb.Reason, amb)
}

// DrainEvents returns all queued events in emission order and clears the
// queue. The host calls this after each pipeline step.
func (o *Orchestrator) DrainEvents() []schemas.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	drained := o.events
	o.events = nil
	return drained
}

// -- Snapshots --

// SaveSnapshot persists the given stage data together with the current
// orchestrator state and returns the snapshot version.
func (o *Orchestrator) SaveSnapshot(ctx context.Context, stage string, data interface{}) (int64, error) {
	rawData, err := snapstore.Encode(data)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	st := o.copyStateLocked()
	o.mu.Unlock()

	rawState, err := snapstore.Encode(st)
	if err != nil {
		return 0, err
	}

	version, err := o.store.Save(ctx, stage, rawData, rawState)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot for stage %q: %w", stage, err)
	}
	return version, nil
}

// Restore loads the latest snapshot for a stage, adopts its state, resets
// any task left in_progress back to pending, and re-enters ANALYZING.
// Interrupted work is reprocessed at least once, never silently lost.
func (o *Orchestrator) Restore(ctx context.Context, stage string) (json.RawMessage, error) {
	snap, err := o.store.Load(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to restore stage %q: %w", stage, err)
	}

	var restored schemas.OrchestratorState
	if err := snapstore.Decode(snap.State, &restored); err != nil {
		return nil, fmt.Errorf("corrupt snapshot state for stage %q: %w", stage, err)
	}
	if restored.Tasks == nil {
		restored.Tasks = make(map[string]schemas.Task)
	}

	reset := 0
	for id, task := range restored.Tasks {
		if task.State == schemas.TaskInProgress {
			task.State = schemas.TaskPending
			restored.Tasks[id] = task
			reset++
		}
	}

	o.mu.Lock()
	o.state = restored
	o.setPhaseLocked(schemas.PhaseAnalyzing)
	o.mu.Unlock()

	o.logger.Info("Snapshot restored",
		zap.String("stage", stage),
		zap.Int64("version", snap.Version),
		zap.Int("tasks_reset", reset),
	)
	return snap.Data, nil
}

func (o *Orchestrator) touchLocked() {
	o.state.UpdatedAt = o.clock()
}
