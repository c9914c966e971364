package schemas

import "time"

// EventType identifies an outbound pipeline notification.
type EventType string

const (
	EventPhaseChanged     EventType = "phase_changed"
	EventProgress         EventType = "progress"
	EventDomainDiscovered EventType = "domain_discovered"
	EventAmbiguityFound   EventType = "ambiguity_found"
	EventHITLRequested    EventType = "hitl_requested"
	EventHITLResolved     EventType = "hitl_resolved"
	EventStageFailed      EventType = "stage_failed"
)

// Event is one entry in the orchestrator's outbound queue. The host drains
// the queue after each pipeline step; per-phase emission order is the
// append order.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Phase     Phase       `json:"phase"`
	Message   string      `json:"message,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}
