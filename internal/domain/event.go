package domain

import "time"

// EventType identifies a live fleet event pushed to stream subscribers.
type EventType string

const (
	EventTaskCompleted  EventType = "TASK_COMPLETED"
	EventTaskFailed     EventType = "TASK_FAILED"
	EventBatchProcessed EventType = "BATCH_PROCESSED"
	EventCycleRecorded  EventType = "CYCLE_RECORDED"
	EventProposalMerged EventType = "PROPOSAL_MERGED"
	EventHeartbeat      EventType = "HEARTBEAT_SAMPLED"
)

// FleetEvent is a live event pushed to stream subscribers.
type FleetEvent struct {
	Type      EventType `json:"type"`
	Payload   JSONB     `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func NewFleetEvent(t EventType, payload JSONB) FleetEvent {
	return FleetEvent{Type: t, Payload: payload, Timestamp: time.Now().UTC()}
}
