package ports

import (
	"context"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

// PerformanceSummary is the recent task-outcome signal for one worker.
type PerformanceSummary struct {
	Completed     int     `json:"completed"`
	Failed        int     `json:"failed"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// PeerContext describes the worker's category peers (strategic cycles only).
type PeerContext struct {
	Role              domain.WorkerRole `json:"role"`
	PeerCount         int               `json:"peer_count"`
	AverageEfficiency float64           `json:"average_efficiency"`
	TopPerformer      string            `json:"top_performer,omitempty"`
	TopBehavior       string            `json:"top_behavior,omitempty"`
}

type ReasoningRequest struct {
	WorkerID     string             `json:"worker_id"`
	WorkerName   string             `json:"worker_name"`
	Role         domain.WorkerRole  `json:"role"`
	Capabilities []string           `json:"capabilities"`
	Efficiency   float64            `json:"efficiency"`
	Behavior     string             `json:"behavior"`
	Performance  PerformanceSummary `json:"performance"`
	Cadence      domain.Cadence     `json:"cadence,omitempty"`
	Peers        *PeerContext       `json:"peers,omitempty"`
}

type ReasoningResponse struct {
	Behavior            string   `json:"behavior"`
	CapabilitiesAdded   []string `json:"capabilities_added"`
	CapabilitiesRemoved []string `json:"capabilities_removed"`
	ExpectedGain        float64  `json:"expected_gain"`
	Confidence          float64  `json:"confidence"`
	Rationale           string   `json:"rationale"`
	Weaknesses          []string `json:"weaknesses"`
	Improvements        []string `json:"improvements"`
}

// ReasoningService produces a structured behavior-improvement suggestion.
type ReasoningService interface {
	ProposeEvolution(ctx context.Context, req ReasoningRequest) (*ReasoningResponse, error)
}

// PerformanceSignal summarizes a worker's recent task outcomes.
type PerformanceSignal interface {
	Summarize(ctx context.Context, workerID string) (PerformanceSummary, error)
}

// TaskExecutor performs the work of a routed task.
type TaskExecutor interface {
	Execute(ctx context.Context, task domain.Task, worker domain.Worker) (string, error)
}
