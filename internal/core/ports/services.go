package ports

import (
	"context"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

type WorkerRegistry interface {
	Get(ctx context.Context, id string) (*domain.Worker, error)
	List(ctx context.Context, filter WorkerFilter) ([]domain.Worker, error)
	Snapshot(ctx context.Context) ([]domain.Worker, error)
	// Mutate applies fn to the latest stored worker and writes it back with a
	// versioned update, re-reading on version conflicts.
	Mutate(ctx context.Context, id string, fn func(w *domain.Worker) error) (*domain.Worker, error)
	Seed(ctx context.Context, workers []domain.Worker) (created int, err error)
}

type CapabilityRouter interface {
	RouteTask(ctx context.Context, description string) (*domain.RouteDecision, error)
	Table() domain.RoutingTable
}

type SubmitTaskInput struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
}

type TaskService interface {
	Submit(ctx context.Context, input SubmitTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	StatusCounts(ctx context.Context) (map[domain.TaskStatus]int64, error)
}

type QueueManager interface {
	Dequeue(ctx context.Context, batchSize int) ([]domain.Task, error)
	Dispatch(ctx context.Context, batch []domain.Task) *domain.BatchResult
	ProcessQueue(ctx context.Context, batchSize int) (*domain.BatchResult, error)
}

// CandidateOutcome is the per-worker record of one evolution cycle.
type CandidateOutcome struct {
	WorkerID         string   `json:"worker_id"`
	WorkerName       string   `json:"worker_name"`
	Role             string   `json:"role"`
	EfficiencyBefore float64  `json:"efficiency_before"`
	EfficiencyAfter  float64  `json:"efficiency_after"`
	Source           string   `json:"source"`
	Evolved          bool     `json:"evolved"`
	Skipped          bool     `json:"skipped,omitempty"`
	UpstreamError    string   `json:"upstream_error,omitempty"`
	Error            string   `json:"error,omitempty"`
	CapabilitiesAdd  []string `json:"capabilities_added,omitempty"`
	CapabilitiesDrop []string `json:"capabilities_removed,omitempty"`
}

type CycleReport struct {
	Cycle    domain.EvolutionCycle `json:"cycle"`
	Outcomes []CandidateOutcome    `json:"outcomes"`
	// RecordError is set when the cycle ran but could not be persisted.
	RecordError string `json:"record_error,omitempty"`
}

type EvolutionEngine interface {
	RunCycle(ctx context.Context, cadence domain.Cadence) (*CycleReport, error)
	History(ctx context.Context, cadence domain.Cadence, limit int) ([]domain.EvolutionCycle, error)
}

type ProposalAction string

const (
	ProposalActionApprove ProposalAction = "approve"
	ProposalActionMerge   ProposalAction = "merge"
	ProposalActionReject  ProposalAction = "reject"
)

type ApplyProposalInput struct {
	ProposalID string
	Action     ProposalAction
	Note       string
}

type ProposalService interface {
	CreateProposal(ctx context.Context, workerID string) (*domain.EvolutionProposal, error)
	Apply(ctx context.Context, input ApplyProposalInput) (*domain.EvolutionProposal, error)
	History(ctx context.Context, filter ProposalFilter) ([]domain.EvolutionProposal, error)
}

type HeartbeatReport struct {
	Sampled       int                   `json:"sampled"`
	Warnings      int                   `json:"warnings"`
	Recovered     int                   `json:"recovered"`
	HealthScore   float64               `json:"health_score"`
	ActiveRatio   float64               `json:"active_ratio"`
	AvgEfficiency float64               `json:"avg_efficiency"`
	WarningRatio  float64               `json:"warning_ratio"`
	Samples       []domain.MetricSample `json:"samples"`
	Errors        []string              `json:"errors,omitempty"`
}

type HeartbeatSampler interface {
	Sample(ctx context.Context) (*HeartbeatReport, error)
	HealthHistory(ctx context.Context, limit int) ([]domain.MetricSample, error)
}
