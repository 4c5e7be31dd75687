package ports

import (
	"context"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

// WorkerFilter narrows a worker listing. Zero values mean "no constraint".
type WorkerFilter struct {
	Statuses        []domain.WorkerStatus
	ExcludeStatuses []domain.WorkerStatus
	Role            domain.WorkerRole
	// BelowEfficiency keeps workers with efficiency strictly below the value.
	BelowEfficiency *float64
	// LowestFirst orders by ascending efficiency (ties by id); otherwise by name.
	LowestFirst bool
	Limit       int
}

type WorkerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
	GetByName(ctx context.Context, name string) (*domain.Worker, error)
	List(ctx context.Context, filter WorkerFilter) ([]domain.Worker, error)
	// UpdateVersioned writes worker if its stored version equals worker.Version,
	// then increments worker.Version. Returns domain.ErrVersionConflict otherwise.
	UpdateVersioned(ctx context.Context, worker *domain.Worker) error
	// UpsertByName inserts the worker unless one with the same name exists.
	UpsertByName(ctx context.Context, worker *domain.Worker) (created bool, err error)
}

type TaskFilter struct {
	Status   domain.TaskStatus
	WorkerID string
	Limit    int
}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// Dequeue returns up to limit QUEUED tasks by priority tier, then creation time.
	Dequeue(ctx context.Context, limit int) ([]domain.Task, error)
	// Transition persists task if its stored status equals from.
	// Returns domain.ErrStaleStatus when another writer moved it first.
	Transition(ctx context.Context, task *domain.Task, from domain.TaskStatus) error
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)
}

type CycleRepository interface {
	Create(ctx context.Context, cycle *domain.EvolutionCycle) error
	List(ctx context.Context, cadence domain.Cadence, limit int) ([]domain.EvolutionCycle, error)
}

type ProposalFilter struct {
	WorkerID string
	Status   domain.ProposalStatus
	Limit    int
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.EvolutionProposal) error
	GetByID(ctx context.Context, id string) (*domain.EvolutionProposal, error)
	// Transition persists proposal if its stored status equals from.
	Transition(ctx context.Context, proposal *domain.EvolutionProposal, from domain.ProposalStatus) error
	List(ctx context.Context, filter ProposalFilter) ([]domain.EvolutionProposal, error)
}

type MetricRepository interface {
	CreateBatch(ctx context.Context, samples []domain.MetricSample) error
	Latest(ctx context.Context, kind domain.MetricKind, limit int) ([]domain.MetricSample, error)
}

type AuditRepository interface {
	Create(ctx context.Context, event *domain.AuditEvent) error
	GetByResource(ctx context.Context, resourceType, resourceID string) ([]domain.AuditEvent, error)
	GetAll(ctx context.Context, limit int) ([]domain.AuditEvent, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) error
}

// Locker grants short-lived exclusive leases on string keys.
type Locker interface {
	// TryLock returns acquired=false without error when the key is held elsewhere.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), acquired bool, err error)
}

// EventPublisher fans live fleet events out to stream subscribers.
type EventPublisher interface {
	Publish(event domain.FleetEvent)
}
