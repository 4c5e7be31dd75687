package services

import (
	"context"
	"testing"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/memory"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *memory.Store
	workers   *memory.WorkerRepository
	tasks     *memory.TaskRepository
	cycles    *memory.CycleRepository
	proposals *memory.ProposalRepository
	metrics   *memory.MetricRepository
	audit     *memory.AuditRepository
	registry  ports.WorkerRegistry
	log       *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNop()
	f := &fixture{
		store:     store,
		workers:   memory.NewWorkerRepository(store),
		tasks:     memory.NewTaskRepository(store),
		cycles:    memory.NewCycleRepository(store),
		proposals: memory.NewProposalRepository(store),
		metrics:   memory.NewMetricRepository(store),
		audit:     memory.NewAuditRepository(store, nil),
		log:       log,
	}
	f.registry = NewWorkerRegistry(WorkerRegistryConfig{Repository: f.workers, Logger: log})
	return f
}

func (f *fixture) addWorker(id, name string, role domain.WorkerRole, eff float64, status domain.WorkerStatus) domain.Worker {
	w := domain.Worker{
		ID:           id,
		Name:         name,
		Role:         role,
		Efficiency:   eff,
		Status:       status,
		BehaviorText: "Do the work carefully.",
	}
	f.workers.Put(w)
	return w
}

func (f *fixture) worker(t *testing.T, id string) *domain.Worker {
	t.Helper()
	w, err := f.registry.Get(context.Background(), id)
	require.NoError(t, err)
	return w
}

// stubReasoning returns resp or err for every call and records the requests.
type stubReasoning struct {
	resp     *ports.ReasoningResponse
	err      error
	requests []ports.ReasoningRequest
}

func (s *stubReasoning) ProposeEvolution(_ context.Context, req ports.ReasoningRequest) (*ports.ReasoningResponse, error) {
	s.requests = append(s.requests, req)
	return s.resp, s.err
}

// heldLocker refuses every key in held and grants the rest. A non-nil err
// fails every call.
type heldLocker struct {
	held map[string]bool
	err  error
}

func (l heldLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	return func() {}, true, nil
}

// faultyRegistry wraps a registry and fails Mutate for the ids in failMutate
// (or every id while failAll is set) and List while failList is set.
type faultyRegistry struct {
	ports.WorkerRegistry
	failMutate map[string]bool
	failAll    bool
	failList   bool
	err        error
}

func (r *faultyRegistry) List(ctx context.Context, filter ports.WorkerFilter) ([]domain.Worker, error) {
	if r.failList {
		return nil, r.err
	}
	return r.WorkerRegistry.List(ctx, filter)
}

func (r *faultyRegistry) Mutate(ctx context.Context, id string, fn func(w *domain.Worker) error) (*domain.Worker, error) {
	if r.failAll || r.failMutate[id] {
		return nil, r.err
	}
	return r.WorkerRegistry.Mutate(ctx, id, fn)
}
