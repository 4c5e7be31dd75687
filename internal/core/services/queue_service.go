package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

const (
	maxAssignAttempts = 3
	finalWriteTimeout = 10 * time.Second
)

type queueManager struct {
	tasks       ports.TaskRepository
	registry    ports.WorkerRegistry
	router      ports.CapabilityRouter
	executor    ports.TaskExecutor
	events      ports.EventPublisher
	logger      *logger.Logger
	batchSize   int
	maxBatch    int
	maxDuration time.Duration

	// assignMu serializes route+claim so two tasks of one batch never race
	// for the same worker. Cross-invocation races are caught by versioned writes.
	assignMu sync.Mutex
}

type QueueManagerConfig struct {
	Tasks            ports.TaskRepository
	Registry         ports.WorkerRegistry
	Router           ports.CapabilityRouter
	Executor         ports.TaskExecutor
	Events           ports.EventPublisher
	Logger           *logger.Logger
	BatchSize        int
	MaxBatchSize     int
	MaxBatchDuration time.Duration
}

func NewQueueManager(cfg QueueManagerConfig) ports.QueueManager {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 10
	}
	maxBatch := cfg.MaxBatchSize
	if maxBatch < batch {
		maxBatch = batch
	}
	return &queueManager{
		tasks:       cfg.Tasks,
		registry:    cfg.Registry,
		router:      cfg.Router,
		executor:    cfg.Executor,
		events:      cfg.Events,
		logger:      cfg.Logger,
		batchSize:   batch,
		maxBatch:    maxBatch,
		maxDuration: cfg.MaxBatchDuration,
	}
}

func (m *queueManager) ProcessQueue(ctx context.Context, batchSize int) (*domain.BatchResult, error) {
	if batchSize < 0 {
		return nil, ErrInvalidBatchSize
	}
	if batchSize == 0 {
		batchSize = m.batchSize
	}
	if batchSize > m.maxBatch {
		batchSize = m.maxBatch
	}

	if m.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.maxDuration)
		defer cancel()
	}

	batch, err := m.Dequeue(ctx, batchSize)
	if err != nil {
		return nil, err
	}
	return m.Dispatch(ctx, batch), nil
}

func (m *queueManager) Dequeue(ctx context.Context, batchSize int) ([]domain.Task, error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	tasks, err := m.tasks.Dequeue(ctx, batchSize)
	if err != nil {
		m.logger.Errorw("queue_dequeue_failed", "batch_size", batchSize, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return tasks, nil
}

// Dispatch processes every task of batch concurrently and waits for all of
// them. Per-task failures are captured in the result; nothing escapes.
func (m *queueManager) Dispatch(ctx context.Context, batch []domain.Task) *domain.BatchResult {
	started := time.Now()
	result := &domain.BatchResult{
		Fetched:   len(batch),
		Results:   make([]domain.TaskResult, len(batch)),
		StartedAt: started,
	}
	if len(batch) == 0 {
		return result
	}

	var g errgroup.Group
	g.SetLimit(len(batch))
	for i := range batch {
		task := batch[i]
		g.Go(func() error {
			result.Results[i] = m.processTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range result.Results {
		switch {
		case r.Skipped:
			result.Skipped++
		case r.Status == domain.TaskStatusCompleted:
			result.Successful++
		default:
			result.Failed++
		}
	}
	result.DurationMs = time.Since(started).Milliseconds()

	m.logger.Infow("queue_dispatch_ok",
		"fetched", result.Fetched,
		"successful", result.Successful,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration_ms", result.DurationMs,
	)
	m.publish(domain.EventBatchProcessed, domain.JSONB{
		"fetched":    result.Fetched,
		"successful": result.Successful,
		"failed":     result.Failed,
		"skipped":    result.Skipped,
	})
	return result
}

func (m *queueManager) processTask(ctx context.Context, task domain.Task) domain.TaskResult {
	started := time.Now()
	res := domain.TaskResult{
		TaskID:   task.ID,
		Title:    task.Title,
		Priority: task.Priority,
		Status:   task.Status,
	}
	defer func() { res.DurationMs = time.Since(started).Milliseconds() }()

	// An unclaimed task stays QUEUED, so it is reported as skipped rather
	// than failed and is picked up again by the next batch.
	if err := ctx.Err(); err != nil {
		m.logger.Warnw("queue_task_budget_exhausted", "task_id", task.ID, "error", err)
		res.Skipped = true
		res.Error = fmt.Sprintf("batch budget exhausted before claim: %v", err)
		return res
	}

	err := transitionTask(ctx, m.tasks, &task, domain.TaskStatusProcessing, func(t *domain.Task) {
		t.StartedAt = &started
	})
	if err != nil {
		if errors.Is(err, ErrTaskAlreadyClaimed) || errors.Is(err, ErrInvalidTransition) {
			m.logger.Infow("queue_task_skipped", "task_id", task.ID, "reason", err)
			res.Skipped = true
			res.Error = err.Error()
			return res
		}
		m.logger.Errorw("queue_task_claim_failed", "task_id", task.ID, "error", err)
		res.Skipped = true
		res.Error = err.Error()
		res.PersistError = err.Error()
		return res
	}
	res.Status = task.Status

	var decision *domain.RouteDecision
	output, runErr := safeRun(func() (string, error) {
		d, err := m.assign(ctx, task)
		if err != nil {
			return "", err
		}
		decision = d
		defer m.release(ctx, d.Worker.ID, task.ID)
		m.recordAssignment(ctx, &task, d.Worker.ID)
		return m.executor.Execute(ctx, task, d.Worker)
	})

	finishedAt := time.Now()
	next := domain.TaskStatusCompleted
	if runErr != nil {
		next = domain.TaskStatusFailed
		res.Error = runErr.Error()
	}
	if decision != nil {
		res.WorkerID = decision.Worker.ID
		res.WorkerName = decision.Worker.Name
		res.RouteTier = string(decision.Tier)
	}
	res.Result = output

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	err = transitionTask(writeCtx, m.tasks, &task, next, func(t *domain.Task) {
		t.CompletedAt = &finishedAt
		t.DurationMs = finishedAt.Sub(started).Milliseconds()
		t.Result = output
		if runErr != nil {
			t.ErrorMessage = runErr.Error()
		}
		if decision != nil {
			id := decision.Worker.ID
			t.AssignedWorkerID = &id
		}
	})
	// The outcome stands even when the write is lost; it is reported, not retried.
	res.Status = next
	if err != nil {
		m.logger.Errorw("queue_task_final_write_failed", "task_id", task.ID, "status", next, "error", err)
		res.PersistError = err.Error()
	}

	if runErr != nil {
		m.logger.Warnw("queue_task_failed", "task_id", task.ID, "error", runErr)
		m.publish(domain.EventTaskFailed, domain.JSONB{"task_id": task.ID, "error": runErr.Error()})
	} else {
		m.logger.Infow("queue_task_completed", "task_id", task.ID, "worker", res.WorkerName)
		m.publish(domain.EventTaskCompleted, domain.JSONB{"task_id": task.ID, "worker_id": res.WorkerID})
	}
	return res
}

// assign routes task and claims the chosen worker. A worker that became busy
// between routing and claiming is routed around.
func (m *queueManager) assign(ctx context.Context, task domain.Task) (*domain.RouteDecision, error) {
	m.assignMu.Lock()
	defer m.assignMu.Unlock()

	text := strings.TrimSpace(task.Title + "\n" + task.Description)
	for attempt := 0; attempt < maxAssignAttempts; attempt++ {
		decision, err := m.router.RouteTask(ctx, text)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		taskID := task.ID
		claimed, err := m.registry.Mutate(ctx, decision.Worker.ID, func(w *domain.Worker) error {
			if w.Status != domain.WorkerStatusActive || w.CurrentTaskID != nil {
				return ErrWorkerBusy
			}
			w.Status = domain.WorkerStatusProcessing
			w.CurrentTaskID = &taskID
			w.Load++
			w.LastActiveAt = &now
			return nil
		})
		if err == nil {
			decision.Worker = *claimed
			return decision, nil
		}
		if errors.Is(err, ErrWorkerBusy) || errors.Is(err, ErrWorkerContended) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: routed workers kept becoming busy", ErrNoAvailableWorker)
}

// recordAssignment stores the claimed worker on the PROCESSING task. A lost
// write is logged; the final status write sets the assignment again.
func (m *queueManager) recordAssignment(ctx context.Context, task *domain.Task, workerID string) {
	updated := *task
	updated.AssignedWorkerID = &workerID
	updated.UpdatedAt = time.Now()
	if err := m.tasks.Transition(ctx, &updated, domain.TaskStatusProcessing); err != nil {
		m.logger.Warnw("queue_task_assignment_write_failed", "task_id", task.ID, "worker_id", workerID, "error", err)
		return
	}
	*task = updated
}

func (m *queueManager) release(ctx context.Context, workerID, taskID string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	now := time.Now()
	_, err := m.registry.Mutate(writeCtx, workerID, func(w *domain.Worker) error {
		if w.CurrentTaskID != nil && *w.CurrentTaskID == taskID {
			w.CurrentTaskID = nil
		}
		w.Load--
		if w.Status == domain.WorkerStatusProcessing {
			w.Status = domain.WorkerStatusActive
		}
		w.LastActiveAt = &now
		return nil
	})
	if err != nil {
		m.logger.Errorw("queue_worker_release_failed", "worker_id", workerID, "task_id", taskID, "error", err)
	}
}

func (m *queueManager) publish(t domain.EventType, payload domain.JSONB) {
	if m.events != nil {
		m.events.Publish(domain.NewFleetEvent(t, payload))
	}
}

// safeRun converts a panic inside fn into an error.
func safeRun(fn func() (string, error)) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during processing: %v", r)
		}
	}()
	return fn()
}
