package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// scriptedExecutor fails or panics on chosen task titles.
type scriptedExecutor struct {
	fail  map[string]bool
	panic map[string]bool
}

func (e scriptedExecutor) Execute(_ context.Context, task domain.Task, worker domain.Worker) (string, error) {
	if e.panic[task.Title] {
		panic("executor blew up")
	}
	if e.fail[task.Title] {
		return "", errors.New("simulated failure")
	}
	return fmt.Sprintf("%s done by %s", task.Title, worker.Name), nil
}

func newQueueFixture(t *testing.T, exec ports.TaskExecutor, workers int) (*fixture, ports.QueueManager, ports.TaskService) {
	t.Helper()
	f := newFixture(t)
	f.addWorker("w-orch", "orchestrator-prime", domain.RoleOrchestrator, 90, domain.WorkerStatusActive)
	for i := 1; i < workers; i++ {
		f.addWorker(fmt.Sprintf("w-%02d", i), fmt.Sprintf("worker-%02d", i), domain.RoleEngineer, 70+float64(i), domain.WorkerStatusActive)
	}
	router := NewCapabilityRouter(CapabilityRouterConfig{Registry: f.registry, Logger: f.log})
	queue := NewQueueManager(QueueManagerConfig{
		Tasks:        f.tasks,
		Registry:     f.registry,
		Router:       router,
		Executor:     exec,
		Logger:       f.log,
		BatchSize:    10,
		MaxBatchSize: 20,
	})
	tasks := NewTaskService(TaskServiceConfig{Repository: f.tasks, Logger: f.log})
	return f, queue, tasks
}

func submit(t *testing.T, svc ports.TaskService, title string, priority domain.TaskPriority) *domain.Task {
	t.Helper()
	task, err := svc.Submit(context.Background(), ports.SubmitTaskInput{Title: title, Priority: priority})
	require.NoError(t, err)
	return task
}

func TestQueueManager_DequeueOrdersByPriority(t *testing.T) {
	_, queue, tasks := newQueueFixture(t, scriptedExecutor{}, 1)
	low := submit(t, tasks, "low", domain.PriorityLow)
	normal := submit(t, tasks, "normal", domain.PriorityNormal)
	urgent := submit(t, tasks, "urgent", domain.PriorityUrgent)
	normal2 := submit(t, tasks, "normal-2", domain.PriorityNormal)

	got, err := queue.Dequeue(context.Background(), 10)
	require.NoError(t, err)

	var ids []string
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{urgent.ID, normal.ID, normal2.ID, low.ID}, ids)

	_, err = queue.Dequeue(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestQueueManager_ProcessQueueIsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := scriptedExecutor{fail: map[string]bool{"task-3": true}}
	f, queue, tasks := newQueueFixture(t, exec, 5)
	for i := 1; i <= 5; i++ {
		submit(t, tasks, fmt.Sprintf("task-%d", i), domain.PriorityNormal)
	}

	result, err := queue.ProcessQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Fetched)
	assert.Equal(t, 4, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Results, 5)

	for _, r := range result.Results {
		stored, err := tasks.GetTask(context.Background(), r.TaskID)
		require.NoError(t, err)
		assert.Equal(t, r.Status, stored.Status, "stored status matches reported status for %s", r.Title)
		if r.Title == "task-3" {
			assert.Equal(t, domain.TaskStatusFailed, stored.Status)
			assert.Equal(t, "simulated failure", stored.ErrorMessage)
		} else {
			assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
			require.NotNil(t, stored.AssignedWorkerID)
		}
	}

	// Every worker is released once the batch is done.
	workers, err := f.registry.Snapshot(context.Background())
	require.NoError(t, err)
	for _, w := range workers {
		assert.Equal(t, domain.WorkerStatusActive, w.Status, w.Name)
		assert.Nil(t, w.CurrentTaskID, w.Name)
		assert.Zero(t, w.Load, w.Name)
	}
}

func TestQueueManager_PanicBecomesFailedTask(t *testing.T) {
	exec := scriptedExecutor{panic: map[string]bool{"explode": true}}
	_, queue, tasks := newQueueFixture(t, exec, 2)
	boom := submit(t, tasks, "explode", domain.PriorityHigh)
	submit(t, tasks, "calm", domain.PriorityLow)

	result, err := queue.ProcessQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)

	stored, err := tasks.GetTask(context.Background(), boom.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "panic")
}

func TestQueueManager_EmptyQueue(t *testing.T) {
	_, queue, _ := newQueueFixture(t, scriptedExecutor{}, 1)

	result, err := queue.ProcessQueue(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, result.Fetched)
	assert.Empty(t, result.Results)

	_, err = queue.ProcessQueue(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestQueueManager_NoWorkerFailsTask(t *testing.T) {
	f, queue, tasks := newQueueFixture(t, scriptedExecutor{}, 1)
	_, err := f.registry.Mutate(context.Background(), "w-orch", func(w *domain.Worker) error {
		w.Status = domain.WorkerStatusOffline
		return nil
	})
	require.NoError(t, err)
	task := submit(t, tasks, "orphan", domain.PriorityNormal)

	result, err := queue.ProcessQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	stored, err := tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Nil(t, stored.AssignedWorkerID)
}

func TestQueueManager_AlreadyClaimedTaskIsSkipped(t *testing.T) {
	f, queue, tasks := newQueueFixture(t, scriptedExecutor{}, 1)
	task := submit(t, tasks, "contested", domain.PriorityNormal)

	batch, err := queue.Dequeue(context.Background(), 1)
	require.NoError(t, err)

	// Another dispatcher claims it between dequeue and dispatch.
	claimed := *task
	claimed.Status = domain.TaskStatusProcessing
	require.NoError(t, f.tasks.Transition(context.Background(), &claimed, domain.TaskStatusQueued))

	result := queue.Dispatch(context.Background(), batch)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)
	assert.True(t, result.Results[0].Skipped)
}

func TestSimulatedExecutor_HonorsCancellation(t *testing.T) {
	exec := NewSimulatedExecutor(SimulatedExecutorConfig{Latency: time.Hour, Seed: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, domain.Task{ID: "t1", Title: "slow"}, domain.Worker{Name: "w", Efficiency: 50})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedExecutor_FailureRate(t *testing.T) {
	always := NewSimulatedExecutor(SimulatedExecutorConfig{FailureRate: 1, Seed: 3})
	_, err := always.Execute(context.Background(), domain.Task{Title: "x"}, domain.Worker{Name: "w"})
	assert.Error(t, err)

	never := NewSimulatedExecutor(SimulatedExecutorConfig{Seed: 3})
	out, err := never.Execute(context.Background(), domain.Task{Title: "x"}, domain.Worker{Name: "w"})
	require.NoError(t, err)
	assert.Contains(t, out, "w completed")
}

func TestQueueManager_ExhaustedBudgetLeavesTasksQueued(t *testing.T) {
	_, queue, tasks := newQueueFixture(t, scriptedExecutor{}, 2)
	first := submit(t, tasks, "first", domain.PriorityNormal)
	second := submit(t, tasks, "second", domain.PriorityNormal)

	batch, err := queue.Dequeue(context.Background(), 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := queue.Dispatch(ctx, batch)
	assert.Equal(t, 2, result.Skipped)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Successful)

	for _, id := range []string{first.ID, second.ID} {
		stored, err := tasks.GetTask(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusQueued, stored.Status)
	}

	// Skipped tasks are picked up by the next batch.
	result, err = queue.ProcessQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful)
}

// observingExecutor reads the stored task while it is being executed.
type observingExecutor struct {
	tasks ports.TaskService
	seen  map[string]*domain.Task
}

func (e *observingExecutor) Execute(ctx context.Context, task domain.Task, _ domain.Worker) (string, error) {
	stored, err := e.tasks.GetTask(ctx, task.ID)
	if err != nil {
		return "", err
	}
	e.seen[task.ID] = stored
	return "ok", nil
}

func TestQueueManager_AssignmentIsVisibleWhileProcessing(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-orch", "orchestrator-prime", domain.RoleOrchestrator, 90, domain.WorkerStatusActive)
	tasks := NewTaskService(TaskServiceConfig{Repository: f.tasks, Logger: f.log})
	exec := &observingExecutor{tasks: tasks, seen: map[string]*domain.Task{}}
	queue := NewQueueManager(QueueManagerConfig{
		Tasks:    f.tasks,
		Registry: f.registry,
		Router:   NewCapabilityRouter(CapabilityRouterConfig{Registry: f.registry, Logger: f.log}),
		Executor: exec,
		Logger:   f.log,
	})
	task := submit(t, tasks, "coordinate the rollout", domain.PriorityNormal)

	result, err := queue.ProcessQueue(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.Successful)

	during := exec.seen[task.ID]
	require.NotNil(t, during)
	assert.Equal(t, domain.TaskStatusProcessing, during.Status)
	require.NotNil(t, during.AssignedWorkerID)
	assert.Equal(t, "w-orch", *during.AssignedWorkerID)

	after, err := tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, after.Status)
	require.NotNil(t, after.AssignedWorkerID)
	assert.Equal(t, "w-orch", *after.AssignedWorkerID)
}
