package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

type TaskRepository struct {
	store *Store
}

func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{store: store}
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) Create(_ context.Context, task *domain.Task) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.tasks[task.ID]; exists {
		return errors.New("task already exists")
	}
	r.store.tasks[task.ID] = cloneTask(*task)
	r.store.taskSeq[task.ID] = r.store.nextSeq()
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.tasks[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	out := cloneTask(t)
	return &out, nil
}

// Dequeue orders by tier, then creation time, then insertion order so tasks
// created within one clock tick keep their submission order.
func (r *TaskRepository) Dequeue(_ context.Context, limit int) ([]domain.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []domain.Task
	for _, t := range r.store.tasks {
		if t.Status == domain.TaskStatusQueued {
			out = append(out, cloneTask(t))
		}
	}
	seq := r.store.taskSeq
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityRank != out[j].PriorityRank {
			return out[i].PriorityRank > out[j].PriorityRank
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return seq[out[i].ID] < seq[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TaskRepository) Transition(_ context.Context, task *domain.Task, from domain.TaskStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.tasks[task.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if cur.Status != from {
		return domain.ErrStaleStatus
	}
	task.CreatedAt = cur.CreatedAt
	r.store.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (r *TaskRepository) List(_ context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []domain.Task
	for _, t := range r.store.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.WorkerID != "" && (t.AssignedWorkerID == nil || *t.AssignedWorkerID != filter.WorkerID) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	seq := r.store.taskSeq
	sort.Slice(out, func(i, j int) bool { return seq[out[i].ID] > seq[out[j].ID] })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TaskRepository) CountByStatus(_ context.Context) (map[domain.TaskStatus]int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	counts := make(map[domain.TaskStatus]int64)
	for _, t := range r.store.tasks {
		counts[t.Status]++
	}
	return counts, nil
}
