package memory

import (
	"context"
	"sort"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

type WorkerRepository struct {
	store *Store
}

func NewWorkerRepository(store *Store) *WorkerRepository {
	return &WorkerRepository{store: store}
}

var _ ports.WorkerRepository = (*WorkerRepository)(nil)

func (r *WorkerRepository) GetByID(_ context.Context, id string) (*domain.Worker, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.workers[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	out := cloneWorker(w)
	return &out, nil
}

func (r *WorkerRepository) GetByName(_ context.Context, name string) (*domain.Worker, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, w := range r.store.workers {
		if w.Name == name {
			out := cloneWorker(w)
			return &out, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (r *WorkerRepository) List(_ context.Context, filter ports.WorkerFilter) ([]domain.Worker, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]domain.Worker, 0, len(r.store.workers))
	for _, w := range r.store.workers {
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, w.Status) {
			continue
		}
		if hasStatus(filter.ExcludeStatuses, w.Status) {
			continue
		}
		if filter.Role != "" && w.Role != filter.Role {
			continue
		}
		if filter.BelowEfficiency != nil && w.Efficiency >= *filter.BelowEfficiency {
			continue
		}
		out = append(out, cloneWorker(w))
	}

	if filter.LowestFirst {
		sort.Slice(out, func(i, j int) bool {
			if out[i].Efficiency != out[j].Efficiency {
				return out[i].Efficiency < out[j].Efficiency
			}
			return out[i].ID < out[j].ID
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *WorkerRepository) UpdateVersioned(_ context.Context, worker *domain.Worker) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.workers[worker.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if cur.Version != worker.Version {
		return domain.ErrVersionConflict
	}
	worker.Version++
	worker.UpdatedAt = time.Now()
	worker.CreatedAt = cur.CreatedAt
	r.store.workers[worker.ID] = cloneWorker(*worker)
	return nil
}

func (r *WorkerRepository) UpsertByName(_ context.Context, worker *domain.Worker) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.workers {
		if w.Name == worker.Name {
			return false, nil
		}
	}
	now := time.Now()
	if worker.CreatedAt.IsZero() {
		worker.CreatedAt = now
	}
	worker.UpdatedAt = now
	r.store.workers[worker.ID] = cloneWorker(*worker)
	return true, nil
}

// Put stores worker unconditionally. Tests use it to arrange fixtures.
func (r *WorkerRepository) Put(worker domain.Worker) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.workers[worker.ID] = cloneWorker(worker)
}

func hasStatus(list []domain.WorkerStatus, s domain.WorkerStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
