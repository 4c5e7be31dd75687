package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/google/uuid"
)

// maxMutateAttempts bounds the read-modify-write loop in Mutate.
const maxMutateAttempts = 4

type workerRegistry struct {
	repo   ports.WorkerRepository
	logger *logger.Logger
}

type WorkerRegistryConfig struct {
	Repository ports.WorkerRepository
	Logger     *logger.Logger
}

func NewWorkerRegistry(cfg WorkerRegistryConfig) ports.WorkerRegistry {
	return &workerRegistry{repo: cfg.Repository, logger: cfg.Logger}
}

func (r *workerRegistry) Get(ctx context.Context, id string) (*domain.Worker, error) {
	w, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapWorkerErr(err)
	}
	return w, nil
}

func (r *workerRegistry) List(ctx context.Context, filter ports.WorkerFilter) ([]domain.Worker, error) {
	workers, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return workers, nil
}

func (r *workerRegistry) Snapshot(ctx context.Context) ([]domain.Worker, error) {
	return r.List(ctx, ports.WorkerFilter{})
}

func (r *workerRegistry) Mutate(ctx context.Context, id string, fn func(w *domain.Worker) error) (*domain.Worker, error) {
	for attempt := 1; attempt <= maxMutateAttempts; attempt++ {
		w, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return nil, mapWorkerErr(err)
		}
		if err := fn(w); err != nil {
			return nil, err
		}
		w.SetEfficiency(w.Efficiency)
		if w.Load < 0 {
			w.Load = 0
		}

		err = r.repo.UpdateVersioned(ctx, w)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			r.logger.Errorw("worker_registry_update_failed", "worker_id", id, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		r.logger.Debugw("worker_registry_version_conflict", "worker_id", id, "attempt", attempt)
	}
	r.logger.Warnw("worker_registry_contended", "worker_id", id)
	return nil, ErrWorkerContended
}

func (r *workerRegistry) Seed(ctx context.Context, workers []domain.Worker) (int, error) {
	created := 0
	for i := range workers {
		w := workers[i]
		if w.ID == "" {
			w.ID = uuid.New().String()
		}
		if w.Status == "" {
			w.Status = domain.WorkerStatusActive
		}
		w.CapabilityTags = domain.NewStringSet(w.CapabilityTags...)
		w.SetEfficiency(w.Efficiency)
		now := time.Now()
		w.CreatedAt, w.UpdatedAt = now, now

		ok, err := r.repo.UpsertByName(ctx, &w)
		if err != nil {
			r.logger.Errorw("worker_registry_seed_failed", "name", w.Name, "error", err)
			return created, fmt.Errorf("%w: seeding %s: %v", ErrPersistence, w.Name, err)
		}
		if ok {
			created++
		}
	}
	r.logger.Infow("worker_registry_seed_ok", "requested", len(workers), "created", created)
	return created, nil
}

func mapWorkerErr(err error) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return ErrWorkerNotFound
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
