package db

import (
	"context"
	"errors"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type workerRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerRepository(db *gorm.DB, log *logger.Logger) ports.WorkerRepository {
	return &workerRepository{db: db, log: log}
}

func (r *workerRepository) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	var w domain.Worker
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("worker_repo_get_failed", "id", id, "error", err)
		}
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *workerRepository) GetByName(ctx context.Context, name string) (*domain.Worker, error) {
	var w domain.Worker
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&w).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("worker_repo_get_by_name_failed", "name", name, "error", err)
		}
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *workerRepository) List(ctx context.Context, filter ports.WorkerFilter) ([]domain.Worker, error) {
	q := r.db.WithContext(ctx).Model(&domain.Worker{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if len(filter.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", filter.ExcludeStatuses)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.BelowEfficiency != nil {
		q = q.Where("efficiency < ?", *filter.BelowEfficiency)
	}
	if filter.LowestFirst {
		q = q.Order("efficiency ASC, id ASC")
	} else {
		q = q.Order("name ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var workers []domain.Worker
	if err := q.Find(&workers).Error; err != nil {
		r.log.Errorw("worker_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Debugw("worker_repo_list_ok", "count", len(workers))
	return workers, nil
}

// UpdateVersioned writes every column of worker when the stored version still
// matches, and bumps the version.
func (r *workerRepository) UpdateVersioned(ctx context.Context, worker *domain.Worker) error {
	next := *worker
	next.Version = worker.Version + 1
	next.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(&domain.Worker{}).
		Where("id = ? AND version = ?", worker.ID, worker.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(&next)
	if res.Error != nil {
		r.log.Errorw("worker_repo_update_failed", "id", worker.ID, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Worker{}).Where("id = ?", worker.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrRecordNotFound
		}
		return domain.ErrVersionConflict
	}

	worker.Version = next.Version
	worker.UpdatedAt = next.UpdatedAt
	r.log.Debugw("worker_repo_update_ok", "id", worker.ID, "version", worker.Version)
	return nil
}

func (r *workerRepository) UpsertByName(ctx context.Context, worker *domain.Worker) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(worker)
	if res.Error != nil {
		r.log.Errorw("worker_repo_upsert_failed", "name", worker.Name, "error", res.Error)
		return false, res.Error
	}
	created := res.RowsAffected > 0
	r.log.Infow("worker_repo_upsert_ok", "name", worker.Name, "created", created)
	return created, nil
}
