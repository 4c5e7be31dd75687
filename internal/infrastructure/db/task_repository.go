package db

import (
	"context"
	"errors"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "title", task.Title, "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID, "priority", task.Priority)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		}
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *taskRepository) Dequeue(ctx context.Context, limit int) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.TaskStatusQueued).
		Order("priority_rank DESC, created_at ASC, id ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_dequeue_failed", "limit", limit, "error", err)
		return nil, err
	}
	r.log.Infow("task_repo_dequeue_ok", "count", len(tasks))
	return tasks, nil
}

func (r *taskRepository) Transition(ctx context.Context, task *domain.Task, from domain.TaskStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND status = ?", task.ID, from).
		Select("*").
		Omit("id", "created_at").
		Updates(task)
	if res.Error != nil {
		r.log.Errorw("task_repo_transition_failed", "id", task.ID, "from", from, "to", task.Status, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrRecordNotFound
		}
		return domain.ErrStaleStatus
	}
	r.log.Infow("task_repo_transition_ok", "id", task.ID, "from", from, "to", task.Status)
	return nil
}

func (r *taskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	q := r.db.WithContext(ctx).Model(&domain.Task{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.WorkerID != "" {
		q = q.Where("assigned_worker_id = ?", filter.WorkerID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var tasks []domain.Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_list_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	var rows []struct {
		Status domain.TaskStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		r.log.Errorw("task_repo_count_failed", "error", err)
		return nil, err
	}
	counts := make(map[domain.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
