package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/google/uuid"
)

const maxTitleLength = 255

type taskService struct {
	repo   ports.TaskRepository
	logger *logger.Logger
}

type TaskServiceConfig struct {
	Repository ports.TaskRepository
	Logger     *logger.Logger
}

func NewTaskService(cfg TaskServiceConfig) ports.TaskService {
	return &taskService{repo: cfg.Repository, logger: cfg.Logger}
}

// ==================== Submission ====================

func (s *taskService) Submit(ctx context.Context, input ports.SubmitTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrTaskInvalidInput)
	}
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrTaskInvalidInput, maxTitleLength)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrTaskInvalidInput, priority)
	}

	now := time.Now()
	task := &domain.Task{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Priority:     priority,
		PriorityRank: priority.Rank(),
		Status:       domain.TaskStatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		s.logger.Errorw("task_submit_failed", "title", title, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Infow("task_submitted", "task_id", task.ID, "priority", task.Priority)
	return task, nil
}

// ==================== Queries ====================

func (s *taskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]domain.Task, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return tasks, nil
}

func (s *taskService) StatusCounts(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	for _, st := range []domain.TaskStatus{
		domain.TaskStatusQueued, domain.TaskStatusProcessing,
		domain.TaskStatusCompleted, domain.TaskStatusFailed,
	} {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}

// ==================== Status machine ====================

// transitionTask moves task to next via a conditional write. The in-memory
// copy is only updated after the store accepted the change.
func transitionTask(ctx context.Context, repo ports.TaskRepository, task *domain.Task, next domain.TaskStatus, mutate func(t *domain.Task)) error {
	from := task.Status
	if !from.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}
	updated := *task
	updated.Status = next
	updated.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(&updated)
	}
	if err := repo.Transition(ctx, &updated, from); err != nil {
		if errors.Is(err, domain.ErrStaleStatus) {
			return ErrTaskAlreadyClaimed
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	*task = updated
	return nil
}
