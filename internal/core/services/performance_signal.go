package services

import (
	"context"
	"fmt"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

const performanceWindow = 50

// taskOutcomeSignal derives a worker's performance from its most recent
// terminal tasks.
type taskOutcomeSignal struct {
	tasks ports.TaskRepository
}

func NewTaskOutcomeSignal(tasks ports.TaskRepository) ports.PerformanceSignal {
	return &taskOutcomeSignal{tasks: tasks}
}

func (s *taskOutcomeSignal) Summarize(ctx context.Context, workerID string) (ports.PerformanceSummary, error) {
	tasks, err := s.tasks.List(ctx, ports.TaskFilter{WorkerID: workerID, Limit: performanceWindow})
	if err != nil {
		return ports.PerformanceSummary{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var summary ports.PerformanceSummary
	var totalDuration int64
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusCompleted:
			summary.Completed++
		case domain.TaskStatusFailed:
			summary.Failed++
		default:
			continue
		}
		totalDuration += t.DurationMs
	}

	done := summary.Completed + summary.Failed
	if done > 0 {
		summary.SuccessRate = float64(summary.Completed) / float64(done)
		summary.AvgDurationMs = float64(totalDuration) / float64(done)
	}
	return summary, nil
}
