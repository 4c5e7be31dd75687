package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

// SimulatedExecutor stands in for real work: it waits a latency scaled by the
// worker's efficiency and fails with probability FailureRate.
type SimulatedExecutor struct {
	latency     time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

type SimulatedExecutorConfig struct {
	Latency     time.Duration
	FailureRate float64
	// Seed makes failures reproducible; 0 seeds from the clock.
	Seed uint64
}

func NewSimulatedExecutor(cfg SimulatedExecutorConfig) *SimulatedExecutor {
	return &SimulatedExecutor{
		latency:     cfg.Latency,
		failureRate: cfg.FailureRate,
		rng:         newRand(cfg.Seed),
	}
}

var _ ports.TaskExecutor = (*SimulatedExecutor)(nil)

func (e *SimulatedExecutor) Execute(ctx context.Context, task domain.Task, worker domain.Worker) (string, error) {
	// Less efficient workers are slower: up to 2x at efficiency 0.
	scale := 1 + (domain.MaxEfficiency-worker.Efficiency)/domain.MaxEfficiency
	wait := time.Duration(float64(e.latency) * scale)

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("task %s interrupted: %w", task.ID, ctx.Err())
		case <-timer.C:
		}
	}

	if e.failureRate > 0 {
		e.mu.Lock()
		roll := e.rng.Float64()
		e.mu.Unlock()
		if roll < e.failureRate {
			return "", fmt.Errorf("worker %s could not complete %q", worker.Name, task.Title)
		}
	}

	return fmt.Sprintf("%s completed %q", worker.Name, task.Title), nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
