package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRegistry_ConcurrentMutateLosesNoUpdates(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-1", "one", domain.RoleEngineer, 0, domain.WorkerStatusActive)

	// Each goroutine retries on contention so every increment lands.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := f.registry.Mutate(context.Background(), "w-1", func(w *domain.Worker) error {
					w.Efficiency++
					return nil
				})
				if !errors.Is(err, ErrWorkerContended) {
					assert.NoError(t, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	w := f.worker(t, "w-1")
	assert.Equal(t, 20.0, w.Efficiency)
	assert.Equal(t, int64(20), w.Version)
}

func TestWorkerRegistry_MutateClampsAndPropagatesErrors(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-1", "one", domain.RoleEngineer, 99, domain.WorkerStatusActive)

	w, err := f.registry.Mutate(context.Background(), "w-1", func(w *domain.Worker) error {
		w.Efficiency += 50
		w.Load = -3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, w.Efficiency)
	assert.Zero(t, w.Load)

	boom := errors.New("boom")
	_, err = f.registry.Mutate(context.Background(), "w-1", func(*domain.Worker) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), f.worker(t, "w-1").Version, "failed mutation writes nothing")

	_, err = f.registry.Mutate(context.Background(), "missing", func(*domain.Worker) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestWorkerRegistry_SeedIsIdempotentByName(t *testing.T) {
	f := newFixture(t)
	seed := []domain.Worker{
		{Name: "alpha", Role: domain.RoleAnalyst, Efficiency: 150, CapabilityTags: domain.StringSet{"B", "a", "b"}},
		{Name: "beta", Role: domain.RoleData, Efficiency: 60},
	}

	created, err := f.registry.Seed(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = f.registry.Seed(context.Background(), seed)
	require.NoError(t, err)
	assert.Zero(t, created)

	workers, err := f.registry.List(context.Background(), ports.WorkerFilter{Role: domain.RoleAnalyst})
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, 100.0, workers[0].Efficiency)
	assert.Equal(t, domain.WorkerStatusActive, workers[0].Status)
	assert.Equal(t, domain.StringSet{"a", "b"}, workers[0].CapabilityTags)
}
