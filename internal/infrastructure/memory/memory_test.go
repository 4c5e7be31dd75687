package memory

import (
	"context"
	"testing"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRepository_UpdateVersioned(t *testing.T) {
	repo := NewWorkerRepository(NewStore())
	repo.Put(domain.Worker{ID: "w-1", Name: "one", Efficiency: 50})
	ctx := context.Background()

	a, err := repo.GetByID(ctx, "w-1")
	require.NoError(t, err)
	b, err := repo.GetByID(ctx, "w-1")
	require.NoError(t, err)

	a.Efficiency = 60
	require.NoError(t, repo.UpdateVersioned(ctx, a))
	assert.Equal(t, int64(1), a.Version)

	b.Efficiency = 70
	assert.ErrorIs(t, repo.UpdateVersioned(ctx, b), domain.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, "w-1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, stored.Efficiency)

	assert.ErrorIs(t, repo.UpdateVersioned(ctx, &domain.Worker{ID: "nope"}), domain.ErrRecordNotFound)
}

func TestWorkerRepository_ReturnsCopies(t *testing.T) {
	repo := NewWorkerRepository(NewStore())
	repo.Put(domain.Worker{ID: "w-1", Name: "one", CapabilityTags: domain.StringSet{"a"}})

	w, err := repo.GetByID(context.Background(), "w-1")
	require.NoError(t, err)
	w.CapabilityTags[0] = "mutated"

	again, err := repo.GetByID(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StringSet{"a"}, again.CapabilityTags)
}

func TestWorkerRepository_ListFilters(t *testing.T) {
	repo := NewWorkerRepository(NewStore())
	repo.Put(domain.Worker{ID: "1", Name: "c", Role: domain.RoleData, Efficiency: 30, Status: domain.WorkerStatusActive})
	repo.Put(domain.Worker{ID: "2", Name: "a", Role: domain.RoleData, Efficiency: 10, Status: domain.WorkerStatusOffline})
	repo.Put(domain.Worker{ID: "3", Name: "b", Role: domain.RoleAnalyst, Efficiency: 20, Status: domain.WorkerStatusWarning})

	all, err := repo.List(context.Background(), ports.WorkerFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(all))

	below := 25.0
	got, err := repo.List(context.Background(), ports.WorkerFilter{
		ExcludeStatuses: []domain.WorkerStatus{domain.WorkerStatusOffline},
		BelowEfficiency: &below,
		LowestFirst:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(got))

	got, err = repo.List(context.Background(), ports.WorkerFilter{Role: domain.RoleData, LowestFirst: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(got))
}

func names(ws []domain.Worker) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Name)
	}
	return out
}

func TestTaskRepository_DequeueKeepsSubmissionOrderWithinTier(t *testing.T) {
	repo := NewTaskRepository(NewStore())
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, repo.Create(ctx, &domain.Task{
			ID: id, Status: domain.TaskStatusQueued, Priority: domain.PriorityNormal,
			PriorityRank: domain.PriorityNormal.Rank(), CreatedAt: at,
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Task{
		ID: "u1", Status: domain.TaskStatusQueued, Priority: domain.PriorityUrgent,
		PriorityRank: domain.PriorityUrgent.Rank(), CreatedAt: at.Add(time.Hour),
	}))
	require.Error(t, repo.Create(ctx, &domain.Task{ID: "n1"}), "duplicate ids are rejected")

	got, err := repo.Dequeue(ctx, 3)
	require.NoError(t, err)
	var ids []string
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"u1", "n1", "n2"}, ids)
}

func TestTaskRepository_TransitionIsConditional(t *testing.T) {
	repo := NewTaskRepository(NewStore())
	ctx := context.Background()
	task := &domain.Task{ID: "t", Status: domain.TaskStatusQueued}
	require.NoError(t, repo.Create(ctx, task))

	next := *task
	next.Status = domain.TaskStatusProcessing
	require.NoError(t, repo.Transition(ctx, &next, domain.TaskStatusQueued))
	assert.ErrorIs(t, repo.Transition(ctx, &next, domain.TaskStatusQueued), domain.ErrStaleStatus)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.TaskStatusProcessing])
}

func TestProposalRepository_TransitionIsConditional(t *testing.T) {
	repo := NewProposalRepository(NewStore())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.EvolutionProposal{ID: "p", Status: domain.ProposalStatusPending}))

	merged := domain.EvolutionProposal{ID: "p", Status: domain.ProposalStatusMerged}
	require.NoError(t, repo.Transition(ctx, &merged, domain.ProposalStatusPending))
	assert.ErrorIs(t, repo.Transition(ctx, &merged, domain.ProposalStatusPending), domain.ErrStaleStatus)
}

func TestAuditRepository_CleanupOld(t *testing.T) {
	store := NewStore()
	repo := NewAuditRepository(store, nil)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.AuditEvent{Type: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &domain.AuditEvent{Type: "new"}))

	require.NoError(t, repo.CleanupOld(ctx, 24*time.Hour))
	all, err := repo.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].Type)
}
