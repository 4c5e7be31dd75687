package services

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routingSnapshot() []domain.Worker {
	return []domain.Worker{
		{ID: "w-orch", Name: "orchestrator-prime", Role: domain.RoleOrchestrator, Efficiency: 90, Status: domain.WorkerStatusActive},
		{ID: "w-sent", Name: "sentinel-guard", Role: domain.RoleSecurity, Efficiency: 88, Status: domain.WorkerStatusActive},
		{ID: "w-sec2", Name: "compliance-guard", Role: domain.RoleSecurity, Efficiency: 70, Status: domain.WorkerStatusActive},
		{ID: "w-eng1", Name: "code-smith", Role: domain.RoleEngineer, Efficiency: 86, Load: 1, Status: domain.WorkerStatusActive},
		{ID: "w-eng2", Name: "ops-engineer", Role: domain.RoleEngineer, Efficiency: 86, Status: domain.WorkerStatusActive},
		{ID: "w-an-b", Name: "trend-analyst", Role: domain.RoleAnalyst, Efficiency: 80, Status: domain.WorkerStatusActive},
		{ID: "w-an-a", Name: "audit-analyst", Role: domain.RoleAnalyst, Efficiency: 80, Status: domain.WorkerStatusActive},
		{ID: "w-cre", Name: "story-weaver", Role: domain.RoleCreative, Efficiency: 81, Status: domain.WorkerStatusActive},
	}
}

func withStatus(snapshot []domain.Worker, name string, status domain.WorkerStatus) []domain.Worker {
	out := append([]domain.Worker(nil), snapshot...)
	for i := range out {
		if out[i].Name == name {
			out[i].Status = status
		}
	}
	return out
}

func TestRoute_Tiers(t *testing.T) {
	table := DefaultRoutingTable()
	base := routingSnapshot()

	tests := []struct {
		name     string
		text     string
		snapshot []domain.Worker
		wantID   string
		wantTier domain.RouteTier
		wantRole domain.WorkerRole
	}{
		{
			name:     "specialist keyword",
			text:     "Investigate the firewall vulnerability report",
			snapshot: base,
			wantID:   "w-sent",
			wantTier: domain.RouteTierSpecialization,
			wantRole: domain.RoleSecurity,
		},
		{
			name:     "offline specialist falls through to category",
			text:     "Security breach near the firewall",
			snapshot: withStatus(base, "sentinel-guard", domain.WorkerStatusOffline),
			wantID:   "w-sec2",
			wantTier: domain.RouteTierCategory,
			wantRole: domain.RoleSecurity,
		},
		{
			name:     "category tie goes to earlier rule and load breaks efficiency tie",
			text:     "write code",
			snapshot: base,
			wantID:   "w-eng2",
			wantTier: domain.RouteTierCategory,
			wantRole: domain.RoleEngineer,
		},
		{
			name:     "id breaks full tie",
			text:     "analyze the trend",
			snapshot: base,
			wantID:   "w-an-a",
			wantTier: domain.RouteTierCategory,
			wantRole: domain.RoleAnalyst,
		},
		{
			name:     "no keyword hits uses default role",
			text:     "hello",
			snapshot: base,
			wantID:   "w-orch",
			wantTier: domain.RouteTierCategory,
			wantRole: domain.RoleOrchestrator,
		},
		{
			name:     "empty category uses default worker",
			text:     "customer ticket backlog",
			snapshot: base,
			wantID:   "w-orch",
			wantTier: domain.RouteTierDefaultWorker,
			wantRole: domain.RoleSupport,
		},
		{
			name:     "unavailable default worker uses global best",
			text:     "customer ticket backlog",
			snapshot: withStatus(base, "orchestrator-prime", domain.WorkerStatusProcessing),
			wantID:   "w-sent",
			wantTier: domain.RouteTierGlobalBest,
			wantRole: domain.RoleSupport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Route(table, tt.text, tt.snapshot)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.Worker.ID)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestRoute_NoActiveWorker(t *testing.T) {
	snapshot := routingSnapshot()
	for i := range snapshot {
		snapshot[i].Status = domain.WorkerStatusWarning
	}
	_, err := Route(DefaultRoutingTable(), "write code", snapshot)
	assert.ErrorIs(t, err, ErrNoAvailableWorker)
}

func TestRoute_IndependentOfSnapshotOrder(t *testing.T) {
	table := DefaultRoutingTable()
	texts := []string{"write code", "analyze the trend", "customer ticket", "hello", "refactor the parser"}
	rng := rand.New(rand.NewPCG(7, 11))

	for _, text := range texts {
		want, err := Route(table, text, routingSnapshot())
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			shuffled := routingSnapshot()
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			got, err := Route(table, text, shuffled)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("route %q changed with order (-want +got):\n%s", text, diff)
			}
		}
	}
}

func TestCapabilityRouter_RouteTaskUsesRegistry(t *testing.T) {
	f := newFixture(t)
	for _, w := range routingSnapshot() {
		f.workers.Put(w)
	}
	router := NewCapabilityRouter(CapabilityRouterConfig{Registry: f.registry, Logger: f.log})

	got, err := router.RouteTask(context.Background(), "Please refactor the parser")
	require.NoError(t, err)
	assert.Equal(t, "code-smith", got.Worker.Name)
	assert.Equal(t, domain.RouteTierSpecialization, got.Tier)
	assert.Equal(t, "orchestrator-prime", router.Table().DefaultWorker)
}
