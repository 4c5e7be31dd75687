package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(f *fixture, reasoning ports.ReasoningService, locker ports.Locker) ports.EvolutionEngine {
	return newEngineWithRegistry(f, f.registry, reasoning, locker)
}

func newEngineWithRegistry(f *fixture, registry ports.WorkerRegistry, reasoning ports.ReasoningService, locker ports.Locker) ports.EvolutionEngine {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return NewEvolutionEngine(EvolutionEngineConfig{
		Registry: registry,
		Signal:   NewTaskOutcomeSignal(f.tasks),
		Cycles:   f.cycles,
		Audit:    f.audit,
		Locker:   locker,
		Proposer: ProposerConfig{Reasoning: reasoning},
		Logger:   f.log,
	})
}

func outcomeIDs(report *ports.CycleReport) []string {
	ids := make([]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		ids = append(ids, o.WorkerID)
	}
	return ids
}

func TestEvolutionEngine_MicroSelectsLowestAndSkipsOffline(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-off", "offline", domain.RoleEngineer, 5, domain.WorkerStatusOffline)
	f.addWorker("w-1", "one", domain.RoleEngineer, 40, domain.WorkerStatusActive)
	f.addWorker("w-2", "two", domain.RoleAnalyst, 50, domain.WorkerStatusWarning)
	f.addWorker("w-3", "three", domain.RoleAnalyst, 60, domain.WorkerStatusIdle)
	f.addWorker("w-4", "four", domain.RoleData, 65, domain.WorkerStatusActive)
	f.addWorker("w-5", "five", domain.RoleData, 70, domain.WorkerStatusActive)
	f.addWorker("w-6", "six", domain.RoleSupport, 90, domain.WorkerStatusActive)
	f.addWorker("w-7", "seven", domain.RoleSupport, 95, domain.WorkerStatusActive)

	report, err := newEngine(f, nil, nil).RunCycle(context.Background(), domain.CadenceMicro)
	require.NoError(t, err)

	assert.Equal(t, []string{"w-1", "w-2", "w-3", "w-4", "w-5"}, outcomeIDs(report))
	assert.Equal(t, 5, report.Cycle.CandidateCount)
	assert.Equal(t, 5, report.Cycle.WorkersEvolved)
	assert.Equal(t, 5, report.Cycle.FallbackCount)
	assert.Empty(t, report.RecordError)

	assert.Equal(t, 5.0, f.worker(t, "w-off").Efficiency, "offline workers are never evolved")
	assert.Equal(t, 0, f.worker(t, "w-6").EvolutionCount)
}

func TestEvolutionEngine_HeuristicFallback(t *testing.T) {
	cases := []struct {
		name      string
		reasoning ports.ReasoningService
		wantErr   error
	}{
		{name: "no reasoning service", reasoning: nil, wantErr: ErrReasoningUnavailable},
		{name: "reasoning call fails", reasoning: &stubReasoning{err: errors.New("quota exceeded")}, wantErr: ErrUpstream},
		{name: "empty behavior", reasoning: &stubReasoning{resp: &ports.ReasoningResponse{Behavior: "  "}}, wantErr: ErrReasoningUnparseable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.addWorker("w-1", "one", domain.RoleEngineer, 60, domain.WorkerStatusActive)

			report, err := newEngine(f, tc.reasoning, nil).RunCycle(context.Background(), domain.CadenceTactical)
			require.NoError(t, err)
			require.Len(t, report.Outcomes, 1)

			o := report.Outcomes[0]
			assert.True(t, o.Evolved)
			assert.Equal(t, string(domain.ProposalSourceHeuristic), o.Source)
			assert.Contains(t, o.UpstreamError, tc.wantErr.Error())
			assert.Equal(t, 62.0, o.EfficiencyAfter, "tactical fallback delta")
			assert.Equal(t, 1, report.Cycle.FallbackCount)

			w := f.worker(t, "w-1")
			assert.Contains(t, w.BehaviorText, "[tactical tuning]")
			assert.Equal(t, 1, w.EvolutionCount)
		})
	}
}

func TestEvolutionEngine_HeuristicNoteIsNotRepeated(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-1", "one", domain.RoleEngineer, 60, domain.WorkerStatusActive)
	engine := newEngine(f, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := engine.RunCycle(context.Background(), domain.CadenceMicro)
		require.NoError(t, err)
	}
	w := f.worker(t, "w-1")
	assert.Equal(t, 3, w.EvolutionCount)
	assert.Equal(t, 63.0, w.Efficiency)
	assert.Equal(t, "Do the work carefully.\n\n[micro tuning] Confirm task scope before acting, prefer accuracy over speed, and report blockers early.", w.BehaviorText)
}

func TestEvolutionEngine_ReasoningUpdateIsClamped(t *testing.T) {
	f := newFixture(t)
	stub := &stubReasoning{resp: &ports.ReasoningResponse{
		Behavior:            "Refined behavior.",
		CapabilitiesAdded:   []string{"Profiling", "debugging"},
		CapabilitiesRemoved: []string{"legacy"},
		ExpectedGain:        50,
		Confidence:          3,
	}}
	f.workers.Put(domain.Worker{
		ID: "w-1", Name: "one", Role: domain.RoleEngineer, Efficiency: 95,
		Status: domain.WorkerStatusActive, CapabilityTags: domain.NewStringSet("legacy", "debugging"),
	})

	report, err := newEngine(f, stub, nil).RunCycle(context.Background(), domain.CadenceMicro)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, string(domain.ProposalSourceReasoning), report.Outcomes[0].Source)
	assert.Empty(t, report.Outcomes[0].UpstreamError)
	assert.Zero(t, report.Cycle.FallbackCount)

	w := f.worker(t, "w-1")
	assert.Equal(t, domain.MaxEfficiency, w.Efficiency)
	assert.Equal(t, "Refined behavior.", w.BehaviorText)
	assert.Equal(t, domain.StringSet{"debugging", "profiling"}, w.CapabilityTags)
}

func TestEvolutionEngine_TacticalCapsPerRole(t *testing.T) {
	f := newFixture(t)
	f.addWorker("e-1", "e1", domain.RoleEngineer, 10, domain.WorkerStatusActive)
	f.addWorker("e-2", "e2", domain.RoleEngineer, 20, domain.WorkerStatusActive)
	f.addWorker("e-3", "e3", domain.RoleEngineer, 30, domain.WorkerStatusActive)
	f.addWorker("e-4", "e4", domain.RoleEngineer, 40, domain.WorkerStatusActive)
	f.addWorker("a-1", "a1", domain.RoleAnalyst, 50, domain.WorkerStatusActive)
	f.addWorker("a-2", "a2", domain.RoleAnalyst, 15, domain.WorkerStatusActive)

	report, err := newEngine(f, nil, nil).RunCycle(context.Background(), domain.CadenceTactical)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-2", "a-1", "e-1", "e-2", "e-3"}, outcomeIDs(report))
}

func TestEvolutionEngine_StrategicUsesThresholdAndPeers(t *testing.T) {
	f := newFixture(t)
	f.addWorker("e-1", "e1", domain.RoleEngineer, 55, domain.WorkerStatusActive)
	f.addWorker("e-2", "e2", domain.RoleEngineer, 69.9, domain.WorkerStatusActive)
	f.addWorker("e-3", "e3", domain.RoleEngineer, 70, domain.WorkerStatusActive)
	f.addWorker("e-4", "e4", domain.RoleEngineer, 95, domain.WorkerStatusActive)
	stub := &stubReasoning{resp: &ports.ReasoningResponse{Behavior: "Study e4.", ExpectedGain: 4}}

	report, err := newEngine(f, stub, nil).RunCycle(context.Background(), domain.CadenceStrategic)
	require.NoError(t, err)
	assert.Equal(t, []string{"e-1", "e-2"}, outcomeIDs(report))

	require.Len(t, stub.requests, 2)
	peers := stub.requests[0].Peers
	require.NotNil(t, peers)
	assert.Equal(t, domain.CadenceStrategic, stub.requests[0].Cadence)
	assert.Equal(t, 4, peers.PeerCount)
	assert.Equal(t, "e4", peers.TopPerformer)
	assert.InDelta(t, 72.475, peers.AverageEfficiency, 1e-9)
}

func addStrategicCandidates(f *fixture, n int) {
	for i := 1; i <= n; i++ {
		f.addWorker(fmt.Sprintf("w-%02d", i), fmt.Sprintf("worker-%02d", i), domain.RoleAnalyst, float64(40+i), domain.WorkerStatusActive)
	}
}

func TestEvolutionEngine_StrategicIsCapped(t *testing.T) {
	f := newFixture(t)
	addStrategicCandidates(f, 15)

	report, err := newEngine(f, nil, nil).RunCycle(context.Background(), domain.CadenceStrategic)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Cycle.CandidateCount)
	assert.Equal(t, 10, report.Cycle.WorkersEvolved)
	assert.Equal(t, "w-01", report.Outcomes[0].WorkerID, "lowest efficiency first")
	assert.Equal(t, "w-10", report.Outcomes[9].WorkerID)
	assert.Zero(t, f.worker(t, "w-11").EvolutionCount)
}

func TestEvolutionEngine_OneFailedWriteDoesNotStopTheCycle(t *testing.T) {
	f := newFixture(t)
	addStrategicCandidates(f, 15)
	registry := &faultyRegistry{
		WorkerRegistry: f.registry,
		failMutate:     map[string]bool{"w-02": true},
		err:            errors.New("db down"),
	}

	report, err := newEngineWithRegistry(f, registry, nil, nil).RunCycle(context.Background(), domain.CadenceStrategic)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Cycle.CandidateCount)
	assert.Equal(t, 9, report.Cycle.WorkersEvolved)
	assert.Equal(t, 1, report.Cycle.Details["failed"])

	failed := report.Outcomes[1]
	assert.Equal(t, "w-02", failed.WorkerID)
	assert.False(t, failed.Evolved)
	assert.Contains(t, failed.Error, "db down")
	assert.Equal(t, failed.EfficiencyBefore, failed.EfficiencyAfter)
	assert.Zero(t, f.worker(t, "w-02").EvolutionCount)
	assert.Equal(t, 1, f.worker(t, "w-03").EvolutionCount)

	cycles, err := f.cycles.List(context.Background(), domain.CadenceStrategic, 10)
	require.NoError(t, err)
	assert.Len(t, cycles, 1, "the cycle is still recorded")
}

func TestEvolutionEngine_UnreadableCandidatesAbortTheCycle(t *testing.T) {
	f := newFixture(t)
	addStrategicCandidates(f, 3)
	registry := &faultyRegistry{WorkerRegistry: f.registry, failList: true, err: errors.New("db down")}

	for _, cadence := range []domain.Cadence{domain.CadenceMicro, domain.CadenceTactical, domain.CadenceStrategic} {
		report, err := newEngineWithRegistry(f, registry, nil, nil).RunCycle(context.Background(), cadence)
		assert.ErrorIs(t, err, ErrCandidateReadFailed, string(cadence))
		assert.ErrorIs(t, err, ErrPersistence)
		assert.Nil(t, report)
	}

	cycles, err := f.cycles.List(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.Zero(t, f.worker(t, "w-01").EvolutionCount)
}

func TestEvolutionEngine_LockedCandidateIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-1", "one", domain.RoleEngineer, 40, domain.WorkerStatusActive)
	f.addWorker("w-2", "two", domain.RoleEngineer, 50, domain.WorkerStatusActive)
	locker := heldLocker{held: map[string]bool{evolutionLockKey("w-1"): true}}

	report, err := newEngine(f, nil, locker).RunCycle(context.Background(), domain.CadenceMicro)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	assert.True(t, report.Outcomes[0].Skipped)
	assert.False(t, report.Outcomes[0].Evolved)
	assert.True(t, report.Outcomes[1].Evolved)
	assert.Equal(t, 1, report.Cycle.WorkersEvolved)
	assert.Equal(t, 1, report.Cycle.Details["skipped"])
	assert.Equal(t, 40.0, f.worker(t, "w-1").Efficiency)
}

func TestEvolutionEngine_LockErrorSkipsEveryone(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-1", "one", domain.RoleEngineer, 40, domain.WorkerStatusActive)
	locker := heldLocker{err: errors.New("redis down")}

	report, err := newEngine(f, nil, locker).RunCycle(context.Background(), domain.CadenceMicro)
	require.NoError(t, err)
	assert.Zero(t, report.Cycle.WorkersEvolved)
	assert.True(t, report.Outcomes[0].Skipped)
	assert.Equal(t, 0, f.worker(t, "w-1").EvolutionCount)
}

func TestEvolutionEngine_RecordsCycleAndAudit(t *testing.T) {
	f := newFixture(t)
	f.addWorker("w-1", "one", domain.RoleEngineer, 40, domain.WorkerStatusActive)
	engine := newEngine(f, nil, nil)

	report, err := engine.RunCycle(context.Background(), "micro")
	require.NoError(t, err)
	assert.Equal(t, domain.CadenceMicro, report.Cycle.Cadence)
	assert.Equal(t, 40.0, report.Cycle.EfficiencyBefore)
	assert.Equal(t, 41.0, report.Cycle.EfficiencyAfter)

	history, err := engine.History(context.Background(), domain.CadenceMicro, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.Cycle.ID, history[0].ID)

	events, err := f.audit.GetByResource(context.Background(), domain.ResourceTypeCycle, report.Cycle.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuditTypeCycleCompleted, events[0].Type)
}

func TestEvolutionEngine_EmptyFleetRecordsEmptyCycle(t *testing.T) {
	f := newFixture(t)
	report, err := newEngine(f, nil, nil).RunCycle(context.Background(), domain.CadenceStrategic)
	require.NoError(t, err)
	assert.Zero(t, report.Cycle.CandidateCount)
	assert.Empty(t, report.Outcomes)
}

func TestEvolutionEngine_RejectsUnknownCadence(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil, nil)

	_, err := engine.RunCycle(context.Background(), "hourly")
	assert.ErrorIs(t, err, ErrInvalidCadence)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = engine.History(context.Background(), "hourly", 10)
	assert.ErrorIs(t, err, ErrInvalidCadence)
}

func TestLowestPerRole(t *testing.T) {
	pool := []domain.Worker{
		{ID: "b", Role: domain.RoleData, Efficiency: 30},
		{ID: "a", Role: domain.RoleData, Efficiency: 30},
		{ID: "c", Role: domain.RoleData, Efficiency: 10},
		{ID: "d", Role: domain.RoleCreative, Efficiency: 90},
	}
	got := lowestPerRole(pool, 2)
	var ids []string
	for _, w := range got {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []string{"d", "c", "a"}, ids)
}
