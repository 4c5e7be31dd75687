package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/google/uuid"
)

type evolutionEngine struct {
	registry  ports.WorkerRegistry
	signal    ports.PerformanceSignal
	cycles    ports.CycleRepository
	audit     ports.AuditRepository
	locker    ports.Locker
	events    ports.EventPublisher
	proposer  *behaviorProposer
	selection SelectionLimits
	lockTTL   time.Duration
	maxCycle  time.Duration
	logger    *logger.Logger
}

// SelectionLimits bounds how many workers each cadence may touch.
type SelectionLimits struct {
	MicroCap           int
	TacticalPool       int
	TacticalPerGroup   int
	StrategicCap       int
	StrategicThreshold float64
}

func DefaultSelectionLimits() SelectionLimits {
	return SelectionLimits{
		MicroCap:           5,
		TacticalPool:       30,
		TacticalPerGroup:   3,
		StrategicCap:       10,
		StrategicThreshold: 70,
	}
}

type EvolutionEngineConfig struct {
	Registry         ports.WorkerRegistry
	Signal           ports.PerformanceSignal
	Cycles           ports.CycleRepository
	Audit            ports.AuditRepository
	Locker           ports.Locker
	Events           ports.EventPublisher
	Proposer         ProposerConfig
	Selection        SelectionLimits
	LockTTL          time.Duration
	MaxCycleDuration time.Duration
	Logger           *logger.Logger
}

func NewEvolutionEngine(cfg EvolutionEngineConfig) ports.EvolutionEngine {
	limits := cfg.Selection
	def := DefaultSelectionLimits()
	if limits.MicroCap <= 0 {
		limits.MicroCap = def.MicroCap
	}
	if limits.TacticalPool <= 0 {
		limits.TacticalPool = def.TacticalPool
	}
	if limits.TacticalPerGroup <= 0 {
		limits.TacticalPerGroup = def.TacticalPerGroup
	}
	if limits.StrategicCap <= 0 {
		limits.StrategicCap = def.StrategicCap
	}
	if limits.StrategicThreshold <= 0 {
		limits.StrategicThreshold = def.StrategicThreshold
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cfg.Proposer.Logger == nil {
		cfg.Proposer.Logger = cfg.Logger
	}
	return &evolutionEngine{
		registry:  cfg.Registry,
		signal:    cfg.Signal,
		cycles:    cfg.Cycles,
		audit:     cfg.Audit,
		locker:    cfg.Locker,
		events:    cfg.Events,
		proposer:  newBehaviorProposer(cfg.Proposer),
		selection: limits,
		lockTTL:   ttl,
		maxCycle:  cfg.MaxCycleDuration,
		logger:    cfg.Logger,
	}
}

// ==================== Cycle ====================

func (e *evolutionEngine) RunCycle(ctx context.Context, cadence domain.Cadence) (*ports.CycleReport, error) {
	c, ok := domain.ParseCadence(string(cadence))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCadence, cadence)
	}
	cadence = c

	if e.maxCycle > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.maxCycle)
		defer cancel()
	}
	started := time.Now()

	candidates, err := e.selectCandidates(ctx, cadence)
	if err != nil {
		e.logger.Errorw("evolution_select_failed", "cadence", cadence, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCandidateReadFailed, err)
	}

	var peers map[domain.WorkerRole]*ports.PeerContext
	if cadence == domain.CadenceStrategic && len(candidates) > 0 {
		snapshot, err := e.registry.Snapshot(ctx)
		if err != nil {
			e.logger.Warnw("evolution_peer_snapshot_failed", "error", err)
		} else {
			peers = buildPeerContexts(snapshot)
		}
	}

	outcomes := make([]ports.CandidateOutcome, 0, len(candidates))
	for _, w := range candidates {
		outcomes = append(outcomes, e.evolveCandidate(ctx, cadence, w, peers[w.Role]))
	}

	report := &ports.CycleReport{
		Cycle:    summarizeCycle(cadence, outcomes, time.Since(started)),
		Outcomes: outcomes,
	}
	e.recordCycle(ctx, report)
	return report, nil
}

func (e *evolutionEngine) evolveCandidate(ctx context.Context, cadence domain.Cadence, w domain.Worker, peers *ports.PeerContext) ports.CandidateOutcome {
	out := ports.CandidateOutcome{
		WorkerID:         w.ID,
		WorkerName:       w.Name,
		Role:             string(w.Role),
		EfficiencyBefore: w.Efficiency,
		EfficiencyAfter:  w.Efficiency,
	}

	if e.locker != nil {
		unlock, acquired, err := e.locker.TryLock(ctx, evolutionLockKey(w.ID), e.lockTTL)
		if err != nil {
			e.logger.Errorw("evolution_lock_failed", "worker_id", w.ID, "error", err)
			out.Skipped = true
			out.Error = fmt.Sprintf("lock unavailable: %v", err)
			return out
		}
		if !acquired {
			e.logger.Infow("evolution_candidate_locked", "worker_id", w.ID, "cadence", cadence)
			out.Skipped = true
			out.Error = "worker is being evolved by another cycle"
			return out
		}
		defer unlock()
	}

	req := ports.ReasoningRequest{
		WorkerID:     w.ID,
		WorkerName:   w.Name,
		Role:         w.Role,
		Capabilities: []string(w.CapabilityTags),
		Efficiency:   w.Efficiency,
		Behavior:     w.BehaviorText,
		Cadence:      cadence,
		Peers:        peers,
	}
	if e.signal != nil {
		perf, err := e.signal.Summarize(ctx, w.ID)
		if err != nil {
			e.logger.Warnw("evolution_performance_unavailable", "worker_id", w.ID, "error", err)
		}
		req.Performance = perf
	}

	update, upstreamErr := e.proposer.propose(ctx, req)
	out.Source = string(update.Source)
	if upstreamErr != nil {
		out.UpstreamError = upstreamErr.Error()
	}

	evolved, err := e.registry.Mutate(ctx, w.ID, func(cur *domain.Worker) error {
		applyUpdate(cur, update)
		return nil
	})
	if err != nil {
		e.logger.Errorw("evolution_apply_failed", "worker_id", w.ID, "cadence", cadence, "error", err)
		out.Error = err.Error()
		return out
	}

	out.Evolved = true
	out.EfficiencyAfter = evolved.Efficiency
	out.CapabilitiesAdd = update.Added
	out.CapabilitiesDrop = update.Removed
	e.logger.Infow("evolution_worker_evolved",
		"worker_id", w.ID,
		"cadence", cadence,
		"source", update.Source,
		"efficiency_before", out.EfficiencyBefore,
		"efficiency_after", out.EfficiencyAfter,
	)
	return out
}

// applyUpdate writes update onto w. The efficiency delta is applied to the
// stored value so a concurrent heartbeat write is never lost.
func applyUpdate(w *domain.Worker, update behaviorUpdate) {
	w.BehaviorText = update.Behavior
	w.CapabilityTags = w.CapabilityTags.With(update.Added...).Without(update.Removed...)
	w.SetEfficiency(w.Efficiency + update.Delta)
	w.EvolutionCount++
}

func evolutionLockKey(workerID string) string {
	return "evolution:worker:" + workerID
}

func summarizeCycle(cadence domain.Cadence, outcomes []ports.CandidateOutcome, elapsed time.Duration) domain.EvolutionCycle {
	cycle := domain.EvolutionCycle{
		ID:             uuid.New().String(),
		CreatedAt:      time.Now(),
		Cadence:        cadence,
		CandidateCount: len(outcomes),
		DurationMs:     elapsed.Milliseconds(),
	}

	var before, after float64
	skipped, failed := 0, 0
	for _, o := range outcomes {
		before += o.EfficiencyBefore
		after += o.EfficiencyAfter
		switch {
		case o.Skipped:
			skipped++
		case o.Error != "":
			failed++
		}
		if o.Evolved {
			cycle.WorkersEvolved++
			if o.Source == string(domain.ProposalSourceHeuristic) {
				cycle.FallbackCount++
			}
		}
	}
	if n := float64(len(outcomes)); n > 0 {
		cycle.EfficiencyBefore = before / n
		cycle.EfficiencyAfter = after / n
	}

	cycle.Details = domain.JSONB{
		"outcomes": outcomes,
		"skipped":  skipped,
		"failed":   failed,
	}
	return cycle
}

// recordCycle persists the cycle and its audit entry. A lost write is
// reported on the report rather than failing work that was already applied.
func (e *evolutionEngine) recordCycle(ctx context.Context, report *ports.CycleReport) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	cycle := &report.Cycle
	if err := e.cycles.Create(writeCtx, cycle); err != nil {
		e.logger.Errorw("evolution_cycle_record_failed", "cycle_id", cycle.ID, "cadence", cycle.Cadence, "error", err)
		report.RecordError = fmt.Errorf("%w: %v", ErrPersistence, err).Error()
		return
	}

	e.logger.Infow("evolution_cycle_recorded",
		"cycle_id", cycle.ID,
		"cadence", cycle.Cadence,
		"candidates", cycle.CandidateCount,
		"evolved", cycle.WorkersEvolved,
		"fallbacks", cycle.FallbackCount,
	)

	if e.audit != nil {
		entry := &domain.AuditEvent{
			Type:         domain.AuditTypeCycleCompleted,
			Status:       domain.EventStatusSuccess,
			Message:      fmt.Sprintf("%s cycle evolved %d of %d workers", cycle.Cadence, cycle.WorkersEvolved, cycle.CandidateCount),
			ResourceID:   cycle.ID,
			ResourceType: domain.ResourceTypeCycle,
			Meta: domain.JSONB{
				"cadence":           cycle.Cadence,
				"efficiency_before": cycle.EfficiencyBefore,
				"efficiency_after":  cycle.EfficiencyAfter,
				"fallback_count":    cycle.FallbackCount,
			},
		}
		if err := e.audit.Create(writeCtx, entry); err != nil {
			e.logger.Warnw("evolution_audit_failed", "cycle_id", cycle.ID, "error", err)
		}
	}

	if e.events != nil {
		e.events.Publish(domain.NewFleetEvent(domain.EventCycleRecorded, domain.JSONB{
			"cycle_id":        cycle.ID,
			"cadence":         cycle.Cadence,
			"workers_evolved": cycle.WorkersEvolved,
		}))
	}
}

func (e *evolutionEngine) History(ctx context.Context, cadence domain.Cadence, limit int) ([]domain.EvolutionCycle, error) {
	if cadence != "" {
		c, ok := domain.ParseCadence(string(cadence))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCadence, cadence)
		}
		cadence = c
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	cycles, err := e.cycles.List(ctx, cadence, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return cycles, nil
}

// ==================== Selection ====================

func (e *evolutionEngine) selectCandidates(ctx context.Context, cadence domain.Cadence) ([]domain.Worker, error) {
	notOffline := []domain.WorkerStatus{domain.WorkerStatusOffline}

	switch cadence {
	case domain.CadenceMicro:
		workers, err := e.registry.List(ctx, ports.WorkerFilter{
			ExcludeStatuses: notOffline,
			LowestFirst:     true,
			Limit:           e.selection.MicroCap,
		})
		if err != nil {
			return nil, err
		}
		return lowestN(workers, e.selection.MicroCap), nil

	case domain.CadenceTactical:
		pool, err := e.registry.List(ctx, ports.WorkerFilter{
			ExcludeStatuses: notOffline,
			LowestFirst:     true,
			Limit:           e.selection.TacticalPool,
		})
		if err != nil {
			return nil, err
		}
		return lowestPerRole(lowestN(pool, e.selection.TacticalPool), e.selection.TacticalPerGroup), nil

	case domain.CadenceStrategic:
		threshold := e.selection.StrategicThreshold
		workers, err := e.registry.List(ctx, ports.WorkerFilter{
			ExcludeStatuses: notOffline,
			BelowEfficiency: &threshold,
			LowestFirst:     true,
			Limit:           e.selection.StrategicCap,
		})
		if err != nil {
			return nil, err
		}
		below := workers[:0:0]
		for _, w := range workers {
			if w.Efficiency < threshold {
				below = append(below, w)
			}
		}
		return lowestN(below, e.selection.StrategicCap), nil
	}
	return nil, errors.New("unreachable cadence")
}

// sortLowestFirst orders by ascending efficiency, ties by id.
func sortLowestFirst(workers []domain.Worker) {
	sort.SliceStable(workers, func(i, j int) bool {
		if workers[i].Efficiency != workers[j].Efficiency {
			return workers[i].Efficiency < workers[j].Efficiency
		}
		return workers[i].ID < workers[j].ID
	})
}

// lowestN enforces the cap in-process so a store that ignores Limit cannot
// widen a cycle.
func lowestN(workers []domain.Worker, n int) []domain.Worker {
	out := make([]domain.Worker, 0, len(workers))
	for _, w := range workers {
		if w.Status != domain.WorkerStatusOffline {
			out = append(out, w)
		}
	}
	sortLowestFirst(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// lowestPerRole keeps at most perGroup of the lowest workers of each role.
// Output is ordered by role name, then efficiency.
func lowestPerRole(pool []domain.Worker, perGroup int) []domain.Worker {
	groups := make(map[domain.WorkerRole][]domain.Worker)
	var roles []domain.WorkerRole
	for _, w := range pool {
		if _, ok := groups[w.Role]; !ok {
			roles = append(roles, w.Role)
		}
		groups[w.Role] = append(groups[w.Role], w)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	var out []domain.Worker
	for _, role := range roles {
		members := groups[role]
		sortLowestFirst(members)
		if len(members) > perGroup {
			members = members[:perGroup]
		}
		out = append(out, members...)
	}
	return out
}

// buildPeerContexts summarizes each role across non-offline workers.
func buildPeerContexts(snapshot []domain.Worker) map[domain.WorkerRole]*ports.PeerContext {
	out := make(map[domain.WorkerRole]*ports.PeerContext)
	sums := make(map[domain.WorkerRole]float64)
	top := make(map[domain.WorkerRole]float64)
	for _, w := range snapshot {
		if w.Status == domain.WorkerStatusOffline {
			continue
		}
		pc, ok := out[w.Role]
		if !ok {
			pc = &ports.PeerContext{Role: w.Role}
			out[w.Role] = pc
		}
		pc.PeerCount++
		sums[w.Role] += w.Efficiency
		if !ok || w.Efficiency > top[w.Role] {
			top[w.Role] = w.Efficiency
			pc.TopPerformer = w.Name
			pc.TopBehavior = w.BehaviorText
		}
	}
	for role, pc := range out {
		pc.AverageEfficiency = sums[role] / float64(pc.PeerCount)
	}
	return out
}
