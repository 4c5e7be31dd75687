package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
)

// behaviorUpdate is what gets applied to a worker, whichever path produced it.
type behaviorUpdate struct {
	Behavior     string
	Added        []string
	Removed      []string
	Delta        float64
	Confidence   float64
	Rationale    string
	Weaknesses   []string
	Improvements []string
	Source       domain.ProposalSource
}

func (u behaviorUpdate) analysis() domain.ProposalAnalysis {
	return domain.ProposalAnalysis{
		Weaknesses:          u.Weaknesses,
		Improvements:        u.Improvements,
		Confidence:          u.Confidence,
		ExpectedGain:        u.Delta,
		CapabilitiesAdded:   u.Added,
		CapabilitiesRemoved: u.Removed,
		Rationale:           u.Rationale,
	}
}

type behaviorProposer struct {
	reasoning ports.ReasoningService
	timeout   time.Duration
	maxDelta  float64
	fallback  map[domain.Cadence]float64
	logger    *logger.Logger
}

type ProposerConfig struct {
	// Reasoning may be nil; every request then takes the heuristic path.
	Reasoning     ports.ReasoningService
	Timeout       time.Duration
	MaxDelta      float64
	FallbackDelta map[domain.Cadence]float64
	Logger        *logger.Logger
}

func newBehaviorProposer(cfg ProposerConfig) *behaviorProposer {
	maxDelta := cfg.MaxDelta
	if maxDelta <= 0 {
		maxDelta = 10
	}
	fallback := map[domain.Cadence]float64{
		domain.CadenceMicro:     1,
		domain.CadenceTactical:  2,
		domain.CadenceStrategic: 3,
	}
	for k, v := range cfg.FallbackDelta {
		if v > 0 {
			fallback[k] = v
		}
	}
	return &behaviorProposer{
		reasoning: cfg.Reasoning,
		timeout:   cfg.Timeout,
		maxDelta:  maxDelta,
		fallback:  fallback,
		logger:    cfg.Logger,
	}
}

// propose never fails: when the reasoning service is missing, errors, or
// returns nothing usable, the heuristic update is returned together with the
// upstream error for reporting.
func (p *behaviorProposer) propose(ctx context.Context, req ports.ReasoningRequest) (behaviorUpdate, error) {
	if p.reasoning == nil {
		return p.heuristic(req), ErrReasoningUnavailable
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.reasoning.ProposeEvolution(callCtx, req)
	if err != nil {
		p.logger.Warnw("reasoning_call_failed", "worker", req.WorkerName, "error", err)
		return p.heuristic(req), fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp == nil || strings.TrimSpace(resp.Behavior) == "" {
		p.logger.Warnw("reasoning_response_unusable", "worker", req.WorkerName)
		return p.heuristic(req), ErrReasoningUnparseable
	}

	return behaviorUpdate{
		Behavior:     strings.TrimSpace(resp.Behavior),
		Added:        resp.CapabilitiesAdded,
		Removed:      resp.CapabilitiesRemoved,
		Delta:        clampDelta(resp.ExpectedGain, p.maxDelta),
		Confidence:   clampUnit(resp.Confidence),
		Rationale:    resp.Rationale,
		Weaknesses:   resp.Weaknesses,
		Improvements: resp.Improvements,
		Source:       domain.ProposalSourceReasoning,
	}, nil
}

func (p *behaviorProposer) heuristic(req ports.ReasoningRequest) behaviorUpdate {
	cadence := req.Cadence
	if cadence == "" {
		cadence = domain.CadenceMicro
	}
	note := fmt.Sprintf("[%s tuning] Confirm task scope before acting, prefer accuracy over speed, and report blockers early.",
		strings.ToLower(string(cadence)))

	behavior := strings.TrimSpace(req.Behavior)
	if !strings.Contains(behavior, note) {
		if behavior != "" {
			behavior += "\n\n"
		}
		behavior += note
	}

	var weaknesses []string
	perf := req.Performance
	if done := perf.Completed + perf.Failed; done > 0 && perf.SuccessRate < 0.8 {
		weaknesses = append(weaknesses, fmt.Sprintf("task success rate %.0f%% over last %d tasks", perf.SuccessRate*100, done))
	}
	if req.Efficiency < 70 {
		weaknesses = append(weaknesses, fmt.Sprintf("efficiency %.1f below target", req.Efficiency))
	}

	return behaviorUpdate{
		Behavior:     behavior,
		Delta:        math.Min(p.fallback[cadence], p.maxDelta),
		Confidence:   0.3,
		Rationale:    "heuristic update applied without reasoning service input",
		Weaknesses:   weaknesses,
		Improvements: []string{"clarify scope before execution", "surface blockers early"},
		Source:       domain.ProposalSourceHeuristic,
	}
}

func clampDelta(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, max)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
