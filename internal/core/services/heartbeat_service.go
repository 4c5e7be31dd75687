package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
)

// driftScale dampens heartbeat drift by status. OFFLINE workers are not sampled.
var driftScale = map[domain.WorkerStatus]float64{
	domain.WorkerStatusActive:     1.0,
	domain.WorkerStatusProcessing: 1.0,
	domain.WorkerStatusWarning:    0.5,
	domain.WorkerStatusIdle:       0.25,
}

type heartbeatSampler struct {
	registry ports.WorkerRegistry
	metrics  ports.MetricRepository
	events   ports.EventPublisher
	logger   *logger.Logger

	warningThreshold    float64
	recoveryThreshold   float64
	recoveryProbability float64

	mu  sync.Mutex
	rng *rand.Rand
}

type HeartbeatSamplerConfig struct {
	Registry ports.WorkerRegistry
	Metrics  ports.MetricRepository
	Events   ports.EventPublisher
	Logger   *logger.Logger
	// Seed fixes the drift sequence; 0 seeds from the clock.
	Seed                uint64
	WarningThreshold    float64
	RecoveryThreshold   float64
	RecoveryProbability float64
}

func NewHeartbeatSampler(cfg HeartbeatSamplerConfig) ports.HeartbeatSampler {
	s := &heartbeatSampler{
		registry:            cfg.Registry,
		metrics:             cfg.Metrics,
		events:              cfg.Events,
		logger:              cfg.Logger,
		warningThreshold:    cfg.WarningThreshold,
		recoveryThreshold:   cfg.RecoveryThreshold,
		recoveryProbability: cfg.RecoveryProbability,
		rng:                 newRand(cfg.Seed),
	}
	if s.warningThreshold <= 0 {
		s.warningThreshold = 80
	}
	if s.recoveryThreshold <= 0 {
		s.recoveryThreshold = 85
	}
	if s.recoveryProbability <= 0 || s.recoveryProbability > 1 {
		s.recoveryProbability = 0.5
	}
	return s
}

func (s *heartbeatSampler) Sample(ctx context.Context) (*ports.HeartbeatReport, error) {
	snapshot, err := s.registry.List(ctx, ports.WorkerFilter{
		ExcludeStatuses: []domain.WorkerStatus{domain.WorkerStatusOffline},
	})
	if err != nil {
		s.logger.Errorw("heartbeat_snapshot_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
	}

	report := &ports.HeartbeatReport{}
	samples := make([]domain.MetricSample, 0, len(snapshot)+1)
	var active, warning int
	var effSum float64

	for _, w := range snapshot {
		if w.Status == domain.WorkerStatusOffline {
			continue
		}
		// Draws happen once per worker, outside Mutate, so retries on version
		// conflicts do not consume extra randomness.
		drift, recoverRoll := s.draw()

		var before domain.WorkerStatus
		var delta float64
		updated, err := s.registry.Mutate(ctx, w.ID, func(cur *domain.Worker) error {
			before = cur.Status
			scale, ok := driftScale[cur.Status]
			if !ok {
				return errSkipSample
			}
			old := cur.Efficiency
			cur.SetEfficiency(cur.Efficiency + drift*scale)
			delta = cur.Efficiency - old
			cur.Status = s.nextStatus(cur.Status, cur.Efficiency, recoverRoll)
			return nil
		})
		if errors.Is(err, errSkipSample) {
			continue
		}
		if err != nil {
			s.logger.Warnw("heartbeat_worker_update_failed", "worker_id", w.ID, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", w.ID, err))
			continue
		}

		report.Sampled++
		if before != domain.WorkerStatusWarning && updated.Status == domain.WorkerStatusWarning {
			report.Warnings++
		}
		if before == domain.WorkerStatusWarning && updated.Status == domain.WorkerStatusActive {
			report.Recovered++
		}
		switch updated.Status {
		case domain.WorkerStatusActive, domain.WorkerStatusProcessing:
			active++
		case domain.WorkerStatusWarning:
			warning++
		}
		effSum += updated.Efficiency

		id := updated.ID
		samples = append(samples, domain.MetricSample{
			Kind:         domain.MetricKindWorkerHeartbeat,
			WorkerID:     &id,
			Efficiency:   updated.Efficiency,
			Delta:        delta,
			StatusBefore: before,
			StatusAfter:  updated.Status,
		})
	}

	if report.Sampled > 0 {
		n := float64(report.Sampled)
		report.ActiveRatio = float64(active) / n
		report.WarningRatio = float64(warning) / n
		report.AvgEfficiency = effSum / n
	}
	report.HealthScore = HealthScore(report.ActiveRatio, report.AvgEfficiency, report.WarningRatio)
	if report.Sampled == 0 {
		report.HealthScore = 0
	}

	samples = append(samples, domain.MetricSample{
		Kind:        domain.MetricKindFleetHealth,
		Efficiency:  report.AvgEfficiency,
		HealthScore: report.HealthScore,
		Meta: domain.JSONB{
			"sampled":       report.Sampled,
			"active_ratio":  report.ActiveRatio,
			"warning_ratio": report.WarningRatio,
			"warnings":      report.Warnings,
			"recovered":     report.Recovered,
		},
	})
	report.Samples = samples

	if err := s.metrics.CreateBatch(ctx, samples); err != nil {
		s.logger.Errorw("heartbeat_samples_write_failed", "count", len(samples), "error", err)
		report.Errors = append(report.Errors, fmt.Errorf("%w: %v", ErrPersistence, err).Error())
	}

	s.logger.Infow("heartbeat_sampled",
		"sampled", report.Sampled,
		"warnings", report.Warnings,
		"recovered", report.Recovered,
		"health_score", report.HealthScore,
	)
	if s.events != nil {
		s.events.Publish(domain.NewFleetEvent(domain.EventHeartbeat, domain.JSONB{
			"sampled":      report.Sampled,
			"health_score": report.HealthScore,
		}))
	}
	return report, nil
}

var errSkipSample = errors.New("heartbeat: worker not sampled")

func (s *heartbeatSampler) draw() (drift, recoverRoll float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()*2 - 1, s.rng.Float64()
}

func (s *heartbeatSampler) nextStatus(status domain.WorkerStatus, efficiency, recoverRoll float64) domain.WorkerStatus {
	switch {
	case status == domain.WorkerStatusActive && efficiency < s.warningThreshold:
		return domain.WorkerStatusWarning
	case status == domain.WorkerStatusWarning && efficiency > s.recoveryThreshold && recoverRoll < s.recoveryProbability:
		return domain.WorkerStatusActive
	}
	return status
}

// HealthScore combines fleet ratios into a 0..100 score.
func HealthScore(activeRatio, avgEfficiency, warningRatio float64) float64 {
	score := 40*activeRatio + 0.4*avgEfficiency + 20*(1-warningRatio)
	return domain.ClampEfficiency(score)
}

func (s *heartbeatSampler) HealthHistory(ctx context.Context, limit int) ([]domain.MetricSample, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	out, err := s.metrics.Latest(ctx, domain.MetricKindFleetHealth, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return out, nil
}
