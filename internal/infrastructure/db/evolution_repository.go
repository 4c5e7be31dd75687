package db

import (
	"context"
	"errors"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// ==================== Cycles ====================

type cycleRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCycleRepository(db *gorm.DB, log *logger.Logger) ports.CycleRepository {
	return &cycleRepository{db: db, log: log}
}

func (r *cycleRepository) Create(ctx context.Context, cycle *domain.EvolutionCycle) error {
	if err := r.db.WithContext(ctx).Create(cycle).Error; err != nil {
		r.log.Errorw("cycle_repo_create_failed", "cadence", cycle.Cadence, "error", err)
		return err
	}
	r.log.Infow("cycle_repo_create_ok", "id", cycle.ID, "cadence", cycle.Cadence)
	return nil
}

func (r *cycleRepository) List(ctx context.Context, cadence domain.Cadence, limit int) ([]domain.EvolutionCycle, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if cadence != "" {
		q = q.Where("cadence = ?", cadence)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var cycles []domain.EvolutionCycle
	if err := q.Find(&cycles).Error; err != nil {
		r.log.Errorw("cycle_repo_list_failed", "cadence", cadence, "error", err)
		return nil, err
	}
	return cycles, nil
}

// ==================== Proposals ====================

type proposalRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProposalRepository(db *gorm.DB, log *logger.Logger) ports.ProposalRepository {
	return &proposalRepository{db: db, log: log}
}

func (r *proposalRepository) Create(ctx context.Context, p *domain.EvolutionProposal) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		r.log.Errorw("proposal_repo_create_failed", "worker_id", p.WorkerID, "error", err)
		return err
	}
	r.log.Infow("proposal_repo_create_ok", "id", p.ID, "worker_id", p.WorkerID)
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id string) (*domain.EvolutionProposal, error) {
	var p domain.EvolutionProposal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Errorw("proposal_repo_get_failed", "id", id, "error", err)
		}
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *proposalRepository) Transition(ctx context.Context, p *domain.EvolutionProposal, from domain.ProposalStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.EvolutionProposal{}).
		Where("id = ? AND status = ?", p.ID, from).
		Select("status", "review_note", "reviewed_at", "merged_at", "updated_at").
		Updates(p)
	if res.Error != nil {
		r.log.Errorw("proposal_repo_transition_failed", "id", p.ID, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleStatus
	}
	r.log.Infow("proposal_repo_transition_ok", "id", p.ID, "from", from, "to", p.Status)
	return nil
}

func (r *proposalRepository) List(ctx context.Context, filter ports.ProposalFilter) ([]domain.EvolutionProposal, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.WorkerID != "" {
		q = q.Where("worker_id = ?", filter.WorkerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []domain.EvolutionProposal
	if err := q.Find(&out).Error; err != nil {
		r.log.Errorw("proposal_repo_list_failed", "error", err)
		return nil, err
	}
	return out, nil
}

// ==================== Metrics ====================

type metricRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricRepository(db *gorm.DB, log *logger.Logger) ports.MetricRepository {
	return &metricRepository{db: db, log: log}
}

func (r *metricRepository) CreateBatch(ctx context.Context, samples []domain.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(samples, 100).Error; err != nil {
		r.log.Errorw("metric_repo_create_failed", "count", len(samples), "error", err)
		return err
	}
	r.log.Debugw("metric_repo_create_ok", "count", len(samples))
	return nil
}

func (r *metricRepository) Latest(ctx context.Context, kind domain.MetricKind, limit int) ([]domain.MetricSample, error) {
	var out []domain.MetricSample
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		r.log.Errorw("metric_repo_latest_failed", "kind", kind, "error", err)
		return nil, err
	}
	return out, nil
}
