package memory

import (
	"context"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

type CycleRepository struct {
	store *Store
}

func NewCycleRepository(store *Store) *CycleRepository {
	return &CycleRepository{store: store}
}

var _ ports.CycleRepository = (*CycleRepository)(nil)

func (r *CycleRepository) Create(_ context.Context, cycle *domain.EvolutionCycle) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cycle.CreatedAt.IsZero() {
		cycle.CreatedAt = time.Now()
	}
	r.store.cycles = append(r.store.cycles, *cycle)
	return nil
}

// List returns newest first.
func (r *CycleRepository) List(_ context.Context, cadence domain.Cadence, limit int) ([]domain.EvolutionCycle, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.EvolutionCycle
	for i := len(r.store.cycles) - 1; i >= 0; i-- {
		c := r.store.cycles[i]
		if cadence != "" && c.Cadence != cadence {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type ProposalRepository struct {
	store *Store
}

func NewProposalRepository(store *Store) *ProposalRepository {
	return &ProposalRepository{store: store}
}

var _ ports.ProposalRepository = (*ProposalRepository)(nil)

func (r *ProposalRepository) Create(_ context.Context, p *domain.EvolutionProposal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.proposals[p.ID] = *p
	r.store.proposalOrder = append(r.store.proposalOrder, p.ID)
	return nil
}

func (r *ProposalRepository) GetByID(_ context.Context, id string) (*domain.EvolutionProposal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.proposals[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &p, nil
}

func (r *ProposalRepository) Transition(_ context.Context, p *domain.EvolutionProposal, from domain.ProposalStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.proposals[p.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if cur.Status != from {
		return domain.ErrStaleStatus
	}
	cur.Status = p.Status
	cur.ReviewNote = p.ReviewNote
	cur.ReviewedAt = p.ReviewedAt
	cur.MergedAt = p.MergedAt
	cur.UpdatedAt = p.UpdatedAt
	r.store.proposals[p.ID] = cur
	return nil
}

func (r *ProposalRepository) List(_ context.Context, filter ports.ProposalFilter) ([]domain.EvolutionProposal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.EvolutionProposal
	for i := len(r.store.proposalOrder) - 1; i >= 0; i-- {
		p := r.store.proposals[r.store.proposalOrder[i]]
		if filter.WorkerID != "" && p.WorkerID != filter.WorkerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

type MetricRepository struct {
	store *Store
}

func NewMetricRepository(store *Store) *MetricRepository {
	return &MetricRepository{store: store}
}

var _ ports.MetricRepository = (*MetricRepository)(nil)

func (r *MetricRepository) CreateBatch(_ context.Context, samples []domain.MetricSample) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	for i := range samples {
		samples[i].ID = uint(r.store.nextSeq())
		if samples[i].CreatedAt.IsZero() {
			samples[i].CreatedAt = now
		}
		r.store.metrics = append(r.store.metrics, samples[i])
	}
	return nil
}

func (r *MetricRepository) Latest(_ context.Context, kind domain.MetricKind, limit int) ([]domain.MetricSample, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.MetricSample
	for i := len(r.store.metrics) - 1; i >= 0; i-- {
		m := r.store.metrics[i]
		if m.Kind != kind {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
