package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/google/uuid"
)

type proposalService struct {
	proposals ports.ProposalRepository
	registry  ports.WorkerRegistry
	signal    ports.PerformanceSignal
	audit     ports.AuditRepository
	locker    ports.Locker
	events    ports.EventPublisher
	proposer  *behaviorProposer
	lockTTL   time.Duration
	logger    *logger.Logger
}

type ProposalServiceConfig struct {
	Proposals ports.ProposalRepository
	Registry  ports.WorkerRegistry
	Signal    ports.PerformanceSignal
	Audit     ports.AuditRepository
	Locker    ports.Locker
	Events    ports.EventPublisher
	Proposer  ProposerConfig
	LockTTL   time.Duration
	Logger    *logger.Logger
}

func NewProposalService(cfg ProposalServiceConfig) ports.ProposalService {
	if cfg.Proposer.Logger == nil {
		cfg.Proposer.Logger = cfg.Logger
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &proposalService{
		proposals: cfg.Proposals,
		registry:  cfg.Registry,
		signal:    cfg.Signal,
		audit:     cfg.Audit,
		locker:    cfg.Locker,
		events:    cfg.Events,
		proposer:  newBehaviorProposer(cfg.Proposer),
		lockTTL:   ttl,
		logger:    cfg.Logger,
	}
}

func (s *proposalService) CreateProposal(ctx context.Context, workerID string) (*domain.EvolutionProposal, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, fmt.Errorf("%w: worker_id is required", ErrValidation)
	}
	w, err := s.registry.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}

	req := ports.ReasoningRequest{
		WorkerID:     w.ID,
		WorkerName:   w.Name,
		Role:         w.Role,
		Capabilities: []string(w.CapabilityTags),
		Efficiency:   w.Efficiency,
		Behavior:     w.BehaviorText,
	}
	if s.signal != nil {
		if perf, err := s.signal.Summarize(ctx, w.ID); err == nil {
			req.Performance = perf
		}
	}

	update, upstreamErr := s.proposer.propose(ctx, req)
	if upstreamErr != nil {
		s.logger.Infow("proposal_heuristic_fallback", "worker_id", w.ID, "reason", upstreamErr)
	}

	now := time.Now()
	p := &domain.EvolutionProposal{
		ID:               uuid.New().String(),
		CreatedAt:        now,
		UpdatedAt:        now,
		WorkerID:         w.ID,
		CurrentBehavior:  w.BehaviorText,
		ProposedBehavior: update.Behavior,
		Analysis:         update.analysis(),
		Source:           update.Source,
		Status:           domain.ProposalStatusPending,
	}
	if err := s.proposals.Create(ctx, p); err != nil {
		s.logger.Errorw("proposal_create_failed", "worker_id", w.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.recordAudit(ctx, domain.AuditTypeProposalCreated, p, fmt.Sprintf("proposal created for %s (%s)", w.Name, p.Source))
	s.logger.Infow("proposal_created", "proposal_id", p.ID, "worker_id", w.ID, "source", p.Source)
	return p, nil
}

// Apply moves a proposal through its review states. Terminal proposals reject
// every action so a repeated merge can never double-apply.
func (s *proposalService) Apply(ctx context.Context, input ports.ApplyProposalInput) (*domain.EvolutionProposal, error) {
	action := ports.ProposalAction(strings.ToLower(strings.TrimSpace(string(input.Action))))
	switch action {
	case ports.ProposalActionApprove, ports.ProposalActionMerge, ports.ProposalActionReject:
	default:
		return nil, fmt.Errorf("%w: got %q", ErrUnknownProposalAction, input.Action)
	}

	p, err := s.proposals.GetByID(ctx, input.ProposalID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if p.Status.Terminal() {
		return nil, fmt.Errorf("%w: proposal %s is %s", ErrProposalTerminal, p.ID, p.Status)
	}

	switch action {
	case ports.ProposalActionApprove:
		if p.Status != domain.ProposalStatusPending {
			return nil, fmt.Errorf("%w: approve requires PENDING, proposal is %s", ErrInvalidProposalAction, p.Status)
		}
		return s.transition(ctx, p, domain.ProposalStatusApproved, input.Note, domain.AuditTypeProposalApproved)

	case ports.ProposalActionReject:
		return s.transition(ctx, p, domain.ProposalStatusRejected, input.Note, domain.AuditTypeProposalRejected)

	default:
		return s.merge(ctx, p, input.Note)
	}
}

func (s *proposalService) transition(ctx context.Context, p *domain.EvolutionProposal, next domain.ProposalStatus, note, auditType string) (*domain.EvolutionProposal, error) {
	updated, err := s.claim(ctx, p, next, note)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, auditType, updated, fmt.Sprintf("proposal %s -> %s", p.Status, next))
	return updated, nil
}

// claim writes the status change conditional on the status p was read with.
func (s *proposalService) claim(ctx context.Context, p *domain.EvolutionProposal, next domain.ProposalStatus, note string) (*domain.EvolutionProposal, error) {
	from := p.Status
	now := time.Now()
	updated := *p
	updated.Status = next
	updated.ReviewNote = note
	updated.ReviewedAt = &now
	updated.UpdatedAt = now
	if next == domain.ProposalStatusMerged {
		updated.MergedAt = &now
	}

	if err := s.proposals.Transition(ctx, &updated, from); err != nil {
		if errors.Is(err, domain.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: proposal %s changed concurrently", ErrProposalTerminal, p.ID)
		}
		s.logger.Errorw("proposal_transition_failed", "proposal_id", p.ID, "to", next, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Infow("proposal_transitioned", "proposal_id", p.ID, "from", from, "to", next)
	return &updated, nil
}

// merge claims the proposal first, then writes the worker. A failed worker
// write puts the proposal back to its prior status so the merge can be
// retried. The worker lock is shared with evolution cycles so the two never
// interleave on one worker.
func (s *proposalService) merge(ctx context.Context, p *domain.EvolutionProposal, note string) (*domain.EvolutionProposal, error) {
	if s.locker != nil {
		unlock, acquired, err := s.locker.TryLock(ctx, evolutionLockKey(p.WorkerID), s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: worker %s is being evolved", ErrWorkerContended, p.WorkerID)
		}
		defer unlock()
	}

	merged, err := s.claim(ctx, p, domain.ProposalStatusMerged, note)
	if err != nil {
		return nil, err
	}

	update := behaviorUpdate{
		Behavior: merged.ProposedBehavior,
		Added:    merged.Analysis.CapabilitiesAdded,
		Removed:  merged.Analysis.CapabilitiesRemoved,
	}
	w, err := s.registry.Mutate(ctx, merged.WorkerID, func(cur *domain.Worker) error {
		applyUpdate(cur, update)
		return nil
	})
	if err != nil {
		s.logger.Errorw("proposal_merge_worker_write_failed", "proposal_id", p.ID, "worker_id", p.WorkerID, "error", err)
		s.revertMerge(ctx, p)
		s.recordAuditStatus(ctx, domain.AuditTypeWorkerEvolved, domain.EventStatusFailed, p,
			fmt.Sprintf("merge could not be written to worker, proposal left %s: %v", p.Status, err))
		return nil, err
	}

	s.recordAudit(ctx, domain.AuditTypeProposalMerged, merged, fmt.Sprintf("proposal %s -> %s", p.Status, merged.Status))
	s.recordAudit(ctx, domain.AuditTypeWorkerEvolved, merged,
		fmt.Sprintf("%s evolved to generation %d", w.Name, w.EvolutionCount))
	if s.events != nil {
		s.events.Publish(domain.NewFleetEvent(domain.EventProposalMerged, domain.JSONB{
			"proposal_id":     merged.ID,
			"worker_id":       w.ID,
			"evolution_count": w.EvolutionCount,
		}))
	}
	return merged, nil
}

// revertMerge restores orig as read before the merge claim. It runs on a
// detached context so a cancelled request cannot leave the proposal MERGED.
func (s *proposalService) revertMerge(ctx context.Context, orig *domain.EvolutionProposal) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	restored := *orig
	if err := s.proposals.Transition(writeCtx, &restored, domain.ProposalStatusMerged); err != nil {
		s.logger.Errorw("proposal_merge_revert_failed", "proposal_id", orig.ID, "error", err)
		return
	}
	s.logger.Warnw("proposal_merge_reverted", "proposal_id", orig.ID, "status", orig.Status)
}

func (s *proposalService) History(ctx context.Context, filter ports.ProposalFilter) ([]domain.EvolutionProposal, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Status != "" {
		filter.Status = domain.ProposalStatus(strings.ToUpper(string(filter.Status)))
	}
	out, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return out, nil
}

func (s *proposalService) recordAudit(ctx context.Context, auditType string, p *domain.EvolutionProposal, message string) {
	s.recordAuditStatus(ctx, auditType, domain.EventStatusSuccess, p, message)
}

func (s *proposalService) recordAuditStatus(ctx context.Context, auditType string, status domain.EventStatus, p *domain.EvolutionProposal, message string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEvent{
		Type:         auditType,
		Status:       status,
		Message:      message,
		ResourceID:   p.ID,
		ResourceType: domain.ResourceTypeProposal,
		Meta: domain.JSONB{
			"worker_id": p.WorkerID,
			"status":    p.Status,
			"source":    p.Source,
		},
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warnw("proposal_audit_failed", "proposal_id", p.ID, "type", auditType, "error", err)
	}
}
