package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
)

type capabilityRouter struct {
	registry ports.WorkerRegistry
	table    domain.RoutingTable
	logger   *logger.Logger
}

type CapabilityRouterConfig struct {
	Registry ports.WorkerRegistry
	// Table defaults to DefaultRoutingTable when nil.
	Table  *domain.RoutingTable
	Logger *logger.Logger
}

func NewCapabilityRouter(cfg CapabilityRouterConfig) ports.CapabilityRouter {
	table := DefaultRoutingTable()
	if cfg.Table != nil {
		table = *cfg.Table
	}
	if table.DefaultRole == "" {
		table.DefaultRole = domain.RoleOrchestrator
	}
	return &capabilityRouter{registry: cfg.Registry, table: table, logger: cfg.Logger}
}

func (r *capabilityRouter) Table() domain.RoutingTable {
	return r.table
}

func (r *capabilityRouter) RouteTask(ctx context.Context, description string) (*domain.RouteDecision, error) {
	snapshot, err := r.registry.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	decision, err := Route(r.table, description, snapshot)
	if err != nil {
		r.logger.Warnw("router_no_worker", "workers", len(snapshot))
		return nil, err
	}
	r.logger.Debugw("router_decision",
		"worker", decision.Worker.Name,
		"tier", decision.Tier,
		"role", decision.Role,
	)
	return decision, nil
}

// Route selects a worker for description from snapshot. It is a pure function
// of its inputs: the same table, description and snapshot always give the same
// decision regardless of snapshot order.
func Route(table domain.RoutingTable, description string, snapshot []domain.Worker) (*domain.RouteDecision, error) {
	text := strings.ToLower(description)

	byName := make(map[string]domain.Worker, len(snapshot))
	for _, w := range snapshot {
		byName[w.Name] = w
	}

	// Tier 1: specialization rules, first matching rule with an ACTIVE worker wins.
	for _, rule := range table.Specializations {
		kw, ok := firstHit(text, rule.Keywords)
		if !ok {
			continue
		}
		w, exists := byName[rule.Worker]
		if !exists || w.Status != domain.WorkerStatusActive {
			continue
		}
		return &domain.RouteDecision{
			Worker: w,
			Tier:   domain.RouteTierSpecialization,
			Role:   w.Role,
			Reason: fmt.Sprintf("keyword %q matches specialist %s", kw, w.Name),
		}, nil
	}

	// Tier 2: category scoring.
	role, score := classify(table, text)

	// Tier 3: best ACTIVE worker inside the category.
	if best, ok := bestActive(snapshot, func(w domain.Worker) bool { return w.Role == role }); ok {
		return &domain.RouteDecision{
			Worker: best,
			Tier:   domain.RouteTierCategory,
			Role:   role,
			Reason: fmt.Sprintf("category %s scored %d", role, score),
		}, nil
	}

	if w, ok := byName[table.DefaultWorker]; ok && w.Status == domain.WorkerStatusActive {
		return &domain.RouteDecision{
			Worker: w,
			Tier:   domain.RouteTierDefaultWorker,
			Role:   role,
			Reason: fmt.Sprintf("no active %s worker, using default %s", role, w.Name),
		}, nil
	}

	if best, ok := bestActive(snapshot, func(domain.Worker) bool { return true }); ok {
		return &domain.RouteDecision{
			Worker: best,
			Tier:   domain.RouteTierGlobalBest,
			Role:   role,
			Reason: "default worker unavailable, using highest-efficiency active worker",
		}, nil
	}

	return nil, ErrNoAvailableWorker
}

// classify returns the highest-scoring role. Ties go to the earlier rule; a
// description with no hits at all gets the table's default role.
func classify(table domain.RoutingTable, text string) (domain.WorkerRole, int) {
	bestRole := table.DefaultRole
	bestScore := 0
	for _, rule := range table.Categories {
		score := 0
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			bestRole, bestScore = rule.Role, score
		}
	}
	return bestRole, bestScore
}

func firstHit(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// bestActive picks the ACTIVE worker matching keep with the highest efficiency,
// then lowest load, then lowest id.
func bestActive(snapshot []domain.Worker, keep func(domain.Worker) bool) (domain.Worker, bool) {
	var best domain.Worker
	found := false
	for _, w := range snapshot {
		if w.Status != domain.WorkerStatusActive || !keep(w) {
			continue
		}
		if !found || outranks(w, best) {
			best, found = w, true
		}
	}
	return best, found
}

func outranks(a, b domain.Worker) bool {
	if a.Efficiency != b.Efficiency {
		return a.Efficiency > b.Efficiency
	}
	if a.Load != b.Load {
		return a.Load < b.Load
	}
	return a.ID < b.ID
}
