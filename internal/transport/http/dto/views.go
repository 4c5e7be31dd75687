package dto

import (
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

type QueueStatusResponse struct {
	Counts map[domain.TaskStatus]int64 `json:"counts"`
	Total  int64                       `json:"total"`
}

func NewQueueStatusResponse(counts map[domain.TaskStatus]int64) QueueStatusResponse {
	var total int64
	for _, n := range counts {
		total += n
	}
	return QueueStatusResponse{Counts: counts, Total: total}
}

type RouteResponse struct {
	WorkerID   string            `json:"worker_id"`
	WorkerName string            `json:"worker_name"`
	Role       domain.WorkerRole `json:"role,omitempty"`
	Tier       domain.RouteTier  `json:"tier"`
	Reason     string            `json:"reason"`
	Efficiency float64           `json:"efficiency"`
}

func RouteToResponse(d *domain.RouteDecision) RouteResponse {
	return RouteResponse{
		WorkerID:   d.Worker.ID,
		WorkerName: d.Worker.Name,
		Role:       d.Role,
		Tier:       d.Tier,
		Reason:     d.Reason,
		Efficiency: d.Worker.Efficiency,
	}
}
