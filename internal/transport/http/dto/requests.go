package dto

import (
	"strings"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

type SubmitTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (r *SubmitTaskRequest) Validate() []string {
	var errors []string
	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, "title is required")
	} else if len(strings.TrimSpace(r.Title)) > 255 {
		errors = append(errors, "title must be at most 255 characters")
	}
	if _, ok := domain.ParsePriority(r.Priority); !ok {
		errors = append(errors, "priority must be one of: LOW, NORMAL, HIGH, URGENT")
	}
	return errors
}

func (r *SubmitTaskRequest) GetPriority() domain.TaskPriority {
	p, _ := domain.ParsePriority(r.Priority)
	return p
}

type ProcessQueueRequest struct {
	BatchSize int `json:"batch_size"`
}

func (r *ProcessQueueRequest) Validate() []string {
	if r.BatchSize < 0 {
		return []string{"batch_size must not be negative"}
	}
	return nil
}

type RouteRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (r *RouteRequest) Text() string {
	return strings.TrimSpace(r.Title + "\n" + r.Description)
}

func (r *RouteRequest) Validate() []string {
	if r.Text() == "" {
		return []string{"title or description is required"}
	}
	return nil
}

type CreateProposalRequest struct {
	WorkerID string `json:"worker_id"`
}

func (r *CreateProposalRequest) Validate() []string {
	if strings.TrimSpace(r.WorkerID) == "" {
		return []string{"worker_id is required"}
	}
	return nil
}

type ApplyProposalRequest struct {
	ProposalID string `json:"proposal_id"`
	Action     string `json:"action"`
	Note       string `json:"note,omitempty"`
}

func (r *ApplyProposalRequest) Validate() []string {
	var errors []string
	if strings.TrimSpace(r.ProposalID) == "" {
		errors = append(errors, "proposal_id is required")
	}
	switch strings.ToLower(strings.TrimSpace(r.Action)) {
	case "approve", "merge", "reject":
	case "":
		errors = append(errors, "action is required")
	default:
		errors = append(errors, "action must be one of: approve, merge, reject")
	}
	return errors
}
