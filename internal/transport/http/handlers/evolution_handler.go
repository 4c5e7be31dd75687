package handlers

import (
	"strings"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type EvolutionHandler struct {
	engine    ports.EvolutionEngine
	proposals ports.ProposalService
	logger    *logger.Logger
}

func NewEvolutionHandler(engine ports.EvolutionEngine, proposals ports.ProposalService, logger *logger.Logger) *EvolutionHandler {
	return &EvolutionHandler{engine: engine, proposals: proposals, logger: logger}
}

// RunCycle returns the trigger handler for one cadence.
func (h *EvolutionHandler) RunCycle(cadence domain.Cadence) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h.logger.Infow("evolution_cycle_request", "cadence", cadence)
		report, err := h.engine.RunCycle(c.UserContext(), cadence)
		if err != nil {
			return respondError(c, h.logger, "evolution_cycle_failed", err)
		}
		return c.JSON(dto.OK(report))
	}
}

func (h *EvolutionHandler) Cycles(c *fiber.Ctx) error {
	cycles, err := h.engine.History(c.UserContext(), domain.Cadence(c.Query("cadence")), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, h.logger, "evolution_history_failed", err)
	}
	return c.JSON(dto.OK(cycles))
}

func (h *EvolutionHandler) CreateProposal(c *fiber.Ctx) error {
	var req dto.CreateProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return badRequest(c, "validation failed", errs...)
	}
	p, err := h.proposals.CreateProposal(c.UserContext(), req.WorkerID)
	if err != nil {
		return respondError(c, h.logger, "proposal_create_failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(p))
}

func (h *EvolutionHandler) ApplyProposal(c *fiber.Ctx) error {
	var req dto.ApplyProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return badRequest(c, "validation failed", errs...)
	}

	h.logger.Infow("proposal_apply_request", "proposal_id", req.ProposalID, "action", req.Action)
	p, err := h.proposals.Apply(c.UserContext(), ports.ApplyProposalInput{
		ProposalID: req.ProposalID,
		Action:     ports.ProposalAction(strings.ToLower(req.Action)),
		Note:       req.Note,
	})
	if err != nil {
		return respondError(c, h.logger, "proposal_apply_failed", err)
	}
	return c.JSON(dto.OK(p))
}

func (h *EvolutionHandler) ProposalHistory(c *fiber.Ctx) error {
	out, err := h.proposals.History(c.UserContext(), ports.ProposalFilter{
		WorkerID: c.Query("worker_id"),
		Status:   domain.ProposalStatus(c.Query("status")),
		Limit:    c.QueryInt("limit", 50),
	})
	if err != nil {
		return respondError(c, h.logger, "proposal_history_failed", err)
	}
	return c.JSON(dto.OK(out))
}
