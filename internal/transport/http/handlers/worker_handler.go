package handlers

import (
	"strings"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type WorkerHandler struct {
	registry ports.WorkerRegistry
	router   ports.CapabilityRouter
	logger   *logger.Logger
}

func NewWorkerHandler(registry ports.WorkerRegistry, router ports.CapabilityRouter, logger *logger.Logger) *WorkerHandler {
	return &WorkerHandler{registry: registry, router: router, logger: logger}
}

func (h *WorkerHandler) List(c *fiber.Ctx) error {
	filter := ports.WorkerFilter{Role: domain.WorkerRole(strings.ToLower(c.Query("role")))}
	if s := c.Query("status"); s != "" {
		status := domain.WorkerStatus(strings.ToUpper(s))
		if !status.Valid() {
			return badRequest(c, "invalid status", "status must be one of: ACTIVE, PROCESSING, WARNING, IDLE, OFFLINE")
		}
		filter.Statuses = []domain.WorkerStatus{status}
	}
	workers, err := h.registry.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.logger, "worker_list_failed", err)
	}
	return c.JSON(dto.OK(workers))
}

func (h *WorkerHandler) Get(c *fiber.Ctx) error {
	w, err := h.registry.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "worker_get_failed", err)
	}
	return c.JSON(dto.OK(w))
}

// Route shows which worker a task would go to, without claiming it.
func (h *WorkerHandler) Route(c *fiber.Ctx) error {
	var req dto.RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return badRequest(c, "validation failed", errs...)
	}
	decision, err := h.router.RouteTask(c.UserContext(), req.Text())
	if err != nil {
		return respondError(c, h.logger, "worker_route_failed", err)
	}
	return c.JSON(dto.OK(dto.RouteToResponse(decision)))
}
