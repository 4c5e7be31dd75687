package handlers

import (
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type AuditHandler struct {
	repo   ports.AuditRepository
	logger *logger.Logger
}

func NewAuditHandler(repo ports.AuditRepository, logger *logger.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger}
}

func (h *AuditHandler) GetEvents(c *fiber.Ctx) error {
	rtype := c.Query("resource_type")
	rid := c.Query("resource_id")
	if rtype != "" && rid != "" {
		events, err := h.repo.GetByResource(c.UserContext(), rtype, rid)
		if err != nil {
			h.logger.Errorw("audit_get_by_resource_failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail(dto.CodeInternal, err.Error()))
		}
		return c.JSON(dto.OK(events))
	}
	if (rtype == "") != (rid == "") {
		return badRequest(c, "resource_type and resource_id must be given together")
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	events, err := h.repo.GetAll(c.UserContext(), limit)
	if err != nil {
		h.logger.Errorw("audit_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail(dto.CodeInternal, err.Error()))
	}
	return c.JSON(dto.OK(events))
}
