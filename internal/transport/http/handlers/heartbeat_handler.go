package handlers

import (
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type HeartbeatHandler struct {
	sampler ports.HeartbeatSampler
	logger  *logger.Logger
}

func NewHeartbeatHandler(sampler ports.HeartbeatSampler, logger *logger.Logger) *HeartbeatHandler {
	return &HeartbeatHandler{sampler: sampler, logger: logger}
}

func (h *HeartbeatHandler) Sample(c *fiber.Ctx) error {
	report, err := h.sampler.Sample(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "heartbeat_sample_failed", err)
	}
	return c.JSON(dto.OK(report))
}

func (h *HeartbeatHandler) Health(c *fiber.Ctx) error {
	history, err := h.sampler.HealthHistory(c.UserContext(), c.QueryInt("limit", 100))
	if err != nil {
		return respondError(c, h.logger, "heartbeat_history_failed", err)
	}
	return c.JSON(dto.OK(history))
}
