package handlers

import (
	"errors"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/services"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a service error onto an HTTP status and envelope code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, dto.CodeValidation
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.CodeUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, dto.CodeNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, dto.CodeConflict
	case errors.Is(err, services.ErrNoAvailableWorker):
		return fiber.StatusServiceUnavailable, dto.CodeNoAvailableWorker
	case errors.Is(err, services.ErrUpstream):
		return fiber.StatusBadGateway, dto.CodeUpstream
	}
	return fiber.StatusInternalServerError, dto.CodeInternal
}

func respondError(c *fiber.Ctx, log *logger.Logger, event string, err error) error {
	status, code := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorw(event, "error", err, "status", status)
	} else {
		log.Warnw(event, "error", err, "status", status)
	}
	return c.Status(status).JSON(dto.Fail(code, err.Error()))
}

func badRequest(c *fiber.Ctx, message string, details ...string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(dto.CodeValidation, message, details...))
}

// parseOptionalBody accepts an empty body; a malformed one is rejected.
func parseOptionalBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}
