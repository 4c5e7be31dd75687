package middleware

import (
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDKey = "request_id"

// RequestID reuses the inbound id header or mints one, and echoes it back.
func RequestID(header string) fiber.Handler {
	if header == "" {
		header = "X-Request-ID"
	}
	return func(c *fiber.Ctx) error {
		reqID := c.Get(header)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals(RequestIDKey, reqID)
		c.Set(header, reqID)
		return c.Next()
	}
}

func AccessLog(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		routePath := ""
		if c.Route() != nil {
			routePath = c.Route().Path
		}
		log.Infow("http_access",
			"method", c.Method(),
			"path", c.Path(),
			"route", routePath,
			"query", string(c.Request().URI().QueryString()),
			"status", c.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.IP(),
			"user_agent", string(c.Request().Header.UserAgent()),
			"request_id", c.Locals(RequestIDKey),
			"req_bytes", len(c.Request().Body()),
			"resp_bytes", len(c.Response().Body()),
		)
		return err
	}
}
