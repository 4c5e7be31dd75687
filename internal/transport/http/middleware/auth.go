package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards read and review endpoints. With no admin key configured
// the API is open, which suits local runs.
func AdminAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := cfg.Auth.AdminAPIKey
		if apiKey == "" {
			return c.Next()
		}

		headerToken := c.Get("X-Admin-Token")
		if headerToken == "" {
			headerToken = bearerToken(c)
		}

		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(apiKey)) != 1 {
			return unauthorized(c, "invalid admin token")
		}

		return c.Next()
	}
}

// TriggerAuth guards endpoints that start work (queue processing, evolution
// cycles). It fails closed: with no secret configured every call is refused.
func TriggerAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := cfg.Auth.TriggerSecret
		if secret == "" {
			return unauthorized(c, "trigger secret not configured")
		}

		token := bearerToken(c)
		if token == "" {
			return unauthorized(c, "missing bearer token")
		}
		if !MatchSecret(secret, token) {
			return unauthorized(c, "invalid trigger token")
		}

		return c.Next()
	}
}

// MatchSecret compares token against secret, which is either a plain value or
// a bcrypt hash (recognized by its "$2" prefix).
func MatchSecret(secret, token string) bool {
	if strings.HasPrefix(secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(token)) == 1
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(dto.CodeUnauthorized, msg))
}
