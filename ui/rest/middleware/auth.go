package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/core/config"
)

// APIKeyAuth requires a matching x-api-key header on every request, except
// when cfg.IsTestMode() bypasses auth entirely for integration tests.
func APIKeyAuth(cfg *config.Config) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if cfg.IsTestMode() {
			return ctx.Next()
		}

		provided := ctx.Get("x-api-key")
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Security.APIKey)) != 1 {
			return ctx.Status(fiber.StatusUnauthorized).JSON(errorEnvelope{
				Error: errorBody{Kind: "UNAUTHORIZED_ERROR", Message: "missing or invalid x-api-key"},
			})
		}
		return ctx.Next()
	}
}
