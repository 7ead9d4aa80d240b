package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/transport/http/dto"
)

const TokenHeader = "X-Api-Token"

// APIAuth guards the API when auth.api_token is set.
func APIAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := cfg.Auth.APIToken
		if token == "" {
			return c.Next()
		}

		headerToken := c.Get(TokenHeader)
		if headerToken == "" {
			auth := c.Get(fiber.HeaderAuthorization)
			const prefix = "Bearer "
			if strings.HasPrefix(auth, prefix) {
				headerToken = auth[len(prefix):]
			}
		}

		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.NewErrorResponse("unauthorized"))
		}

		return c.Next()
	}
}
