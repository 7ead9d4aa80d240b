package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
)

type requestIDKey struct{}

// RequestID tags every request with the id from the configured header, or a
// fresh uuid.
func RequestID(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hdr := cfg.Features.RequestIDHeader
		var reqID string
		if hdr != "" {
			reqID = c.Get(hdr)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		c.SetUserContext(context.WithValue(c.UserContext(), requestIDKey{}, reqID))
		if hdr != "" {
			c.Set(hdr, reqID)
		}
		return c.Next()
	}
}

func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
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
			"request_id", GetRequestID(c),
			"resp_bytes", len(c.Response().Body()),
		)
		return err
	}
}
