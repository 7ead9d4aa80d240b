package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/transport/http/dto"
	httpmw "github.com/mangaexporter/backend/internal/transport/http/middleware"
)

// NewApp builds the fiber app with the shared middleware stack. Routes are
// added by SetupRoutes.
func NewApp(cfg *config.Config, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := cfg.Server.BaseURL()
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + httpmw.TokenHeader,
		AllowMethods: "GET, POST, HEAD, OPTIONS",
	}))

	app.Use(httpmw.RequestID(cfg))

	if cfg.Features.EnableRequestLogging {
		app.Use(httpmw.AccessLog(log))
	}

	return app
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		if code < fiber.StatusInternalServerError {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", httpmw.GetRequestID(c),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", httpmw.GetRequestID(c),
			)
		}

		return c.Status(code).JSON(dto.NewErrorResponse(err.Error()))
	}
}
