package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/infrastructure/push"
	"github.com/mangaexporter/backend/internal/transport/http/handlers"
	httpmw "github.com/mangaexporter/backend/internal/transport/http/middleware"
	"github.com/mangaexporter/backend/internal/web"
)

type RouterConfig struct {
	Service ports.ExportService
	Opener  ports.Opener
	// Hub is nil when no browser window is served, e.g. inside the desktop
	// shell.
	Hub    *push.Hub
	Logger *logger.Logger
	Config *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) error {
	exportHandler := handlers.NewExportHandler(cfg.Service, cfg.Logger)
	siteHandler := handlers.NewSiteHandler(cfg.Service)
	outputHandler := handlers.NewOutputHandler(cfg.Opener, cfg.Config.Export.OutputDir, cfg.Logger)
	uiHandler, err := handlers.NewUIHandler(web.BridgeConfig{
		BaseURL: cfg.Config.Server.BaseURL(),
		Token:   cfg.Config.Auth.APIToken,
	}, cfg.Logger)
	if err != nil {
		return err
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/", uiHandler.Index)

	if cfg.Hub != nil {
		pushHandler := handlers.NewPushHandler(cfg.Hub, cfg.Logger)
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws/progress", websocket.New(pushHandler.Handle))
	}

	api := app.Group("/api", httpmw.APIAuth(cfg.Config))

	api.Get("/sites", siteHandler.GetSites)

	export := api.Group("/export")
	export.Post("/start", exportHandler.StartExport)
	export.Get("/progress", exportHandler.GetProgress)
	export.Get("/sessions", exportHandler.GetSessions)
	export.Get("/history", exportHandler.GetHistory)

	api.Post("/output/open", outputHandler.OpenOutput)

	return nil
}
