// Package host assembles the export service and the local API server shared
// by the browser and desktop binaries.
package host

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/core/services"
	"github.com/mangaexporter/backend/internal/infrastructure/db"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/infrastructure/opener"
	"github.com/mangaexporter/backend/internal/infrastructure/process"
	"github.com/mangaexporter/backend/internal/infrastructure/push"
	transporthttp "github.com/mangaexporter/backend/internal/transport/http"
	"gorm.io/gorm"
)

type Options struct {
	// Hub enables the websocket push channel for browser windows.
	Hub *push.Hub
	// Executor overrides the process executor, used by tests.
	Executor ports.Executor
}

type Host struct {
	Config  *config.Config
	Logger  *logger.Logger
	Service *services.ExportService
	App     *fiber.App
	Hub     *push.Hub

	database *gorm.DB
	listener net.Listener
}

func New(cfg *config.Config, log *logger.Logger, opts Options) (*Host, error) {
	h := &Host{Config: cfg, Logger: log, Hub: opts.Hub}

	history, err := h.openHistory()
	if err != nil {
		return nil, err
	}

	executor := opts.Executor
	if executor == nil {
		executor = process.NewCommandExecutor()
	}

	svcCfg := services.ExportServiceConfig{
		Executor: executor,
		History:  history,
		Logger:   log,
		Export:   cfg.Export,
	}
	if opts.Hub != nil {
		svcCfg.Publisher = opts.Hub
	}
	h.Service = services.NewExportService(svcCfg)

	h.App = transporthttp.NewApp(cfg, log)
	if err := transporthttp.SetupRoutes(h.App, transporthttp.RouterConfig{
		Service: h.Service,
		Opener:  opener.NewBrowserOpener(log),
		Hub:     opts.Hub,
		Logger:  log,
		Config:  cfg,
	}); err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}

	return h, nil
}

func (h *Host) openHistory() (ports.HistoryRepository, error) {
	if !h.Config.Database.Enabled {
		h.Logger.Info("database disabled, export history kept in memory")
		return db.NewHistoryRepoStub(h.Logger), nil
	}

	database, err := db.NewPostgresConnection(h.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	h.Logger.Info("database connection established")

	if err := db.RunMigrations(database); err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	h.Logger.Info("database migrations completed")

	h.database = database
	return db.NewHistoryRepository(database, h.Logger), nil
}

// Listen binds the configured address. The UI hardcodes the port, so there is
// no fallback.
func (h *Host) Listen() error {
	addr := h.Config.Server.Address()
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	h.listener = ln

	go func() {
		if err := h.App.Listener(ln); err != nil {
			h.Logger.Errorw("server_stopped", "error", err)
		}
	}()

	h.Logger.Infof("server started on %s", addr)
	return nil
}

// WatchWindows terminates running exports once the last browser window has
// been gone for the configured grace period.
func (h *Host) WatchWindows() {
	if h.Hub == nil {
		return
	}
	grace := h.Config.Window.CloseGrace
	h.Hub.OnEmpty(func() {
		time.AfterFunc(grace, func() {
			if h.Hub.Clients() > 0 {
				return
			}
			h.Logger.Infow("window_closed_terminating", "grace", grace)
			ctx, cancel := context.WithTimeout(context.Background(), h.Config.Export.ShutdownTimeout)
			defer cancel()
			if err := h.Service.Terminate(ctx); err != nil {
				h.Logger.Warnw("window_closed_terminate_failed", "error", err)
			}
		})
	})
}

// Close kills running exports, stops the server and closes the database.
func (h *Host) Close(ctx context.Context) {
	if err := h.Service.Shutdown(ctx); err != nil {
		h.Logger.Errorf("export shutdown incomplete: %v", err)
	}

	if h.listener != nil {
		if err := h.App.ShutdownWithContext(ctx); err != nil {
			h.Logger.Errorf("server forced to shutdown: %v", err)
		}
	}

	if h.database != nil {
		if err := db.Close(h.database); err != nil {
			h.Logger.Errorf("failed to close database connection: %v", err)
		}
	}
}
