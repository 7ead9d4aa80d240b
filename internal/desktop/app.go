// Package desktop hosts the UI page in a native window.
package desktop

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/web"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ProgressEvent is the window event every snapshot is emitted under.
const ProgressEvent = "export-progress"

// App is the window side of the desktop shell. It doubles as the progress
// publisher once the window is up.
type App struct {
	service         ports.ExportService
	bridge          web.BridgeConfig
	logger          *logger.Logger
	shutdownTimeout time.Duration

	mu  sync.RWMutex
	ctx context.Context

	emit   func(ctx context.Context, event string, data ...interface{})
	execJS func(ctx context.Context, js string)
}

func NewApp(service ports.ExportService, bridge web.BridgeConfig, shutdownTimeout time.Duration, log *logger.Logger) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	return &App{
		service:         service,
		bridge:          bridge,
		logger:          log,
		shutdownTimeout: shutdownTimeout,
		emit:            wruntime.EventsEmit,
		execJS:          wruntime.WindowExecJS,
	}
}

// Run blocks until the window is closed.
func (a *App) Run(cfg config.WindowConfig) error {
	return wails.Run(&options.App{
		Title:     cfg.Title,
		Width:     cfg.Width,
		Height:    cfg.Height,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Handler: http.HandlerFunc(a.servePage),
		},
		BackgroundColour: &options.RGBA{R: 15, G: 23, B: 42, A: 1},
		OnStartup:        a.startup,
		OnDomReady:       a.domReady,
		OnBeforeClose:    a.beforeClose,
		OnShutdown:       a.shutdown,
	})
}

func (a *App) servePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.RawPage())
}

func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	a.logger.Infow("desktop_window_started")
}

func (a *App) domReady(ctx context.Context) {
	script, err := web.Script(a.bridge)
	if err != nil {
		a.logger.Errorw("desktop_bridge_render_failed", "error", err)
		return
	}
	a.execJS(ctx, script)
	a.logger.Infow("desktop_bridge_injected", "base_url", a.bridge.BaseURL)
}

// beforeClose kills running exports and lets the window close.
func (a *App) beforeClose(ctx context.Context) bool {
	a.logger.Infow("desktop_window_closing")
	tctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.service.Terminate(tctx); err != nil {
		a.logger.Warnw("desktop_terminate_failed", "error", err)
	}
	return false
}

func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	a.ctx = nil
	a.mu.Unlock()

	tctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.service.Shutdown(tctx); err != nil {
		a.logger.Warnw("desktop_shutdown_failed", "error", err)
	}
	a.logger.Infow("desktop_window_closed")
}

// Publish emits the snapshot to the window. Snapshots published before the
// window started or after it closed are dropped.
func (a *App) Publish(record domain.ProgressRecord) {
	a.mu.RLock()
	ctx := a.ctx
	a.mu.RUnlock()
	if ctx == nil {
		return
	}
	a.emit(ctx, ProgressEvent, record)
}

var _ ports.ProgressPublisher = (*App)(nil)
