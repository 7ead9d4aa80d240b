package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/host"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/infrastructure/opener"
	"github.com/mangaexporter/backend/internal/infrastructure/push"
)

func main() {
	configFlag := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(config.ResolvePath(*configFlag))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	lock := host.NewInstanceLock(cfg.Window.LockFile)
	if err := lock.Acquire(); err != nil {
		log.Fatalf("cannot start: %v (lock %s)", err, lock.Path())
	}
	defer lock.Release()

	h, err := host.New(cfg, log, host.Options{Hub: push.NewHub(log)})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	if err := h.Listen(); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
	h.WatchWindows()

	if cfg.Window.OpenBrowser {
		if err := opener.NewBrowserOpener(log).Open(cfg.Server.BaseURL()); err != nil {
			log.Warnf("could not open a browser window, visit %s: %v", cfg.Server.BaseURL(), err)
		}
	}

	gracefulShutdown(h, log)
}

func gracefulShutdown(h *host.Host, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), h.Config.Export.ShutdownTimeout)
	defer cancel()

	h.Close(ctx)

	log.Info("server exited gracefully")
}
