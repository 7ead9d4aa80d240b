package main

import (
	"context"
	"flag"

	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/desktop"
	"github.com/mangaexporter/backend/internal/host"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/mangaexporter/backend/internal/web"
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

	h, err := host.New(cfg, log, host.Options{})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}
	if err := h.Listen(); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}

	app := desktop.NewApp(h.Service, web.BridgeConfig{
		BaseURL: cfg.Server.BaseURL(),
		Token:   cfg.Auth.APIToken,
	}, cfg.Export.ShutdownTimeout, log)
	h.Service.SetPublisher(app)

	if err := app.Run(cfg.Window); err != nil {
		log.Errorf("window failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Export.ShutdownTimeout)
	defer cancel()
	h.Close(ctx)
	log.Info("desktop exited")
}
