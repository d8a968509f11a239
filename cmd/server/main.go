package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweetshop/sweetshop-api/internal/app"
	"github.com/sweetshop/sweetshop-api/internal/config"
)

func main() {
	logger := app.NewLogger("MAIN")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize app: %v", err)
		os.Exit(1)
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Error("http server failed: %v", err)
			stop()
		}
	}()

	logger.Info("sweetshop-api listening on port %s", cfg.Port)

	<-ctx.Done()

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
		os.Exit(1)
	}

	logger.Info("sweetshop-api stopped cleanly")
}
