package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hercules_backend/internal/app"
	"hercules_backend/internal/config"
	"hercules_backend/internal/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.GetConfig()
	logger.Init(cfg.Server.Env)

	application, err := app.New(cfg)
	if err != nil {
		logger.Fatal("application startup failed", "error", err)
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}
