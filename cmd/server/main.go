package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spirolink-backend/internal/app"
	"spirolink-backend/internal/config"
	"spirolink-backend/internal/logging"
	"spirolink-backend/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// ---- Services ----
	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build services", zap.Error(err))
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", zap.Error(err))
		}
	}()

	deps := server.Deps{
		Relay:          services.Relay,
		Metrics:        services.Metrics,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	// Assigned only when set so the interfaces stay nil otherwise.
	if services.Accounts != nil {
		deps.Accounts = services.Accounts
	}
	if services.Contact != nil {
		deps.Contact = services.Contact
	}

	router, err := server.NewRouter(deps)
	if err != nil {
		return err
	}

	logger.Info("starting chat relay",
		zap.String("addr", cfg.Server.Addr()),
		zap.Strings("allowed_origins", cfg.Server.AllowedOrigins),
	)
	return server.New(cfg.Server.Addr(), router, cfg.Server.ShutdownGrace, logger).Run(ctx)
}
