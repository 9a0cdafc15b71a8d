package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"spirolink-backend/handler"
	"spirolink-backend/internal/app"
	"spirolink-backend/internal/config"
	"spirolink-backend/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Only the relay is served here; account and contact routes need the
	// long-running server.
	cfg.Accounts = config.AccountsConfig{}
	cfg.Contact = config.ContactConfig{}

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build services", zap.Error(err))
		os.Exit(1)
	}

	h, err := handler.NewHandler(services.Relay,
		handler.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		handler.WithLogger(logger),
		handler.WithMetrics(services.Metrics),
	)
	if err != nil {
		logger.Error("failed to create handler", zap.Error(err))
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
