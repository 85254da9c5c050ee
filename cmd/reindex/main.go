package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/db"
	"github.com/qboard/qboard/internal/search"
	"github.com/qboard/qboard/internal/viewer"
	"github.com/qboard/qboard/pkg/config"
	"github.com/qboard/qboard/pkg/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting QBoard Reindex")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Interrupt cancels the run between questions.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gateway := search.NewGateway(logger, search.NewDBBackend(database.DB))
	reindexer := search.NewReindexer(database.DB, gateway, viewer.New(), logger)

	if err := reindexer.Run(ctx, cfg.Reindex.BatchSize); err != nil {
		logger.Fatal("Reindex failed", zap.Error(err))
	}

	logger.Info("Reindex exited")
}
