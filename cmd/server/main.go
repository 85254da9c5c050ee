package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/api"
	"github.com/qboard/qboard/internal/cache"
	"github.com/qboard/qboard/internal/db"
	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/events"
	"github.com/qboard/qboard/internal/search"
	"github.com/qboard/qboard/internal/viewer"
	"github.com/qboard/qboard/pkg/config"
	"github.com/qboard/qboard/pkg/logging"
	"github.com/qboard/qboard/pkg/telemetry"
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
	logger.Info("Starting QBoard Moderation Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Connect to database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Page cache, nil when disabled
	pageCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer pageCache.Close()

	eng, err := buildEngine(cfg, database, pageCache)
	if err != nil {
		logger.Fatal("Failed to build lifecycle engine", zap.Error(err))
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiRouter := api.NewRouter(eng, database, pageCache)
	apiRouter.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildEngine wires the lifecycle engine with its production collaborators.
func buildEngine(cfg *config.Config, database *db.DB, pageCache *cache.PageCache) (*engine.Engine, error) {
	store, err := db.NewStore(database.DB, cfg.Reindex.NodeID)
	if err != nil {
		return nil, err
	}

	logger := logging.GetLogger()
	deps := engine.Deps{
		Store:    store,
		Counters: db.NewSiteCounters(database.DB),
		Points:   db.NewPointsLedger(database.DB),
		Index:    search.NewGateway(logger, search.NewDBBackend(database.DB)),
		Events:   events.NewBus(logger, events.NewDBLog(database.DB)),
		Cache:    pageCache,
		Render:   viewer.New(),
	}
	policy := engine.Policy{
		UpdateTimeOnApprove: cfg.Moderation.UpdateTimeOnApprove,
		CloseOnSelect:       cfg.Moderation.CloseOnSelect,
	}
	return engine.New(deps, policy, logger), nil
}
