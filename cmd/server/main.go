// Package main provides the API server entry point for the project ledger service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/project-ledger/internal/api"
	"github.com/project-ledger/internal/config"
	"github.com/project-ledger/internal/logging"
	"github.com/project-ledger/internal/retry"
	"github.com/project-ledger/internal/service"
	"github.com/project-ledger/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Connect to Postgres; the database may still be coming up alongside us,
	// so retry with backoff before giving up.
	var postgres *storage.PostgresDB
	err = retry.WithExponentialBackoff(context.Background(), retry.DefaultConfig(), func(ctx context.Context, attempt int) error {
		var connErr error
		postgres, connErr = storage.NewPostgresDB(&cfg.Database.Postgres)
		return connErr
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Repositories and cache
	projectRepo := storage.NewProjectRepository(postgres)
	transactionRepo := storage.NewTransactionRepository(postgres)
	snapshotCache := storage.NewSnapshotCache(redis, cfg.Cache.TTL)

	// Change listener: LISTEN/NOTIFY fan-out for dashboard invalidation
	listener := storage.NewChangeListener(postgres, logger)
	listener.Start(context.Background())
	defer listener.Close()

	// Services
	projectService := service.NewProjectService(projectRepo)
	transactionService := service.NewTransactionService(transactionRepo)
	snapshotService := service.NewSnapshotService(
		projectRepo,
		transactionRepo,
		snapshotCache,
		logger,
		cfg.Dashboard.WeeklyWindow,
		cfg.Dashboard.MonthlyWindow,
	)

	// Every change drops the owner's cached snapshot so the next dashboard
	// read recomputes from the store. Covers external writers too, since the
	// triggers fire for any change to the tables.
	listener.SetInvalidationHook(func(userID string) {
		snapshotService.Invalidate(context.Background(), userID)
	})

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the dashboard watch stream stays open for the
		// life of the client connection.
		WriteTimeout:     0,
		IdleTimeout:      60 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		RateLimitRPS:     cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:   cfg.RateLimit.Burst,
		KeepStaleOnError: cfg.Dashboard.KeepStaleOnError,
	}

	server := api.NewServer(serverConfig, projectService, transactionService, snapshotService, listener)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
