package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sympdx-server/internal/api"
	"github.com/sympdx-server/internal/cache"
	"github.com/sympdx-server/internal/catalog"
	"github.com/sympdx-server/internal/config"
	"github.com/sympdx-server/internal/database"
	"github.com/sympdx-server/internal/history"
	"github.com/sympdx-server/internal/logging"
	"github.com/sympdx-server/internal/patients"
	"github.com/sympdx-server/internal/repository"
	"github.com/sympdx-server/internal/service"
	"github.com/sympdx-server/pkg/terminology"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run migrations before opening the pool.
	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := runner.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	runner.Close()

	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	historyStore, err := history.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer historyStore.Close()

	var redisClient *cache.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewClient(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing without second cache tier")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	catalogStore, err := catalog.NewStore(cfg.Catalog.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog")
	}

	engine := service.NewDiagnosisEngine(cfg.Engine, logger)
	cachedEngine, err := service.NewCachedEngine(engine, cfg.Engine.CacheSize, redisClient, cfg.Cache.DefaultTTL, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create engine cache")
	}

	patientRepo := repository.NewPatientRepository(db.Pool, logger)
	patientManager := patients.NewManager(patientRepo, logger)

	historyManager := service.NewHistoryManager(historyStore, patientManager, cfg.History, logger)
	statsService := service.NewStatsService(patientManager, historyStore, catalogStore, logger)

	var terminologyClient *terminology.Client
	if cfg.Terminology.Enabled {
		terminologyClient = terminology.NewClient(cfg.Terminology)
	}

	server := api.NewServer(cfg.Server, api.Services{
		Patients:    patientManager,
		Engine:      cachedEngine,
		History:     historyManager,
		HistoryData: historyStore,
		Catalog:     catalogStore,
		Stats:       statsService,
		Terminology: terminologyClient,
	}, cfg.Logging.Level, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}
