// Standalone mode: SQLite storage, a JSON catalog and environment-only
// configuration. No Postgres, Redis or external services required.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sympdx-server/internal/api"
	"github.com/sympdx-server/internal/backup"
	"github.com/sympdx-server/internal/catalog"
	"github.com/sympdx-server/internal/config"
	"github.com/sympdx-server/internal/domain"
	"github.com/sympdx-server/internal/history"
	"github.com/sympdx-server/internal/logging"
	"github.com/sympdx-server/internal/patients"
	"github.com/sympdx-server/internal/service"
)

func main() {
	cfg := config.LoadLiteConfig()
	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger, err := logging.NewLogger(domain.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backupManager, err := backup.NewManager(domain.BackupConfig{
		Dir:        cfg.BackupDir(),
		DaysToKeep: cfg.BackupDaysToKeep,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create backup manager")
	}

	// Snapshot the data files before touching them, then retire old copies.
	if _, err := backupManager.Backup(cfg.StoreDBPath(), cfg.CatalogPath); err != nil {
		logger.WithError(err).Warn("Startup backup failed")
	}
	if _, err := backupManager.Prune(); err != nil {
		logger.WithError(err).Warn("Backup pruning failed")
	}

	catalogStore, err := catalog.NewStore(cfg.CatalogPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog")
	}

	patientStore, err := patients.NewSQLiteStore(cfg.StoreDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open patient store")
	}
	defer patientStore.Close()

	historyStore, err := history.NewSQLiteStore(cfg.StoreDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer historyStore.Close()

	engineCfg := domain.EngineConfig{
		HighBandThreshold:   cfg.HighBandThreshold,
		MediumBandThreshold: cfg.MediumBandThreshold,
		MinScore:            cfg.MinScore,
		MaxResults:          cfg.MaxResults,
		CacheSize:           cfg.CacheSize,
	}

	engine := service.NewDiagnosisEngine(engineCfg, logger)
	cachedEngine, err := service.NewCachedEngine(engine, engineCfg.CacheSize, nil, 0, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create engine cache")
	}

	patientManager := patients.NewManager(patientStore, logger)
	historyManager := service.NewHistoryManager(historyStore, patientManager, domain.HistoryConfig{
		DefaultQueryLimit: cfg.DefaultQueryLimit,
		SnapshotTopN:      cfg.SnapshotTopN,
	}, logger)
	statsService := service.NewStatsService(patientManager, historyStore, catalogStore, logger)

	server := api.NewServer(domain.ServerConfig{
		Host: "127.0.0.1",
		Port: cfg.HTTPPort,
	}, api.Services{
		Patients:    patientManager,
		Engine:      cachedEngine,
		History:     historyManager,
		HistoryData: historyStore,
		Catalog:     catalogStore,
		Stats:       statsService,
	}, cfg.LogLevel, logger)

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
