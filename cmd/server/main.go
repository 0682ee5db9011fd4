// Package main is the entry point for the Money Master portfolio tracking
// server. It wires configuration, the three SQLite databases, the HTTP
// server, and the background scheduler, then runs until a shutdown signal.
//
// The application uses a 3-database architecture:
// - portfolio.db: current portfolio state (portfolios, assets, invest funds)
// - ledger.db: immutable transaction trail
// - client_data.db: cache for market quotes and exchange rates
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/portfolio-management-app/money-master/internal/clientdata"
	"github.com/portfolio-management-app/money-master/internal/config"
	"github.com/portfolio-management-app/money-master/internal/database"
	"github.com/portfolio-management-app/money-master/internal/reliability"
	"github.com/portfolio-management-app/money-master/internal/scheduler"
	"github.com/portfolio-management-app/money-master/internal/server"
	"github.com/portfolio-management-app/money-master/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Money Master")

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	srv := server.New(server.Config{
		Log:         log,
		PortfolioDB: portfolioDB,
		LedgerDB:    ledgerDB,
		CacheDB:     cacheDB,
		Config:      cfg,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
	})

	sched := scheduler.New(log)

	cacheStore := clientdata.NewStore(cacheDB.Conn(), log)
	if err := sched.AddJob("@hourly", scheduler.NewCacheCleanupJob(cacheStore, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}

	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(),
			cfg.Backup.Endpoint, cfg.Backup.Region,
			cfg.Backup.AccessKey, cfg.Backup.SecretKey,
			cfg.Backup.Bucket, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 client for backups")
		}
		backupService := reliability.NewBackupService(s3Client,
			[]*database.DB{portfolioDB, ledgerDB}, cfg.DataDir, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob("0 3 * * *", scheduler.NewBackupJob(backupService, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule nightly backup")
		}
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Nightly backups enabled")
	} else {
		log.Info().Msg("Backups disabled, set BACKUP_S3_BUCKET to enable")
	}

	sched.Start()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("HTTP server listening")
		serverErr <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
		os.Exit(1)
	}

	log.Info().Msg("Shutdown complete")
}
