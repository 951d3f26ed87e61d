package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/core/services"
	"github.com/expensio/expensio-backend/internal/platform/config"
	"github.com/expensio/expensio-backend/internal/repositories/database/pgsql"
	"github.com/expensio/expensio-backend/pkg/database"
)

// migrate_tenants converts legacy single-tenant data into accounts,
// memberships and tenant-stamped records. Safe to re-run: completed work is
// detected and skipped, and an advisory lock keeps concurrent runs out.
func main() {
	dryRun := flag.Bool("dry-run", false, "run the full pipeline in a transaction that is rolled back")
	batchSize := flag.Int("batch-size", 0, "legacy users converted per batch (0 uses MIGRATION_BATCH_SIZE)")
	skipBackup := flag.Bool("skip-backup", false, "skip the backup stage")
	fallbackAccount := flag.String("fallback-account", "", "account that receives orphan records instead of deletion")
	rollback := flag.Bool("rollback", false, "restore legacy tables from the backup of a prior run")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)

	repos := pgsql.NewRepositoryProvider(dbPool)
	migrationSvc := services.NewMigrationService(repos.MigrationRepo, repos.AccountRepo)

	if *rollback {
		if err := migrationSvc.Rollback(ctx); err != nil {
			logger.Error("Rollback failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Legacy tables restored from backup.")
		return
	}

	if *batchSize <= 0 {
		*batchSize = cfg.MigrationBatchSize
	}

	stats, err := migrationSvc.Run(ctx, portssvc.MigrationOptions{
		DryRun:            *dryRun,
		BatchSize:         *batchSize,
		SkipBackup:        *skipBackup,
		FallbackAccountID: *fallbackAccount,
	})
	if err != nil {
		if stats != nil && stats.FailedStage != "" {
			logger.Error("Migration failed",
				slog.String("stage", string(stats.FailedStage)),
				slog.String("error", err.Error()))
		} else {
			logger.Error("Migration failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	os.Stdout.Write(append(out, '\n'))

	if *dryRun {
		logger.Info("Dry run complete; no changes were committed.")
	} else {
		logger.Info("Migration complete.")
	}
}
