package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expensio/expensio-backend/internal/core/services"
	"github.com/expensio/expensio-backend/internal/handlers"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/expensio/expensio-backend/internal/platform/config"
	"github.com/expensio/expensio-backend/internal/platform/queue"
	"github.com/expensio/expensio-backend/internal/repositories/database/pgsql"
	"github.com/expensio/expensio-backend/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func main() {
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
	logger.Info("Database connection pool established.")

	if err := runSchemaMigrations(cfg, logger); err != nil {
		logger.Error("Failed to apply schema migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)

	// The queue is optional; without a broker invitations simply skip the
	// email dispatch and expiry sweeps run in-process.
	var notifier portssvc.InvitationNotifier
	var queueClient *queue.Client
	if cfg.AMQPURL != "" {
		queueClient, err = queue.NewClient(cfg.AMQPURL, "expensio", cfg.TaskQueueName)
		if err != nil {
			logger.Error("Failed to connect to task queue", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer queueClient.Close()
		notifier = queue.NewTaskNotifier(queueClient)
		logger.Info("Task queue connected", slog.String("queue", cfg.TaskQueueName))
	}

	serviceContainer := services.NewServiceContainer(cfg, repos, notifier)

	if queueClient != nil {
		worker := queue.NewWorker(queueClient, serviceContainer, logger)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Task worker stopped", slog.String("error", err.Error()))
			}
		}()
	}
	go runInvitationSweeper(ctx, serviceContainer, queueClient, logger)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	r.Use(middleware.RateLimit(limiter.New(memory.NewStore(), rate)))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}
}

// runSchemaMigrations applies the SQL migrations in ./migrations before the
// server accepts traffic. Uses a separate database/sql connection via the pgx
// stdlib driver.
func runSchemaMigrations(cfg *config.Config, logger *slog.Logger) error {
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := migrationDB.Ping(); err != nil {
		migrationDB.Close()
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return err
	}

	upErr := m.Up()
	sourceErr, dbErr := m.Close()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return upErr
	}
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new schema migrations to apply.")
	} else {
		logger.Info("Schema migrations applied successfully.")
	}
	return nil
}

// runInvitationSweeper periodically marks overdue pending invitations as
// expired. With a queue the sweep is dispatched as a task so a single worker
// performs it; without one it runs in-process.
func runInvitationSweeper(ctx context.Context, svcs *portssvc.ServiceContainer, queueClient *queue.Client, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if queueClient != nil {
			if err := queueClient.Enqueue(ctx, portssvc.Task{Kind: portssvc.TaskSweepInvitations}); err != nil {
				logger.Error("Failed to enqueue invitation sweep", slog.String("error", err.Error()))
			}
			continue
		}

		swept, err := svcs.Invitation.SweepExpired(ctx)
		if err != nil {
			logger.Error("Invitation sweep failed", slog.String("error", err.Error()))
			continue
		}
		if swept > 0 {
			logger.Info("Invitation sweep completed", slog.Int("expired", swept))
		}
	}
}
