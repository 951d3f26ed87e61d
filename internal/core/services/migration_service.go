package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultMigrationBatchSize = 100

// errDryRunRollback forces the surrounding transaction of a dry run to roll
// back after the pipeline has completed. It never escapes Run.
var errDryRunRollback = errors.New("dry run complete, rolling back")

// migrationService implements the MigrationSvc interface. It converts legacy
// single-tenant rows into accounts, owner memberships and stamped records,
// exactly once per deployment under an exclusive advisory lock.
type migrationService struct {
	BaseService
	migrationRepo portsrepo.MigrationRepository
	accountRepo   portsrepo.AccountRepositoryFacade
}

// NewMigrationService creates a new migration service with the provided dependencies
func NewMigrationService(migrationRepo portsrepo.MigrationRepository, accountRepo portsrepo.AccountRepositoryFacade) portssvc.MigrationSvc {
	return &migrationService{migrationRepo: migrationRepo, accountRepo: accountRepo}
}

// Ensure migrationService implements the MigrationSvc interface
var _ portssvc.MigrationSvc = (*migrationService)(nil)

// migrationRun carries the mutable state of a single pipeline execution.
type migrationRun struct {
	opts             portssvc.MigrationOptions
	stats            *domain.MigrationStats
	touchedAccounts  []string
	deletedOrphanSum decimal.Decimal
}

// Run executes the migration pipeline. A dry run executes the identical
// pipeline inside one transaction that is always rolled back, so its
// statistics match what a committed run over the same data would report.
func (s *migrationService) Run(ctx context.Context, opts portssvc.MigrationOptions) (*domain.MigrationStats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultMigrationBatchSize
	}

	locked, err := s.migrationRepo.AcquireMigrationLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring migration lock: %w", err)
	}
	if !locked {
		return nil, apperrors.NewConflictError("another migration run is in progress")
	}
	defer func() {
		if err := s.migrationRepo.ReleaseMigrationLock(context.WithoutCancel(ctx)); err != nil {
			s.LogError(ctx, err, "Failed to release migration lock")
		}
	}()

	run := &migrationRun{
		opts: opts,
		stats: &domain.MigrationStats{
			StartedAt: time.Now(),
			DryRun:    opts.DryRun,
		},
		deletedOrphanSum: decimal.Zero,
	}

	if opts.DryRun {
		err = s.migrationRepo.RunInTx(ctx, func(txCtx context.Context) error {
			if pipeErr := s.pipeline(txCtx, run); pipeErr != nil {
				return pipeErr
			}
			return errDryRunRollback
		})
		if errors.Is(err, errDryRunRollback) {
			err = nil
		}
	} else {
		err = s.pipeline(ctx, run)
	}

	run.stats.FinishedAt = time.Now()
	if err != nil {
		s.LogError(ctx, err, "Migration run failed",
			slog.String("failed_stage", string(run.stats.FailedStage)),
			slog.Bool("dry_run", opts.DryRun))
		return run.stats, err
	}

	s.LogInfo(ctx, "Migration run finished",
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("legacy_users_seen", run.stats.LegacyUsersSeen),
		slog.Int("accounts_created", run.stats.AccountsCreated),
		slog.Int("expenses_stamped", run.stats.ExpensesStamped))
	return run.stats, nil
}

// pipeline runs the stages in order. The first stage failure records the
// stage name and aborts the remaining stages.
func (s *migrationService) pipeline(ctx context.Context, run *migrationRun) error {
	stages := []struct {
		name domain.MigrationStage
		fn   func(context.Context, *migrationRun) error
	}{
		{domain.StagePreconditions, s.stagePreconditions},
		{domain.StageBackup, s.stageBackup},
		{domain.StageConvert, s.stageConvert},
		{domain.StageReconcile, s.stageReconcile},
		{domain.StageOrphanCleanup, s.stageOrphanCleanup},
		{domain.StagePostValidation, s.stagePostValidation},
	}
	for _, stage := range stages {
		s.LogInfo(ctx, "Migration stage starting", slog.String("stage", string(stage.name)))
		if err := stage.fn(ctx, run); err != nil {
			run.stats.FailedStage = stage.name
			return fmt.Errorf("%s stage: %w", stage.name, err)
		}
	}
	if !run.opts.DryRun {
		if err := s.migrationRepo.ClearCheckpoint(ctx); err != nil {
			s.LogWarn(ctx, "Failed to clear migration checkpoint", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *migrationService) stagePreconditions(ctx context.Context, run *migrationRun) error {
	present, err := s.migrationRepo.LegacySchemaPresent(ctx)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("%w: legacy schema not present", apperrors.ErrMigrationIntegrity)
	}
	remaining, err := s.migrationRepo.CountUnmigratedLegacyUsers(ctx)
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.LogInfo(ctx, "No unmigrated legacy users, nothing to do")
	}
	run.stats.PreMigrationTotal, err = s.migrationRepo.SumAllExpenseAmounts(ctx)
	return err
}

func (s *migrationService) stageBackup(ctx context.Context, run *migrationRun) error {
	if run.opts.SkipBackup {
		s.LogWarn(ctx, "Skipping backup stage")
		return nil
	}
	return s.migrationRepo.BackupLegacyTables(ctx)
}

// stageConvert pages through unmigrated legacy users. Each batch commits in
// its own transaction followed by a checkpoint, so an interrupted run resumes
// after the last completed batch instead of reprocessing converted users. In
// a dry run the surrounding transaction swallows the per-batch ones.
func (s *migrationService) stageConvert(ctx context.Context, run *migrationRun) error {
	afterUserID := ""
	processed := 0
	if cp, err := s.migrationRepo.LoadCheckpoint(ctx); err != nil {
		return err
	} else if cp != nil {
		afterUserID = cp.LastLegacyUserID
		processed = cp.ProcessedCount
		s.LogInfo(ctx, "Resuming conversion from checkpoint",
			slog.String("after_user_id", afterUserID),
			slog.Int("processed", processed))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		users, err := s.migrationRepo.ListUnmigratedLegacyUsers(ctx, afterUserID, run.opts.BatchSize)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}

		err = s.migrationRepo.RunInTx(ctx, func(txCtx context.Context) error {
			for _, legacy := range users {
				if err := s.convertLegacyUser(txCtx, run, legacy); err != nil {
					return fmt.Errorf("converting legacy user %s: %w", legacy.UserID, err)
				}
			}
			processed += len(users)
			return s.migrationRepo.SaveCheckpoint(txCtx, domain.MigrationCheckpoint{
				LastLegacyUserID: users[len(users)-1].UserID,
				ProcessedCount:   processed,
				UpdatedAt:        time.Now(),
			})
		})
		if err != nil {
			return err
		}
		afterUserID = users[len(users)-1].UserID
		s.LogDebug(ctx, "Conversion batch committed",
			slog.Int("batch_size", len(users)),
			slog.Int("processed", processed))
	}
}

// convertLegacyUser creates or reuses a personal account for one legacy user,
// ensures an owner membership, and stamps the user's records with the account.
// The slug is derived deterministically from the legacy user ID so a resumed
// run finds the account created by an interrupted one.
func (s *migrationService) convertLegacyUser(ctx context.Context, run *migrationRun, legacy domain.LegacyUser) error {
	slug := utils.Slugify(legacy.Name)
	if slug == "" {
		slug = "account"
	}
	slug = slug + "-" + utils.ShortID(legacy.UserID)

	now := time.Now()
	account, err := s.accountRepo.FindAccountBySlug(ctx, slug)
	switch {
	case err == nil:
		run.stats.AccountsReused++
	case errors.Is(err, apperrors.ErrNotFound):
		account = &domain.Account{
			AccountID: uuid.NewString(),
			Name:      legacy.Name,
			Slug:      slug,
			Type:      domain.AccountTypePersonal,
			Settings: domain.AccountSettings{
				CurrencyCode: "USD",
			},
			AuditFields: domain.NewAuditFields("migration", now),
		}
		if err := s.accountRepo.SaveAccount(ctx, *account); err != nil {
			return err
		}
		run.stats.AccountsCreated++
	default:
		return err
	}

	_, err = s.accountRepo.FindMembership(ctx, account.AccountID, legacy.UserID)
	switch {
	case err == nil:
		// Owner membership already exists from an interrupted run.
	case errors.Is(err, apperrors.ErrNotFound):
		membership := domain.Membership{
			MembershipID: uuid.NewString(),
			AccountID:    account.AccountID,
			UserID:       legacy.UserID,
			Role:         domain.RoleOwner,
			IsActive:     true,
			JoinedAt:     now,
		}
		if err := s.accountRepo.SaveMembership(ctx, membership); err != nil {
			return err
		}
		run.stats.MembershipsCreated++
	default:
		return err
	}

	stamped, err := s.migrationRepo.StampExpenses(ctx, legacy.UserID, account.AccountID)
	if err != nil {
		return err
	}
	run.stats.ExpensesStamped += stamped

	stamped, err = s.migrationRepo.StampCategories(ctx, legacy.UserID, account.AccountID)
	if err != nil {
		return err
	}
	run.stats.CategoriesStamped += stamped

	stamped, err = s.migrationRepo.StampBudgets(ctx, legacy.UserID, account.AccountID)
	if err != nil {
		return err
	}
	run.stats.BudgetsStamped += stamped

	if err := s.migrationRepo.MarkLegacyUserMigrated(ctx, legacy.UserID); err != nil {
		return err
	}
	run.stats.LegacyUsersSeen++
	run.touchedAccounts = append(run.touchedAccounts, account.AccountID)
	return nil
}

// stageReconcile merges categories that collide on the per-account name
// constraint in every account touched by conversion, repointing expenses at
// the surviving category instead of erroring.
func (s *migrationService) stageReconcile(ctx context.Context, run *migrationRun) error {
	for _, accountID := range run.touchedAccounts {
		merged, err := s.migrationRepo.MergeDuplicateCategories(ctx, accountID)
		if err != nil {
			return err
		}
		run.stats.CategoriesMerged += merged
	}
	return nil
}

func (s *migrationService) stageOrphanCleanup(ctx context.Context, run *migrationRun) error {
	count, err := s.migrationRepo.CountOrphanExpenses(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	if run.opts.FallbackAccountID != "" {
		if _, err := s.accountRepo.FindAccountByID(ctx, run.opts.FallbackAccountID); err != nil {
			return fmt.Errorf("fallback account %s: %w", run.opts.FallbackAccountID, err)
		}
		reassigned, err := s.migrationRepo.ReassignOrphanExpenses(ctx, run.opts.FallbackAccountID)
		if err != nil {
			return err
		}
		run.stats.OrphansReassigned = reassigned
		return nil
	}

	deleted, deletedSum, err := s.migrationRepo.DeleteOrphanExpenses(ctx)
	if err != nil {
		return err
	}
	run.stats.OrphansDeleted = deleted
	run.deletedOrphanSum = deletedSum
	s.LogWarn(ctx, "Deleted orphan expenses",
		slog.Int("count", deleted),
		slog.String("amount", deletedSum.String()))
	return nil
}

// stagePostValidation enforces completeness and conservation: no unstamped
// rows remain, and the post-migration expense total equals the pre-migration
// total minus what orphan deletion removed.
func (s *migrationService) stagePostValidation(ctx context.Context, run *migrationRun) error {
	remaining, err := s.migrationRepo.CountUnstampedRecords(ctx)
	if err != nil {
		return err
	}
	run.stats.RemainingUnstamped = remaining
	if remaining > 0 {
		return fmt.Errorf("%w: %d records still unstamped", apperrors.ErrMigrationIntegrity, remaining)
	}

	run.stats.PostMigrationTotal, err = s.migrationRepo.SumAllExpenseAmounts(ctx)
	if err != nil {
		return err
	}
	expected := run.stats.PreMigrationTotal.Sub(run.deletedOrphanSum)
	if !run.stats.PostMigrationTotal.Equal(expected) {
		return fmt.Errorf("%w: expense total %s does not match expected %s",
			apperrors.ErrMigrationIntegrity,
			run.stats.PostMigrationTotal.String(), expected.String())
	}
	return nil
}

// Rollback restores the legacy tables from the backup taken by a prior run.
func (s *migrationService) Rollback(ctx context.Context) error {
	locked, err := s.migrationRepo.AcquireMigrationLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	if !locked {
		return apperrors.NewConflictError("another migration run is in progress")
	}
	defer func() {
		if err := s.migrationRepo.ReleaseMigrationLock(context.WithoutCancel(ctx)); err != nil {
			s.LogError(ctx, err, "Failed to release migration lock")
		}
	}()

	return s.migrationRepo.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.migrationRepo.RestoreFromBackup(txCtx); err != nil {
			return err
		}
		return s.migrationRepo.ClearCheckpoint(txCtx)
	})
}
