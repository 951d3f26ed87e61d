package repositories

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// MigrationRepository is the storage surface of the legacy-data migration.
// All of its queries are administrative: they bypass the tenant scope via the
// explicit escape-hatch convention and are audited as such.
type MigrationRepository interface {
	TxRunner

	// AcquireMigrationLock takes the deployment-wide advisory lock. Returns
	// false without blocking when another migration run holds it.
	AcquireMigrationLock(ctx context.Context) (bool, error)

	// ReleaseMigrationLock releases the advisory lock.
	ReleaseMigrationLock(ctx context.Context) error

	// LegacySchemaPresent reports whether the pre-tenant tables exist.
	LegacySchemaPresent(ctx context.Context) (bool, error)

	// CountUnmigratedLegacyUsers counts legacy users not yet converted.
	CountUnmigratedLegacyUsers(ctx context.Context) (int, error)

	// ListUnmigratedLegacyUsers pages legacy users after the given ID.
	ListUnmigratedLegacyUsers(ctx context.Context, afterUserID string, limit int) ([]domain.LegacyUser, error)

	// MarkLegacyUserMigrated flags a legacy user as converted.
	MarkLegacyUserMigrated(ctx context.Context, legacyUserID string) error

	// BackupLegacyTables snapshots legacy rows into backup tables.
	BackupLegacyTables(ctx context.Context) error

	// RestoreFromBackup restores legacy rows from the backup tables.
	RestoreFromBackup(ctx context.Context) error

	// StampExpenses sets the account on a legacy user's unstamped expenses.
	StampExpenses(ctx context.Context, legacyUserID, accountID string) (int, error)

	// StampCategories sets the account on a legacy user's unstamped categories.
	StampCategories(ctx context.Context, legacyUserID, accountID string) (int, error)

	// StampBudgets sets the account on a legacy user's unstamped budgets.
	StampBudgets(ctx context.Context, legacyUserID, accountID string) (int, error)

	// MergeDuplicateCategories collapses categories that collide on the
	// per-account name constraint, repointing expenses at the survivor.
	// Returns the number of categories merged away.
	MergeDuplicateCategories(ctx context.Context, accountID string) (int, error)

	// CountOrphanExpenses counts expenses with no resolvable owner.
	CountOrphanExpenses(ctx context.Context) (int, error)

	// ReassignOrphanExpenses stamps ownerless expenses with the fallback account.
	ReassignOrphanExpenses(ctx context.Context, fallbackAccountID string) (int, error)

	// DeleteOrphanExpenses removes ownerless expenses, returning the count
	// and the summed amount removed so the conservation check can account
	// for it.
	DeleteOrphanExpenses(ctx context.Context) (int, decimal.Decimal, error)

	// CountUnstampedRecords counts tenant-scoped rows still missing an account.
	CountUnstampedRecords(ctx context.Context) (int, error)

	// SumAllExpenseAmounts totals expense amounts across every account and
	// unstamped rows alike; used for the conservation check.
	SumAllExpenseAmounts(ctx context.Context) (decimal.Decimal, error)

	// LoadCheckpoint returns the persisted batch checkpoint, if any.
	LoadCheckpoint(ctx context.Context) (*domain.MigrationCheckpoint, error)

	// SaveCheckpoint persists batch progress.
	SaveCheckpoint(ctx context.Context, cp domain.MigrationCheckpoint) error

	// ClearCheckpoint removes the checkpoint after a completed run.
	ClearCheckpoint(ctx context.Context) error
}
