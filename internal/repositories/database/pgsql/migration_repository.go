package pgsql

import (
	"context"
	"errors"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// migrationAdvisoryLockID is the deployment-wide advisory lock key that keeps
// two migration runs from double-converting the same legacy data.
const migrationAdvisoryLockID = 724011

// PgxMigrationRepository is the storage surface of the legacy-data migration.
// All of its queries are administrative and bypass the ambient tenant scope.
type PgxMigrationRepository struct {
	BaseRepository

	// lockConn pins the advisory lock to one connection; session-level locks
	// do not survive returning the connection to the pool.
	lockConn *pgxpool.Conn
}

// newPgxMigrationRepository creates a new repository for migration bookkeeping.
func newPgxMigrationRepository(pool *pgxpool.Pool) portsrepo.MigrationRepository {
	return &PgxMigrationRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.MigrationRepository = (*PgxMigrationRepository)(nil)

func (r *PgxMigrationRepository) AcquireMigrationLock(ctx context.Context) (bool, error) {
	conn, err := r.Pool.Acquire(ctx)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to acquire connection for migration lock", err)
	}
	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1);`, migrationAdvisoryLockID).Scan(&locked); err != nil {
		conn.Release()
		return false, apperrors.NewAppError(500, "failed to take migration advisory lock", err)
	}
	if !locked {
		conn.Release()
		return false, nil
	}
	r.lockConn = conn
	return true, nil
}

func (r *PgxMigrationRepository) ReleaseMigrationLock(ctx context.Context) error {
	if r.lockConn == nil {
		return nil
	}
	defer func() {
		r.lockConn.Release()
		r.lockConn = nil
	}()
	if _, err := r.lockConn.Exec(ctx, `SELECT pg_advisory_unlock($1);`, migrationAdvisoryLockID); err != nil {
		return apperrors.NewAppError(500, "failed to release migration advisory lock", err)
	}
	return nil
}

func (r *PgxMigrationRepository) LegacySchemaPresent(ctx context.Context) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = 'legacy_users'
		);
	`
	var present bool
	if err := r.db(ctx).QueryRow(ctx, query).Scan(&present); err != nil {
		return false, apperrors.NewAppError(500, "failed to check legacy schema", err)
	}
	return present, nil
}

func (r *PgxMigrationRepository) CountUnmigratedLegacyUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM legacy_users WHERE NOT migrated;`).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count unmigrated legacy users", err)
	}
	return count, nil
}

func (r *PgxMigrationRepository) ListUnmigratedLegacyUsers(ctx context.Context, afterUserID string, limit int) ([]domain.LegacyUser, error) {
	query := `
		SELECT user_id, email, name, migrated
		FROM legacy_users
		WHERE NOT migrated AND user_id > $1
		ORDER BY user_id
		LIMIT $2;
	`
	rows, err := r.db(ctx).Query(ctx, query, afterUserID, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list unmigrated legacy users", err)
	}
	defer rows.Close()

	var users []domain.LegacyUser
	for rows.Next() {
		var u domain.LegacyUser
		if err := rows.Scan(&u.UserID, &u.Email, &u.Name, &u.Migrated); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan legacy user row", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read legacy user rows", err)
	}
	return users, nil
}

func (r *PgxMigrationRepository) MarkLegacyUserMigrated(ctx context.Context, legacyUserID string) error {
	tag, err := r.db(ctx).Exec(ctx, `UPDATE legacy_users SET migrated = TRUE WHERE user_id = $1;`, legacyUserID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark legacy user "+legacyUserID+" migrated", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// BackupLegacyTables snapshots the legacy user table and the still-unstamped
// scoped rows. Re-running replaces the previous snapshot.
func (r *PgxMigrationRepository) BackupLegacyTables(ctx context.Context) error {
	statements := []string{
		`DROP TABLE IF EXISTS legacy_users_backup;`,
		`CREATE TABLE legacy_users_backup AS TABLE legacy_users;`,
		`DROP TABLE IF EXISTS expenses_unstamped_backup;`,
		`CREATE TABLE expenses_unstamped_backup AS SELECT expense_id FROM expenses WHERE account_id IS NULL;`,
		`DROP TABLE IF EXISTS categories_unstamped_backup;`,
		`CREATE TABLE categories_unstamped_backup AS SELECT category_id FROM categories WHERE account_id IS NULL;`,
		`DROP TABLE IF EXISTS budgets_unstamped_backup;`,
		`CREATE TABLE budgets_unstamped_backup AS SELECT budget_id FROM budgets WHERE account_id IS NULL;`,
	}
	return r.RunInTx(ctx, func(txCtx context.Context) error {
		for _, stmt := range statements {
			if _, err := r.db(txCtx).Exec(txCtx, stmt); err != nil {
				return apperrors.NewAppError(500, "failed to back up legacy tables", err)
			}
		}
		return nil
	})
}

// RestoreFromBackup undoes a committed run: legacy users get their migrated
// flags back and rows stamped since the backup lose their account again.
// Accounts and memberships the run created are left in place; unstamping is
// what returns the data to its pre-run shape.
func (r *PgxMigrationRepository) RestoreFromBackup(ctx context.Context) error {
	statements := []string{
		`UPDATE legacy_users lu SET migrated = b.migrated
			FROM legacy_users_backup b WHERE lu.user_id = b.user_id;`,
		`UPDATE expenses SET account_id = NULL
			WHERE expense_id IN (SELECT expense_id FROM expenses_unstamped_backup);`,
		`UPDATE categories SET account_id = NULL
			WHERE category_id IN (SELECT category_id FROM categories_unstamped_backup);`,
		`UPDATE budgets SET account_id = NULL
			WHERE budget_id IN (SELECT budget_id FROM budgets_unstamped_backup);`,
	}
	return r.RunInTx(ctx, func(txCtx context.Context) error {
		for _, stmt := range statements {
			if _, err := r.db(txCtx).Exec(txCtx, stmt); err != nil {
				return apperrors.NewAppError(500, "failed to restore from backup", err)
			}
		}
		return nil
	})
}

func (r *PgxMigrationRepository) StampExpenses(ctx context.Context, legacyUserID, accountID string) (int, error) {
	return r.stampRows(ctx,
		`UPDATE expenses SET account_id = $2 WHERE legacy_user_id = $1 AND account_id IS NULL;`,
		legacyUserID, accountID)
}

func (r *PgxMigrationRepository) StampCategories(ctx context.Context, legacyUserID, accountID string) (int, error) {
	return r.stampRows(ctx,
		`UPDATE categories SET account_id = $2 WHERE legacy_user_id = $1 AND account_id IS NULL;`,
		legacyUserID, accountID)
}

func (r *PgxMigrationRepository) StampBudgets(ctx context.Context, legacyUserID, accountID string) (int, error) {
	return r.stampRows(ctx,
		`UPDATE budgets SET account_id = $2 WHERE legacy_user_id = $1 AND account_id IS NULL;`,
		legacyUserID, accountID)
}

func (r *PgxMigrationRepository) stampRows(ctx context.Context, query, legacyUserID, accountID string) (int, error) {
	tag, err := r.db(ctx).Exec(ctx, query, legacyUserID, accountID)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to stamp rows for legacy user "+legacyUserID, err)
	}
	return int(tag.RowsAffected()), nil
}

// MergeDuplicateCategories collapses categories colliding on the per-account
// case-insensitive name constraint. The oldest row survives; expenses and
// budgets are repointed at it before the losers are deleted.
func (r *PgxMigrationRepository) MergeDuplicateCategories(ctx context.Context, accountID string) (int, error) {
	const dupesCTE = `
		WITH ranked AS (
			SELECT category_id,
				FIRST_VALUE(category_id) OVER (
					PARTITION BY LOWER(name) ORDER BY created_at, category_id
				) AS keeper
			FROM categories
			WHERE account_id = $1
		),
		dupes AS (
			SELECT category_id, keeper FROM ranked WHERE category_id <> keeper
		)
	`
	merged := 0
	err := r.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := r.db(txCtx).Exec(txCtx, dupesCTE+`
			UPDATE expenses e SET category_id = d.keeper
			FROM dupes d WHERE e.category_id = d.category_id;`, accountID); err != nil {
			return apperrors.NewAppError(500, "failed to repoint expenses at merged categories", err)
		}
		if _, err := r.db(txCtx).Exec(txCtx, dupesCTE+`
			UPDATE budgets b SET category_id = d.keeper
			FROM dupes d WHERE b.category_id = d.category_id;`, accountID); err != nil {
			return apperrors.NewAppError(500, "failed to repoint budgets at merged categories", err)
		}
		tag, err := r.db(txCtx).Exec(txCtx, dupesCTE+`
			DELETE FROM categories c USING dupes d WHERE c.category_id = d.category_id;`, accountID)
		if err != nil {
			return apperrors.NewAppError(500, "failed to delete merged categories", err)
		}
		merged = int(tag.RowsAffected())
		return nil
	})
	return merged, err
}

// Orphans are unstamped rows whose legacy owner cannot be resolved.
const orphanExpenseFilter = `
	account_id IS NULL AND (
		legacy_user_id IS NULL
		OR NOT EXISTS (SELECT 1 FROM legacy_users lu WHERE lu.user_id = expenses.legacy_user_id)
	)
`

func (r *PgxMigrationRepository) CountOrphanExpenses(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM expenses WHERE ` + orphanExpenseFilter + `;`
	if err := r.db(ctx).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count orphan expenses", err)
	}
	return count, nil
}

func (r *PgxMigrationRepository) ReassignOrphanExpenses(ctx context.Context, fallbackAccountID string) (int, error) {
	query := `UPDATE expenses SET account_id = $1 WHERE ` + orphanExpenseFilter + `;`
	tag, err := r.db(ctx).Exec(ctx, query, fallbackAccountID)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to reassign orphan expenses", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgxMigrationRepository) DeleteOrphanExpenses(ctx context.Context) (int, decimal.Decimal, error) {
	query := `
		WITH removed AS (
			DELETE FROM expenses WHERE ` + orphanExpenseFilter + ` RETURNING amount
		)
		SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM removed;
	`
	var count int
	var sum decimal.Decimal
	if err := r.db(ctx).QueryRow(ctx, query).Scan(&count, &sum); err != nil {
		return 0, decimal.Zero, apperrors.NewAppError(500, "failed to delete orphan expenses", err)
	}
	return count, sum, nil
}

func (r *PgxMigrationRepository) CountUnstampedRecords(ctx context.Context) (int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM expenses WHERE account_id IS NULL)
			+ (SELECT COUNT(*) FROM categories WHERE account_id IS NULL)
			+ (SELECT COUNT(*) FROM budgets WHERE account_id IS NULL);
	`
	var count int
	if err := r.db(ctx).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count unstamped records", err)
	}
	return count, nil
}

func (r *PgxMigrationRepository) SumAllExpenseAmounts(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db(ctx).QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses;`).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum expense amounts", err)
	}
	return sum, nil
}

func (r *PgxMigrationRepository) LoadCheckpoint(ctx context.Context) (*domain.MigrationCheckpoint, error) {
	query := `SELECT last_legacy_user_id, processed_count, updated_at FROM migration_checkpoints WHERE id = 1;`
	var cp domain.MigrationCheckpoint
	err := r.db(ctx).QueryRow(ctx, query).Scan(&cp.LastLegacyUserID, &cp.ProcessedCount, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewAppError(500, "failed to load migration checkpoint", err)
	}
	return &cp, nil
}

func (r *PgxMigrationRepository) SaveCheckpoint(ctx context.Context, cp domain.MigrationCheckpoint) error {
	query := `
		INSERT INTO migration_checkpoints (id, last_legacy_user_id, processed_count, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			last_legacy_user_id = EXCLUDED.last_legacy_user_id,
			processed_count = EXCLUDED.processed_count,
			updated_at = EXCLUDED.updated_at;
	`
	if _, err := r.db(ctx).Exec(ctx, query, cp.LastLegacyUserID, cp.ProcessedCount, cp.UpdatedAt); err != nil {
		return apperrors.NewAppError(500, "failed to save migration checkpoint", err)
	}
	return nil
}

func (r *PgxMigrationRepository) ClearCheckpoint(ctx context.Context) error {
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM migration_checkpoints WHERE id = 1;`); err != nil {
		return apperrors.NewAppError(500, "failed to clear migration checkpoint", err)
	}
	return nil
}
