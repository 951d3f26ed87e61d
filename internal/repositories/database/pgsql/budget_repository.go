package pgsql

import (
	"context"
	"errors"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	"github.com/expensio/expensio-backend/internal/tenant"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxBudgetRepository persists budgets under the ambient tenant filter.
type PgxBudgetRepository struct {
	BaseRepository
}

func newPgxBudgetRepository(pool *pgxpool.Pool) *PgxBudgetRepository {
	return &PgxBudgetRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.BudgetRepository = (*PgxBudgetRepository)(nil)

const budgetSelectColumns = `
	b.budget_id, b.account_id, b.category_id, b.amount, b.period, b.starts_on,
	b.created_at, b.created_by, b.last_updated_at, b.last_updated_by
`

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var b domain.Budget
	err := row.Scan(
		&b.BudgetID, &b.AccountID, &b.CategoryID, &b.Amount, &b.Period, &b.StartsOn,
		&b.CreatedAt, &b.CreatedBy, &b.LastUpdatedAt, &b.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PgxBudgetRepository) SaveBudget(ctx context.Context, budget domain.Budget) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO budgets (
			budget_id, account_id, category_id, amount, period, starts_on,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err = r.db(ctx).Exec(ctx, query,
		budget.BudgetID,
		accountID,
		budget.CategoryID,
		budget.Amount,
		budget.Period,
		budget.StartsOn,
		budget.CreatedAt,
		budget.CreatedBy,
		budget.LastUpdatedAt,
		budget.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return apperrors.NewConflictError("budget ID " + budget.BudgetID + " already exists")
			}
			if pgErr.Code == "23503" {
				return apperrors.NewValidationFailedError("budget references a missing row")
			}
		}
		return apperrors.NewAppError(500, "failed to save budget "+budget.BudgetID, err)
	}
	return nil
}

func (r *PgxBudgetRepository) FindBudgetByID(ctx context.Context, budgetID string) (*domain.Budget, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + budgetSelectColumns + ` FROM budgets b WHERE b.account_id = $1 AND b.budget_id = $2;`
	budget, err := scanBudget(r.db(ctx).QueryRow(ctx, query, accountID, budgetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find budget "+budgetID, err)
	}
	return budget, nil
}

func (r *PgxBudgetRepository) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + budgetSelectColumns + `
		FROM budgets b
		WHERE b.account_id = $1
		ORDER BY b.starts_on DESC;
	`
	rows, err := r.db(ctx).Query(ctx, query, accountID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list budgets", err)
	}
	defer rows.Close()

	var budgets []domain.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan budget row", err)
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read budget rows", err)
	}
	return budgets, nil
}

func (r *PgxBudgetRepository) UpdateBudget(ctx context.Context, budget *domain.Budget) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `
		UPDATE budgets
		SET category_id = $3, amount = $4, period = $5, starts_on = $6,
			last_updated_at = $7, last_updated_by = $8
		WHERE account_id = $1 AND budget_id = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		accountID,
		budget.BudgetID,
		budget.CategoryID,
		budget.Amount,
		budget.Period,
		budget.StartsOn,
		budget.LastUpdatedAt,
		budget.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update budget "+budget.BudgetID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxBudgetRepository) DeleteBudget(ctx context.Context, budgetID string) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `DELETE FROM budgets WHERE account_id = $1 AND budget_id = $2;`
	tag, err := r.db(ctx).Exec(ctx, query, accountID, budgetID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete budget "+budgetID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
