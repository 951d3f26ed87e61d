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
	"github.com/shopspring/decimal"
)

// PgxExpenseRepository persists expenses. Every implicit query intersects
// with the account in the tenant context; there is no code path here that
// returns expense rows without that filter.
type PgxExpenseRepository struct {
	BaseRepository
}

func newPgxExpenseRepository(pool *pgxpool.Pool) *PgxExpenseRepository {
	return &PgxExpenseRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ExpenseRepository = (*PgxExpenseRepository)(nil)

const expenseSelectColumns = `
	e.expense_id, e.account_id, e.category_id, e.amount, e.currency_code,
	e.description, e.occurred_on,
	e.created_at, e.created_by, e.last_updated_at, e.last_updated_by
`

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(
		&e.ExpenseID, &e.AccountID, &e.CategoryID, &e.Amount, &e.CurrencyCode,
		&e.Description, &e.OccurredOn,
		&e.CreatedAt, &e.CreatedBy, &e.LastUpdatedAt, &e.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO expenses (
			expense_id, account_id, category_id, amount, currency_code,
			description, occurred_on,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err = r.db(ctx).Exec(ctx, query,
		expense.ExpenseID,
		accountID,
		expense.CategoryID,
		expense.Amount,
		expense.CurrencyCode,
		expense.Description,
		expense.OccurredOn,
		expense.CreatedAt,
		expense.CreatedBy,
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return apperrors.NewConflictError("expense ID " + expense.ExpenseID + " already exists")
			}
			if pgErr.Code == "23503" {
				return apperrors.NewValidationFailedError("expense references a missing row")
			}
		}
		return apperrors.NewAppError(500, "failed to save expense "+expense.ExpenseID, err)
	}
	return nil
}

func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + expenseSelectColumns + ` FROM expenses e WHERE e.account_id = $1 AND e.expense_id = $2;`
	expense, err := scanExpense(r.db(ctx).QueryRow(ctx, query, accountID, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find expense "+expenseID, err)
	}
	return expense, nil
}

func (r *PgxExpenseRepository) ListExpenses(ctx context.Context, limit, offset int) ([]domain.Expense, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + expenseSelectColumns + `
		FROM expenses e
		WHERE e.account_id = $1
		ORDER BY e.occurred_on DESC, e.expense_id
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.db(ctx).Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list expenses", err)
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan expense row", err)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read expense rows", err)
	}
	return expenses, nil
}

func (r *PgxExpenseRepository) UpdateExpense(ctx context.Context, expense *domain.Expense) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	// account_id is immutable; the filter doubles as the scope check.
	query := `
		UPDATE expenses
		SET category_id = $3, amount = $4, currency_code = $5,
			description = $6, occurred_on = $7, last_updated_at = $8, last_updated_by = $9
		WHERE account_id = $1 AND expense_id = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		accountID,
		expense.ExpenseID,
		expense.CategoryID,
		expense.Amount,
		expense.CurrencyCode,
		expense.Description,
		expense.OccurredOn,
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update expense "+expense.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxExpenseRepository) DeleteExpense(ctx context.Context, expenseID string) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `DELETE FROM expenses WHERE account_id = $1 AND expense_id = $2;`
	tag, err := r.db(ctx).Exec(ctx, query, accountID, expenseID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete expense "+expenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxExpenseRepository) SumExpenseAmounts(ctx context.Context) (decimal.Decimal, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	query := `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE account_id = $1;`
	var sum decimal.Decimal
	if err := r.db(ctx).QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum expenses", err)
	}
	return sum, nil
}

// FindExpenseByIDInAccount bypasses the ambient tenant filter with an
// explicit account argument. Audited on every call.
func (r *PgxExpenseRepository) FindExpenseByIDInAccount(ctx context.Context, accountID, expenseID string) (*domain.Expense, error) {
	auditUnscopedAccess(ctx, "FindExpenseByIDInAccount", expenseID)
	query := `SELECT ` + expenseSelectColumns + ` FROM expenses e WHERE e.account_id = $1 AND e.expense_id = $2;`
	expense, err := scanExpense(r.db(ctx).QueryRow(ctx, query, accountID, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find expense "+expenseID, err)
	}
	return expense, nil
}
