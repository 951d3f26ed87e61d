package services

import (
	"context"
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateExpenseParams carries attributes for recording an expense.
type CreateExpenseParams struct {
	CategoryID   *string
	Amount       decimal.Decimal
	CurrencyCode string
	Description  string
	OccurredOn   time.Time
}

// ExpenseSvcFacade defines tenant-scoped expense operations. The account is
// taken from the tenant context; operations fail with ErrNoTenantSet when it
// is absent and with ErrCrossTenantReference when a referenced category
// belongs to a different account.
type ExpenseSvcFacade interface {
	CreateExpense(ctx context.Context, creatorUserID string, params CreateExpenseParams) (*domain.Expense, error)
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)
	ListExpenses(ctx context.Context, limit, offset int) ([]domain.Expense, error)
	UpdateExpense(ctx context.Context, updaterUserID, expenseID string, params CreateExpenseParams) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, expenseID string) error
	SumExpenses(ctx context.Context) (decimal.Decimal, error)
}

// CategorySvcFacade defines tenant-scoped category operations.
type CategorySvcFacade interface {
	CreateCategory(ctx context.Context, creatorUserID, name, color string) (*domain.Category, error)
	ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error)
	RenameCategory(ctx context.Context, updaterUserID, categoryID, name string) (*domain.Category, error)
	DeactivateCategory(ctx context.Context, updaterUserID, categoryID string) error
}

// CreateBudgetParams carries attributes for creating a budget.
type CreateBudgetParams struct {
	CategoryID *string
	Amount     decimal.Decimal
	Period     domain.BudgetPeriod
	StartsOn   time.Time
}

// BudgetSvcFacade defines tenant-scoped budget operations.
type BudgetSvcFacade interface {
	CreateBudget(ctx context.Context, creatorUserID string, params CreateBudgetParams) (*domain.Budget, error)
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	UpdateBudget(ctx context.Context, updaterUserID, budgetID string, params CreateBudgetParams) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, budgetID string) error
}
