package repositories

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Scoped repositories derive the account filter from the tenant context on
// every implicit query and fail with ErrNoTenantSet when it is absent. The
// ...InAccount methods are the explicit, auditable escape hatch: they take the
// tenant as an argument and never read the ambient context.

// ExpenseRepository defines operations for expense rows within the current tenant.
type ExpenseRepository interface {
	// SaveExpense persists a new expense in the current tenant.
	SaveExpense(ctx context.Context, expense domain.Expense) error

	// FindExpenseByID retrieves an expense in the current tenant.
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)

	// ListExpenses retrieves expenses of the current tenant, newest first.
	ListExpenses(ctx context.Context, limit, offset int) ([]domain.Expense, error)

	// UpdateExpense persists changes to an expense in the current tenant.
	UpdateExpense(ctx context.Context, expense *domain.Expense) error

	// DeleteExpense removes an expense in the current tenant.
	DeleteExpense(ctx context.Context, expenseID string) error

	// SumExpenseAmounts totals the current tenant's expense amounts.
	SumExpenseAmounts(ctx context.Context) (decimal.Decimal, error)

	// FindExpenseByIDInAccount is the explicit cross-tenant escape hatch.
	FindExpenseByIDInAccount(ctx context.Context, accountID, expenseID string) (*domain.Expense, error)
}

// CategoryRepository defines operations for category rows within the current tenant.
type CategoryRepository interface {
	// SaveCategory persists a new category in the current tenant.
	SaveCategory(ctx context.Context, category domain.Category) error

	// FindCategoryByID retrieves a category in the current tenant.
	FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error)

	// ListCategories retrieves the current tenant's categories by name.
	ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error)

	// UpdateCategory persists changes to a category in the current tenant.
	UpdateCategory(ctx context.Context, category *domain.Category) error

	// FindCategoryByIDInAccount is the explicit cross-tenant escape hatch.
	FindCategoryByIDInAccount(ctx context.Context, accountID, categoryID string) (*domain.Category, error)

	// FindCategoryOwnerAccount returns the account that owns a category,
	// regardless of tenant scope. Escape hatch used to distinguish a
	// cross-tenant reference from a missing one; every call is audited.
	FindCategoryOwnerAccount(ctx context.Context, categoryID string) (string, error)
}

// BudgetRepository defines operations for budget rows within the current tenant.
type BudgetRepository interface {
	// SaveBudget persists a new budget in the current tenant.
	SaveBudget(ctx context.Context, budget domain.Budget) error

	// FindBudgetByID retrieves a budget in the current tenant.
	FindBudgetByID(ctx context.Context, budgetID string) (*domain.Budget, error)

	// ListBudgets retrieves the current tenant's budgets.
	ListBudgets(ctx context.Context) ([]domain.Budget, error)

	// UpdateBudget persists changes to a budget in the current tenant.
	UpdateBudget(ctx context.Context, budget *domain.Budget) error

	// DeleteBudget removes a budget in the current tenant.
	DeleteBudget(ctx context.Context, budgetID string) error
}

// ScopedRepositoryFacade combines the tenant-scoped entity repositories.
type ScopedRepositoryFacade interface {
	ExpenseRepository
	CategoryRepository
	BudgetRepository
}
