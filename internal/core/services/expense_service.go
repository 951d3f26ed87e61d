package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// expenseService implements the ExpenseSvcFacade interface. Every operation
// runs against the account in the tenant context: creation stamps it, reads
// are filtered by it, and foreign references are validated against it.
type expenseService struct {
	BaseService
	scopedRepo portsrepo.ScopedRepositoryFacade
}

// NewExpenseService creates a new expense service with the provided dependencies
func NewExpenseService(scopedRepo portsrepo.ScopedRepositoryFacade) portssvc.ExpenseSvcFacade {
	return &expenseService{scopedRepo: scopedRepo}
}

// Ensure expenseService implements the ExpenseSvcFacade interface
var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// validateCategoryReference rejects references to categories owned by a
// different account. A reference into another tenant is a
// CrossTenantReferenceViolation, not a not-found: the distinction matters
// because the write must be rejected loudly, never silently corrected.
func (s *expenseService) validateCategoryReference(ctx context.Context, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	ownerID, err := s.scopedRepo.FindCategoryOwnerAccount(ctx, *categoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationFailedError("category " + *categoryID + " does not exist")
		}
		return err
	}
	if ownerID != accountID {
		s.LogWarn(ctx, "Rejected cross-tenant category reference",
			slog.String("category_id", *categoryID),
			slog.String("category_account_id", ownerID),
			slog.String("current_account_id", accountID))
		return apperrors.ErrCrossTenantReference
	}
	return nil
}

// CreateExpense records an expense in the current tenant
func (s *expenseService) CreateExpense(ctx context.Context, creatorUserID string, params portssvc.CreateExpenseParams) (*domain.Expense, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	if params.Amount.IsNegative() {
		return nil, apperrors.NewValidationFailedError("amount must not be negative")
	}
	if err := s.validateCategoryReference(ctx, params.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	expense := domain.Expense{
		ExpenseID:    uuid.NewString(),
		AccountID:    accountID,
		CategoryID:   params.CategoryID,
		Amount:       params.Amount,
		CurrencyCode: params.CurrencyCode,
		Description:  params.Description,
		OccurredOn:   params.OccurredOn,
		AuditFields:  domain.NewAuditFields(creatorUserID, now),
	}
	if err := s.scopedRepo.SaveExpense(ctx, expense); err != nil {
		s.LogError(ctx, err, "Failed to save expense",
			slog.String("expense_id", expense.ExpenseID))
		return nil, err
	}

	s.LogDebug(ctx, "Expense created",
		slog.String("expense_id", expense.ExpenseID),
		slog.String("account_id", accountID))
	return &expense, nil
}

// FindExpenseByID retrieves an expense within the current tenant
func (s *expenseService) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	return s.scopedRepo.FindExpenseByID(ctx, expenseID)
}

// ListExpenses retrieves the current tenant's expenses
func (s *expenseService) ListExpenses(ctx context.Context, limit, offset int) ([]domain.Expense, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	expenses, err := s.scopedRepo.ListExpenses(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		return []domain.Expense{}, nil
	}
	return expenses, nil
}

// UpdateExpense updates an expense in place. The owning account is immutable.
func (s *expenseService) UpdateExpense(ctx context.Context, updaterUserID, expenseID string, params portssvc.CreateExpenseParams) (*domain.Expense, error) {
	expense, err := s.scopedRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if params.Amount.IsNegative() {
		return nil, apperrors.NewValidationFailedError("amount must not be negative")
	}
	if err := s.validateCategoryReference(ctx, params.CategoryID); err != nil {
		return nil, err
	}

	expense.CategoryID = params.CategoryID
	expense.Amount = params.Amount
	expense.CurrencyCode = params.CurrencyCode
	expense.Description = params.Description
	expense.OccurredOn = params.OccurredOn
	expense.Touch(updaterUserID, time.Now())
	if err := s.scopedRepo.UpdateExpense(ctx, expense); err != nil {
		s.LogError(ctx, err, "Failed to update expense",
			slog.String("expense_id", expenseID))
		return nil, err
	}
	return expense, nil
}

// DeleteExpense removes an expense from the current tenant
func (s *expenseService) DeleteExpense(ctx context.Context, expenseID string) error {
	if err := s.scopedRepo.DeleteExpense(ctx, expenseID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to delete expense",
				slog.String("expense_id", expenseID))
		}
		return err
	}
	return nil
}

// SumExpenses totals the current tenant's expense amounts
func (s *expenseService) SumExpenses(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.scopedRepo.SumExpenseAmounts(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// categoryService implements the CategorySvcFacade interface
type categoryService struct {
	BaseService
	scopedRepo portsrepo.ScopedRepositoryFacade
}

// NewCategoryService creates a new category service with the provided dependencies
func NewCategoryService(scopedRepo portsrepo.ScopedRepositoryFacade) portssvc.CategorySvcFacade {
	return &categoryService{scopedRepo: scopedRepo}
}

var _ portssvc.CategorySvcFacade = (*categoryService)(nil)

// CreateCategory creates a category in the current tenant
func (s *categoryService) CreateCategory(ctx context.Context, creatorUserID, name, color string) (*domain.Category, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.NewValidationFailedError("category name is required")
	}

	category := domain.Category{
		CategoryID:  uuid.NewString(),
		AccountID:   accountID,
		Name:        name,
		Color:       color,
		IsActive:    true,
		AuditFields: domain.NewAuditFields(creatorUserID, time.Now()),
	}
	if err := s.scopedRepo.SaveCategory(ctx, category); err != nil {
		s.LogError(ctx, err, "Failed to save category",
			slog.String("category_id", category.CategoryID))
		return nil, err
	}
	return &category, nil
}

// ListCategories retrieves the current tenant's categories
func (s *categoryService) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	categories, err := s.scopedRepo.ListCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		return []domain.Category{}, nil
	}
	return categories, nil
}

// RenameCategory renames a category in the current tenant
func (s *categoryService) RenameCategory(ctx context.Context, updaterUserID, categoryID, name string) (*domain.Category, error) {
	if name == "" {
		return nil, apperrors.NewValidationFailedError("category name is required")
	}
	category, err := s.scopedRepo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Touch(updaterUserID, time.Now())
	if err := s.scopedRepo.UpdateCategory(ctx, category); err != nil {
		s.LogError(ctx, err, "Failed to rename category",
			slog.String("category_id", categoryID))
		return nil, err
	}
	return category, nil
}

// DeactivateCategory hides a category from new expenses
func (s *categoryService) DeactivateCategory(ctx context.Context, updaterUserID, categoryID string) error {
	category, err := s.scopedRepo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if !category.IsActive {
		return nil
	}
	category.IsActive = false
	category.Touch(updaterUserID, time.Now())
	return s.scopedRepo.UpdateCategory(ctx, category)
}

// budgetService implements the BudgetSvcFacade interface
type budgetService struct {
	BaseService
	scopedRepo portsrepo.ScopedRepositoryFacade
}

// NewBudgetService creates a new budget service with the provided dependencies
func NewBudgetService(scopedRepo portsrepo.ScopedRepositoryFacade) portssvc.BudgetSvcFacade {
	return &budgetService{scopedRepo: scopedRepo}
}

var _ portssvc.BudgetSvcFacade = (*budgetService)(nil)

// validateBudgetParams checks amount, period and the category reference.
// Budgets reference categories too; the same closure rule as expenses applies.
func (s *budgetService) validateBudgetParams(ctx context.Context, accountID string, params portssvc.CreateBudgetParams) error {
	if !params.Amount.IsPositive() {
		return apperrors.NewValidationFailedError("budget amount must be positive")
	}
	if params.Period != domain.BudgetPeriodMonthly && params.Period != domain.BudgetPeriodYearly {
		return apperrors.NewValidationFailedError("unknown budget period " + string(params.Period))
	}
	if params.CategoryID != nil {
		ownerID, err := s.scopedRepo.FindCategoryOwnerAccount(ctx, *params.CategoryID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewValidationFailedError("category " + *params.CategoryID + " does not exist")
			}
			return err
		}
		if ownerID != accountID {
			s.LogWarn(ctx, "Rejected cross-tenant category reference on budget",
				slog.String("category_id", *params.CategoryID),
				slog.String("category_account_id", ownerID),
				slog.String("current_account_id", accountID))
			return apperrors.ErrCrossTenantReference
		}
	}
	return nil
}

// CreateBudget creates a budget in the current tenant
func (s *budgetService) CreateBudget(ctx context.Context, creatorUserID string, params portssvc.CreateBudgetParams) (*domain.Budget, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validateBudgetParams(ctx, accountID, params); err != nil {
		return nil, err
	}

	budget := domain.Budget{
		BudgetID:    uuid.NewString(),
		AccountID:   accountID,
		CategoryID:  params.CategoryID,
		Amount:      params.Amount,
		Period:      params.Period,
		StartsOn:    params.StartsOn,
		AuditFields: domain.NewAuditFields(creatorUserID, time.Now()),
	}
	if err := s.scopedRepo.SaveBudget(ctx, budget); err != nil {
		s.LogError(ctx, err, "Failed to save budget",
			slog.String("budget_id", budget.BudgetID))
		return nil, err
	}
	return &budget, nil
}

// UpdateBudget updates a budget in place. The owning account is immutable.
func (s *budgetService) UpdateBudget(ctx context.Context, updaterUserID, budgetID string, params portssvc.CreateBudgetParams) (*domain.Budget, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	budget, err := s.scopedRepo.FindBudgetByID(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if err := s.validateBudgetParams(ctx, accountID, params); err != nil {
		return nil, err
	}

	budget.CategoryID = params.CategoryID
	budget.Amount = params.Amount
	budget.Period = params.Period
	budget.StartsOn = params.StartsOn
	budget.Touch(updaterUserID, time.Now())
	if err := s.scopedRepo.UpdateBudget(ctx, budget); err != nil {
		s.LogError(ctx, err, "Failed to update budget",
			slog.String("budget_id", budgetID))
		return nil, err
	}
	return budget, nil
}

// ListBudgets retrieves the current tenant's budgets
func (s *budgetService) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	budgets, err := s.scopedRepo.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	if budgets == nil {
		return []domain.Budget{}, nil
	}
	return budgets, nil
}

// DeleteBudget removes a budget from the current tenant
func (s *budgetService) DeleteBudget(ctx context.Context, budgetID string) error {
	return s.scopedRepo.DeleteBudget(ctx, budgetID)
}
