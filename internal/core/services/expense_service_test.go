package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/core/services"
	"github.com/expensio/expensio-backend/internal/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock ScopedRepository ---
type MockScopedRepository struct {
	mock.Mock
}

func (m *MockScopedRepository) SaveExpense(ctx context.Context, expense domain.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockScopedRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	var expense *domain.Expense
	if args.Get(0) != nil {
		expense = args.Get(0).(*domain.Expense)
	}
	return expense, args.Error(1)
}

func (m *MockScopedRepository) ListExpenses(ctx context.Context, limit, offset int) ([]domain.Expense, error) {
	args := m.Called(ctx, limit, offset)
	var expenses []domain.Expense
	if args.Get(0) != nil {
		expenses = args.Get(0).([]domain.Expense)
	}
	return expenses, args.Error(1)
}

func (m *MockScopedRepository) UpdateExpense(ctx context.Context, expense *domain.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockScopedRepository) DeleteExpense(ctx context.Context, expenseID string) error {
	args := m.Called(ctx, expenseID)
	return args.Error(0)
}

func (m *MockScopedRepository) SumExpenseAmounts(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockScopedRepository) FindExpenseByIDInAccount(ctx context.Context, accountID, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, accountID, expenseID)
	var expense *domain.Expense
	if args.Get(0) != nil {
		expense = args.Get(0).(*domain.Expense)
	}
	return expense, args.Error(1)
}

func (m *MockScopedRepository) SaveCategory(ctx context.Context, category domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockScopedRepository) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	args := m.Called(ctx, categoryID)
	var category *domain.Category
	if args.Get(0) != nil {
		category = args.Get(0).(*domain.Category)
	}
	return category, args.Error(1)
}

func (m *MockScopedRepository) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	args := m.Called(ctx, includeInactive)
	var categories []domain.Category
	if args.Get(0) != nil {
		categories = args.Get(0).([]domain.Category)
	}
	return categories, args.Error(1)
}

func (m *MockScopedRepository) UpdateCategory(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockScopedRepository) FindCategoryByIDInAccount(ctx context.Context, accountID, categoryID string) (*domain.Category, error) {
	args := m.Called(ctx, accountID, categoryID)
	var category *domain.Category
	if args.Get(0) != nil {
		category = args.Get(0).(*domain.Category)
	}
	return category, args.Error(1)
}

func (m *MockScopedRepository) FindCategoryOwnerAccount(ctx context.Context, categoryID string) (string, error) {
	args := m.Called(ctx, categoryID)
	return args.String(0), args.Error(1)
}

func (m *MockScopedRepository) SaveBudget(ctx context.Context, budget domain.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *MockScopedRepository) FindBudgetByID(ctx context.Context, budgetID string) (*domain.Budget, error) {
	args := m.Called(ctx, budgetID)
	var budget *domain.Budget
	if args.Get(0) != nil {
		budget = args.Get(0).(*domain.Budget)
	}
	return budget, args.Error(1)
}

func (m *MockScopedRepository) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	args := m.Called(ctx)
	var budgets []domain.Budget
	if args.Get(0) != nil {
		budgets = args.Get(0).([]domain.Budget)
	}
	return budgets, args.Error(1)
}

func (m *MockScopedRepository) UpdateBudget(ctx context.Context, budget *domain.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *MockScopedRepository) DeleteBudget(ctx context.Context, budgetID string) error {
	args := m.Called(ctx, budgetID)
	return args.Error(0)
}

// --- Test Suite ---
type ExpenseServiceTestSuite struct {
	suite.Suite
	mockScopedRepo *MockScopedRepository
	service        portssvc.ExpenseSvcFacade
	budgetService  portssvc.BudgetSvcFacade
}

func (suite *ExpenseServiceTestSuite) SetupTest() {
	suite.mockScopedRepo = new(MockScopedRepository)
	suite.service = services.NewExpenseService(suite.mockScopedRepo)
	suite.budgetService = services.NewBudgetService(suite.mockScopedRepo)
}

func (suite *ExpenseServiceTestSuite) expenseParams(categoryID *string) portssvc.CreateExpenseParams {
	return portssvc.CreateExpenseParams{
		CategoryID:   categoryID,
		Amount:       decimal.NewFromFloat(12.50),
		CurrencyCode: "EUR",
		Description:  "groceries",
		OccurredOn:   time.Now(),
	}
}

// --- CreateExpense Tests ---

func (suite *ExpenseServiceTestSuite) TestCreateExpense_NoTenantSet() {
	// Plain background context: the tenant was never established.
	expense, err := suite.service.CreateExpense(context.Background(), "user-1", suite.expenseParams(nil))

	suite.Require().ErrorIs(err, apperrors.ErrNoTenantSet)
	suite.Nil(expense)
	suite.mockScopedRepo.AssertNotCalled(suite.T(), "SaveExpense", mock.Anything, mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_StampsCurrentTenant() {
	ctx := tenant.With(context.Background(), "acc-1")

	suite.mockScopedRepo.On("SaveExpense", ctx, mock.MatchedBy(func(e domain.Expense) bool {
		return e.AccountID == "acc-1" && e.Description == "groceries"
	})).Return(nil).Once()

	expense, err := suite.service.CreateExpense(ctx, "user-1", suite.expenseParams(nil))

	suite.Require().NoError(err)
	suite.Equal("acc-1", expense.AccountID)
	suite.mockScopedRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_CrossTenantCategoryRejected() {
	ctx := tenant.With(context.Background(), "acc-1")
	categoryID := "cat-other"

	// The category exists but belongs to a different account. The write must
	// fail loudly, not be silently corrected.
	suite.mockScopedRepo.On("FindCategoryOwnerAccount", ctx, categoryID).Return("acc-2", nil).Once()

	expense, err := suite.service.CreateExpense(ctx, "user-1", suite.expenseParams(&categoryID))

	suite.Require().ErrorIs(err, apperrors.ErrCrossTenantReference)
	suite.Nil(expense)
	suite.mockScopedRepo.AssertNotCalled(suite.T(), "SaveExpense", mock.Anything, mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_MissingCategoryIsValidation() {
	ctx := tenant.With(context.Background(), "acc-1")
	categoryID := "cat-missing"

	suite.mockScopedRepo.On("FindCategoryOwnerAccount", ctx, categoryID).
		Return("", apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateExpense(ctx, "user-1", suite.expenseParams(&categoryID))

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.NotErrorIs(err, apperrors.ErrCrossTenantReference)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_SameTenantCategoryAllowed() {
	ctx := tenant.With(context.Background(), "acc-1")
	categoryID := "cat-mine"

	suite.mockScopedRepo.On("FindCategoryOwnerAccount", ctx, categoryID).Return("acc-1", nil).Once()
	suite.mockScopedRepo.On("SaveExpense", ctx, mock.Anything).Return(nil).Once()

	expense, err := suite.service.CreateExpense(ctx, "user-1", suite.expenseParams(&categoryID))

	suite.Require().NoError(err)
	suite.Require().NotNil(expense.CategoryID)
	suite.Equal(categoryID, *expense.CategoryID)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_NegativeAmount() {
	ctx := tenant.With(context.Background(), "acc-1")
	params := suite.expenseParams(nil)
	params.Amount = decimal.NewFromInt(-5)

	_, err := suite.service.CreateExpense(ctx, "user-1", params)

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

// --- UpdateExpense Tests ---

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_CrossTenantCategoryRejected() {
	ctx := tenant.With(context.Background(), "acc-1")
	categoryID := "cat-other"
	existing := &domain.Expense{ExpenseID: "exp-1", AccountID: "acc-1", Amount: decimal.NewFromInt(10)}

	suite.mockScopedRepo.On("FindExpenseByID", ctx, "exp-1").Return(existing, nil).Once()
	suite.mockScopedRepo.On("FindCategoryOwnerAccount", ctx, categoryID).Return("acc-2", nil).Once()

	_, err := suite.service.UpdateExpense(ctx, "user-1", "exp-1", suite.expenseParams(&categoryID))

	suite.Require().ErrorIs(err, apperrors.ErrCrossTenantReference)
	suite.mockScopedRepo.AssertNotCalled(suite.T(), "UpdateExpense", mock.Anything, mock.Anything)
}

// --- Summary Tests ---

func (suite *ExpenseServiceTestSuite) TestSumExpenses() {
	ctx := tenant.With(context.Background(), "acc-1")

	suite.mockScopedRepo.On("SumExpenseAmounts", ctx).
		Return(decimal.NewFromFloat(123.45), nil).Once()

	total, err := suite.service.SumExpenses(ctx)

	suite.Require().NoError(err)
	suite.True(total.Equal(decimal.NewFromFloat(123.45)))
	suite.mockScopedRepo.AssertExpectations(suite.T())
}

// --- Budget Tests ---

func (suite *ExpenseServiceTestSuite) TestCreateBudget_CrossTenantCategoryRejected() {
	ctx := tenant.With(context.Background(), "acc-1")
	categoryID := "cat-other"

	suite.mockScopedRepo.On("FindCategoryOwnerAccount", ctx, categoryID).Return("acc-2", nil).Once()

	budget, err := suite.budgetService.CreateBudget(ctx, "user-1", portssvc.CreateBudgetParams{
		CategoryID: &categoryID,
		Amount:     decimal.NewFromInt(300),
		Period:     domain.BudgetPeriodMonthly,
		StartsOn:   time.Now(),
	})

	suite.Require().ErrorIs(err, apperrors.ErrCrossTenantReference)
	suite.Nil(budget)
}

func (suite *ExpenseServiceTestSuite) TestCreateBudget_UnknownPeriod() {
	ctx := tenant.With(context.Background(), "acc-1")

	_, err := suite.budgetService.CreateBudget(ctx, "user-1", portssvc.CreateBudgetParams{
		Amount:   decimal.NewFromInt(300),
		Period:   domain.BudgetPeriod("WEEKLY"),
		StartsOn: time.Now(),
	})

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ExpenseServiceTestSuite) TestUpdateBudget_CrossTenantCategoryRejected() {
	ctx := tenant.With(context.Background(), "acc-1")
	categoryID := "cat-other"
	existing := &domain.Budget{BudgetID: "bud-1", AccountID: "acc-1", Amount: decimal.NewFromInt(100), Period: domain.BudgetPeriodMonthly}

	suite.mockScopedRepo.On("FindBudgetByID", ctx, "bud-1").Return(existing, nil).Once()
	suite.mockScopedRepo.On("FindCategoryOwnerAccount", ctx, categoryID).Return("acc-2", nil).Once()

	_, err := suite.budgetService.UpdateBudget(ctx, "user-1", "bud-1", portssvc.CreateBudgetParams{
		CategoryID: &categoryID,
		Amount:     decimal.NewFromInt(250),
		Period:     domain.BudgetPeriodMonthly,
		StartsOn:   time.Now(),
	})

	suite.Require().ErrorIs(err, apperrors.ErrCrossTenantReference)
	suite.mockScopedRepo.AssertNotCalled(suite.T(), "UpdateBudget", mock.Anything, mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestUpdateBudget_Success() {
	ctx := tenant.With(context.Background(), "acc-1")
	existing := &domain.Budget{BudgetID: "bud-1", AccountID: "acc-1", Amount: decimal.NewFromInt(100), Period: domain.BudgetPeriodMonthly}

	suite.mockScopedRepo.On("FindBudgetByID", ctx, "bud-1").Return(existing, nil).Once()
	suite.mockScopedRepo.On("UpdateBudget", ctx, mock.MatchedBy(func(b *domain.Budget) bool {
		return b.BudgetID == "bud-1" && b.Amount.Equal(decimal.NewFromInt(250)) &&
			b.Period == domain.BudgetPeriodYearly && b.LastUpdatedBy == "user-1"
	})).Return(nil).Once()

	budget, err := suite.budgetService.UpdateBudget(ctx, "user-1", "bud-1", portssvc.CreateBudgetParams{
		Amount:   decimal.NewFromInt(250),
		Period:   domain.BudgetPeriodYearly,
		StartsOn: time.Now(),
	})

	suite.Require().NoError(err)
	suite.True(budget.Amount.Equal(decimal.NewFromInt(250)))
	suite.mockScopedRepo.AssertExpectations(suite.T())
}

func TestExpenseServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExpenseServiceTestSuite))
}
