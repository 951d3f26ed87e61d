package dto

import (
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Expense DTOs ---

// SaveExpenseRequest defines data for creating or updating an expense.
type SaveExpenseRequest struct {
	CategoryID   *string         `json:"categoryID"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	CurrencyCode string          `json:"currencyCode" binding:"required,iso4217"`
	Description  string          `json:"description"`
	OccurredOn   time.Time       `json:"occurredOn" binding:"required"`
}

// ExpenseResponse defines data returned for an expense.
type ExpenseResponse struct {
	ExpenseID    string          `json:"expenseID"`
	AccountID    string          `json:"accountID"`
	CategoryID   *string         `json:"categoryID,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Description  string          `json:"description"`
	OccurredOn   time.Time       `json:"occurredOn"`
	CreatedAt    time.Time       `json:"createdAt"`
	CreatedBy    string          `json:"createdBy"`
}

// ToExpenseResponse converts domain.Expense to DTO.
func ToExpenseResponse(e *domain.Expense) ExpenseResponse {
	return ExpenseResponse{
		ExpenseID:    e.ExpenseID,
		AccountID:    e.AccountID,
		CategoryID:   e.CategoryID,
		Amount:       e.Amount,
		CurrencyCode: e.CurrencyCode,
		Description:  e.Description,
		OccurredOn:   e.OccurredOn,
		CreatedAt:    e.CreatedAt,
		CreatedBy:    e.CreatedBy,
	}
}

// ExpenseSummaryResponse carries the total of the account's expense amounts.
type ExpenseSummaryResponse struct {
	Total decimal.Decimal `json:"total"`
}

// ListExpensesResponse wraps a list of expenses.
type ListExpensesResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
}

// ToListExpensesResponse converts a slice of domain.Expense to DTO.
func ToListExpensesResponse(expenses []domain.Expense) ListExpensesResponse {
	list := make([]ExpenseResponse, len(expenses))
	for i := range expenses {
		list[i] = ToExpenseResponse(&expenses[i])
	}
	return ListExpensesResponse{Expenses: list}
}
