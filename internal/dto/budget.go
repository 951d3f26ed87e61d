package dto

import (
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Budget DTOs ---

// SaveBudgetRequest defines data for creating a budget.
type SaveBudgetRequest struct {
	CategoryID *string             `json:"categoryID"`
	Amount     decimal.Decimal     `json:"amount" binding:"required"`
	Period     domain.BudgetPeriod `json:"period" binding:"required,oneof=MONTHLY YEARLY"`
	StartsOn   time.Time           `json:"startsOn" binding:"required"`
}

// BudgetResponse defines data returned for a budget.
type BudgetResponse struct {
	BudgetID   string              `json:"budgetID"`
	AccountID  string              `json:"accountID"`
	CategoryID *string             `json:"categoryID,omitempty"`
	Amount     decimal.Decimal     `json:"amount"`
	Period     domain.BudgetPeriod `json:"period"`
	StartsOn   time.Time           `json:"startsOn"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// ToBudgetResponse converts domain.Budget to DTO.
func ToBudgetResponse(b *domain.Budget) BudgetResponse {
	return BudgetResponse{
		BudgetID:   b.BudgetID,
		AccountID:  b.AccountID,
		CategoryID: b.CategoryID,
		Amount:     b.Amount,
		Period:     b.Period,
		StartsOn:   b.StartsOn,
		CreatedAt:  b.CreatedAt,
	}
}

// ListBudgetsResponse wraps a list of budgets.
type ListBudgetsResponse struct {
	Budgets []BudgetResponse `json:"budgets"`
}

// ToListBudgetsResponse converts a slice of domain.Budget to DTO.
func ToListBudgetsResponse(budgets []domain.Budget) ListBudgetsResponse {
	list := make([]BudgetResponse, len(budgets))
	for i := range budgets {
		list[i] = ToBudgetResponse(&budgets[i])
	}
	return ListBudgetsResponse{Budgets: list}
}
