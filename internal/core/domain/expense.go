package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups expenses within one account.
type Category struct {
	CategoryID string `json:"categoryID"` // Primary key (UUID)
	AccountID  string `json:"accountID"`  // Owning tenant; immutable after creation
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	IsActive   bool   `json:"isActive"`
	AuditFields
}

// Expense is a single spend record within one account.
type Expense struct {
	ExpenseID    string          `json:"expenseID"` // Primary key (UUID)
	AccountID    string          `json:"accountID"` // Owning tenant; immutable after creation
	CategoryID   *string         `json:"categoryID,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	Description  string          `json:"description"`
	OccurredOn   time.Time       `json:"occurredOn"`
	AuditFields
}

// BudgetPeriod is the recurrence unit of a budget.
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "MONTHLY"
	BudgetPeriodYearly  BudgetPeriod = "YEARLY"
)

// Budget caps spend for an account, optionally narrowed to one category.
type Budget struct {
	BudgetID   string          `json:"budgetID"`  // Primary key (UUID)
	AccountID  string          `json:"accountID"` // Owning tenant; immutable after creation
	CategoryID *string         `json:"categoryID,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Period     BudgetPeriod    `json:"period"`
	StartsOn   time.Time       `json:"startsOn"`
	AuditFields
}
