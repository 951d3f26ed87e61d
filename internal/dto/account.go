package dto

import (
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// --- Account DTOs ---

// CreateAccountRequest defines data for creating a new account.
type CreateAccountRequest struct {
	Name         string `json:"name" binding:"required"`
	Slug         string `json:"slug" binding:"required,accountslug"`
	Type         string `json:"type" binding:"required,oneof=PERSONAL COUPLE FAMILY BUSINESS"`
	CurrencyCode string `json:"currencyCode" binding:"required,iso4217"`
	Locale       string `json:"locale"`
	Timezone     string `json:"timezone"`
}

// UpdateAccountSettingsRequest defines data for replacing account settings.
type UpdateAccountSettingsRequest struct {
	CurrencyCode string          `json:"currencyCode" binding:"required,iso4217"`
	Locale       string          `json:"locale"`
	Timezone     string          `json:"timezone"`
	FeatureFlags map[string]bool `json:"featureFlags"`
}

// SuspendAccountRequest defines data for suspending an account.
type SuspendAccountRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AccountResponse defines data returned for an account.
type AccountResponse struct {
	AccountID       string                 `json:"accountID"`
	Name            string                 `json:"name"`
	Slug            string                 `json:"slug"`
	Type            domain.AccountType     `json:"type"`
	MaxUsers        int                    `json:"maxUsers"`
	Settings        domain.AccountSettings `json:"settings"`
	SuspendedAt     *time.Time             `json:"suspendedAt,omitempty"`
	SuspendedReason string                 `json:"suspendedReason,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// ToAccountResponse converts domain.Account to DTO.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:       a.AccountID,
		Name:            a.Name,
		Slug:            a.Slug,
		Type:            a.Type,
		MaxUsers:        a.Type.MaxUsers(),
		Settings:        a.Settings,
		SuspendedAt:     a.SuspendedAt,
		SuspendedReason: a.SuspendedReason,
		CreatedAt:       a.CreatedAt,
	}
}

// ListAccountsResponse wraps a list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// ToListAccountsResponse converts a slice of domain.Account to DTO.
func ToListAccountsResponse(accounts []domain.Account) ListAccountsResponse {
	list := make([]AccountResponse, len(accounts))
	for i := range accounts {
		list[i] = ToAccountResponse(&accounts[i])
	}
	return ListAccountsResponse{Accounts: list}
}
