package domain

import (
	"regexp"
	"time"
)

// slugPattern accepts lowercase letters, digits and single interior hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a well-formed account slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// AccountType classifies an account (tenant) and determines its member limit.
type AccountType string

const (
	AccountTypePersonal AccountType = "PERSONAL"
	AccountTypeCouple   AccountType = "COUPLE"
	AccountTypeFamily   AccountType = "FAMILY"
	AccountTypeBusiness AccountType = "BUSINESS"
)

// MaxUsers returns the maximum number of active memberships for the account type.
func (t AccountType) MaxUsers() int {
	switch t {
	case AccountTypePersonal:
		return 1
	case AccountTypeCouple:
		return 2
	case AccountTypeFamily:
		return 8
	case AccountTypeBusiness:
		return 50
	default:
		return 1
	}
}

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypePersonal, AccountTypeCouple, AccountTypeFamily, AccountTypeBusiness:
		return true
	}
	return false
}

// AccountSettings holds per-account preferences and feature flags.
type AccountSettings struct {
	CurrencyCode string          `json:"currencyCode"`
	Locale       string          `json:"locale"`
	Timezone     string          `json:"timezone"`
	FeatureFlags map[string]bool `json:"featureFlags,omitempty"`
}

// Account is the tenant root. Every tenant-scoped entity carries its ID.
// Accounts are never hard-deleted while memberships exist; production
// removal is suspension.
type Account struct {
	AccountID       string          `json:"accountID"` // Primary key (UUID)
	Name            string          `json:"name"`
	Slug            string          `json:"slug"` // Unique, URL-safe
	Type            AccountType     `json:"type"`
	Settings        AccountSettings `json:"settings"`
	SuspendedAt     *time.Time      `json:"suspendedAt,omitempty"`
	SuspendedReason string          `json:"suspendedReason,omitempty"`
	AuditFields
	Version int64 `json:"version"` // Optimistic locking
}

// IsSuspended reports whether the account is currently suspended.
func (a *Account) IsSuspended() bool {
	return a.SuspendedAt != nil
}

// Suspend marks the account suspended. Idempotent: a second call keeps the
// original timestamp and reason.
func (a *Account) Suspend(reason string, now time.Time) {
	if a.SuspendedAt != nil {
		return
	}
	a.SuspendedAt = &now
	a.SuspendedReason = reason
}

// Reactivate clears suspension. Idempotent.
func (a *Account) Reactivate() {
	a.SuspendedAt = nil
	a.SuspendedReason = ""
}
