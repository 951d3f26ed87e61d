package services

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// CreateAccountParams carries attributes for creating an account.
type CreateAccountParams struct {
	Name         string
	Slug         string
	Type         domain.AccountType
	CurrencyCode string
	Locale       string
	Timezone     string
}

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// FindAccountByID retrieves a specific account by its ID.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountBySlug retrieves an account by its slug.
	FindAccountBySlug(ctx context.Context, slug string) (*domain.Account, error)

	// ListUserAccounts retrieves accounts the user actively belongs to.
	ListUserAccounts(ctx context.Context, userID string) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccountWithOwner atomically creates the account and its owner
	// membership; if either sub-step fails, neither is persisted.
	CreateAccountWithOwner(ctx context.Context, ownerUserID string, params CreateAccountParams) (*domain.Account, error)

	// UpdateSettings replaces account settings. Requires MANAGE_SETTINGS.
	UpdateSettings(ctx context.Context, requestingUserID, accountID string, settings domain.AccountSettings) (*domain.Account, error)

	// Suspend marks the account suspended. Idempotent. Requires SUSPEND_ACCOUNT.
	Suspend(ctx context.Context, requestingUserID, accountID, reason string) error

	// Reactivate clears suspension. Idempotent. Requires SUSPEND_ACCOUNT.
	Reactivate(ctx context.Context, requestingUserID, accountID string) error
}

// MembershipSvc defines operations for managing account membership
type MembershipSvc interface {
	// AddMember adds a user with the given role. Fails with
	// ErrUserLimitExceeded past the type-derived limit and with
	// ErrDuplicateMembership for an existing (account, user) pair.
	AddMember(ctx context.Context, requestingUserID, targetUserID, accountID string, role domain.Role) (*domain.Membership, error)

	// ChangeRole updates a member's role. Fails with ErrLastOwnerViolation
	// when it would leave the account with zero active owners.
	ChangeRole(ctx context.Context, requestingUserID, membershipID string, newRole domain.Role) error

	// DeactivateMember deactivates a membership. Fails with
	// ErrLastOwnerViolation when it would remove the last active owner.
	DeactivateMember(ctx context.Context, requestingUserID, membershipID string) error

	// ListMembers retrieves the account's memberships. Requires membership.
	ListMembers(ctx context.Context, requestingUserID, accountID string) ([]domain.Membership, error)

	// TouchAccess records that the user accessed the account.
	TouchAccess(ctx context.Context, userID, accountID string) error
}

// AccountAuthorizerSvc defines authorization checks against an account.
type AccountAuthorizerSvc interface {
	// AuthorizeUserAction checks the user holds at least requiredRole in the
	// account. Returns ErrForbidden on denial.
	AuthorizeUserAction(ctx context.Context, userID, accountID string, requiredRole domain.Role) error

	// AuthorizeUserPermission checks the user's membership grants the
	// permission. Returns ErrForbidden on denial.
	AuthorizeUserPermission(ctx context.Context, userID, accountID string, perm domain.Permission) error

	// FindMembership retrieves the caller's membership in the account.
	FindMembership(ctx context.Context, accountID, userID string) (*domain.Membership, error)
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
	MembershipSvc
	AccountAuthorizerSvc
}
