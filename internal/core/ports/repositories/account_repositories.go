package repositories

import (
	"context"
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// AccountReader defines read operations for account (tenant) data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its ID.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountBySlug retrieves an account by its unique URL-safe slug.
	FindAccountBySlug(ctx context.Context, slug string) (*domain.Account, error)

	// ListAccountsByUserID retrieves all accounts a user has an active membership in.
	ListAccountsByUserID(ctx context.Context, userID string) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccountSettings replaces the account's settings map.
	UpdateAccountSettings(ctx context.Context, account *domain.Account) error

	// UpdateAccountSuspension persists the suspension state of an account.
	UpdateAccountSuspension(ctx context.Context, account *domain.Account) error
}

// MembershipManager defines operations for membership rows. The owner
// invariant is enforced by the account service composing these inside a
// transaction; LockAccountMemberships serializes concurrent mutations so two
// demotions cannot both observe "not the last owner".
type MembershipManager interface {
	// SaveMembership persists a new membership. Fails with ErrDuplicateMembership
	// when the (account, user) pair already exists.
	SaveMembership(ctx context.Context, membership domain.Membership) error

	// FindMembership retrieves the membership for a user in an account.
	FindMembership(ctx context.Context, accountID, userID string) (*domain.Membership, error)

	// FindMembershipByID retrieves a membership by its ID.
	FindMembershipByID(ctx context.Context, membershipID string) (*domain.Membership, error)

	// ListMemberships retrieves all memberships of an account, joined with user names.
	ListMemberships(ctx context.Context, accountID string, includeInactive bool) ([]domain.Membership, error)

	// CountActiveMemberships counts active memberships of an account.
	CountActiveMemberships(ctx context.Context, accountID string) (int, error)

	// CountActiveOwners counts active owner memberships of an account,
	// excluding the given membership ID (empty string excludes nothing).
	CountActiveOwners(ctx context.Context, accountID, excludeMembershipID string) (int, error)

	// LockAccountMemberships takes row locks on the account's membership rows
	// for the duration of the surrounding transaction.
	LockAccountMemberships(ctx context.Context, accountID string) error

	// UpdateMembershipRole updates a membership's role.
	UpdateMembershipRole(ctx context.Context, membershipID string, role domain.Role) error

	// UpdateMembershipActive flips a membership's active flag.
	UpdateMembershipActive(ctx context.Context, membershipID string, active bool) error

	// UpdateMembershipPermissions replaces the membership's extra permission grants.
	UpdateMembershipPermissions(ctx context.Context, membershipID string, perms []domain.Permission) error

	// TouchMembershipAccess records when the member last accessed the account.
	TouchMembershipAccess(ctx context.Context, membershipID string, at time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	MembershipManager
}

// AccountRepositoryWithTx extends AccountRepositoryFacade with transaction capabilities
type AccountRepositoryWithTx interface {
	AccountRepositoryFacade
	TransactionManager
	TxRunner
}
