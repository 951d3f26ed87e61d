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
	"github.com/google/uuid"
)

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryWithTx
}

// NewAccountService creates a new account service with the provided dependencies
func NewAccountService(accountRepo portsrepo.AccountRepositoryWithTx) portssvc.AccountSvcFacade {
	return &accountService{
		accountRepo: accountRepo,
	}
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// FindAccountByID retrieves an account by its ID
func (s *accountService) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by ID",
				slog.String("account_id", accountID))
		}
		return nil, err
	}
	return account, nil
}

// FindAccountBySlug retrieves an account by its slug
func (s *accountService) FindAccountBySlug(ctx context.Context, slug string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by slug",
				slog.String("slug", slug))
		}
		return nil, err
	}
	return account, nil
}

// ListUserAccounts retrieves all accounts a user actively belongs to
func (s *accountService) ListUserAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccountsByUserID(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts for user",
			slog.String("user_id", userID))
		return nil, err
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

// CreateAccountWithOwner creates the account and its owner membership in one
// transaction; if either write fails, neither is persisted.
func (s *accountService) CreateAccountWithOwner(ctx context.Context, ownerUserID string, params portssvc.CreateAccountParams) (*domain.Account, error) {
	if !params.Type.Valid() {
		return nil, apperrors.NewValidationFailedError("unknown account type " + string(params.Type))
	}
	// The binding layer validates slugs too; services called outside HTTP
	// still get the same rule.
	if !domain.ValidSlug(params.Slug) {
		return nil, apperrors.NewValidationFailedError("slug must be lowercase letters, digits and hyphens")
	}

	now := time.Now()
	account := domain.Account{
		AccountID: uuid.NewString(),
		Name:      params.Name,
		Slug:      params.Slug,
		Type:      params.Type,
		Settings: domain.AccountSettings{
			CurrencyCode: params.CurrencyCode,
			Locale:       params.Locale,
			Timezone:     params.Timezone,
		},
		AuditFields: domain.NewAuditFields(ownerUserID, now),
		Version:     1,
	}
	membership := domain.Membership{
		MembershipID: uuid.NewString(),
		AccountID:    account.AccountID,
		UserID:       ownerUserID,
		Role:         domain.RoleOwner,
		IsActive:     true,
		JoinedAt:     now,
	}

	err := s.accountRepo.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.SaveAccount(txCtx, account); err != nil {
			return err
		}
		return s.accountRepo.SaveMembership(txCtx, membership)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create account with owner",
			slog.String("account_id", account.AccountID),
			slog.String("owner_user_id", ownerUserID))
		return nil, err
	}

	s.LogInfo(ctx, "Account created",
		slog.String("account_id", account.AccountID),
		slog.String("slug", account.Slug),
		slog.String("owner_user_id", ownerUserID))
	return &account, nil
}

// UpdateSettings replaces the account settings
func (s *accountService) UpdateSettings(ctx context.Context, requestingUserID, accountID string, settings domain.AccountSettings) (*domain.Account, error) {
	if err := s.AuthorizeUserPermission(ctx, requestingUserID, accountID, domain.PermManageSettings); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	account.Settings = settings
	account.Touch(requestingUserID, time.Now())
	if err := s.accountRepo.UpdateAccountSettings(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to update account settings",
			slog.String("account_id", accountID))
		return nil, err
	}
	return account, nil
}

// Suspend marks the account suspended. Idempotent; data is retained.
func (s *accountService) Suspend(ctx context.Context, requestingUserID, accountID, reason string) error {
	if err := s.AuthorizeUserPermission(ctx, requestingUserID, accountID, domain.PermSuspendAccount); err != nil {
		return err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.IsSuspended() {
		return nil
	}

	account.Suspend(reason, time.Now())
	account.Touch(requestingUserID, time.Now())
	if err := s.accountRepo.UpdateAccountSuspension(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to suspend account",
			slog.String("account_id", accountID))
		return err
	}

	s.LogInfo(ctx, "Account suspended",
		slog.String("account_id", accountID),
		slog.String("reason", reason))
	return nil
}

// Reactivate clears account suspension. Idempotent.
func (s *accountService) Reactivate(ctx context.Context, requestingUserID, accountID string) error {
	if err := s.AuthorizeUserPermission(ctx, requestingUserID, accountID, domain.PermSuspendAccount); err != nil {
		return err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.IsSuspended() {
		return nil
	}

	account.Reactivate()
	account.Touch(requestingUserID, time.Now())
	if err := s.accountRepo.UpdateAccountSuspension(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to reactivate account",
			slog.String("account_id", accountID))
		return err
	}

	s.LogInfo(ctx, "Account reactivated", slog.String("account_id", accountID))
	return nil
}

// AddMember adds a user to an account with the given role
func (s *accountService) AddMember(ctx context.Context, requestingUserID, targetUserID, accountID string, role domain.Role) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationFailedError("unknown role " + string(role))
	}
	// Self-assignment is not a thing here: new members join via invitation
	// or an admin adding them directly.
	if err := s.AuthorizeUserPermission(ctx, requestingUserID, accountID, domain.PermManageMembers); err != nil {
		s.LogWarn(ctx, "User not authorized to add members",
			slog.String("requesting_user_id", requestingUserID),
			slog.String("account_id", accountID))
		return nil, err
	}
	// Granting owner requires being an owner, not just an admin.
	if role == domain.RoleOwner {
		if err := s.AuthorizeUserAction(ctx, requestingUserID, accountID, domain.RoleOwner); err != nil {
			return nil, err
		}
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	membership := domain.Membership{
		MembershipID: uuid.NewString(),
		AccountID:    accountID,
		UserID:       targetUserID,
		Role:         role,
		IsActive:     true,
		JoinedAt:     time.Now(),
	}

	// The limit check and the insert run under the same per-account lock so
	// two concurrent adds cannot both observe a free seat.
	err = s.accountRepo.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.LockAccountMemberships(txCtx, accountID); err != nil {
			return err
		}
		if existing, err := s.accountRepo.FindMembership(txCtx, accountID, targetUserID); err == nil && existing != nil {
			return apperrors.ErrDuplicateMembership
		} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		active, err := s.accountRepo.CountActiveMemberships(txCtx, accountID)
		if err != nil {
			return err
		}
		if active >= account.Type.MaxUsers() {
			return apperrors.ErrUserLimitExceeded
		}
		return s.accountRepo.SaveMembership(txCtx, membership)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateMembership) || errors.Is(err, apperrors.ErrUserLimitExceeded) {
			return nil, err
		}
		s.LogError(ctx, err, "Failed to add member",
			slog.String("account_id", accountID),
			slog.String("target_user_id", targetUserID))
		return nil, err
	}

	s.LogInfo(ctx, "Member added",
		slog.String("account_id", accountID),
		slog.String("target_user_id", targetUserID),
		slog.String("role", string(role)))
	return &membership, nil
}

// ChangeRole updates a member's role, preserving the owner invariant
func (s *accountService) ChangeRole(ctx context.Context, requestingUserID, membershipID string, newRole domain.Role) error {
	if !newRole.Valid() {
		return apperrors.NewValidationFailedError("unknown role " + string(newRole))
	}

	membership, err := s.accountRepo.FindMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if err := s.AuthorizeUserPermission(ctx, requestingUserID, membership.AccountID, domain.PermManageMembers); err != nil {
		return err
	}

	var priorRole domain.Role
	err = s.accountRepo.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.LockAccountMemberships(txCtx, membership.AccountID); err != nil {
			return err
		}
		// The pre-lock read only routed authorization to the right account; a
		// concurrent promotion could have changed the role since. Every
		// decision below runs against the row as it exists under the lock.
		current, err := s.accountRepo.FindMembershipByID(txCtx, membershipID)
		if err != nil {
			return err
		}
		priorRole = current.Role
		// Promoting to or demoting from owner is owner-only.
		if newRole == domain.RoleOwner || current.Role == domain.RoleOwner {
			if err := s.AuthorizeUserAction(txCtx, requestingUserID, current.AccountID, domain.RoleOwner); err != nil {
				return err
			}
		}
		if current.Role == newRole {
			return nil
		}
		// Demoting an active owner: reject when no other active owner remains.
		if current.Role == domain.RoleOwner && current.IsActive && newRole != domain.RoleOwner {
			others, err := s.accountRepo.CountActiveOwners(txCtx, current.AccountID, current.MembershipID)
			if err != nil {
				return err
			}
			if others == 0 {
				return apperrors.ErrLastOwnerViolation
			}
		}
		return s.accountRepo.UpdateMembershipRole(txCtx, membershipID, newRole)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrLastOwnerViolation) || errors.Is(err, apperrors.ErrForbidden) {
			return err
		}
		s.LogError(ctx, err, "Failed to change member role",
			slog.String("membership_id", membershipID),
			slog.String("new_role", string(newRole)))
		return err
	}

	s.LogInfo(ctx, "Member role changed",
		slog.String("membership_id", membershipID),
		slog.String("account_id", membership.AccountID),
		slog.String("old_role", string(priorRole)),
		slog.String("new_role", string(newRole)))
	return nil
}

// DeactivateMember deactivates a membership, preserving the owner invariant
func (s *accountService) DeactivateMember(ctx context.Context, requestingUserID, membershipID string) error {
	membership, err := s.accountRepo.FindMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	// Members may deactivate themselves (leave); anyone else needs MANAGE_MEMBERS.
	if membership.UserID != requestingUserID {
		if err := s.AuthorizeUserPermission(ctx, requestingUserID, membership.AccountID, domain.PermManageMembers); err != nil {
			return err
		}
	}
	err = s.accountRepo.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.LockAccountMemberships(txCtx, membership.AccountID); err != nil {
			return err
		}
		// Re-read under the lock so the no-op and owner checks see a role or
		// active flag that changed since the routing read above.
		current, err := s.accountRepo.FindMembershipByID(txCtx, membershipID)
		if err != nil {
			return err
		}
		if !current.IsActive {
			return nil
		}
		if current.Role == domain.RoleOwner {
			others, err := s.accountRepo.CountActiveOwners(txCtx, current.AccountID, current.MembershipID)
			if err != nil {
				return err
			}
			if others == 0 {
				return apperrors.ErrLastOwnerViolation
			}
		}
		return s.accountRepo.UpdateMembershipActive(txCtx, membershipID, false)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrLastOwnerViolation) {
			return err
		}
		s.LogError(ctx, err, "Failed to deactivate member",
			slog.String("membership_id", membershipID))
		return err
	}

	s.LogInfo(ctx, "Member deactivated",
		slog.String("membership_id", membershipID),
		slog.String("account_id", membership.AccountID))
	return nil
}

// ListMembers retrieves the account's memberships
func (s *accountService) ListMembers(ctx context.Context, requestingUserID, accountID string) ([]domain.Membership, error) {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, accountID, domain.RoleViewer); err != nil {
		return nil, err
	}
	members, err := s.accountRepo.ListMemberships(ctx, accountID, false)
	if err != nil {
		s.LogError(ctx, err, "Failed to list members",
			slog.String("account_id", accountID))
		return nil, err
	}
	if members == nil {
		return []domain.Membership{}, nil
	}
	return members, nil
}

// TouchAccess records when the user last accessed the account
func (s *accountService) TouchAccess(ctx context.Context, userID, accountID string) error {
	membership, err := s.accountRepo.FindMembership(ctx, accountID, userID)
	if err != nil {
		return err
	}
	return s.accountRepo.TouchMembershipAccess(ctx, membership.MembershipID, time.Now())
}

// FindMembership retrieves a user's membership in an account
func (s *accountService) FindMembership(ctx context.Context, accountID, userID string) (*domain.Membership, error) {
	return s.accountRepo.FindMembership(ctx, accountID, userID)
}

// AuthorizeUserAction checks if a user holds at least requiredRole in the account
func (s *accountService) AuthorizeUserAction(ctx context.Context, userID, accountID string, requiredRole domain.Role) error {
	membership, err := s.accountRepo.FindMembership(ctx, accountID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "User not a member of account",
				slog.String("user_id", userID),
				slog.String("account_id", accountID))
			return apperrors.ErrForbidden
		}
		return err
	}
	if !domain.HasRole(membership, requiredRole) {
		s.LogDebug(ctx, "User does not have required role",
			slog.String("user_id", userID),
			slog.String("account_id", accountID),
			slog.String("user_role", string(membership.Role)),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}
	return nil
}

// AuthorizeUserPermission checks if a user's membership grants the permission
func (s *accountService) AuthorizeUserPermission(ctx context.Context, userID, accountID string, perm domain.Permission) error {
	membership, err := s.accountRepo.FindMembership(ctx, accountID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrForbidden
		}
		return err
	}
	if !domain.Can(membership, perm) {
		s.LogDebug(ctx, "User does not have required permission",
			slog.String("user_id", userID),
			slog.String("account_id", accountID),
			slog.String("permission", string(perm)))
		return apperrors.ErrForbidden
	}
	return nil
}
