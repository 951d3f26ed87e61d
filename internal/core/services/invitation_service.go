package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/utils"
	"github.com/google/uuid"
)

// invitationTokenBytes gives 256 bits of entropy per token.
const invitationTokenBytes = 32

// invitationService implements the InvitationSvcFacade interface
type invitationService struct {
	BaseService
	invitationRepo portsrepo.InvitationRepositoryWithTx
	accountRepo    portsrepo.AccountRepositoryWithTx
	userRepo       portsrepo.UserReader
	notifier       portssvc.InvitationNotifier
	expiry         time.Duration
	now            func() time.Time
}

// NewInvitationService creates a new invitation service with the provided dependencies.
// authorizer gates the inviter-facing operations; expiry is the pending window
// for new invitations (default 7 days when zero).
func NewInvitationService(
	invitationRepo portsrepo.InvitationRepositoryWithTx,
	accountRepo portsrepo.AccountRepositoryWithTx,
	userRepo portsrepo.UserReader,
	notifier portssvc.InvitationNotifier,
	authorizer portssvc.AccountAuthorizerSvc,
	expiry time.Duration,
) portssvc.InvitationSvcFacade {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &invitationService{
		BaseService:    BaseService{AccountAuthorizer: authorizer},
		invitationRepo: invitationRepo,
		accountRepo:    accountRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		expiry:         expiry,
		now:            time.Now,
	}
}

// Ensure invitationService implements the InvitationSvcFacade interface
var _ portssvc.InvitationSvcFacade = (*invitationService)(nil)

func (s *invitationService) authorizeManageMembers(ctx context.Context, userID, accountID string) error {
	return s.AuthorizePermission(ctx, userID, accountID, domain.PermManageMembers)
}

// CreateInvitation stages a membership offer for an email address
func (s *invitationService) CreateInvitation(ctx context.Context, inviterUserID, accountID, email string, role domain.Role) (*domain.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationFailedError("email is required")
	}
	if !role.Valid() || role == domain.RoleOwner {
		// Ownership is granted by an existing owner after joining, never
		// handed out through an invitation token.
		return nil, apperrors.NewValidationFailedError("invalid invitation role " + string(role))
	}
	if err := s.authorizeManageMembers(ctx, inviterUserID, accountID); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if existing, err := s.invitationRepo.FindPendingInvitationByEmail(ctx, accountID, email, now); err == nil && existing != nil {
		return nil, apperrors.NewConflictError("a pending invitation for " + email + " already exists")
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	active, err := s.accountRepo.CountActiveMemberships(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if active >= account.Type.MaxUsers() {
		return nil, apperrors.ErrUserLimitExceeded
	}

	token, err := utils.GenerateSecureRandomString(invitationTokenBytes)
	if err != nil {
		return nil, err
	}

	invitation := domain.Invitation{
		InvitationID: uuid.NewString(),
		AccountID:    accountID,
		Email:        email,
		Role:         role,
		Token:        token,
		ExpiresAt:    now.Add(s.expiry),
		InviterID:    inviterUserID,
		CreatedAt:    now,
		LastSentAt:   now,
	}
	if err := s.invitationRepo.SaveInvitation(ctx, invitation); err != nil {
		s.LogError(ctx, err, "Failed to save invitation",
			slog.String("account_id", accountID),
			slog.String("email", email))
		return nil, err
	}

	s.notify(ctx, &invitation, false)
	s.LogInfo(ctx, "Invitation created",
		slog.String("invitation_id", invitation.InvitationID),
		slog.String("account_id", accountID),
		slog.String("role", string(role)))
	return &invitation, nil
}

// AcceptInvitation redeems a token, creating or reactivating the membership
func (s *invitationService) AcceptInvitation(ctx context.Context, actingUserID, token string) (*domain.Membership, error) {
	invitation, err := s.invitationRepo.FindInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch invitation.Status(now) {
	case domain.InvitationAccepted:
		return nil, apperrors.ErrInvitationAlreadyAccepted
	case domain.InvitationExpired:
		return nil, apperrors.ErrInvitationExpired
	case domain.InvitationCancelled:
		return nil, apperrors.ErrInvitationNotPending
	}

	// The acceptor must be the invited identity: when the email maps to a
	// registered user it must be the acting user; otherwise the acting
	// user's own email must match the invitation.
	actingUser, err := s.userRepo.FindUserByID(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if invited, err := s.userRepo.FindUserByEmail(ctx, invitation.Email); err == nil && invited != nil {
		if invited.UserID != actingUserID {
			return nil, apperrors.ErrInvitationWrongAcceptor
		}
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	} else if !strings.EqualFold(actingUser.Email, invitation.Email) {
		return nil, apperrors.ErrInvitationWrongAcceptor
	}

	var membership *domain.Membership
	err = s.invitationRepo.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.LockAccountMemberships(txCtx, invitation.AccountID); err != nil {
			return err
		}

		// A concurrent accept of the same token commits between the gate
		// above and the lock; re-check the status on the row as committed.
		current, err := s.invitationRepo.FindInvitationByID(txCtx, invitation.InvitationID)
		if err != nil {
			return err
		}
		switch current.Status(now) {
		case domain.InvitationAccepted:
			return apperrors.ErrInvitationAlreadyAccepted
		case domain.InvitationExpired:
			return apperrors.ErrInvitationExpired
		case domain.InvitationCancelled:
			return apperrors.ErrInvitationNotPending
		}
		invitation = current

		existing, err := s.accountRepo.FindMembership(txCtx, invitation.AccountID, actingUserID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		if existing != nil && existing.IsActive {
			return apperrors.ErrDuplicateMembership
		}

		account, err := s.accountRepo.FindAccountByID(txCtx, invitation.AccountID)
		if err != nil {
			return err
		}
		active, err := s.accountRepo.CountActiveMemberships(txCtx, invitation.AccountID)
		if err != nil {
			return err
		}
		if active >= account.Type.MaxUsers() {
			return apperrors.ErrUserLimitExceeded
		}

		if existing != nil {
			// Reactivate the dormant membership with the invited role.
			if err := s.accountRepo.UpdateMembershipRole(txCtx, existing.MembershipID, invitation.Role); err != nil {
				return err
			}
			if err := s.accountRepo.UpdateMembershipActive(txCtx, existing.MembershipID, true); err != nil {
				return err
			}
			existing.Role = invitation.Role
			existing.IsActive = true
			membership = existing
		} else {
			fresh := domain.Membership{
				MembershipID: uuid.NewString(),
				AccountID:    invitation.AccountID,
				UserID:       actingUserID,
				Role:         invitation.Role,
				IsActive:     true,
				JoinedAt:     now,
				InvitationID: &invitation.InvitationID,
			}
			if err := s.accountRepo.SaveMembership(txCtx, fresh); err != nil {
				return err
			}
			membership = &fresh
		}

		invitation.AcceptorID = &actingUserID
		invitation.AcceptedAt = &now
		return s.invitationRepo.UpdateInvitation(txCtx, invitation)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateMembership) || errors.Is(err, apperrors.ErrUserLimitExceeded) ||
			errors.Is(err, apperrors.ErrInvitationAlreadyAccepted) || errors.Is(err, apperrors.ErrInvitationExpired) ||
			errors.Is(err, apperrors.ErrInvitationNotPending) {
			return nil, err
		}
		s.LogError(ctx, err, "Failed to accept invitation",
			slog.String("invitation_id", invitation.InvitationID),
			slog.String("acting_user_id", actingUserID))
		return nil, err
	}

	s.notify(ctx, invitation, true)
	s.LogInfo(ctx, "Invitation accepted",
		slog.String("invitation_id", invitation.InvitationID),
		slog.String("account_id", invitation.AccountID),
		slog.String("acting_user_id", actingUserID))
	return membership, nil
}

// ResendInvitation regenerates token and expiry for a pending invitation
func (s *invitationService) ResendInvitation(ctx context.Context, requestingUserID, invitationID string) (*domain.Invitation, error) {
	invitation, err := s.invitationRepo.FindInvitationByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManageMembers(ctx, requestingUserID, invitation.AccountID); err != nil {
		return nil, err
	}

	now := s.now()
	if !invitation.IsPending(now) {
		return nil, apperrors.ErrInvitationNotPending
	}

	token, err := utils.GenerateSecureRandomString(invitationTokenBytes)
	if err != nil {
		return nil, err
	}
	invitation.Token = token
	invitation.ExpiresAt = now.Add(s.expiry)
	invitation.LastSentAt = now
	if err := s.invitationRepo.UpdateInvitation(ctx, invitation); err != nil {
		s.LogError(ctx, err, "Failed to resend invitation",
			slog.String("invitation_id", invitationID))
		return nil, err
	}

	s.notify(ctx, invitation, false)
	s.LogInfo(ctx, "Invitation resent", slog.String("invitation_id", invitationID))
	return invitation, nil
}

// CancelInvitation transitions a pending invitation out without a membership
func (s *invitationService) CancelInvitation(ctx context.Context, requestingUserID, invitationID string) error {
	invitation, err := s.invitationRepo.FindInvitationByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if err := s.authorizeManageMembers(ctx, requestingUserID, invitation.AccountID); err != nil {
		return err
	}

	now := s.now()
	if !invitation.IsPending(now) {
		return apperrors.ErrInvitationNotPending
	}

	invitation.CancelledAt = &now
	if err := s.invitationRepo.UpdateInvitation(ctx, invitation); err != nil {
		s.LogError(ctx, err, "Failed to cancel invitation",
			slog.String("invitation_id", invitationID))
		return err
	}

	s.LogInfo(ctx, "Invitation cancelled", slog.String("invitation_id", invitationID))
	return nil
}

// ListInvitations retrieves an account's invitations
func (s *invitationService) ListInvitations(ctx context.Context, requestingUserID, accountID string) ([]domain.Invitation, error) {
	if err := s.authorizeManageMembers(ctx, requestingUserID, accountID); err != nil {
		return nil, err
	}
	invitations, err := s.invitationRepo.ListInvitationsByAccount(ctx, accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list invitations",
			slog.String("account_id", accountID))
		return nil, err
	}
	if invitations == nil {
		return []domain.Invitation{}, nil
	}
	return invitations, nil
}

// SweepExpired persists the expired state on overdue pending invitations.
// Pure bookkeeping: Status already reports EXPIRED by clock comparison.
func (s *invitationService) SweepExpired(ctx context.Context) (int, error) {
	swept, err := s.invitationRepo.MarkExpiredBefore(ctx, s.now())
	if err != nil {
		s.LogError(ctx, err, "Failed to sweep expired invitations")
		return 0, err
	}
	if swept > 0 {
		s.LogInfo(ctx, "Swept expired invitations", slog.Int("count", swept))
	}
	return swept, nil
}

// notify delivers a lifecycle notification; delivery failure is logged, not
// propagated, because the state transition has already been committed.
func (s *invitationService) notify(ctx context.Context, invitation *domain.Invitation, accepted bool) {
	if s.notifier == nil {
		return
	}
	var err error
	if accepted {
		err = s.notifier.InvitationAccepted(ctx, invitation)
	} else {
		err = s.notifier.InvitationCreated(ctx, invitation)
	}
	if err != nil {
		s.LogWarn(ctx, "Invitation notification failed",
			slog.String("invitation_id", invitation.InvitationID),
			slog.String("error", err.Error()))
	}
}
