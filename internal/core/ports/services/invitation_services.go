package services

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// InvitationSvcFacade drives the invitation lifecycle:
// pending -> {accepted, expired, cancelled}.
type InvitationSvcFacade interface {
	// CreateInvitation stages a membership offer. Fails with
	// ErrUserLimitExceeded when the account is full and with ErrDuplicate when
	// a pending invitation for the email already exists.
	CreateInvitation(ctx context.Context, inviterUserID, accountID, email string, role domain.Role) (*domain.Invitation, error)

	// AcceptInvitation redeems a token for the acting user, atomically
	// creating or reactivating the membership. Fails with
	// ErrInvitationAlreadyAccepted, ErrInvitationExpired or
	// ErrInvitationWrongAcceptor.
	AcceptInvitation(ctx context.Context, actingUserID, token string) (*domain.Membership, error)

	// ResendInvitation regenerates token and expiry; valid only while pending.
	ResendInvitation(ctx context.Context, requestingUserID, invitationID string) (*domain.Invitation, error)

	// CancelInvitation transitions a pending invitation out without creating
	// a membership.
	CancelInvitation(ctx context.Context, requestingUserID, invitationID string) error

	// ListInvitations retrieves an account's invitations. Requires MANAGE_MEMBERS.
	ListInvitations(ctx context.Context, requestingUserID, accountID string) ([]domain.Invitation, error)

	// SweepExpired writes back the expired state on overdue pending
	// invitations for bookkeeping. Expiry itself never depends on this.
	SweepExpired(ctx context.Context) (int, error)
}

// InvitationNotifier is the outbound notification collaborator (email).
// Triggered, not implemented, by the invitation lifecycle.
type InvitationNotifier interface {
	// InvitationCreated notifies the invited email of a new or resent invitation.
	InvitationCreated(ctx context.Context, invitation *domain.Invitation) error

	// InvitationAccepted notifies the inviter that the offer was accepted.
	InvitationAccepted(ctx context.Context, invitation *domain.Invitation) error
}
