package repositories

import (
	"context"
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// InvitationReader defines read operations for invitation data
type InvitationReader interface {
	// FindInvitationByID retrieves an invitation by its ID.
	FindInvitationByID(ctx context.Context, invitationID string) (*domain.Invitation, error)

	// FindInvitationByToken retrieves an invitation by its unique token.
	FindInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error)

	// FindPendingInvitationByEmail retrieves the pending (not accepted, not
	// cancelled, not past expiry) invitation for an email in an account, if any.
	FindPendingInvitationByEmail(ctx context.Context, accountID, email string, now time.Time) (*domain.Invitation, error)

	// ListInvitationsByAccount retrieves all invitations of an account.
	ListInvitationsByAccount(ctx context.Context, accountID string) ([]domain.Invitation, error)
}

// InvitationWriter defines write operations for invitation data
type InvitationWriter interface {
	// SaveInvitation persists a new invitation.
	SaveInvitation(ctx context.Context, invitation domain.Invitation) error

	// UpdateInvitation persists lifecycle mutations (accept, cancel, resend).
	UpdateInvitation(ctx context.Context, invitation *domain.Invitation) error

	// MarkExpiredBefore persists the expired state for bookkeeping on all
	// pending invitations whose expiry is before now. Expiry is already
	// authoritative by clock comparison; this is the sweep's write-back.
	MarkExpiredBefore(ctx context.Context, now time.Time) (int, error)
}

// InvitationRepositoryFacade combines all invitation repository interfaces
type InvitationRepositoryFacade interface {
	InvitationReader
	InvitationWriter
}

// InvitationRepositoryWithTx extends InvitationRepositoryFacade with transaction capabilities
type InvitationRepositoryWithTx interface {
	InvitationRepositoryFacade
	TxRunner
}
