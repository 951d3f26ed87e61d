package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxInvitationRepository struct {
	BaseRepository
}

// newPgxInvitationRepository creates a new repository for invitation data.
func newPgxInvitationRepository(pool *pgxpool.Pool) portsrepo.InvitationRepositoryWithTx {
	return &PgxInvitationRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxInvitationRepository implements portsrepo.InvitationRepositoryWithTx
var _ portsrepo.InvitationRepositoryWithTx = (*PgxInvitationRepository)(nil)

const invitationSelectColumns = `
	i.invitation_id, i.account_id, i.email, i.role, i.token, i.expires_at,
	i.inviter_id, i.acceptor_id, i.accepted_at, i.cancelled_at,
	i.created_at, i.last_sent_at
`

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(
		&inv.InvitationID, &inv.AccountID, &inv.Email, &inv.Role, &inv.Token, &inv.ExpiresAt,
		&inv.InviterID, &inv.AcceptorID, &inv.AcceptedAt, &inv.CancelledAt,
		&inv.CreatedAt, &inv.LastSentAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *PgxInvitationRepository) SaveInvitation(ctx context.Context, invitation domain.Invitation) error {
	query := `
		INSERT INTO invitations (
			invitation_id, account_id, email, role, token, expires_at,
			inviter_id, acceptor_id, accepted_at, cancelled_at,
			created_at, last_sent_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		invitation.InvitationID,
		invitation.AccountID,
		invitation.Email,
		invitation.Role,
		invitation.Token,
		invitation.ExpiresAt,
		invitation.InviterID,
		invitation.AcceptorID,
		invitation.AcceptedAt,
		invitation.CancelledAt,
		invitation.CreatedAt,
		invitation.LastSentAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewConflictError("invitation already exists")
		}
		return apperrors.NewAppError(500, "failed to save invitation "+invitation.InvitationID, err)
	}
	return nil
}

func (r *PgxInvitationRepository) FindInvitationByID(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationSelectColumns + ` FROM invitations i WHERE i.invitation_id = $1;`
	inv, err := scanInvitation(r.db(ctx).QueryRow(ctx, query, invitationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find invitation "+invitationID, err)
	}
	return inv, nil
}

func (r *PgxInvitationRepository) FindInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationSelectColumns + ` FROM invitations i WHERE i.token = $1;`
	inv, err := scanInvitation(r.db(ctx).QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find invitation by token", err)
	}
	return inv, nil
}

func (r *PgxInvitationRepository) FindPendingInvitationByEmail(ctx context.Context, accountID, email string, now time.Time) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationSelectColumns + `
		FROM invitations i
		WHERE i.account_id = $1 AND i.email = $2
			AND i.accepted_at IS NULL AND i.cancelled_at IS NULL AND i.expires_at > $3;
	`
	inv, err := scanInvitation(r.db(ctx).QueryRow(ctx, query, accountID, email, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find pending invitation", err)
	}
	return inv, nil
}

func (r *PgxInvitationRepository) ListInvitationsByAccount(ctx context.Context, accountID string) ([]domain.Invitation, error) {
	query := `
		SELECT ` + invitationSelectColumns + `
		FROM invitations i
		WHERE i.account_id = $1
		ORDER BY i.created_at DESC;
	`
	rows, err := r.db(ctx).Query(ctx, query, accountID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list invitations for account "+accountID, err)
	}
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan invitation row", err)
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read invitation rows", err)
	}
	return invitations, nil
}

func (r *PgxInvitationRepository) UpdateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	query := `
		UPDATE invitations
		SET role = $2, token = $3, expires_at = $4,
			acceptor_id = $5, accepted_at = $6, cancelled_at = $7, last_sent_at = $8
		WHERE invitation_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		invitation.InvitationID,
		invitation.Role,
		invitation.Token,
		invitation.ExpiresAt,
		invitation.AcceptorID,
		invitation.AcceptedAt,
		invitation.CancelledAt,
		invitation.LastSentAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update invitation "+invitation.InvitationID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkExpiredBefore is the sweep's bookkeeping write-back. Expiry itself is
// authoritative by clock comparison; rows touched here were already reported
// expired by any read. The expired_at column exists only for reporting and
// never feeds the computed status.
func (r *PgxInvitationRepository) MarkExpiredBefore(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE invitations
		SET expired_at = $1
		WHERE accepted_at IS NULL AND cancelled_at IS NULL AND expired_at IS NULL
			AND expires_at < $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to mark expired invitations", err)
	}
	return int(tag.RowsAffected()), nil
}
