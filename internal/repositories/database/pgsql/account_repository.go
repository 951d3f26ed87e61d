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

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account and membership data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryWithTx {
	return &PgxAccountRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryWithTx
var _ portsrepo.AccountRepositoryWithTx = (*PgxAccountRepository)(nil)

const accountSelectColumns = `
	a.account_id, a.name, a.slug, a.type,
	a.currency_code, a.locale, a.timezone, a.feature_flags,
	a.suspended_at, a.suspended_reason,
	a.created_at, a.created_by, a.last_updated_at, a.last_updated_by, a.version
`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.AccountID, &a.Name, &a.Slug, &a.Type,
		&a.Settings.CurrencyCode, &a.Settings.Locale, &a.Settings.Timezone, &a.Settings.FeatureFlags,
		&a.SuspendedAt, &a.SuspendedReason,
		&a.CreatedAt, &a.CreatedBy, &a.LastUpdatedAt, &a.LastUpdatedBy, &a.Version,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (
			account_id, name, slug, type,
			currency_code, locale, timezone, feature_flags,
			suspended_at, suspended_reason,
			created_at, created_by, last_updated_at, last_updated_by, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		account.AccountID,
		account.Name,
		account.Slug,
		account.Type,
		account.Settings.CurrencyCode,
		account.Settings.Locale,
		account.Settings.Timezone,
		account.Settings.FeatureFlags,
		account.SuspendedAt,
		account.SuspendedReason,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
		1,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewConflictError("account slug " + account.Slug + " already exists")
		}
		return apperrors.NewAppError(500, "failed to save account "+account.AccountID, err)
	}
	return nil
}

func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountSelectColumns + ` FROM accounts a WHERE a.account_id = $1;`
	account, err := scanAccount(r.db(ctx).QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find account "+accountID, err)
	}
	return account, nil
}

func (r *PgxAccountRepository) FindAccountBySlug(ctx context.Context, slug string) (*domain.Account, error) {
	query := `SELECT ` + accountSelectColumns + ` FROM accounts a WHERE a.slug = $1;`
	account, err := scanAccount(r.db(ctx).QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find account by slug "+slug, err)
	}
	return account, nil
}

func (r *PgxAccountRepository) ListAccountsByUserID(ctx context.Context, userID string) ([]domain.Account, error) {
	query := `
		SELECT ` + accountSelectColumns + `
		FROM accounts a
		JOIN memberships m ON m.account_id = a.account_id
		WHERE m.user_id = $1 AND m.is_active
		ORDER BY a.name;
	`
	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list accounts for user "+userID, err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read account rows", err)
	}
	return accounts, nil
}

func (r *PgxAccountRepository) UpdateAccountSettings(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET currency_code = $2, locale = $3, timezone = $4, feature_flags = $5,
			last_updated_at = $6, last_updated_by = $7, version = version + 1
		WHERE account_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		account.AccountID,
		account.Settings.CurrencyCode,
		account.Settings.Locale,
		account.Settings.Timezone,
		account.Settings.FeatureFlags,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update settings for account "+account.AccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxAccountRepository) UpdateAccountSuspension(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET suspended_at = $2, suspended_reason = $3,
			last_updated_at = $4, last_updated_by = $5, version = version + 1
		WHERE account_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		account.AccountID,
		account.SuspendedAt,
		account.SuspendedReason,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update suspension for account "+account.AccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

const membershipSelectColumns = `
	m.membership_id, m.account_id, m.user_id, m.role, m.is_active,
	m.joined_at, m.last_accessed_at, m.extra_permissions, m.invitation_id
`

func scanMembership(row pgx.Row, withUserName bool) (*domain.Membership, error) {
	var m domain.Membership
	var extra []string
	dests := []any{
		&m.MembershipID, &m.AccountID, &m.UserID, &m.Role, &m.IsActive,
		&m.JoinedAt, &m.LastAccessedAt, &extra, &m.InvitationID,
	}
	if withUserName {
		dests = append(dests, &m.UserName)
	}
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}
	for _, p := range extra {
		m.ExtraPermissions = append(m.ExtraPermissions, domain.Permission(p))
	}
	return &m, nil
}

func permissionsToStrings(perms []domain.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func (r *PgxAccountRepository) SaveMembership(ctx context.Context, membership domain.Membership) error {
	query := `
		INSERT INTO memberships (
			membership_id, account_id, user_id, role, is_active,
			joined_at, last_accessed_at, extra_permissions, invitation_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		membership.MembershipID,
		membership.AccountID,
		membership.UserID,
		membership.Role,
		membership.IsActive,
		membership.JoinedAt,
		membership.LastAccessedAt,
		permissionsToStrings(membership.ExtraPermissions),
		membership.InvitationID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrDuplicateMembership
		}
		return apperrors.NewAppError(500, "failed to save membership "+membership.MembershipID, err)
	}
	return nil
}

func (r *PgxAccountRepository) FindMembership(ctx context.Context, accountID, userID string) (*domain.Membership, error) {
	query := `
		SELECT ` + membershipSelectColumns + `
		FROM memberships m
		WHERE m.account_id = $1 AND m.user_id = $2;
	`
	membership, err := scanMembership(r.db(ctx).QueryRow(ctx, query, accountID, userID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find membership", err)
	}
	return membership, nil
}

func (r *PgxAccountRepository) FindMembershipByID(ctx context.Context, membershipID string) (*domain.Membership, error) {
	query := `
		SELECT ` + membershipSelectColumns + `
		FROM memberships m
		WHERE m.membership_id = $1;
	`
	membership, err := scanMembership(r.db(ctx).QueryRow(ctx, query, membershipID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find membership "+membershipID, err)
	}
	return membership, nil
}

func (r *PgxAccountRepository) ListMemberships(ctx context.Context, accountID string, includeInactive bool) ([]domain.Membership, error) {
	query := `
		SELECT ` + membershipSelectColumns + `, u.name
		FROM memberships m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.account_id = $1 AND (m.is_active OR $2)
		ORDER BY m.joined_at;
	`
	rows, err := r.db(ctx).Query(ctx, query, accountID, includeInactive)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list memberships for account "+accountID, err)
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		membership, err := scanMembership(rows, true)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan membership row", err)
		}
		memberships = append(memberships, *membership)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read membership rows", err)
	}
	return memberships, nil
}

func (r *PgxAccountRepository) CountActiveMemberships(ctx context.Context, accountID string) (int, error) {
	query := `SELECT COUNT(*) FROM memberships WHERE account_id = $1 AND is_active;`
	var count int
	if err := r.db(ctx).QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count memberships for account "+accountID, err)
	}
	return count, nil
}

func (r *PgxAccountRepository) CountActiveOwners(ctx context.Context, accountID, excludeMembershipID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM memberships
		WHERE account_id = $1 AND role = $2 AND is_active AND membership_id <> $3;
	`
	var count int
	if err := r.db(ctx).QueryRow(ctx, query, accountID, domain.RoleOwner, excludeMembershipID).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count owners for account "+accountID, err)
	}
	return count, nil
}

// LockAccountMemberships takes FOR UPDATE row locks on the account's
// memberships so concurrent role changes serialize on the owner invariant.
// Only meaningful inside a transaction.
func (r *PgxAccountRepository) LockAccountMemberships(ctx context.Context, accountID string) error {
	query := `SELECT membership_id FROM memberships WHERE account_id = $1 FOR UPDATE;`
	rows, err := r.db(ctx).Query(ctx, query, accountID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to lock memberships for account "+accountID, err)
	}
	rows.Close()
	return rows.Err()
}

func (r *PgxAccountRepository) UpdateMembershipRole(ctx context.Context, membershipID string, role domain.Role) error {
	return r.execMembershipUpdate(ctx, membershipID,
		`UPDATE memberships SET role = $2 WHERE membership_id = $1;`, role)
}

func (r *PgxAccountRepository) UpdateMembershipActive(ctx context.Context, membershipID string, active bool) error {
	return r.execMembershipUpdate(ctx, membershipID,
		`UPDATE memberships SET is_active = $2 WHERE membership_id = $1;`, active)
}

func (r *PgxAccountRepository) UpdateMembershipPermissions(ctx context.Context, membershipID string, perms []domain.Permission) error {
	return r.execMembershipUpdate(ctx, membershipID,
		`UPDATE memberships SET extra_permissions = $2 WHERE membership_id = $1;`, permissionsToStrings(perms))
}

func (r *PgxAccountRepository) TouchMembershipAccess(ctx context.Context, membershipID string, at time.Time) error {
	return r.execMembershipUpdate(ctx, membershipID,
		`UPDATE memberships SET last_accessed_at = $2 WHERE membership_id = $1;`, at)
}

func (r *PgxAccountRepository) execMembershipUpdate(ctx context.Context, membershipID, query string, arg any) error {
	tag, err := r.db(ctx).Exec(ctx, query, membershipID, arg)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update membership "+membershipID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
