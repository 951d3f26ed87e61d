package pgsql

import (
	"context"
	"errors"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	"github.com/expensio/expensio-backend/internal/tenant"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxCategoryRepository persists categories under the ambient tenant filter.
type PgxCategoryRepository struct {
	BaseRepository
}

func newPgxCategoryRepository(pool *pgxpool.Pool) *PgxCategoryRepository {
	return &PgxCategoryRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.CategoryRepository = (*PgxCategoryRepository)(nil)

const categorySelectColumns = `
	c.category_id, c.account_id, c.name, c.color, c.is_active,
	c.created_at, c.created_by, c.last_updated_at, c.last_updated_by
`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.CategoryID, &c.AccountID, &c.Name, &c.Color, &c.IsActive,
		&c.CreatedAt, &c.CreatedBy, &c.LastUpdatedAt, &c.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgxCategoryRepository) SaveCategory(ctx context.Context, category domain.Category) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO categories (
			category_id, account_id, name, color, is_active,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = r.db(ctx).Exec(ctx, query,
		category.CategoryID,
		accountID,
		category.Name,
		category.Color,
		category.IsActive,
		category.CreatedAt,
		category.CreatedBy,
		category.LastUpdatedAt,
		category.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewConflictError("category " + category.Name + " already exists in this account")
		}
		return apperrors.NewAppError(500, "failed to save category "+category.CategoryID, err)
	}
	return nil
}

func (r *PgxCategoryRepository) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + categorySelectColumns + ` FROM categories c WHERE c.account_id = $1 AND c.category_id = $2;`
	category, err := scanCategory(r.db(ctx).QueryRow(ctx, query, accountID, categoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find category "+categoryID, err)
	}
	return category, nil
}

func (r *PgxCategoryRepository) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + categorySelectColumns + `
		FROM categories c
		WHERE c.account_id = $1 AND (c.is_active OR $2)
		ORDER BY c.name;
	`
	rows, err := r.db(ctx).Query(ctx, query, accountID, includeInactive)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list categories", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan category row", err)
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read category rows", err)
	}
	return categories, nil
}

func (r *PgxCategoryRepository) UpdateCategory(ctx context.Context, category *domain.Category) error {
	accountID, err := tenant.Current(ctx)
	if err != nil {
		return err
	}
	query := `
		UPDATE categories
		SET name = $3, color = $4, is_active = $5, last_updated_at = $6, last_updated_by = $7
		WHERE account_id = $1 AND category_id = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		accountID,
		category.CategoryID,
		category.Name,
		category.Color,
		category.IsActive,
		category.LastUpdatedAt,
		category.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewConflictError("category " + category.Name + " already exists in this account")
		}
		return apperrors.NewAppError(500, "failed to update category "+category.CategoryID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindCategoryByIDInAccount bypasses the ambient tenant filter with an
// explicit account argument. Audited on every call.
func (r *PgxCategoryRepository) FindCategoryByIDInAccount(ctx context.Context, accountID, categoryID string) (*domain.Category, error) {
	auditUnscopedAccess(ctx, "FindCategoryByIDInAccount", categoryID)
	query := `SELECT ` + categorySelectColumns + ` FROM categories c WHERE c.account_id = $1 AND c.category_id = $2;`
	category, err := scanCategory(r.db(ctx).QueryRow(ctx, query, accountID, categoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find category "+categoryID, err)
	}
	return category, nil
}

// FindCategoryOwnerAccount reports which account owns a category regardless
// of tenant scope, so callers can tell a cross-tenant reference apart from a
// missing one. Audited on every call.
func (r *PgxCategoryRepository) FindCategoryOwnerAccount(ctx context.Context, categoryID string) (string, error) {
	auditUnscopedAccess(ctx, "FindCategoryOwnerAccount", categoryID)
	query := `SELECT account_id FROM categories WHERE category_id = $1;`
	// account_id stays NULL on legacy rows until the tenant migration stamps
	// them; treat those the same as a missing category.
	var accountID *string
	if err := r.db(ctx).QueryRow(ctx, query, categoryID).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", apperrors.NewAppError(500, "failed to resolve category owner "+categoryID, err)
	}
	if accountID == nil {
		return "", apperrors.ErrNotFound
	}
	return *accountID, nil
}
