package pgsql

import (
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// scopedRepository composes the per-entity scoped repositories into the
// single facade the services consume.
type scopedRepository struct {
	*PgxExpenseRepository
	*PgxCategoryRepository
	*PgxBudgetRepository
}

var _ portsrepo.ScopedRepositoryFacade = (*scopedRepository)(nil)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	invitationRepo := newPgxInvitationRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	migrationRepo := newPgxMigrationRepository(dbPool)
	scopedRepo := &scopedRepository{
		PgxExpenseRepository:  newPgxExpenseRepository(dbPool),
		PgxCategoryRepository: newPgxCategoryRepository(dbPool),
		PgxBudgetRepository:   newPgxBudgetRepository(dbPool),
	}

	return portsrepo.RepositoryProvider{
		AccountRepo:    accountRepo,
		InvitationRepo: invitationRepo,
		ScopedRepo:     scopedRepo,
		UserRepo:       userRepo,
		MigrationRepo:  migrationRepo,
	}
}
