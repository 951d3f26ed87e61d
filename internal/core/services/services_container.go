package services

import (
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// notifier may be nil; invitation events are then only logged.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, notifier portssvc.InvitationNotifier) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Account service first since it doubles as the authorizer for the rest.
	container.Account = NewAccountService(repos.AccountRepo)
	accountAuthorizer := portssvc.AccountAuthorizerSvc(container.Account)

	container.Invitation = NewInvitationService(
		repos.InvitationRepo,
		repos.AccountRepo,
		repos.UserRepo,
		notifier,
		accountAuthorizer,
		cfg.InvitationExpiry,
	)
	container.Expense = NewExpenseService(repos.ScopedRepo)
	container.Category = NewCategoryService(repos.ScopedRepo)
	container.Budget = NewBudgetService(repos.ScopedRepo)
	container.User = NewUserService(repos.UserRepo)
	container.Migration = NewMigrationService(repos.MigrationRepo, repos.AccountRepo)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade     = (*accountService)(nil)
	_ portssvc.AccountAuthorizerSvc = (*accountService)(nil)
	_ portssvc.InvitationSvcFacade  = (*invitationService)(nil)
	_ portssvc.MigrationSvc         = (*migrationService)(nil)
)
