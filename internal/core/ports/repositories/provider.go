package repositories

// RepositoryProvider bundles the concrete repositories handed to the service
// container at startup.
type RepositoryProvider struct {
	AccountRepo    AccountRepositoryWithTx
	InvitationRepo InvitationRepositoryWithTx
	ScopedRepo     ScopedRepositoryFacade
	UserRepo       UserRepositoryFacade
	MigrationRepo  MigrationRepository
}
