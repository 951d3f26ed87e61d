package services_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// The migration pipeline is stateful across stages, so these tests use
// in-memory fakes rather than expectation mocks: a dry run and a committed
// run over identical fixtures must produce identical statistics, and that is
// only checkable against a store that actually carries state.

// legacyRecord holds one legacy user's unstamped rows.
type legacyRecord struct {
	expenses   []decimal.Decimal
	categories int
	budgets    int
}

type fakeMigrationStore struct {
	lockBusy      bool
	schemaPresent bool

	users      []domain.LegacyUser
	records    map[string]*legacyRecord
	stamped    []decimal.Decimal
	orphans    []decimal.Decimal
	dupes      int
	checkpoint *domain.MigrationCheckpoint

	backup *fakeMigrationStore
}

func newFakeMigrationStore() *fakeMigrationStore {
	return &fakeMigrationStore{
		schemaPresent: true,
		records:       map[string]*legacyRecord{},
	}
}

func (f *fakeMigrationStore) clone() *fakeMigrationStore {
	c := &fakeMigrationStore{
		lockBusy:      f.lockBusy,
		schemaPresent: f.schemaPresent,
		users:         append([]domain.LegacyUser(nil), f.users...),
		records:       map[string]*legacyRecord{},
		stamped:       append([]decimal.Decimal(nil), f.stamped...),
		orphans:       append([]decimal.Decimal(nil), f.orphans...),
		dupes:         f.dupes,
		backup:        f.backup,
	}
	for id, rec := range f.records {
		c.records[id] = &legacyRecord{
			expenses:   append([]decimal.Decimal(nil), rec.expenses...),
			categories: rec.categories,
			budgets:    rec.budgets,
		}
	}
	if f.checkpoint != nil {
		cp := *f.checkpoint
		c.checkpoint = &cp
	}
	return c
}

func (f *fakeMigrationStore) restore(from *fakeMigrationStore) {
	f.users = from.users
	f.records = from.records
	f.stamped = from.stamped
	f.orphans = from.orphans
	f.dupes = from.dupes
	f.checkpoint = from.checkpoint
}

func (f *fakeMigrationStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := f.clone()
	if err := fn(ctx); err != nil {
		f.restore(snapshot)
		return err
	}
	return nil
}

func (f *fakeMigrationStore) AcquireMigrationLock(ctx context.Context) (bool, error) {
	return !f.lockBusy, nil
}

func (f *fakeMigrationStore) ReleaseMigrationLock(ctx context.Context) error { return nil }

func (f *fakeMigrationStore) LegacySchemaPresent(ctx context.Context) (bool, error) {
	return f.schemaPresent, nil
}

func (f *fakeMigrationStore) CountUnmigratedLegacyUsers(ctx context.Context) (int, error) {
	n := 0
	for _, u := range f.users {
		if !u.Migrated {
			n++
		}
	}
	return n, nil
}

func (f *fakeMigrationStore) ListUnmigratedLegacyUsers(ctx context.Context, afterUserID string, limit int) ([]domain.LegacyUser, error) {
	var out []domain.LegacyUser
	for _, u := range f.users {
		if !u.Migrated && u.UserID > afterUserID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMigrationStore) MarkLegacyUserMigrated(ctx context.Context, legacyUserID string) error {
	for i := range f.users {
		if f.users[i].UserID == legacyUserID {
			f.users[i].Migrated = true
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeMigrationStore) BackupLegacyTables(ctx context.Context) error {
	f.backup = f.clone()
	return nil
}

func (f *fakeMigrationStore) RestoreFromBackup(ctx context.Context) error {
	if f.backup == nil {
		return apperrors.ErrNotFound
	}
	f.restore(f.backup.clone())
	return nil
}

func (f *fakeMigrationStore) StampExpenses(ctx context.Context, legacyUserID, accountID string) (int, error) {
	rec, ok := f.records[legacyUserID]
	if !ok {
		return 0, nil
	}
	n := len(rec.expenses)
	f.stamped = append(f.stamped, rec.expenses...)
	rec.expenses = nil
	return n, nil
}

func (f *fakeMigrationStore) StampCategories(ctx context.Context, legacyUserID, accountID string) (int, error) {
	rec, ok := f.records[legacyUserID]
	if !ok {
		return 0, nil
	}
	n := rec.categories
	rec.categories = 0
	return n, nil
}

func (f *fakeMigrationStore) StampBudgets(ctx context.Context, legacyUserID, accountID string) (int, error) {
	rec, ok := f.records[legacyUserID]
	if !ok {
		return 0, nil
	}
	n := rec.budgets
	rec.budgets = 0
	return n, nil
}

func (f *fakeMigrationStore) MergeDuplicateCategories(ctx context.Context, accountID string) (int, error) {
	n := f.dupes
	f.dupes = 0
	return n, nil
}

func (f *fakeMigrationStore) CountOrphanExpenses(ctx context.Context) (int, error) {
	return len(f.orphans), nil
}

func (f *fakeMigrationStore) ReassignOrphanExpenses(ctx context.Context, fallbackAccountID string) (int, error) {
	n := len(f.orphans)
	f.stamped = append(f.stamped, f.orphans...)
	f.orphans = nil
	return n, nil
}

func (f *fakeMigrationStore) DeleteOrphanExpenses(ctx context.Context) (int, decimal.Decimal, error) {
	n := len(f.orphans)
	sum := decimal.Zero
	for _, amount := range f.orphans {
		sum = sum.Add(amount)
	}
	f.orphans = nil
	return n, sum, nil
}

func (f *fakeMigrationStore) CountUnstampedRecords(ctx context.Context) (int, error) {
	n := 0
	for _, rec := range f.records {
		n += len(rec.expenses) + rec.categories + rec.budgets
	}
	return n, nil
}

func (f *fakeMigrationStore) SumAllExpenseAmounts(ctx context.Context) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, amount := range f.stamped {
		sum = sum.Add(amount)
	}
	for _, rec := range f.records {
		for _, amount := range rec.expenses {
			sum = sum.Add(amount)
		}
	}
	for _, amount := range f.orphans {
		sum = sum.Add(amount)
	}
	return sum, nil
}

func (f *fakeMigrationStore) LoadCheckpoint(ctx context.Context) (*domain.MigrationCheckpoint, error) {
	if f.checkpoint == nil {
		return nil, nil
	}
	cp := *f.checkpoint
	return &cp, nil
}

func (f *fakeMigrationStore) SaveCheckpoint(ctx context.Context, cp domain.MigrationCheckpoint) error {
	f.checkpoint = &cp
	return nil
}

func (f *fakeMigrationStore) ClearCheckpoint(ctx context.Context) error {
	f.checkpoint = nil
	return nil
}

// fakeAccountStore is a minimal in-memory AccountRepositoryFacade.
type fakeAccountStore struct {
	accounts    map[string]*domain.Account
	bySlug      map[string]*domain.Account
	memberships map[string]*domain.Membership // accountID + "/" + userID
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts:    map[string]*domain.Account{},
		bySlug:      map[string]*domain.Account{},
		memberships: map[string]*domain.Membership{},
	}
}

func (f *fakeAccountStore) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	if a, ok := f.accounts[accountID]; ok {
		return a, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountStore) FindAccountBySlug(ctx context.Context, slug string) (*domain.Account, error) {
	if a, ok := f.bySlug[slug]; ok {
		return a, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountStore) ListAccountsByUserID(ctx context.Context, userID string) ([]domain.Account, error) {
	return nil, nil
}

func (f *fakeAccountStore) SaveAccount(ctx context.Context, account domain.Account) error {
	if _, ok := f.bySlug[account.Slug]; ok {
		return apperrors.NewConflictError("slug taken")
	}
	a := account
	f.accounts[a.AccountID] = &a
	f.bySlug[a.Slug] = &a
	return nil
}

func (f *fakeAccountStore) UpdateAccountSettings(ctx context.Context, account *domain.Account) error {
	return nil
}

func (f *fakeAccountStore) UpdateAccountSuspension(ctx context.Context, account *domain.Account) error {
	return nil
}

func (f *fakeAccountStore) SaveMembership(ctx context.Context, membership domain.Membership) error {
	key := membership.AccountID + "/" + membership.UserID
	if _, ok := f.memberships[key]; ok {
		return apperrors.ErrDuplicateMembership
	}
	m := membership
	f.memberships[key] = &m
	return nil
}

func (f *fakeAccountStore) FindMembership(ctx context.Context, accountID, userID string) (*domain.Membership, error) {
	if m, ok := f.memberships[accountID+"/"+userID]; ok {
		return m, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountStore) FindMembershipByID(ctx context.Context, membershipID string) (*domain.Membership, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeAccountStore) ListMemberships(ctx context.Context, accountID string, includeInactive bool) ([]domain.Membership, error) {
	return nil, nil
}

func (f *fakeAccountStore) CountActiveMemberships(ctx context.Context, accountID string) (int, error) {
	return 0, nil
}

func (f *fakeAccountStore) CountActiveOwners(ctx context.Context, accountID, excludeMembershipID string) (int, error) {
	return 0, nil
}

func (f *fakeAccountStore) LockAccountMemberships(ctx context.Context, accountID string) error {
	return nil
}

func (f *fakeAccountStore) UpdateMembershipRole(ctx context.Context, membershipID string, role domain.Role) error {
	return nil
}

func (f *fakeAccountStore) UpdateMembershipActive(ctx context.Context, membershipID string, active bool) error {
	return nil
}

func (f *fakeAccountStore) UpdateMembershipPermissions(ctx context.Context, membershipID string, perms []domain.Permission) error {
	return nil
}

func (f *fakeAccountStore) TouchMembershipAccess(ctx context.Context, membershipID string, at time.Time) error {
	return nil
}

// --- Test Suite ---
type MigrationServiceTestSuite struct {
	suite.Suite
	store    *fakeMigrationStore
	accounts *fakeAccountStore
	service  portssvc.MigrationSvc
}

func (suite *MigrationServiceTestSuite) SetupTest() {
	suite.store = newFakeMigrationStore()
	suite.accounts = newFakeAccountStore()
	suite.service = services.NewMigrationService(suite.store, suite.accounts)
}

// seedLegacyFixture loads three legacy users with a known spread of rows.
func seedLegacyFixture(store *fakeMigrationStore) {
	store.users = []domain.LegacyUser{
		{UserID: "user-1", Email: "alice@example.com", Name: "Alice"},
		{UserID: "user-2", Email: "bob@example.com", Name: "Bob"},
		{UserID: "user-3", Email: "carol@example.com", Name: "Carol"},
	}
	store.records = map[string]*legacyRecord{
		"user-1": {expenses: decimals(10, 20, 30), categories: 2, budgets: 1},
		"user-2": {expenses: decimals(5), categories: 1, budgets: 0},
		"user-3": {expenses: nil, categories: 0, budgets: 0},
	}
}

func decimals(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func (suite *MigrationServiceTestSuite) TestRun_ConvertsAllLegacyUsers() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{BatchSize: 2})

	suite.Require().NoError(err)
	suite.Equal(3, stats.LegacyUsersSeen)
	suite.Equal(3, stats.AccountsCreated)
	suite.Equal(3, stats.MembershipsCreated)
	suite.Equal(4, stats.ExpensesStamped)
	suite.Equal(3, stats.CategoriesStamped)
	suite.Equal(1, stats.BudgetsStamped)
	suite.Equal(0, stats.RemainingUnstamped)
	suite.True(stats.PostMigrationTotal.Equal(stats.PreMigrationTotal))

	for _, u := range suite.store.users {
		suite.True(u.Migrated, "user %s should be migrated", u.UserID)
	}
	suite.Nil(suite.store.checkpoint, "checkpoint should be cleared after completion")
	suite.Len(suite.accounts.accounts, 3)
	suite.Len(suite.accounts.memberships, 3)
}

func (suite *MigrationServiceTestSuite) TestRun_DryRunMatchesCommittedRun() {
	ctx := context.Background()

	dryStore := newFakeMigrationStore()
	seedLegacyFixture(dryStore)
	drySvc := services.NewMigrationService(dryStore, newFakeAccountStore())
	dryStats, err := drySvc.Run(ctx, portssvc.MigrationOptions{DryRun: true, BatchSize: 2})
	suite.Require().NoError(err)

	wetStore := newFakeMigrationStore()
	seedLegacyFixture(wetStore)
	wetSvc := services.NewMigrationService(wetStore, newFakeAccountStore())
	wetStats, err := wetSvc.Run(ctx, portssvc.MigrationOptions{BatchSize: 2})
	suite.Require().NoError(err)

	suite.True(dryStats.DryRun)
	suite.False(wetStats.DryRun)
	suite.Equal(wetStats.LegacyUsersSeen, dryStats.LegacyUsersSeen)
	suite.Equal(wetStats.AccountsCreated, dryStats.AccountsCreated)
	suite.Equal(wetStats.MembershipsCreated, dryStats.MembershipsCreated)
	suite.Equal(wetStats.ExpensesStamped, dryStats.ExpensesStamped)
	suite.Equal(wetStats.CategoriesStamped, dryStats.CategoriesStamped)
	suite.Equal(wetStats.BudgetsStamped, dryStats.BudgetsStamped)

	// The dry run committed nothing.
	for _, u := range dryStore.users {
		suite.False(u.Migrated, "dry run must not mark user %s migrated", u.UserID)
	}
	// The committed run converted everything.
	for _, u := range wetStore.users {
		suite.True(u.Migrated)
	}
}

func (suite *MigrationServiceTestSuite) TestRun_LockHeldByAnotherRun() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)
	suite.store.lockBusy = true

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{})

	suite.Require().Error(err)
	suite.Nil(stats)
	for _, u := range suite.store.users {
		suite.False(u.Migrated)
	}
}

func (suite *MigrationServiceTestSuite) TestRun_LegacySchemaMissing() {
	ctx := context.Background()
	suite.store.schemaPresent = false

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{})

	suite.Require().ErrorIs(err, apperrors.ErrMigrationIntegrity)
	suite.Equal(domain.StagePreconditions, stats.FailedStage)
}

func (suite *MigrationServiceTestSuite) TestRun_OrphansDeletedPreservingConservation() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)
	suite.store.orphans = decimals(7, 8)

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{})

	suite.Require().NoError(err)
	suite.Equal(2, stats.OrphansDeleted)
	suite.Equal(0, stats.OrphansReassigned)
	// Post total accounts for the deleted orphan amounts.
	expected := stats.PreMigrationTotal.Sub(decimal.NewFromInt(15))
	suite.True(stats.PostMigrationTotal.Equal(expected),
		"post total %s, expected %s", stats.PostMigrationTotal, expected)
}

func (suite *MigrationServiceTestSuite) TestRun_OrphansReassignedToFallback() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)
	suite.store.orphans = decimals(7, 8)
	fallback := domain.Account{AccountID: "acc-fallback", Slug: "fallback", Type: domain.AccountTypeBusiness}
	suite.Require().NoError(suite.accounts.SaveAccount(ctx, fallback))

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{FallbackAccountID: "acc-fallback"})

	suite.Require().NoError(err)
	suite.Equal(2, stats.OrphansReassigned)
	suite.Equal(0, stats.OrphansDeleted)
	// Reassigned rows stay in the total.
	suite.True(stats.PostMigrationTotal.Equal(stats.PreMigrationTotal))
}

func (suite *MigrationServiceTestSuite) TestRun_UnknownFallbackAccount() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)
	suite.store.orphans = decimals(7)

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{FallbackAccountID: "acc-nope"})

	suite.Require().Error(err)
	suite.Equal(domain.StageOrphanCleanup, stats.FailedStage)
}

func (suite *MigrationServiceTestSuite) TestRun_ResumesFromCheckpoint() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)
	// user-1 was converted by an interrupted run.
	suite.store.users[0].Migrated = true
	suite.store.records["user-1"] = &legacyRecord{}
	suite.store.checkpoint = &domain.MigrationCheckpoint{LastLegacyUserID: "user-1", ProcessedCount: 1}

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{BatchSize: 10})

	suite.Require().NoError(err)
	suite.Equal(2, stats.LegacyUsersSeen)
	suite.Equal(2, stats.AccountsCreated)
}

func (suite *MigrationServiceTestSuite) TestRun_LeftoverUnstampedFailsValidation() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)
	// Rows owned by a user absent from legacy_users: conversion never stamps
	// them and they are not orphan expenses.
	suite.store.records["user-ghost"] = &legacyRecord{categories: 2}

	stats, err := suite.service.Run(ctx, portssvc.MigrationOptions{})

	suite.Require().ErrorIs(err, apperrors.ErrMigrationIntegrity)
	suite.Equal(domain.StagePostValidation, stats.FailedStage)
	suite.Equal(2, stats.RemainingUnstamped)
}

func (suite *MigrationServiceTestSuite) TestRollback_RestoresBackup() {
	ctx := context.Background()
	seedLegacyFixture(suite.store)

	_, err := suite.service.Run(ctx, portssvc.MigrationOptions{})
	suite.Require().NoError(err)
	for _, u := range suite.store.users {
		suite.True(u.Migrated)
	}

	suite.Require().NoError(suite.service.Rollback(ctx))

	for _, u := range suite.store.users {
		suite.False(u.Migrated, "rollback should restore user %s", u.UserID)
	}
	suite.Nil(suite.store.checkpoint)
}

func TestMigrationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MigrationServiceTestSuite))
}
