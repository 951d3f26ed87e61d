package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock InvitationRepository ---
type MockInvitationRepository struct {
	mock.Mock
}

func (m *MockInvitationRepository) FindInvitationByID(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	args := m.Called(ctx, invitationID)
	var inv *domain.Invitation
	if args.Get(0) != nil {
		inv = args.Get(0).(*domain.Invitation)
	}
	return inv, args.Error(1)
}

func (m *MockInvitationRepository) FindInvitationByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	args := m.Called(ctx, token)
	var inv *domain.Invitation
	if args.Get(0) != nil {
		inv = args.Get(0).(*domain.Invitation)
	}
	return inv, args.Error(1)
}

func (m *MockInvitationRepository) FindPendingInvitationByEmail(ctx context.Context, accountID, email string, now time.Time) (*domain.Invitation, error) {
	args := m.Called(ctx, accountID, email, now)
	var inv *domain.Invitation
	if args.Get(0) != nil {
		inv = args.Get(0).(*domain.Invitation)
	}
	return inv, args.Error(1)
}

func (m *MockInvitationRepository) ListInvitationsByAccount(ctx context.Context, accountID string) ([]domain.Invitation, error) {
	args := m.Called(ctx, accountID)
	var invs []domain.Invitation
	if args.Get(0) != nil {
		invs = args.Get(0).([]domain.Invitation)
	}
	return invs, args.Error(1)
}

func (m *MockInvitationRepository) SaveInvitation(ctx context.Context, invitation domain.Invitation) error {
	args := m.Called(ctx, invitation)
	return args.Error(0)
}

func (m *MockInvitationRepository) UpdateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	args := m.Called(ctx, invitation)
	return args.Error(0)
}

func (m *MockInvitationRepository) MarkExpiredBefore(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockInvitationRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Mock UserReader ---
type MockUserReader struct {
	mock.Mock
}

func (m *MockUserReader) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserReader) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

// --- Mock InvitationNotifier ---
type MockInvitationNotifier struct {
	mock.Mock
}

func (m *MockInvitationNotifier) InvitationCreated(ctx context.Context, invitation *domain.Invitation) error {
	args := m.Called(ctx, invitation)
	return args.Error(0)
}

func (m *MockInvitationNotifier) InvitationAccepted(ctx context.Context, invitation *domain.Invitation) error {
	args := m.Called(ctx, invitation)
	return args.Error(0)
}

// --- Test Suite ---
type InvitationServiceTestSuite struct {
	suite.Suite
	mockInvitationRepo *MockInvitationRepository
	mockAccountRepo    *MockAccountRepository
	mockUserReader     *MockUserReader
	mockNotifier       *MockInvitationNotifier
	service            portssvc.InvitationSvcFacade
}

func (suite *InvitationServiceTestSuite) SetupTest() {
	suite.mockInvitationRepo = new(MockInvitationRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockUserReader = new(MockUserReader)
	suite.mockNotifier = new(MockInvitationNotifier)
	// The account service doubles as the authorizer, same as the container wiring.
	suite.service = services.NewInvitationService(
		suite.mockInvitationRepo,
		suite.mockAccountRepo,
		suite.mockUserReader,
		suite.mockNotifier,
		services.NewAccountService(suite.mockAccountRepo),
		7*24*time.Hour,
	)
}

func pendingInvitation(accountID, email string, expiresAt time.Time) *domain.Invitation {
	return &domain.Invitation{
		InvitationID: "inv-1",
		AccountID:    accountID,
		Email:        email,
		Role:         domain.RoleMember,
		Token:        "tok-1",
		ExpiresAt:    expiresAt,
		InviterID:    "user-admin",
		CreatedAt:    time.Now().Add(-time.Hour),
		LastSentAt:   time.Now().Add(-time.Hour),
	}
}

// --- CreateInvitation Tests ---

func (suite *InvitationServiceTestSuite) TestCreateInvitation_Success() {
	ctx := context.Background()
	accountID := "acc-1"
	admin := "user-admin"
	account := &domain.Account{AccountID: accountID, Type: domain.AccountTypeFamily}

	suite.mockAccountRepo.On("FindMembership", ctx, accountID, admin).
		Return(ownerMembership(accountID, admin), nil)
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockInvitationRepo.On("FindPendingInvitationByEmail", ctx, accountID, "new@example.com", mock.Anything).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("CountActiveMemberships", ctx, accountID).Return(2, nil).Once()
	suite.mockInvitationRepo.On("SaveInvitation", ctx, mock.MatchedBy(func(inv domain.Invitation) bool {
		return inv.Email == "new@example.com" && inv.Role == domain.RoleMember &&
			inv.Token != "" && inv.ExpiresAt.After(time.Now())
	})).Return(nil).Once()
	suite.mockNotifier.On("InvitationCreated", ctx, mock.Anything).Return(nil).Once()

	// Email is normalized before anything else.
	invitation, err := suite.service.CreateInvitation(ctx, admin, accountID, "  New@Example.COM ", domain.RoleMember)

	suite.Require().NoError(err)
	suite.Require().NotNil(invitation)
	suite.Equal("new@example.com", invitation.Email)
	suite.mockInvitationRepo.AssertExpectations(suite.T())
	suite.mockNotifier.AssertExpectations(suite.T())
}

func (suite *InvitationServiceTestSuite) TestCreateInvitation_OwnerRoleRejected() {
	ctx := context.Background()

	_, err := suite.service.CreateInvitation(ctx, "user-admin", "acc-1", "x@example.com", domain.RoleOwner)

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.mockInvitationRepo.AssertNotCalled(suite.T(), "SaveInvitation", mock.Anything, mock.Anything)
}

func (suite *InvitationServiceTestSuite) TestCreateInvitation_PendingDuplicateConflict() {
	ctx := context.Background()
	accountID := "acc-1"
	admin := "user-admin"
	account := &domain.Account{AccountID: accountID, Type: domain.AccountTypeFamily}
	existing := pendingInvitation(accountID, "dup@example.com", time.Now().Add(time.Hour))

	suite.mockAccountRepo.On("FindMembership", ctx, accountID, admin).
		Return(ownerMembership(accountID, admin), nil)
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockInvitationRepo.On("FindPendingInvitationByEmail", ctx, accountID, "dup@example.com", mock.Anything).
		Return(existing, nil).Once()

	_, err := suite.service.CreateInvitation(ctx, admin, accountID, "dup@example.com", domain.RoleMember)

	suite.Require().ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockInvitationRepo.AssertNotCalled(suite.T(), "SaveInvitation", mock.Anything, mock.Anything)
}

func (suite *InvitationServiceTestSuite) TestCreateInvitation_AtCapacity() {
	ctx := context.Background()
	accountID := "acc-1"
	admin := "user-admin"
	account := &domain.Account{AccountID: accountID, Type: domain.AccountTypePersonal}

	suite.mockAccountRepo.On("FindMembership", ctx, accountID, admin).
		Return(ownerMembership(accountID, admin), nil)
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockInvitationRepo.On("FindPendingInvitationByEmail", ctx, accountID, "x@example.com", mock.Anything).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("CountActiveMemberships", ctx, accountID).Return(1, nil).Once()

	_, err := suite.service.CreateInvitation(ctx, admin, accountID, "x@example.com", domain.RoleMember)

	suite.Require().ErrorIs(err, apperrors.ErrUserLimitExceeded)
}

func (suite *InvitationServiceTestSuite) TestCreateInvitation_NoAuthorizerDenied() {
	ctx := context.Background()

	// A container wired without an authorizer must fail closed.
	unwired := services.NewInvitationService(
		suite.mockInvitationRepo,
		suite.mockAccountRepo,
		suite.mockUserReader,
		suite.mockNotifier,
		nil,
		7*24*time.Hour,
	)

	_, err := unwired.CreateInvitation(ctx, "user-admin", "acc-1", "x@example.com", domain.RoleMember)

	suite.Require().ErrorIs(err, apperrors.ErrForbidden)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "FindAccountByID", mock.Anything, mock.Anything)
	suite.mockInvitationRepo.AssertNotCalled(suite.T(), "SaveInvitation", mock.Anything, mock.Anything)
}

// --- AcceptInvitation Tests ---

func (suite *InvitationServiceTestSuite) TestAcceptInvitation_Expired() {
	ctx := context.Background()
	invitation := pendingInvitation("acc-1", "late@example.com", time.Now().Add(-time.Minute))

	suite.mockInvitationRepo.On("FindInvitationByToken", ctx, "tok-1").Return(invitation, nil).Once()

	// No sweep has run; expiry holds purely by clock comparison.
	membership, err := suite.service.AcceptInvitation(ctx, "user-late", "tok-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvitationExpired)
	suite.Nil(membership)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveMembership", mock.Anything, mock.Anything)
}

func (suite *InvitationServiceTestSuite) TestAcceptInvitation_AlreadyAccepted() {
	ctx := context.Background()
	invitation := pendingInvitation("acc-1", "done@example.com", time.Now().Add(time.Hour))
	acceptedAt := time.Now().Add(-time.Minute)
	invitation.AcceptedAt = &acceptedAt

	suite.mockInvitationRepo.On("FindInvitationByToken", ctx, "tok-1").Return(invitation, nil).Once()

	_, err := suite.service.AcceptInvitation(ctx, "user-done", "tok-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvitationAlreadyAccepted)
}

func (suite *InvitationServiceTestSuite) TestAcceptInvitation_WrongAcceptor() {
	ctx := context.Background()
	invitation := pendingInvitation("acc-1", "invited@example.com", time.Now().Add(time.Hour))

	suite.mockInvitationRepo.On("FindInvitationByToken", ctx, "tok-1").Return(invitation, nil).Once()
	suite.mockUserReader.On("FindUserByID", ctx, "user-impostor").
		Return(&domain.User{UserID: "user-impostor", Email: "impostor@example.com"}, nil).Once()
	suite.mockUserReader.On("FindUserByEmail", ctx, "invited@example.com").
		Return(&domain.User{UserID: "user-invited", Email: "invited@example.com"}, nil).Once()

	_, err := suite.service.AcceptInvitation(ctx, "user-impostor", "tok-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvitationWrongAcceptor)
}

func (suite *InvitationServiceTestSuite) TestAcceptInvitation_CreatesMembership() {
	ctx := context.Background()
	accountID := "acc-1"
	acceptor := "user-invited"
	invitation := pendingInvitation(accountID, "invited@example.com", time.Now().Add(time.Hour))
	account := &domain.Account{AccountID: accountID, Type: domain.AccountTypeFamily}

	suite.mockInvitationRepo.On("FindInvitationByToken", ctx, "tok-1").Return(invitation, nil).Once()
	suite.mockUserReader.On("FindUserByID", ctx, acceptor).
		Return(&domain.User{UserID: acceptor, Email: "invited@example.com"}, nil).Once()
	suite.mockUserReader.On("FindUserByEmail", ctx, "invited@example.com").
		Return(&domain.User{UserID: acceptor, Email: "invited@example.com"}, nil).Once()
	suite.mockAccountRepo.On("LockAccountMemberships", ctx, accountID).Return(nil).Once()
	suite.mockInvitationRepo.On("FindInvitationByID", ctx, "inv-1").Return(invitation, nil).Once()
	suite.mockAccountRepo.On("FindMembership", ctx, accountID, acceptor).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockAccountRepo.On("CountActiveMemberships", ctx, accountID).Return(2, nil).Once()
	suite.mockAccountRepo.On("SaveMembership", ctx, mock.MatchedBy(func(m domain.Membership) bool {
		return m.UserID == acceptor && m.Role == invitation.Role && m.IsActive &&
			m.InvitationID != nil && *m.InvitationID == invitation.InvitationID
	})).Return(nil).Once()
	suite.mockInvitationRepo.On("UpdateInvitation", ctx, mock.MatchedBy(func(inv *domain.Invitation) bool {
		return inv.AcceptedAt != nil && inv.AcceptorID != nil && *inv.AcceptorID == acceptor
	})).Return(nil).Once()
	suite.mockNotifier.On("InvitationAccepted", ctx, mock.Anything).Return(nil).Once()

	membership, err := suite.service.AcceptInvitation(ctx, acceptor, "tok-1")

	suite.Require().NoError(err)
	suite.Require().NotNil(membership)
	suite.Equal(domain.RoleMember, membership.Role)
	suite.mockAccountRepo.AssertExpectations(suite.T())
	suite.mockInvitationRepo.AssertExpectations(suite.T())
}

func (suite *InvitationServiceTestSuite) TestAcceptInvitation_ReactivatesDormantMembership() {
	ctx := context.Background()
	accountID := "acc-1"
	acceptor := "user-back"
	invitation := pendingInvitation(accountID, "back@example.com", time.Now().Add(time.Hour))
	invitation.Role = domain.RoleViewer
	account := &domain.Account{AccountID: accountID, Type: domain.AccountTypeFamily}
	dormant := &domain.Membership{MembershipID: "m-back", AccountID: accountID, UserID: acceptor, Role: domain.RoleMember, IsActive: false}

	suite.mockInvitationRepo.On("FindInvitationByToken", ctx, "tok-1").Return(invitation, nil).Once()
	suite.mockUserReader.On("FindUserByID", ctx, acceptor).
		Return(&domain.User{UserID: acceptor, Email: "back@example.com"}, nil).Once()
	suite.mockUserReader.On("FindUserByEmail", ctx, "back@example.com").
		Return(&domain.User{UserID: acceptor, Email: "back@example.com"}, nil).Once()
	suite.mockAccountRepo.On("LockAccountMemberships", ctx, accountID).Return(nil).Once()
	suite.mockInvitationRepo.On("FindInvitationByID", ctx, "inv-1").Return(invitation, nil).Once()
	suite.mockAccountRepo.On("FindMembership", ctx, accountID, acceptor).Return(dormant, nil).Once()
	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(account, nil).Once()
	suite.mockAccountRepo.On("CountActiveMemberships", ctx, accountID).Return(2, nil).Once()
	suite.mockAccountRepo.On("UpdateMembershipRole", ctx, "m-back", domain.RoleViewer).Return(nil).Once()
	suite.mockAccountRepo.On("UpdateMembershipActive", ctx, "m-back", true).Return(nil).Once()
	suite.mockInvitationRepo.On("UpdateInvitation", ctx, mock.Anything).Return(nil).Once()
	suite.mockNotifier.On("InvitationAccepted", ctx, mock.Anything).Return(nil).Once()

	membership, err := suite.service.AcceptInvitation(ctx, acceptor, "tok-1")

	suite.Require().NoError(err)
	suite.Require().NotNil(membership)
	suite.Equal("m-back", membership.MembershipID)
	suite.Equal(domain.RoleViewer, membership.Role)
	suite.True(membership.IsActive)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveMembership", mock.Anything, mock.Anything)
}

func (suite *InvitationServiceTestSuite) TestAcceptInvitation_ConcurrentAcceptSeenUnderLock() {
	ctx := context.Background()
	accountID := "acc-1"
	acceptor := "user-invited"
	invitation := pendingInvitation(accountID, "invited@example.com", time.Now().Add(time.Hour))

	// Another accept of the same token committed between the status gate and
	// the lock. The reload inside the transaction must surface the lifecycle
	// error, not a duplicate-membership one.
	accepted := pendingInvitation(accountID, "invited@example.com", invitation.ExpiresAt)
	acceptedAt := time.Now().Add(-time.Second)
	accepted.AcceptedAt = &acceptedAt
	accepted.AcceptorID = &acceptor

	suite.mockInvitationRepo.On("FindInvitationByToken", ctx, "tok-1").Return(invitation, nil).Once()
	suite.mockUserReader.On("FindUserByID", ctx, acceptor).
		Return(&domain.User{UserID: acceptor, Email: "invited@example.com"}, nil).Once()
	suite.mockUserReader.On("FindUserByEmail", ctx, "invited@example.com").
		Return(&domain.User{UserID: acceptor, Email: "invited@example.com"}, nil).Once()
	suite.mockAccountRepo.On("LockAccountMemberships", ctx, accountID).Return(nil).Once()
	suite.mockInvitationRepo.On("FindInvitationByID", ctx, "inv-1").Return(accepted, nil).Once()

	membership, err := suite.service.AcceptInvitation(ctx, acceptor, "tok-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvitationAlreadyAccepted)
	suite.Nil(membership)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveMembership", mock.Anything, mock.Anything)
	suite.mockInvitationRepo.AssertNotCalled(suite.T(), "UpdateInvitation", mock.Anything, mock.Anything)
}

// --- Resend / Cancel Tests ---

func (suite *InvitationServiceTestSuite) TestResendInvitation_RotatesToken() {
	ctx := context.Background()
	accountID := "acc-1"
	admin := "user-admin"
	invitation := pendingInvitation(accountID, "slow@example.com", time.Now().Add(time.Minute))
	oldToken := invitation.Token
	oldExpiry := invitation.ExpiresAt

	suite.mockInvitationRepo.On("FindInvitationByID", ctx, "inv-1").Return(invitation, nil).Once()
	suite.mockAccountRepo.On("FindMembership", ctx, accountID, admin).
		Return(ownerMembership(accountID, admin), nil)
	suite.mockInvitationRepo.On("UpdateInvitation", ctx, mock.Anything).Return(nil).Once()
	suite.mockNotifier.On("InvitationCreated", ctx, mock.Anything).Return(nil).Once()

	resent, err := suite.service.ResendInvitation(ctx, admin, "inv-1")

	suite.Require().NoError(err)
	suite.NotEqual(oldToken, resent.Token)
	suite.True(resent.ExpiresAt.After(oldExpiry))
}

func (suite *InvitationServiceTestSuite) TestCancelInvitation_NotPending() {
	ctx := context.Background()
	accountID := "acc-1"
	admin := "user-admin"
	invitation := pendingInvitation(accountID, "gone@example.com", time.Now().Add(-time.Hour))

	suite.mockInvitationRepo.On("FindInvitationByID", ctx, "inv-1").Return(invitation, nil).Once()
	suite.mockAccountRepo.On("FindMembership", ctx, accountID, admin).
		Return(ownerMembership(accountID, admin), nil)

	err := suite.service.CancelInvitation(ctx, admin, "inv-1")

	suite.Require().ErrorIs(err, apperrors.ErrInvitationNotPending)
	suite.mockInvitationRepo.AssertNotCalled(suite.T(), "UpdateInvitation", mock.Anything, mock.Anything)
}

func (suite *InvitationServiceTestSuite) TestCancelInvitation_Success() {
	ctx := context.Background()
	accountID := "acc-1"
	admin := "user-admin"
	invitation := pendingInvitation(accountID, "nvm@example.com", time.Now().Add(time.Hour))

	suite.mockInvitationRepo.On("FindInvitationByID", ctx, "inv-1").Return(invitation, nil).Once()
	suite.mockAccountRepo.On("FindMembership", ctx, accountID, admin).
		Return(ownerMembership(accountID, admin), nil)
	suite.mockInvitationRepo.On("UpdateInvitation", ctx, mock.MatchedBy(func(inv *domain.Invitation) bool {
		return inv.CancelledAt != nil
	})).Return(nil).Once()

	err := suite.service.CancelInvitation(ctx, admin, "inv-1")

	suite.Require().NoError(err)
	suite.mockInvitationRepo.AssertExpectations(suite.T())
}

// --- SweepExpired Tests ---

func (suite *InvitationServiceTestSuite) TestSweepExpired_ReportsCount() {
	ctx := context.Background()

	suite.mockInvitationRepo.On("MarkExpiredBefore", ctx, mock.Anything).Return(3, nil).Once()

	swept, err := suite.service.SweepExpired(ctx)

	suite.Require().NoError(err)
	suite.Equal(3, swept)
}

func TestInvitationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvitationServiceTestSuite))
}
