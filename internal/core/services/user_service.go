package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portsrepo "github.com/expensio/expensio-backend/internal/core/ports/repositories"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/utils"
	"github.com/google/uuid"
)

const minPasswordLength = 8

// userService implements the UserSvcFacade interface
type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new user service with the provided dependencies
func NewUserService(userRepo portsrepo.UserRepositoryFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo}
}

// Ensure userService implements the UserSvcFacade interface
var _ portssvc.UserSvcFacade = (*userService)(nil)

// CreateUser registers a user with a hashed password
func (s *userService) CreateUser(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationFailedError("email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationFailedError("password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash password")
		return nil, err
	}

	user := domain.User{
		UserID:      uuid.NewString(),
		Email:       email,
		Name:        name,
		AuditFields: domain.NewAuditFields("system", time.Now()),
	}
	if err := s.userRepo.SaveUser(ctx, user, hash); err != nil {
		s.LogError(ctx, err, "Failed to save user", slog.String("email", email))
		return nil, err
	}

	s.LogInfo(ctx, "User registered", slog.String("user_id", user.UserID))
	return &user, nil
}

// FindUserByID retrieves a user by ID
func (s *userService) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}

// FindUserByEmail retrieves a user by email
func (s *userService) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// VerifyPassword checks a candidate password against the stored hash. A wrong
// password and an unknown user both come back as ErrForbidden so the caller
// cannot probe which emails are registered.
func (s *userService) VerifyPassword(ctx context.Context, userID, password string) error {
	hash, err := s.userRepo.FindPasswordHash(ctx, userID)
	if err != nil {
		return apperrors.ErrForbidden
	}
	if !utils.CheckPasswordHash(password, hash) {
		return apperrors.ErrForbidden
	}
	return nil
}
