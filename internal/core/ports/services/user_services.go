package services

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// UserSvcFacade defines the thin identity surface the core consumes. The
// core never authenticates credentials itself; the auth handler does, using
// VerifyPassword, and hands the user ID to everything else.
type UserSvcFacade interface {
	// CreateUser registers a user with a hashed password.
	CreateUser(ctx context.Context, email, name, password string) (*domain.User, error)

	// FindUserByID retrieves a user by ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// VerifyPassword checks a candidate password against the stored hash.
	VerifyPassword(ctx context.Context, userID, password string) error
}
