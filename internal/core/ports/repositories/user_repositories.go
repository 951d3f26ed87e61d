package repositories

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// UserReader defines read operations for user data
type UserReader interface {
	// FindUserByID retrieves a user by ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// UserWriter defines write operations for user data
type UserWriter interface {
	// SaveUser persists a new user with its password hash.
	SaveUser(ctx context.Context, user domain.User, passwordHash string) error

	// FindPasswordHash retrieves the stored password hash for a user.
	FindPasswordHash(ctx context.Context, userID string) (string, error)
}

// UserRepositoryFacade combines the user repository interfaces
type UserRepositoryFacade interface {
	UserReader
	UserWriter
}
