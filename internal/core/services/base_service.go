package services

import (
	"context"
	"log/slog"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	AccountAuthorizer portssvc.AccountAuthorizerSvc
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// AuthorizeUser checks if a user has the required role for an account.
// A service constructed without an authorizer denies everything; granting
// access on a miswired container would silently skip membership checks.
func (s *BaseService) AuthorizeUser(ctx context.Context, userID, accountID string, requiredRole domain.Role) error {
	if s.AccountAuthorizer == nil {
		s.LogWarn(ctx, "No account authorizer configured, denying access",
			slog.String("user_id", userID),
			slog.String("account_id", accountID),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}
	return s.AccountAuthorizer.AuthorizeUserAction(ctx, userID, accountID, requiredRole)
}

// AuthorizePermission checks if a user's membership grants the permission
func (s *BaseService) AuthorizePermission(ctx context.Context, userID, accountID string, perm domain.Permission) error {
	if s.AccountAuthorizer == nil {
		s.LogWarn(ctx, "No account authorizer configured, denying access",
			slog.String("user_id", userID),
			slog.String("account_id", accountID),
			slog.String("permission", string(perm)))
		return apperrors.ErrForbidden
	}
	return s.AccountAuthorizer.AuthorizeUserPermission(ctx, userID, accountID, perm)
}
