package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/tenant"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the account from the :accountID path parameter,
// verifies the authenticated user holds an active membership in it, and
// establishes the tenant context for everything downstream. Handlers behind
// it never pass an account ID explicitly; scoped repositories read it from
// the request context.
func TenantMiddleware(accountSvc portssvc.AccountSvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		accountID := c.Param("accountID")
		if accountID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account ID required"})
			return
		}
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		account, err := accountSvc.FindAccountByID(c.Request.Context(), accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
				return
			}
			logger.Error("Failed to load account", slog.String("account_id", accountID), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if account.IsSuspended() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is suspended"})
			return
		}

		membership, err := accountSvc.FindMembership(c.Request.Context(), accountID, userID)
		if err != nil || membership == nil || !membership.IsActive {
			// A non-member gets the same answer as a missing account so
			// account IDs cannot be probed.
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}

		ctx := tenant.With(c.Request.Context(), accountID)
		ctx = context.WithValue(ctx, membershipKey, membership)
		ctx = context.WithValue(ctx, loggerCtxKey, logger.With(slog.String("account_id", accountID)))
		c.Request = c.Request.WithContext(ctx)

		// Best effort; losing a last-accessed update is fine.
		if err := accountSvc.TouchAccess(c.Request.Context(), userID, accountID); err != nil {
			logger.Debug("Failed to touch membership access", slog.String("error", err.Error()))
		}

		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller's membership in the current
// account holds at least the given role. Must run after TenantMiddleware.
func RequireRole(minRole domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, ok := GetMembershipFromCtx(c.Request.Context())
		if !ok || !domain.HasRole(membership, minRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the caller's membership grants the
// permission. Must run after TenantMiddleware.
func RequirePermission(perm domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, ok := GetMembershipFromCtx(c.Request.Context())
		if !ok || !domain.Can(membership, perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}
