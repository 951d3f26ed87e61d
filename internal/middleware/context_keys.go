package middleware

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// contextKey is a private type for context keys set by this package.
// Using a custom type prevents collisions.
type contextKey string

const (
	userIDKey     = contextKey("userID")
	loggerCtxKey  = contextKey("logger")
	membershipKey = contextKey("membership")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get(string(userIDKey))
	if !exists {
		// check in the request context as well
		userIDVal := c.Request.Context().Value(userIDKey)
		if userIDVal != nil {
			return userIDVal.(string), true
		}
		return "", false
	}

	userID, ok := userIDVal.(string)
	if !ok {
		return "", false
	}

	return userID, true
}

// GetMembershipFromCtx retrieves the caller's membership in the current
// account, placed there by TenantMiddleware.
func GetMembershipFromCtx(ctx context.Context) (*domain.Membership, bool) {
	membership, ok := ctx.Value(membershipKey).(*domain.Membership)
	return membership, ok
}
