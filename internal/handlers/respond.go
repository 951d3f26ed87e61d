package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP status codes. Invariant and
// lifecycle violations are normal outcomes with specific statuses;
// ErrNoTenantSet and ErrMigrationIntegrity are defects and surface as 500s
// after logging.
func respondError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, apperrors.ErrInvitationWrongAcceptor):
		c.JSON(http.StatusForbidden, gin.H{"error": "invitation was issued to a different user"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrInvitationExpired):
		c.JSON(http.StatusGone, gin.H{"error": "invitation has expired"})
	case errors.Is(err, apperrors.ErrDuplicateMembership):
		c.JSON(http.StatusConflict, gin.H{"error": "user is already a member of this account"})
	case errors.Is(err, apperrors.ErrUserLimitExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "account member limit reached"})
	case errors.Is(err, apperrors.ErrLastOwnerViolation):
		c.JSON(http.StatusConflict, gin.H{"error": "account must keep at least one active owner"})
	case errors.Is(err, apperrors.ErrInvitationAlreadyAccepted):
		c.JSON(http.StatusConflict, gin.H{"error": "invitation was already accepted"})
	case errors.Is(err, apperrors.ErrInvitationNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "invitation is no longer pending"})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrCrossTenantReference):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "referenced entity belongs to a different account"})
	default:
		logger.Error("Unhandled service error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// mustUserID pulls the authenticated user from the context, aborting with 401
// when the auth middleware has not run.
func mustUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}
