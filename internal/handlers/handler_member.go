package handlers

import (
	"net/http"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/dto"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// memberHandler handles HTTP requests for account memberships.
type memberHandler struct {
	accountSvc portssvc.AccountSvcFacade
}

// registerMemberRoutes registers member management routes under a specific
// account. Runs behind the tenant middleware.
func registerMemberRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &memberHandler{accountSvc: services.Account}

	members := rg.Group("/members")
	{
		members.GET("", h.listMembers)
		members.POST("", middleware.RequirePermission(domain.PermManageMembers), h.addMember)
		members.PUT("/:membershipID/role", middleware.RequirePermission(domain.PermManageMembers), h.changeRole)
		members.DELETE("/:membershipID", h.deactivateMember)
	}
}

func (h *memberHandler) listMembers(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	members, err := h.accountSvc.ListMembers(c.Request.Context(), userID, c.Param("accountID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListMembershipsResponse(members))
}

func (h *memberHandler) addMember(c *gin.Context) {
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	membership, err := h.accountSvc.AddMember(c.Request.Context(), userID, req.UserID, c.Param("accountID"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMembershipResponse(membership))
}

func (h *memberHandler) changeRole(c *gin.Context) {
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.accountSvc.ChangeRole(c.Request.Context(), userID, c.Param("membershipID"), req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deactivateMember needs no permission guard: members may leave on their own
// and the service enforces MANAGE_MEMBERS when deactivating someone else.
func (h *memberHandler) deactivateMember(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.accountSvc.DeactivateMember(c.Request.Context(), userID, c.Param("membershipID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
