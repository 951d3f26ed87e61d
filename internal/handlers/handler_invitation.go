package handlers

import (
	"net/http"
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/dto"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// invitationHandler handles HTTP requests for invitations.
type invitationHandler struct {
	invitationSvc portssvc.InvitationSvcFacade
}

// registerInvitationRoutes registers invitation management routes under a
// specific account. Runs behind the tenant middleware.
func registerInvitationRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &invitationHandler{invitationSvc: services.Invitation}

	invitations := rg.Group("/invitations", middleware.RequirePermission(domain.PermManageMembers))
	{
		invitations.POST("", h.createInvitation)
		invitations.GET("", h.listInvitations)
		invitations.POST("/:invitationID/resend", h.resendInvitation)
		invitations.DELETE("/:invitationID", h.cancelInvitation)
	}
}

// registerInvitationAcceptRoute registers acceptance at the top level: the
// acceptor holds a token, not (yet) a membership in the account.
func registerInvitationAcceptRoute(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &invitationHandler{invitationSvc: services.Invitation}
	rg.POST("/invitations/accept", h.acceptInvitation)
}

func (h *invitationHandler) createInvitation(c *gin.Context) {
	var req dto.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	invitation, err := h.invitationSvc.CreateInvitation(c.Request.Context(), userID, c.Param("accountID"), req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvitationResponse(invitation, time.Now()))
}

func (h *invitationHandler) listInvitations(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	invitations, err := h.invitationSvc.ListInvitations(c.Request.Context(), userID, c.Param("accountID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListInvitationsResponse(invitations, time.Now()))
}

func (h *invitationHandler) resendInvitation(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	invitation, err := h.invitationSvc.ResendInvitation(c.Request.Context(), userID, c.Param("invitationID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvitationResponse(invitation, time.Now()))
}

func (h *invitationHandler) cancelInvitation(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.invitationSvc.CancelInvitation(c.Request.Context(), userID, c.Param("invitationID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *invitationHandler) acceptInvitation(c *gin.Context) {
	var req dto.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	membership, err := h.invitationSvc.AcceptInvitation(c.Request.Context(), userID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMembershipResponse(membership))
}
