package handlers

import (
	"net/http"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/dto"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests for accounts themselves.
type accountHandler struct {
	accountSvc portssvc.AccountSvcFacade
}

func newAccountHandler(accountSvc portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{accountSvc: accountSvc}
}

// registerAccountRoutes registers account creation/listing at the top level
// and account-specific routes behind the tenant middleware.
func registerAccountRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := newAccountHandler(services.Account)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listMyAccounts)
	}

	// Suspension management sits outside the tenant middleware: a suspended
	// account rejects tenant-scoped requests, so reactivation could never
	// pass through it. The service authorizes both operations itself.
	rg.POST("/accounts/:accountID/suspend", h.suspendAccount)
	rg.POST("/accounts/:accountID/reactivate", h.reactivateAccount)

	// Everything under /accounts/:accountID runs with tenant context
	// established and an active membership verified.
	accountSpecific := rg.Group("/accounts/:accountID", middleware.TenantMiddleware(services.Account))
	{
		accountSpecific.GET("", h.getAccount)
		accountSpecific.PUT("/settings",
			middleware.RequirePermission(domain.PermManageSettings), h.updateSettings)

		registerMemberRoutes(accountSpecific, services)
		registerInvitationRoutes(accountSpecific, services)
		registerExpenseRoutes(accountSpecific, services)
		registerCategoryRoutes(accountSpecific, services)
		registerBudgetRoutes(accountSpecific, services)
	}
}

func (h *accountHandler) createAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.CreateAccountWithOwner(c.Request.Context(), userID, portssvc.CreateAccountParams{
		Name:         req.Name,
		Slug:         req.Slug,
		Type:         domain.AccountType(req.Type),
		CurrencyCode: req.CurrencyCode,
		Locale:       req.Locale,
		Timezone:     req.Timezone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *accountHandler) listMyAccounts(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	accounts, err := h.accountSvc.ListUserAccounts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListAccountsResponse(accounts))
}

func (h *accountHandler) getAccount(c *gin.Context) {
	account, err := h.accountSvc.FindAccountByID(c.Request.Context(), c.Param("accountID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) updateSettings(c *gin.Context) {
	var req dto.UpdateAccountSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	account, err := h.accountSvc.UpdateSettings(c.Request.Context(), userID, c.Param("accountID"), domain.AccountSettings{
		CurrencyCode: req.CurrencyCode,
		Locale:       req.Locale,
		Timezone:     req.Timezone,
		FeatureFlags: req.FeatureFlags,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *accountHandler) suspendAccount(c *gin.Context) {
	var req dto.SuspendAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.accountSvc.Suspend(c.Request.Context(), userID, c.Param("accountID"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *accountHandler) reactivateAccount(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.accountSvc.Reactivate(c.Request.Context(), userID, c.Param("accountID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
