package handlers

import (
	"net/http"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/dto"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// budgetHandler handles HTTP requests for budgets within an account.
type budgetHandler struct {
	budgetSvc portssvc.BudgetSvcFacade
}

// registerBudgetRoutes registers budget routes under a specific account.
// Runs behind the tenant middleware.
func registerBudgetRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &budgetHandler{budgetSvc: services.Budget}

	budgets := rg.Group("/budgets", middleware.RequirePermission(domain.PermManageBudgets))
	{
		budgets.GET("", h.listBudgets)
		budgets.POST("", h.createBudget)
		budgets.PUT("/:budgetID", h.updateBudget)
		budgets.DELETE("/:budgetID", h.deleteBudget)
	}
}

func (h *budgetHandler) createBudget(c *gin.Context) {
	var req dto.SaveBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	budget, err := h.budgetSvc.CreateBudget(c.Request.Context(), userID, portssvc.CreateBudgetParams{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Period:     req.Period,
		StartsOn:   req.StartsOn,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToBudgetResponse(budget))
}

func (h *budgetHandler) listBudgets(c *gin.Context) {
	budgets, err := h.budgetSvc.ListBudgets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListBudgetsResponse(budgets))
}

func (h *budgetHandler) updateBudget(c *gin.Context) {
	var req dto.SaveBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	budget, err := h.budgetSvc.UpdateBudget(c.Request.Context(), userID, c.Param("budgetID"), portssvc.CreateBudgetParams{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Period:     req.Period,
		StartsOn:   req.StartsOn,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBudgetResponse(budget))
}

func (h *budgetHandler) deleteBudget(c *gin.Context) {
	if err := h.budgetSvc.DeleteBudget(c.Request.Context(), c.Param("budgetID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
