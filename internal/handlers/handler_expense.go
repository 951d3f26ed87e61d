package handlers

import (
	"net/http"
	"strconv"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/dto"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// expenseHandler handles HTTP requests for expenses within an account.
type expenseHandler struct {
	expenseSvc portssvc.ExpenseSvcFacade
}

// registerExpenseRoutes registers expense routes under a specific account.
// Runs behind the tenant middleware.
func registerExpenseRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &expenseHandler{expenseSvc: services.Expense}

	expenses := rg.Group("/expenses")
	{
		expenses.GET("", middleware.RequirePermission(domain.PermReadExpenses), h.listExpenses)
		expenses.GET("/summary", middleware.RequirePermission(domain.PermReadExpenses), h.expenseSummary)
		expenses.GET("/:expenseID", middleware.RequirePermission(domain.PermReadExpenses), h.getExpense)
		expenses.POST("", middleware.RequirePermission(domain.PermWriteExpenses), h.createExpense)
		expenses.PUT("/:expenseID", middleware.RequirePermission(domain.PermWriteExpenses), h.updateExpense)
		expenses.DELETE("/:expenseID", middleware.RequirePermission(domain.PermWriteExpenses), h.deleteExpense)
	}
}

func (h *expenseHandler) createExpense(c *gin.Context) {
	var req dto.SaveExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	expense, err := h.expenseSvc.CreateExpense(c.Request.Context(), userID, portssvc.CreateExpenseParams{
		CategoryID:   req.CategoryID,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		OccurredOn:   req.OccurredOn,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToExpenseResponse(expense))
}

func (h *expenseHandler) getExpense(c *gin.Context) {
	expense, err := h.expenseSvc.FindExpenseByID(c.Request.Context(), c.Param("expenseID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense))
}

func (h *expenseHandler) listExpenses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	expenses, err := h.expenseSvc.ListExpenses(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListExpensesResponse(expenses))
}

func (h *expenseHandler) expenseSummary(c *gin.Context) {
	total, err := h.expenseSvc.SumExpenses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ExpenseSummaryResponse{Total: total})
}

func (h *expenseHandler) updateExpense(c *gin.Context) {
	var req dto.SaveExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	expense, err := h.expenseSvc.UpdateExpense(c.Request.Context(), userID, c.Param("expenseID"), portssvc.CreateExpenseParams{
		CategoryID:   req.CategoryID,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		OccurredOn:   req.OccurredOn,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense))
}

func (h *expenseHandler) deleteExpense(c *gin.Context) {
	if err := h.expenseSvc.DeleteExpense(c.Request.Context(), c.Param("expenseID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
