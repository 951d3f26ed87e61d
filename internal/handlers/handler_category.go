package handlers

import (
	"net/http"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/dto"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// categoryHandler handles HTTP requests for categories within an account.
type categoryHandler struct {
	categorySvc portssvc.CategorySvcFacade
}

// registerCategoryRoutes registers category routes under a specific account.
// Runs behind the tenant middleware.
func registerCategoryRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &categoryHandler{categorySvc: services.Category}

	categories := rg.Group("/categories")
	{
		categories.GET("", middleware.RequirePermission(domain.PermReadExpenses), h.listCategories)
		categories.POST("", middleware.RequirePermission(domain.PermWriteExpenses), h.createCategory)
		categories.PUT("/:categoryID", middleware.RequirePermission(domain.PermWriteExpenses), h.renameCategory)
		categories.DELETE("/:categoryID", middleware.RequirePermission(domain.PermWriteExpenses), h.deactivateCategory)
	}
}

func (h *categoryHandler) createCategory(c *gin.Context) {
	var req dto.SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	category, err := h.categorySvc.CreateCategory(c.Request.Context(), userID, req.Name, req.Color)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCategoryResponse(category))
}

func (h *categoryHandler) listCategories(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true"

	categories, err := h.categorySvc.ListCategories(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListCategoriesResponse(categories))
}

func (h *categoryHandler) renameCategory(c *gin.Context) {
	var req dto.SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	category, err := h.categorySvc.RenameCategory(c.Request.Context(), userID, c.Param("categoryID"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCategoryResponse(category))
}

func (h *categoryHandler) deactivateCategory(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.categorySvc.DeactivateCategory(c.Request.Context(), userID, c.Param("categoryID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
