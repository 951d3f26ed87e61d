package dto

import (
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// --- Category DTOs ---

// SaveCategoryRequest defines data for creating or renaming a category.
type SaveCategoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// CategoryResponse defines data returned for a category.
type CategoryResponse struct {
	CategoryID string    `json:"categoryID"`
	AccountID  string    `json:"accountID"`
	Name       string    `json:"name"`
	Color      string    `json:"color,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToCategoryResponse converts domain.Category to DTO.
func ToCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		CategoryID: c.CategoryID,
		AccountID:  c.AccountID,
		Name:       c.Name,
		Color:      c.Color,
		IsActive:   c.IsActive,
		CreatedAt:  c.CreatedAt,
	}
}

// ListCategoriesResponse wraps a list of categories.
type ListCategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

// ToListCategoriesResponse converts a slice of domain.Category to DTO.
func ToListCategoriesResponse(categories []domain.Category) ListCategoriesResponse {
	list := make([]CategoryResponse, len(categories))
	for i := range categories {
		list[i] = ToCategoryResponse(&categories[i])
	}
	return ListCategoriesResponse{Categories: list}
}
