package domain

import "time"

// User represents a registered user of the application.
type User struct {
	UserID string `json:"userID"` // Primary key (UUID)
	Email  string `json:"email"`
	Name   string `json:"name"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Soft delete
}
