package dto

import (
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// --- Invitation DTOs ---

// CreateInvitationRequest defines data for inviting an email to an account.
type CreateInvitationRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  domain.Role `json:"role" binding:"required,oneof=ADMIN MEMBER VIEWER"`
}

// AcceptInvitationRequest carries the invitation token being redeemed.
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// InvitationResponse defines data returned for an invitation. The token is
// never included; it travels only in the invitation email.
type InvitationResponse struct {
	InvitationID string                  `json:"invitationID"`
	AccountID    string                  `json:"accountID"`
	Email        string                  `json:"email"`
	Role         domain.Role             `json:"role"`
	Status       domain.InvitationStatus `json:"status"`
	ExpiresAt    time.Time               `json:"expiresAt"`
	InviterID    string                  `json:"inviterID"`
	AcceptedAt   *time.Time              `json:"acceptedAt,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	LastSentAt   time.Time               `json:"lastSentAt"`
}

// ToInvitationResponse converts domain.Invitation to DTO, computing the
// logical status at the given instant.
func ToInvitationResponse(inv *domain.Invitation, now time.Time) InvitationResponse {
	return InvitationResponse{
		InvitationID: inv.InvitationID,
		AccountID:    inv.AccountID,
		Email:        inv.Email,
		Role:         inv.Role,
		Status:       inv.Status(now),
		ExpiresAt:    inv.ExpiresAt,
		InviterID:    inv.InviterID,
		AcceptedAt:   inv.AcceptedAt,
		CreatedAt:    inv.CreatedAt,
		LastSentAt:   inv.LastSentAt,
	}
}

// ListInvitationsResponse wraps a list of invitations.
type ListInvitationsResponse struct {
	Invitations []InvitationResponse `json:"invitations"`
}

// ToListInvitationsResponse converts a slice of domain.Invitation to DTO.
func ToListInvitationsResponse(invitations []domain.Invitation, now time.Time) ListInvitationsResponse {
	list := make([]InvitationResponse, len(invitations))
	for i := range invitations {
		list[i] = ToInvitationResponse(&invitations[i], now)
	}
	return ListInvitationsResponse{Invitations: list}
}
