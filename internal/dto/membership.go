package dto

import (
	"time"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// --- Membership DTOs ---

// AddMemberRequest defines data for adding a user to an account directly.
type AddMemberRequest struct {
	UserID string      `json:"userID" binding:"required"`
	Role   domain.Role `json:"role" binding:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

// ChangeRoleRequest defines data for changing a member's role.
type ChangeRoleRequest struct {
	Role domain.Role `json:"role" binding:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

// MembershipResponse defines data returned about an account membership.
type MembershipResponse struct {
	MembershipID   string              `json:"membershipID"`
	AccountID      string              `json:"accountID"`
	UserID         string              `json:"userID"`
	UserName       string              `json:"userName,omitempty"`
	Role           domain.Role         `json:"role"`
	Permissions    []domain.Permission `json:"permissions"`
	IsActive       bool                `json:"isActive"`
	JoinedAt       time.Time           `json:"joinedAt"`
	LastAccessedAt *time.Time          `json:"lastAccessedAt,omitempty"`
}

// ToMembershipResponse converts domain.Membership to DTO. The permission list
// is the resolved union of the role's base set and extra grants.
func ToMembershipResponse(m *domain.Membership) MembershipResponse {
	perms := domain.Resolve(m.Role)
	for _, p := range m.ExtraPermissions {
		found := false
		for _, existing := range perms {
			if existing == p {
				found = true
				break
			}
		}
		if !found {
			perms = append(perms, p)
		}
	}
	return MembershipResponse{
		MembershipID:   m.MembershipID,
		AccountID:      m.AccountID,
		UserID:         m.UserID,
		UserName:       m.UserName,
		Role:           m.Role,
		Permissions:    perms,
		IsActive:       m.IsActive,
		JoinedAt:       m.JoinedAt,
		LastAccessedAt: m.LastAccessedAt,
	}
}

// ListMembershipsResponse wraps a list of memberships.
type ListMembershipsResponse struct {
	Members []MembershipResponse `json:"members"`
}

// ToListMembershipsResponse converts a slice of domain.Membership to DTO.
func ToListMembershipsResponse(members []domain.Membership) ListMembershipsResponse {
	list := make([]MembershipResponse, len(members))
	for i := range members {
		list[i] = ToMembershipResponse(&members[i])
	}
	return ListMembershipsResponse{Members: list}
}
