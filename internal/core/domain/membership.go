package domain

import "time"

// Role is the closed set of roles a member can hold in an account.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// rank orders roles for hierarchy checks: owner > admin > member > viewer.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// AtLeast reports whether r sits at or above required in the role hierarchy.
// An admin satisfies a "member-or-above" requirement.
func (r Role) AtLeast(required Role) bool {
	return r.rank() >= required.rank()
}

// Permission is the bounded set of capability flags.
type Permission string

const (
	PermReadExpenses   Permission = "READ_EXPENSES"
	PermWriteExpenses  Permission = "WRITE_EXPENSES"
	PermManageBudgets  Permission = "MANAGE_BUDGETS"
	PermManageMembers  Permission = "MANAGE_MEMBERS"
	PermManageSettings Permission = "MANAGE_SETTINGS"
	PermSuspendAccount Permission = "SUSPEND_ACCOUNT"
)

// rolePermissions maps each role to its base capability set. Owner is handled
// separately in Resolve: it implicitly holds every permission regardless of
// this table.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermReadExpenses, PermWriteExpenses, PermManageBudgets,
		PermManageMembers, PermManageSettings,
	},
	RoleMember: {
		PermReadExpenses, PermWriteExpenses, PermManageBudgets,
	},
	RoleViewer: {
		PermReadExpenses,
	},
}

// Resolve returns the capability set for a role. The returned slice is a
// copy; callers may mutate it.
func Resolve(role Role) []Permission {
	if role == RoleOwner {
		return []Permission{
			PermReadExpenses, PermWriteExpenses, PermManageBudgets,
			PermManageMembers, PermManageSettings, PermSuspendAccount,
		}
	}
	base := rolePermissions[role]
	out := make([]Permission, len(base))
	copy(out, base)
	return out
}

// Membership is the authorization relationship between a user and an account.
// Unique per (account, user) pair.
type Membership struct {
	MembershipID   string     `json:"membershipID"` // Primary key (UUID)
	AccountID      string     `json:"accountID"`
	UserID         string     `json:"userID"`
	UserName       string     `json:"userName,omitempty"` // Joined from users for listings
	Role           Role       `json:"role"`
	IsActive       bool       `json:"isActive"`
	JoinedAt       time.Time  `json:"joinedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`

	// Per-membership permission grants beyond the role's base set.
	ExtraPermissions []Permission `json:"extraPermissions,omitempty"`

	// Invitation linkage, set when the membership came from an invitation.
	InvitationID *string `json:"invitationID,omitempty"`
}

// HasRole reports whether the membership satisfies a minimum-role requirement.
// Returns false for a nil or inactive membership: denial is a normal outcome.
func HasRole(m *Membership, required Role) bool {
	if m == nil || !m.IsActive {
		return false
	}
	return m.Role.AtLeast(required)
}

// Can reports whether the membership grants a permission, unioning the role's
// base set with the membership's extra grants. Returns false for a nil or
// inactive membership.
func Can(m *Membership, perm Permission) bool {
	if m == nil || !m.IsActive {
		return false
	}
	for _, p := range Resolve(m.Role) {
		if p == perm {
			return true
		}
	}
	for _, p := range m.ExtraPermissions {
		if p == perm {
			return true
		}
	}
	return false
}
