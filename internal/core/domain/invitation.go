package domain

import "time"

// InvitationStatus is the lifecycle state of an invitation.
// pending -> {accepted, expired, cancelled}; all three are terminal.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationExpired   InvitationStatus = "EXPIRED"
	InvitationCancelled InvitationStatus = "CANCELLED"
)

// Invitation is a token-based, time-limited offer to join an account with a
// given role. Logically a staged membership: acceptance produces exactly one
// membership or reactivates an existing inactive one.
type Invitation struct {
	InvitationID string    `json:"invitationID"` // Primary key (UUID)
	AccountID    string    `json:"accountID"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Token        string    `json:"-"` // Unguessable, unique; never serialized outward
	ExpiresAt    time.Time `json:"expiresAt"`
	InviterID    string    `json:"inviterID"`

	AcceptorID  *string    `json:"acceptorID,omitempty"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	LastSentAt time.Time `json:"lastSentAt"`
}

// Status computes the logical state at the given instant. Expiry is
// authoritative by comparison against now: an invitation past its expiry
// reports EXPIRED even if no sweep has written that back.
func (i *Invitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.AcceptedAt != nil:
		return InvitationAccepted
	case i.CancelledAt != nil:
		return InvitationCancelled
	case now.After(i.ExpiresAt):
		return InvitationExpired
	default:
		return InvitationPending
	}
}

// IsPending reports whether the invitation can still transition.
func (i *Invitation) IsPending(now time.Time) bool {
	return i.Status(now) == InvitationPending
}
