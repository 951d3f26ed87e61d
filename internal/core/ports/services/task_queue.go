package services

import "context"

// Task kinds dispatched through the background queue.
const (
	TaskSendInvitationEmail = "invitation.send_email"
	TaskSweepInvitations    = "invitation.sweep_expired"
)

// Task is a unit of background work. AccountID is the explicit tenant
// identity captured at enqueue time; the consumer re-establishes tenant
// context from it and never infers the tenant from ambient state.
type Task struct {
	Kind      string            `json:"kind"`
	AccountID string            `json:"accountID,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// TaskQueue is the background task collaborator.
type TaskQueue interface {
	// Enqueue publishes a task for asynchronous execution.
	Enqueue(ctx context.Context, task Task) error
}
