package queue

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
)

// TaskNotifier turns invitation lifecycle events into background tasks. The
// tenant identity is captured into the task payload at enqueue time because
// the worker runs decoupled from the request that triggered the event.
type TaskNotifier struct {
	queue portssvc.TaskQueue
}

func NewTaskNotifier(queue portssvc.TaskQueue) *TaskNotifier {
	return &TaskNotifier{queue: queue}
}

var _ portssvc.InvitationNotifier = (*TaskNotifier)(nil)

func (n *TaskNotifier) InvitationCreated(ctx context.Context, invitation *domain.Invitation) error {
	return n.queue.Enqueue(ctx, portssvc.Task{
		Kind:      portssvc.TaskSendInvitationEmail,
		AccountID: invitation.AccountID,
		Payload: map[string]string{
			"invitationID": invitation.InvitationID,
			"email":        invitation.Email,
		},
	})
}

func (n *TaskNotifier) InvitationAccepted(ctx context.Context, invitation *domain.Invitation) error {
	return n.queue.Enqueue(ctx, portssvc.Task{
		Kind:      portssvc.TaskSendInvitationEmail,
		AccountID: invitation.AccountID,
		Payload: map[string]string{
			"invitationID": invitation.InvitationID,
			"email":        invitation.Email,
			"accepted":     "true",
		},
	})
}
