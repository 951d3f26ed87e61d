package queue

import (
	"context"
	"fmt"
	"log/slog"

	portssvc "github.com/expensio/expensio-backend/internal/core/ports/services"
	"github.com/expensio/expensio-backend/internal/middleware"
	"github.com/expensio/expensio-backend/internal/tenant"
)

// Worker executes background tasks. Each task re-establishes tenant context
// from the identity carried in its payload; the worker never infers the
// tenant from anything ambient.
type Worker struct {
	client   *Client
	services *portssvc.ServiceContainer
	logger   *slog.Logger
}

func NewWorker(client *Client, services *portssvc.ServiceContainer, logger *slog.Logger) *Worker {
	return &Worker{client: client, services: services, logger: logger}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.client.Consume(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, task portssvc.Task) error {
	taskLogger := w.logger.With(
		slog.String("task_kind", task.Kind),
		slog.String("account_id", task.AccountID),
	)
	ctx = middleware.WithLogger(ctx, taskLogger)
	if task.AccountID != "" {
		ctx = tenant.With(ctx, task.AccountID)
	}

	switch task.Kind {
	case portssvc.TaskSendInvitationEmail:
		// Mail delivery is out of process; this records the handoff.
		taskLogger.Info("Dispatching invitation email",
			slog.String("invitation_id", task.Payload["invitationID"]),
			slog.String("email", task.Payload["email"]))
		return nil

	case portssvc.TaskSweepInvitations:
		swept, err := w.services.Invitation.SweepExpired(ctx)
		if err != nil {
			return err
		}
		taskLogger.Info("Swept expired invitations", slog.Int("count", swept))
		return nil

	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}
