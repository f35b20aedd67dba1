// en internal/notification/application/notification_service.go
package application

import (
	"context"

	notificationDomain "github.com/davicafu/taskboard/internal/notification/domain"
	sharedEvents "github.com/davicafu/taskboard/internal/shared/events"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"go.uber.org/zap"
)

// Service reacciona a los eventos del change-feed de tareas y decide a
// quién notificar. La entrega concreta es cosa del Notifier.
type Service struct {
	notifier    notificationDomain.Notifier
	assignments taskDomain.AssignmentRepository
	admins      notificationDomain.AdminDirectory
	log         *zap.Logger
}

func NewService(
	notifier notificationDomain.Notifier,
	assignments taskDomain.AssignmentRepository,
	admins notificationDomain.AdminDirectory,
	log *zap.Logger,
) *Service {
	return &Service{
		notifier:    notifier,
		assignments: assignments,
		admins:      admins,
		log:         log,
	}
}

// HandleAssignmentCreated avisa al usuario recién asignado.
func (s *Service) HandleAssignmentCreated(ctx context.Context, evt sharedEvents.AssignmentCreated) error {
	if evt.AssigneeEmail == "" {
		s.log.Warn("Assignment without assignee email, skipping notification",
			zap.String("assignment_id", evt.AssignmentID),
		)
		return nil
	}

	payload := notificationDomain.AssignedPayload{
		TaskID:       evt.TaskID,
		TaskTitle:    evt.TaskTitle,
		TaskPriority: evt.TaskPriority,
		TaskStatus:   evt.TaskStatus,
		AssignedBy:   evt.AssignedByEmail,
	}
	return s.notifier.Notify(ctx, notificationDomain.KindTaskAssigned, []string{evt.AssigneeEmail}, payload)
}

// HandleTaskChanged avisa del cambio de estado a los asignados y a los
// administradores. Si el estado no cambió, no hay nada que notificar.
func (s *Service) HandleTaskChanged(ctx context.Context, evt sharedEvents.TaskChanged) error {
	if evt.Before.Status == evt.After.Status {
		return nil
	}

	recipients := make([]string, 0, 4)
	seen := make(map[string]struct{})
	add := func(email string) {
		if email == "" {
			return
		}
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		recipients = append(recipients, email)
	}

	assigns, err := s.assignments.ListByTask(ctx, evt.After.TaskID)
	if err != nil {
		s.log.Warn("Failed to list assignments for notification",
			zap.String("task_id", evt.After.TaskID.String()),
			zap.Error(err),
		)
	} else {
		for _, a := range assigns {
			add(a.AssigneeEmail)
		}
	}

	// El directorio de admins es best-effort: si falla, se notifica al
	// menos a los asignados.
	if s.admins != nil {
		adminEmails, err := s.admins.AdminEmails(ctx)
		if err != nil {
			s.log.Warn("Failed to resolve admin recipients", zap.Error(err))
		} else {
			for _, email := range adminEmails {
				add(email)
			}
		}
	}

	if len(recipients) == 0 {
		s.log.Info("No recipients for status change", zap.String("task_id", evt.After.TaskID.String()))
		return nil
	}

	payload := notificationDomain.StatusChangedPayload{
		TaskID:    evt.After.TaskID,
		TaskTitle: evt.After.Title,
		OldStatus: evt.Before.Status,
		NewStatus: evt.After.Status,
		Priority:  evt.After.Priority,
	}
	return s.notifier.Notify(ctx, notificationDomain.KindStatusChanged, recipients, payload)
}
