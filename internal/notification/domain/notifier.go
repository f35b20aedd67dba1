package domain

import (
	"context"

	"github.com/google/uuid"
)

// Kind identifica la clase de notificación. El colaborador de salida decide
// el mecanismo de entrega y la plantilla; aquí solo viaja el contenido.
type Kind string

const (
	KindTaskAssigned  Kind = "task.assigned"
	KindStatusChanged Kind = "task.status_changed"
	KindClosedReport  Kind = "task.closed_report"
)

// Notifier es el sumidero de notificaciones. La entrega es best-effort:
// ningún llamador debe propagar su fallo a la operación que lo originó.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipients []string, payload interface{}) error
}

// AdminDirectory resuelve los destinatarios administradores para las
// notificaciones de cambio de estado.
type AdminDirectory interface {
	AdminEmails(ctx context.Context) ([]string, error)
}

// ---------- Payloads por tipo ----------

type AssignedPayload struct {
	TaskID       uuid.UUID `json:"taskId"`
	TaskTitle    string    `json:"taskTitle"`
	TaskPriority string    `json:"taskPriority"`
	TaskStatus   string    `json:"taskStatus"`
	AssignedBy   string    `json:"assignedBy"` // email del admin que asigna
}

type StatusChangedPayload struct {
	TaskID    uuid.UUID `json:"taskId"`
	TaskTitle string    `json:"taskTitle"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Priority  string    `json:"priority"`
}

type ClosedReportPayload struct {
	TaskID        uuid.UUID `json:"taskId"`
	TaskTitle     string    `json:"taskTitle"`
	ClosedBy      string    `json:"closedBy"`
	AssignedUsers int       `json:"assignedUsers"`
	ClosureNotes  string    `json:"closureNotes,omitempty"`
}
