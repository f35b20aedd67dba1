package domain

import (
	"time"

	sharedBus "github.com/davicafu/taskboard/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskClosed     TaskStatus = "CLOSED"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// ParseStatus valida el valor de estado recibido del exterior.
func ParseStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskOpen, TaskInProgress, TaskCompleted, TaskClosed:
		return TaskStatus(s), nil
	}
	return "", ErrInvalidStatus
}

// ParsePriority valida el valor de prioridad recibido del exterior.
func ParsePriority(s string) (TaskPriority, error) {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return TaskPriority(s), nil
	}
	return "", ErrInvalidPriority
}

// Task es la unidad de trabajo. El estado CLOSED es terminal y solo se
// alcanza mediante la operación de cierre, nunca por la actualización
// genérica.
type Task struct {
	ID             uuid.UUID    `json:"taskId"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	CreatedBy      string       `json:"createdBy"`
	CreatedByEmail string       `json:"createdByEmail"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	ClosedAt       *time.Time   `json:"closedAt,omitempty"`
	ClosedBy       string       `json:"closedBy,omitempty"`
	ClosureNotes   string       `json:"closureNotes,omitempty"`
	Version        int64        `json:"version"`
}

func (t *Task) PartitionKey() string {
	return t.ID.String()
}

// --- Métodos de dominio ---

// IsClosed indica si la tarea alcanzó su estado terminal.
func (t *Task) IsClosed() bool {
	return t.Status == TaskClosed
}

// Close aplica la transición terminal. Devuelve ErrTaskClosed si la tarea
// ya estaba cerrada: el cierre no es idempotente.
func (t *Task) Close(closedBy, notes string) error {
	if t.IsClosed() {
		return ErrTaskClosed
	}
	now := time.Now().UTC()
	t.Status = TaskClosed
	t.ClosedAt = &now
	t.ClosedBy = closedBy
	if notes != "" {
		t.ClosureNotes = notes
	}
	t.Touch()
	return nil
}

// Touch refresca updatedAt y avanza la versión. Toda mutación pasa por aquí.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now().UTC()
	t.Version++
}

// Verificación estática para asegurar que Task implementa la interfaz
var _ sharedBus.Keyer = (*Task)(nil)
