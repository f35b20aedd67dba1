package domain

import (
	"time"

	sharedBus "github.com/davicafu/taskboard/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

// AssignmentID forma la clave compuesta "{taskId}#{assigneeId}". La unicidad
// de esta clave es lo que garantiza a lo sumo una asignación por par
// (tarea, asignado).
func AssignmentID(taskID uuid.UUID, assigneeID string) string {
	return taskID.String() + "#" + assigneeID
}

// Assignment vincula una tarea con un usuario. Su mera existencia es el
// hecho de autorización que da a un Member acceso a la tarea. Referencia a
// la tarea por id sin poseerla: una asignación huérfana (tarea borrada o
// ausente) es posible y los caminos de lectura deben tolerarla.
type Assignment struct {
	ID              string           `json:"assignmentId"`
	TaskID          uuid.UUID        `json:"taskId"`
	AssigneeID      string           `json:"assigneeId"`
	AssigneeEmail   string           `json:"assigneeEmail"`
	AssignedBy      string           `json:"assignedBy"`
	AssignedByEmail string           `json:"assignedByEmail"`
	AssignedAt      time.Time        `json:"assignedAt"`
	Status          AssignmentStatus `json:"status"`
}

func (a *Assignment) PartitionKey() string {
	return a.ID
}

var _ sharedBus.Keyer = (*Assignment)(nil)
