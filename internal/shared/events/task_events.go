package events

import (
	"time"

	"github.com/google/uuid"
)

// Los eventos de integración duplican los campos que necesitan los
// consumidores en lugar de referenciar los structs de dominio, para no
// acoplar el contrato del change-feed al modelo interno.

// TaskSnapshot es la imagen de una tarea en un instante dado.
type TaskSnapshot struct {
	TaskID         uuid.UUID `json:"taskId"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	CreatedByEmail string    `json:"createdByEmail"`
	ClosedBy       string    `json:"closedBy,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TaskCreated se emite al persistir una tarea nueva.
type TaskCreated struct {
	Task TaskSnapshot `json:"task"`
}

// TaskChanged se emite en cada mutación de una tarea existente, con las
// imágenes anterior y posterior para que el consumidor pueda detectar
// transiciones de estado.
type TaskChanged struct {
	Before TaskSnapshot `json:"before"`
	After  TaskSnapshot `json:"after"`
}

// AssignmentCreated se emite al crear una asignación.
type AssignmentCreated struct {
	AssignmentID    string    `json:"assignmentId"`
	TaskID          uuid.UUID `json:"taskId"`
	TaskTitle       string    `json:"taskTitle"`
	TaskPriority    string    `json:"taskPriority"`
	TaskStatus      string    `json:"taskStatus"`
	AssigneeID      string    `json:"assigneeId"`
	AssigneeEmail   string    `json:"assigneeEmail"`
	AssignedByEmail string    `json:"assignedByEmail"`
	AssignedAt      time.Time `json:"assignedAt"`
}
