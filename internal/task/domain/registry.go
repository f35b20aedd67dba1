package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/taskboard/internal/shared/events"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	TaskCreated       = "task.created"
	TaskUpdated       = "task.updated"
	TaskClosedEvent   = "task.closed"
	AssignmentCreated = "assignment.created"
)

const TaskTopic = "task-events"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		TaskCreated: {
			Type:  reflect.TypeOf(sharedEvents.TaskCreated{}),
			Topic: TaskTopic,
		},
		TaskUpdated: {
			Type:  reflect.TypeOf(sharedEvents.TaskChanged{}),
			Topic: TaskTopic,
		},
		TaskClosedEvent: {
			Type:  reflect.TypeOf(sharedEvents.TaskChanged{}),
			Topic: TaskTopic,
		},
		AssignmentCreated: {
			Type:  reflect.TypeOf(sharedEvents.AssignmentCreated{}),
			Topic: TaskTopic,
		},
	}
}

// Snapshot proyecta la tarea a la imagen que viaja en los eventos de
// integración.
func (t *Task) Snapshot() sharedEvents.TaskSnapshot {
	return sharedEvents.TaskSnapshot{
		TaskID:         t.ID,
		Title:          t.Title,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		CreatedByEmail: t.CreatedByEmail,
		ClosedBy:       t.ClosedBy,
		UpdatedAt:      t.UpdatedAt,
	}
}
