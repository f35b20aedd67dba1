package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	sharedQuery "github.com/davicafu/taskboard/internal/shared/infra/platform/query"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskAlreadyExists  = errors.New("task already exists")
	ErrTaskClosed         = errors.New("task is already closed")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("task already assigned to this user")
	ErrAccessDenied       = errors.New("access denied")
	ErrTitleRequired      = errors.New("title is required")
	ErrStatusRequired     = errors.New("status field is required for member updates")
	ErrInvalidStatus      = errors.New("invalid task status")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrInvalidDueDate     = errors.New("invalid due date, use RFC3339")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrVersionMismatch    = errors.New("task version mismatch")
	ErrAssigneeRequired   = errors.New("assignee is required")
	ErrAnalyticsDisabled  = errors.New("analytics store is not configured")
)

// ---------- Interfaces (Ports) ----------

// TaskRepository define las operaciones persistentes para Task.
// Toda mutación escribe además el evento de outbox en la misma transacción.
type TaskRepository interface {
	Create(ctx context.Context, t *Task, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrTaskNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// Update persiste la tarea completa. Si expectedVersion no es nil, la
	// escritura es condicional y debe devolver ErrVersionMismatch cuando la
	// versión almacenada ya no coincide.
	Update(ctx context.Context, t *Task, expectedVersion *int64, evt sharedDomain.OutboxEvent) error

	ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*Task, error)
}

// AssignmentRepository define las operaciones persistentes para Assignment.
// Las asignaciones solo se crean y se leen; nunca se actualizan ni borran.
type AssignmentRepository interface {
	// Create debe ser una inserción condicional (insert-if-absent) sobre la
	// clave compuesta y devolver ErrAssignmentExists en duplicado.
	Create(ctx context.Context, a *Assignment, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrAssignmentNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Assignment, error)

	// Índices secundarios requeridos: por tarea y por asignado.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*Assignment, error)
	ListByAssignee(ctx context.Context, assigneeID string) ([]*Assignment, error)
}

// DailyTaskTrend transporta los resultados de la consulta de tendencia.
type DailyTaskTrend struct {
	Day          time.Time
	CreatedCount int
	ClosedCount  int
}

// TaskAnalyticsRepository registra cierres para análisis fuera de la ruta
// caliente. Todas sus operaciones son best-effort desde el punto de vista
// de las operaciones de ciclo de vida.
type TaskAnalyticsRepository interface {
	LogClosed(ctx context.Context, tasks []*Task) error
	GetAverageCompletionTime(ctx context.Context, start, end time.Time) (time.Duration, error)
	GetDailyTrend(ctx context.Context, start, end time.Time) ([]DailyTaskTrend, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

func TaskCacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("task:id:%s", id.String())
}
