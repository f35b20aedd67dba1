// en internal/task/application/task_service.go
package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	// --- Importaciones del dominio y compartidas ---
	identityDomain "github.com/davicafu/taskboard/internal/identity/domain"
	notificationDomain "github.com/davicafu/taskboard/internal/notification/domain"
	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	sharedEvents "github.com/davicafu/taskboard/internal/shared/events"
	sharedCache "github.com/davicafu/taskboard/internal/shared/infra/platform/cache"
	sharedQuery "github.com/davicafu/taskboard/internal/shared/infra/platform/query"
	sharedUtils "github.com/davicafu/taskboard/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskService define los casos de uso del ciclo de vida de tareas y
// asignaciones. Toda operación recibe la identidad del llamador y aplica
// la política de autorización antes de tocar el almacén.
// analytics y notifier son opcionales (pueden ser nil): sus fallos nunca
// afectan al resultado de la operación.
type TaskService struct {
	tasks       taskDomain.TaskRepository
	assignments taskDomain.AssignmentRepository
	cache       sharedCache.Cache
	analytics   taskDomain.TaskAnalyticsRepository
	notifier    notificationDomain.Notifier
	log         *zap.Logger
}

// NewTaskService es el constructor para el servicio de tareas.
func NewTaskService(
	tasks taskDomain.TaskRepository,
	assignments taskDomain.AssignmentRepository,
	cache sharedCache.Cache,
	analytics taskDomain.TaskAnalyticsRepository,
	notifier notificationDomain.Notifier,
	log *zap.Logger,
) *TaskService {
	return &TaskService{
		tasks:       tasks,
		assignments: assignments,
		cache:       cache,
		analytics:   analytics,
		notifier:    notifier,
		log:         log,
	}
}

// ---------- Tipos de entrada / salida ----------

// AssigneeRef identifica a un usuario destino de una asignación.
type AssigneeRef struct {
	SubjectID string `json:"userId"`
	Email     string `json:"userEmail"`
}

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string // opcional, MEDIUM por defecto
	DueDate     string // opcional, RFC3339
	AssignedTo  []AssigneeRef
}

// UpdateTaskInput usa punteros para distinguir "campo ausente" de "campo
// con valor cero". ExpectedVersion habilita la comprobación optimista.
type UpdateTaskInput struct {
	Title           *string
	Description     *string
	Status          *string
	Priority        *string
	DueDate         *string
	ExpectedVersion *int64
}

// AssignmentMeta es la información de asignación que acompaña a cada tarea
// en el listado dedicado de un Member.
type AssignmentMeta struct {
	AssignmentID string                      `json:"assignmentId"`
	AssignedAt   time.Time                   `json:"assignedAt"`
	AssignedBy   string                      `json:"assignedBy"` // email del admin
	Status       taskDomain.AssignmentStatus `json:"assignmentStatus"`
}

type AssignedTaskView struct {
	*taskDomain.Task
	Assignment AssignmentMeta `json:"assignment"`
}

type AssignedTaskStats struct {
	Total      int                             `json:"total"`
	ByStatus   map[taskDomain.TaskStatus]int   `json:"byStatus"`
	ByPriority map[taskDomain.TaskPriority]int `json:"byPriority"`
}

// ---------- Operaciones ----------

// CreateTask crea una tarea nueva (solo Admin). Si se indica assignedTo,
// crea además las asignaciones best-effort: el fallo de una asignación no
// revierte la tarea ni las asignaciones anteriores.
func (s *TaskService) CreateTask(ctx context.Context, ident identityDomain.Identity, in CreateTaskInput) (*taskDomain.Task, []*taskDomain.Assignment, error) {
	if err := identityDomain.RequireAdmin(ident); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, nil, taskDomain.ErrTitleRequired
	}

	priority := taskDomain.PriorityMedium
	if in.Priority != "" {
		p, err := taskDomain.ParsePriority(in.Priority)
		if err != nil {
			return nil, nil, err
		}
		priority = p
	}

	now := time.Now().UTC()
	task := &taskDomain.Task{
		ID:             uuid.New(),
		Title:          in.Title,
		Description:    in.Description,
		Status:         taskDomain.TaskOpen,
		Priority:       priority,
		CreatedBy:      ident.SubjectID,
		CreatedByEmail: ident.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}

	if in.DueDate != "" {
		due, err := time.Parse(time.RFC3339, in.DueDate)
		if err != nil {
			return nil, nil, taskDomain.ErrInvalidDueDate
		}
		due = due.UTC()
		task.DueDate = &due
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "task",
		AggregateID:   task.ID.String(),
		EventType:     taskDomain.TaskCreated,
		Payload:       sharedEvents.TaskCreated{Task: task.Snapshot()},
		CreatedAt:     now,
	}

	if err := s.tasks.Create(ctx, task, evt); err != nil {
		s.log.Error("Failed to create task", zap.Error(err))
		return nil, nil, err
	}

	// Actualizar caché en segundo plano
	sharedCache.AsyncCacheSet(ctx, s.cache, taskDomain.TaskCacheKeyByID(task.ID), task, 60, s.log)

	var created []*taskDomain.Assignment
	for _, ref := range in.AssignedTo {
		if ref.SubjectID == "" {
			continue
		}
		a, err := s.createAssignment(ctx, ident, task, ref.SubjectID, ref.Email)
		if err != nil {
			// La tarea es nueva, así que un duplicado aqui solo puede venir
			// de ids repetidos en la propia lista; se ignora y se sigue.
			s.log.Warn("Failed to create assignment for new task",
				zap.String("task_id", task.ID.String()),
				zap.String("assignee_id", ref.SubjectID),
				zap.Error(err),
			)
			continue
		}
		created = append(created, a)
	}

	return task, created, nil
}

// ListTasks devuelve las tareas visibles para el llamador: todas para un
// Admin, solo las asignadas para un Member. Orden: createdAt descendente.
func (s *TaskService) ListTasks(ctx context.Context, ident identityDomain.Identity, statusFilter string) ([]*taskDomain.Task, error) {
	var status taskDomain.TaskStatus
	if statusFilter != "" {
		parsed, err := taskDomain.ParseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	sortParam := sharedQuery.Sort{Field: "created_at", Desc: true}

	if identityDomain.IsAdmin(ident) {
		var criteria sharedDomain.Criteria
		if status != "" {
			criteria = taskDomain.StatusCriteria{Status: status}
		}
		return s.tasks.ListByCriteria(ctx, criteria, nil, sortParam)
	}

	// Member: la existencia de la asignación es el hecho de autorización.
	assigns, err := s.assignments.ListByAssignee(ctx, ident.SubjectID)
	if err != nil {
		return nil, err
	}

	tasks := make([]*taskDomain.Task, 0, len(assigns))
	for _, a := range assigns {
		t, err := s.tasks.GetByID(ctx, a.TaskID)
		if err != nil {
			if errors.Is(err, taskDomain.ErrTaskNotFound) {
				// Asignación huérfana: se ignora, no es fatal.
				s.log.Warn("Orphan assignment skipped",
					zap.String("assignment_id", a.ID),
					zap.String("task_id", a.TaskID.String()),
				)
				continue
			}
			return nil, err
		}
		if status != "" && t.Status != status {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// ListAssignedTasks es el listado dedicado para Members: tareas asignadas
// con los metadatos de asignación y agregados por estado y prioridad.
// Orden: assignedAt descendente.
func (s *TaskService) ListAssignedTasks(ctx context.Context, ident identityDomain.Identity, statusFilter string) ([]AssignedTaskView, AssignedTaskStats, error) {
	stats := AssignedTaskStats{
		ByStatus:   make(map[taskDomain.TaskStatus]int),
		ByPriority: make(map[taskDomain.TaskPriority]int),
	}

	if !identityDomain.IsMember(ident) {
		return nil, stats, taskDomain.ErrAccessDenied
	}

	var status taskDomain.TaskStatus
	if statusFilter != "" {
		parsed, err := taskDomain.ParseStatus(statusFilter)
		if err != nil {
			return nil, stats, err
		}
		status = parsed
	}

	assigns, err := s.assignments.ListByAssignee(ctx, ident.SubjectID)
	if err != nil {
		return nil, stats, err
	}

	views := make([]AssignedTaskView, 0, len(assigns))
	for _, a := range assigns {
		t, err := s.tasks.GetByID(ctx, a.TaskID)
		if err != nil {
			if errors.Is(err, taskDomain.ErrTaskNotFound) {
				s.log.Warn("Orphan assignment skipped",
					zap.String("assignment_id", a.ID),
					zap.String("task_id", a.TaskID.String()),
				)
				continue
			}
			return nil, stats, err
		}
		if status != "" && t.Status != status {
			continue
		}
		views = append(views, AssignedTaskView{
			Task: t,
			Assignment: AssignmentMeta{
				AssignmentID: a.ID,
				AssignedAt:   a.AssignedAt,
				AssignedBy:   a.AssignedByEmail,
				Status:       a.Status,
			},
		})
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Assignment.AssignedAt.After(views[j].Assignment.AssignedAt)
	})
	stats.Total = len(views)
	return views, stats, nil
}

// GetTask obtiene una tarea por id, usando el patrón cache-aside con
// reintentos. Un Member solo puede leerla si existe una asignación suya.
func (s *TaskService) GetTask(ctx context.Context, ident identityDomain.Identity, id uuid.UUID) (*taskDomain.Task, error) {
	task, err := s.getTaskCached(ctx, id)
	if err != nil {
		return nil, err
	}

	if !identityDomain.IsAdmin(ident) {
		ok, err := s.canAccess(ctx, ident, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, taskDomain.ErrAccessDenied
		}
	}

	return task, nil
}

// UpdateTask aplica una actualización parcial. Un Admin puede tocar
// cualquier campo; un Member con asignación solo el estado. La transición
// a CLOSED nunca pasa por aquí, y una tarea CLOSED no admite más cambios
// de estado.
func (s *TaskService) UpdateTask(ctx context.Context, ident identityDomain.Identity, id uuid.UUID, in UpdateTaskInput) (*taskDomain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	admin := identityDomain.IsAdmin(ident)
	if !admin {
		ok, err := s.canAccess(ctx, ident, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, taskDomain.ErrAccessDenied
		}
		// Los Members solo pueden actualizar el estado.
		if in.Title != nil || in.Description != nil || in.Priority != nil || in.DueDate != nil {
			return nil, taskDomain.ErrAccessDenied
		}
		if in.Status == nil {
			return nil, taskDomain.ErrStatusRequired
		}
	}

	loadedVersion := task.Version
	if in.ExpectedVersion != nil && *in.ExpectedVersion != loadedVersion {
		return nil, taskDomain.ErrVersionMismatch
	}

	before := task.Snapshot()
	changed := 0

	if in.Title != nil {
		task.Title = *in.Title
		changed++
	}
	if in.Description != nil {
		task.Description = *in.Description
		changed++
	}
	if in.Status != nil {
		status, err := taskDomain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		// CLOSED es terminal: no se entra por aquí ni se sale de él.
		if status == taskDomain.TaskClosed || task.IsClosed() {
			return nil, taskDomain.ErrTaskClosed
		}
		task.Status = status
		changed++
	}
	if in.Priority != nil {
		priority, err := taskDomain.ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
		changed++
	}
	if in.DueDate != nil {
		due, err := time.Parse(time.RFC3339, *in.DueDate)
		if err != nil {
			return nil, taskDomain.ErrInvalidDueDate
		}
		due = due.UTC()
		task.DueDate = &due
		changed++
	}

	if changed == 0 {
		return nil, taskDomain.ErrNoFieldsToUpdate
	}

	task.Touch()

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "task",
		AggregateID:   task.ID.String(),
		EventType:     taskDomain.TaskUpdated,
		Payload:       sharedEvents.TaskChanged{Before: before, After: task.Snapshot()},
		CreatedAt:     time.Now().UTC(),
	}

	// La escritura es condicional sobre la versión leída: protege la
	// ventana read-modify-write de este propio servicio.
	if err := s.tasks.Update(ctx, task, &loadedVersion, evt); err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, taskDomain.TaskCacheKeyByID(task.ID), task, 60, s.log)

	return task, nil
}

// AssignTask asigna una tarea a un usuario (solo Admin). En caso de
// duplicado devuelve la asignación existente junto con ErrAssignmentExists.
func (s *TaskService) AssignTask(ctx context.Context, ident identityDomain.Identity, taskID uuid.UUID, assigneeID, assigneeEmail string) (*taskDomain.Assignment, *taskDomain.Task, error) {
	if err := identityDomain.RequireAdmin(ident); err != nil {
		return nil, nil, err
	}
	if taskID == uuid.Nil || assigneeID == "" {
		return nil, nil, taskDomain.ErrAssigneeRequired
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	// Comprobación de duplicado antes de escribir. La ventana entre la
	// comprobación y la inserción la cierra la inserción condicional del
	// repositorio sobre la clave compuesta.
	id := taskDomain.AssignmentID(taskID, assigneeID)
	if existing, err := s.assignments.GetByID(ctx, id); err == nil {
		return existing, task, taskDomain.ErrAssignmentExists
	} else if !errors.Is(err, taskDomain.ErrAssignmentNotFound) {
		return nil, nil, err
	}

	a, err := s.createAssignment(ctx, ident, task, assigneeID, assigneeEmail)
	if err != nil {
		if errors.Is(err, taskDomain.ErrAssignmentExists) {
			// Carrera perdida contra otra asignación concurrente.
			if existing, gerr := s.assignments.GetByID(ctx, id); gerr == nil {
				return existing, task, taskDomain.ErrAssignmentExists
			}
		}
		return nil, nil, err
	}

	return a, task, nil
}

// ListTaskAssignments devuelve las asignaciones de una tarea (solo Admin).
func (s *TaskService) ListTaskAssignments(ctx context.Context, ident identityDomain.Identity, taskID uuid.UUID) ([]*taskDomain.Assignment, error) {
	if err := identityDomain.RequireAdmin(ident); err != nil {
		return nil, err
	}
	return s.assignments.ListByTask(ctx, taskID)
}

// CloseTask cierra una tarea (solo Admin): transición terminal, una sola
// vez. Devuelve además el número de usuarios asignados. El registro de
// analítica y el aviso al admin son best-effort y nunca revierten el cierre.
func (s *TaskService) CloseTask(ctx context.Context, ident identityDomain.Identity, taskID uuid.UUID, closureNotes string) (*taskDomain.Task, int, error) {
	if err := identityDomain.RequireAdmin(ident); err != nil {
		return nil, 0, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, 0, err
	}

	loadedVersion := task.Version
	before := task.Snapshot()
	if err := task.Close(ident.SubjectID, closureNotes); err != nil {
		return task, 0, err
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "task",
		AggregateID:   task.ID.String(),
		EventType:     taskDomain.TaskClosedEvent,
		Payload:       sharedEvents.TaskChanged{Before: before, After: task.Snapshot()},
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.tasks.Update(ctx, task, &loadedVersion, evt); err != nil {
		return nil, 0, err
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, taskDomain.TaskCacheKeyByID(task.ID), task, 60, s.log)

	// La transición ya está comprometida: todo lo que sigue es best-effort.
	count := 0
	assigns, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		s.log.Warn("Failed to count assignments for closed task",
			zap.String("task_id", taskID.String()),
			zap.Error(err),
		)
	} else {
		count = len(assigns)
	}

	if s.analytics != nil {
		if err := s.analytics.LogClosed(ctx, []*taskDomain.Task{task}); err != nil {
			s.log.Warn("Failed to log closed task to analytics",
				zap.String("task_id", taskID.String()),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil {
		payload := notificationDomain.ClosedReportPayload{
			TaskID:        task.ID,
			TaskTitle:     task.Title,
			ClosedBy:      ident.Email,
			AssignedUsers: count,
			ClosureNotes:  task.ClosureNotes,
		}
		if err := s.notifier.Notify(ctx, notificationDomain.KindClosedReport, []string{ident.Email}, payload); err != nil {
			s.log.Warn("Failed to send closure report",
				zap.String("task_id", taskID.String()),
				zap.Error(err),
			)
		}
	}

	return task, count, nil
}

// CompletionStats devuelve el tiempo medio de resolución y la tendencia
// diaria de creación/cierre (solo Admin, requiere analítica configurada).
func (s *TaskService) CompletionStats(ctx context.Context, ident identityDomain.Identity, start, end time.Time) (time.Duration, []taskDomain.DailyTaskTrend, error) {
	if err := identityDomain.RequireAdmin(ident); err != nil {
		return 0, nil, err
	}
	if s.analytics == nil {
		return 0, nil, taskDomain.ErrAnalyticsDisabled
	}

	avg, err := s.analytics.GetAverageCompletionTime(ctx, start, end)
	if err != nil {
		return 0, nil, err
	}
	trend, err := s.analytics.GetDailyTrend(ctx, start, end)
	if err != nil {
		return 0, nil, err
	}
	return avg, trend, nil
}

// ---------- Helpers ----------

// canAccess implementa la regla de acceso de un Member: cierto solo si
// existe una asignación para (tarea, llamador).
func (s *TaskService) canAccess(ctx context.Context, ident identityDomain.Identity, taskID uuid.UUID) (bool, error) {
	_, err := s.assignments.GetByID(ctx, taskDomain.AssignmentID(taskID, ident.SubjectID))
	if err != nil {
		if errors.Is(err, taskDomain.ErrAssignmentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *TaskService) createAssignment(ctx context.Context, ident identityDomain.Identity, task *taskDomain.Task, assigneeID, assigneeEmail string) (*taskDomain.Assignment, error) {
	now := time.Now().UTC()
	a := &taskDomain.Assignment{
		ID:              taskDomain.AssignmentID(task.ID, assigneeID),
		TaskID:          task.ID,
		AssigneeID:      assigneeID,
		AssigneeEmail:   assigneeEmail,
		AssignedBy:      ident.SubjectID,
		AssignedByEmail: ident.Email,
		AssignedAt:      now,
		Status:          taskDomain.AssignmentAssigned,
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "assignment",
		AggregateID:   a.ID,
		EventType:     taskDomain.AssignmentCreated,
		Payload: sharedEvents.AssignmentCreated{
			AssignmentID:    a.ID,
			TaskID:          task.ID,
			TaskTitle:       task.Title,
			TaskPriority:    string(task.Priority),
			TaskStatus:      string(task.Status),
			AssigneeID:      assigneeID,
			AssigneeEmail:   assigneeEmail,
			AssignedByEmail: ident.Email,
			AssignedAt:      now,
		},
		CreatedAt: now,
	}

	if err := s.assignments.Create(ctx, a, evt); err != nil {
		return nil, err
	}
	return a, nil
}

// getTaskCached implementa cache-aside con reintentos sobre el repositorio.
func (s *TaskService) getTaskCached(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	// 1. Intentar obtener de la caché
	if s.cache != nil {
		var t taskDomain.Task
		if hit, _ := s.cache.Get(ctx, taskDomain.TaskCacheKeyByID(id), &t); hit {
			return &t, nil
		}
	}

	// 2. Si es 'miss', ir al repositorio con reintentos
	var task *taskDomain.Task
	err := sharedUtils.Retry(ctx, 3, 100*time.Millisecond, func() error {
		var errRetry error
		task, errRetry = s.tasks.GetByID(ctx, id)
		if errors.Is(errRetry, taskDomain.ErrTaskNotFound) {
			return nil // un not-found no se reintenta
		}
		return errRetry
	})
	if err == nil && task == nil {
		err = taskDomain.ErrTaskNotFound
	}

	if err != nil {
		if errors.Is(err, taskDomain.ErrTaskNotFound) {
			s.log.Warn("Task not found", zap.String("task_id", id.String()))
		} else {
			s.log.Error("Failed to fetch task", zap.String("task_id", id.String()), zap.Error(err))
		}
		return nil, err
	}

	// 3. Actualizar caché en segundo plano para la próxima vez
	sharedCache.AsyncCacheSet(ctx, s.cache, taskDomain.TaskCacheKeyByID(task.ID), task, 120, s.log)

	return task, nil
}
