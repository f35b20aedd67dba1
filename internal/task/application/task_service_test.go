package application

import (
	"context"
	"testing"
	"time"

	identityDomain "github.com/davicafu/taskboard/internal/identity/domain"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/davicafu/taskboard/tests/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	adminIdent = identityDomain.Identity{
		SubjectID: "admin-1",
		Email:     "admin@example.com",
		Name:      "Alice Admin",
		Groups:    []string{"Admin"},
	}
	memberIdent = identityDomain.Identity{
		SubjectID: "member-1",
		Email:     "member@example.com",
		Name:      "Bob Member",
		Groups:    []string{"Member"},
	}
	otherMember = identityDomain.Identity{
		SubjectID: "member-2",
		Email:     "other@example.com",
		Groups:    []string{"Member"},
	}
)

func newService(t *testing.T) (*TaskService, *mocks.InMemoryTaskRepo, *mocks.InMemoryAssignmentRepo, *mocks.RecordingNotifier) {
	t.Helper()
	tasks := mocks.NewInMemoryTaskRepo()
	assignments := mocks.NewInMemoryAssignmentRepo()
	notifier := mocks.NewRecordingNotifier()
	service := NewTaskService(tasks, assignments, mocks.NewDummyCache(), nil, notifier, zap.NewNop())
	return service, tasks, assignments, notifier
}

// -------------------- CreateTask --------------------

func TestCreateTask_Success(t *testing.T) {
	service, tasks, _, _ := newService(t)

	task, created, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:       "Fix login page",
		Description: "Login fails on mobile",
	})
	require.NoError(t, err)
	require.NotNil(t, task)

	assert.Equal(t, taskDomain.TaskOpen, task.Status)
	assert.Equal(t, taskDomain.PriorityMedium, task.Priority) // prioridad por defecto
	assert.Equal(t, "admin-1", task.CreatedBy)
	assert.Equal(t, "admin@example.com", task.CreatedByEmail)
	assert.Equal(t, int64(1), task.Version)
	assert.Empty(t, created)

	// ✅ Verificar que se creó un evento Outbox
	assert.Len(t, tasks.Outbox, 1)
	assert.Equal(t, taskDomain.TaskCreated, tasks.Outbox[0].EventType)
	assert.Equal(t, task.ID.String(), tasks.Outbox[0].AggregateID)
}

func TestCreateTask_MemberForbidden(t *testing.T) {
	service, _, _, _ := newService(t)

	_, _, err := service.CreateTask(context.Background(), memberIdent, CreateTaskInput{Title: "Nope"})
	assert.ErrorIs(t, err, identityDomain.ErrPermissionDenied)
}

func TestCreateTask_TitleRequired(t *testing.T) {
	service, _, _, _ := newService(t)

	_, _, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "   "})
	assert.ErrorIs(t, err, taskDomain.ErrTitleRequired)
}

func TestCreateTask_InvalidPriority(t *testing.T) {
	service, _, _, _ := newService(t)

	_, _, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:    "Task",
		Priority: "URGENT",
	})
	assert.ErrorIs(t, err, taskDomain.ErrInvalidPriority)
}

func TestCreateTask_WithAssignees(t *testing.T) {
	service, _, assignments, _ := newService(t)

	task, created, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title: "Shared task",
		AssignedTo: []AssigneeRef{
			{SubjectID: "member-1", Email: "member@example.com"},
			{SubjectID: "member-2", Email: "other@example.com"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// Identificador compuesto canónico
	assert.Equal(t, task.ID.String()+"#member-1", created[0].ID)
	assert.Equal(t, taskDomain.AssignmentAssigned, created[0].Status)
	assert.Equal(t, "admin@example.com", created[0].AssignedByEmail)

	// Cada asignación genera su propio evento de outbox
	assert.Len(t, assignments.Outbox, 2)
	assert.Equal(t, taskDomain.AssignmentCreated, assignments.Outbox[0].EventType)
}

// -------------------- GetTask --------------------

func TestGetTask_AdminSeesAny(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	got, err := service.GetTask(context.Background(), adminIdent, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestGetTask_MemberWithoutAssignment(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	// La existencia de la tarea se comprueba antes que el permiso: una
	// tarea inexistente es 404 incluso sin asignación, pero una existente
	// sin asignación es 403.
	_, err := service.GetTask(context.Background(), memberIdent, task.ID)
	assert.ErrorIs(t, err, taskDomain.ErrAccessDenied)
}

func TestGetTask_NotFound(t *testing.T) {
	service, _, _, _ := newService(t)

	_, err := service.GetTask(context.Background(), memberIdent, uuid.New())
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
}

func TestGetTask_MemberWithAssignment(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:      "T",
		AssignedTo: []AssigneeRef{{SubjectID: "member-1", Email: "member@example.com"}},
	})

	got, err := service.GetTask(context.Background(), memberIdent, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestGetTask_CacheHit(t *testing.T) {
	tasks := mocks.NewInMemoryTaskRepo()
	assignments := mocks.NewInMemoryAssignmentRepo()
	cache := mocks.NewDummyCache()
	service := NewTaskService(tasks, assignments, cache, nil, nil, zap.NewNop())

	task := &taskDomain.Task{
		ID:      uuid.New(),
		Title:   "Cached",
		Status:  taskDomain.TaskOpen,
		Version: 1,
	}
	require.NoError(t, cache.SetForTest(taskDomain.TaskCacheKeyByID(task.ID), task))

	// El repo está vacío: si la lectura llega, es porque vino de la caché.
	got, err := service.GetTask(context.Background(), adminIdent, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Title)
}

// -------------------- ListTasks --------------------

func TestListTasks_RoleScoping(t *testing.T) {
	service, _, _, _ := newService(t)

	t1, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:      "Assigned to member",
		AssignedTo: []AssigneeRef{{SubjectID: "member-1", Email: "member@example.com"}},
	})
	_, _, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "Unassigned"})
	require.NoError(t, err)

	adminView, err := service.ListTasks(context.Background(), adminIdent, "")
	require.NoError(t, err)
	assert.Len(t, adminView, 2)

	memberView, err := service.ListTasks(context.Background(), memberIdent, "")
	require.NoError(t, err)
	require.Len(t, memberView, 1)
	assert.Equal(t, t1.ID, memberView[0].ID)

	otherView, err := service.ListTasks(context.Background(), otherMember, "")
	require.NoError(t, err)
	assert.Empty(t, otherView)
}

func TestListTasks_StatusFilter(t *testing.T) {
	service, _, _, _ := newService(t)

	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "A"})
	_, _, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "B"})
	require.NoError(t, err)

	status := "IN_PROGRESS"
	_, err = service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)

	open, err := service.ListTasks(context.Background(), adminIdent, "OPEN")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	inProgress, err := service.ListTasks(context.Background(), adminIdent, "IN_PROGRESS")
	require.NoError(t, err)
	assert.Len(t, inProgress, 1)

	_, err = service.ListTasks(context.Background(), adminIdent, "BOGUS")
	assert.ErrorIs(t, err, taskDomain.ErrInvalidStatus)
}

// -------------------- ListAssignedTasks --------------------

func TestListAssignedTasks_StatsAndOrder(t *testing.T) {
	service, _, _, _ := newService(t)

	_, _, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:      "First",
		Priority:   "HIGH",
		AssignedTo: []AssigneeRef{{SubjectID: "member-1", Email: "member@example.com"}},
	})
	require.NoError(t, err)
	_, _, err = service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:      "Second",
		AssignedTo: []AssigneeRef{{SubjectID: "member-1", Email: "member@example.com"}},
	})
	require.NoError(t, err)

	views, stats, err := service.ListAssignedTasks(context.Background(), memberIdent, "")
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[taskDomain.TaskOpen])
	assert.Equal(t, 1, stats.ByPriority[taskDomain.PriorityHigh])
	assert.Equal(t, 1, stats.ByPriority[taskDomain.PriorityMedium])

	for _, v := range views {
		assert.Equal(t, "admin@example.com", v.Assignment.AssignedBy)
		assert.Equal(t, taskDomain.AssignmentAssigned, v.Assignment.Status)
	}
}

func TestListAssignedTasks_AdminForbidden(t *testing.T) {
	service, _, _, _ := newService(t)

	_, _, err := service.ListAssignedTasks(context.Background(), adminIdent, "")
	assert.ErrorIs(t, err, taskDomain.ErrAccessDenied)
}

// -------------------- UpdateTask --------------------

func TestUpdateTask_AdminAllFields(t *testing.T) {
	service, tasks, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "Old"})

	title := "New title"
	priority := "HIGH"
	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	updated, err := service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{
		Title:    &title,
		Priority: &priority,
		DueDate:  &due,
	})
	require.NoError(t, err)

	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, taskDomain.PriorityHigh, updated.Priority)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, int64(2), updated.Version) // la versión avanza en cada mutación

	// El evento lleva la imagen anterior y la posterior
	require.Len(t, tasks.Outbox, 2)
	assert.Equal(t, taskDomain.TaskUpdated, tasks.Outbox[1].EventType)
}

func TestUpdateTask_MemberOnlyStatus(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:      "T",
		AssignedTo: []AssigneeRef{{SubjectID: "member-1", Email: "member@example.com"}},
	})

	status := "IN_PROGRESS"
	updated, err := service.UpdateTask(context.Background(), memberIdent, task.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, taskDomain.TaskInProgress, updated.Status)

	// Un Member no puede tocar otros campos
	title := "Hacked"
	_, err = service.UpdateTask(context.Background(), memberIdent, task.ID, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, taskDomain.ErrAccessDenied)

	// Sin estado, la petición de un Member no tiene nada que hacer
	_, err = service.UpdateTask(context.Background(), memberIdent, task.ID, UpdateTaskInput{})
	assert.ErrorIs(t, err, taskDomain.ErrStatusRequired)
}

func TestUpdateTask_MemberWithoutAssignment(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	status := "IN_PROGRESS"
	_, err := service.UpdateTask(context.Background(), memberIdent, task.ID, UpdateTaskInput{Status: &status})
	assert.ErrorIs(t, err, taskDomain.ErrAccessDenied)
}

func TestUpdateTask_InvalidStatusRejected(t *testing.T) {
	service, tasks, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	bogus := "WONTFIX"
	_, err := service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{Status: &bogus})
	assert.ErrorIs(t, err, taskDomain.ErrInvalidStatus)

	// La petición rechazada no persiste nada ni emite eventos
	stored, _ := tasks.GetByID(context.Background(), task.ID)
	assert.Equal(t, taskDomain.TaskOpen, stored.Status)
	assert.Len(t, tasks.Outbox, 1) // solo el de creación
}

func TestUpdateTask_ClosedIsTerminal(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	// CLOSED nunca se alcanza por la actualización genérica
	closed := "CLOSED"
	_, err := service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{Status: &closed})
	assert.ErrorIs(t, err, taskDomain.ErrTaskClosed)

	_, _, err = service.CloseTask(context.Background(), adminIdent, task.ID, "")
	require.NoError(t, err)

	// Y una tarea cerrada no admite más cambios de estado
	reopen := "OPEN"
	_, err = service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{Status: &reopen})
	assert.ErrorIs(t, err, taskDomain.ErrTaskClosed)
}

func TestUpdateTask_NoFields(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	_, err := service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{})
	assert.ErrorIs(t, err, taskDomain.ErrNoFieldsToUpdate)
}

func TestUpdateTask_VersionMismatch(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	stale := task.Version - 1
	title := "New"
	_, err := service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{
		Title:           &title,
		ExpectedVersion: &stale,
	})
	assert.ErrorIs(t, err, taskDomain.ErrVersionMismatch)

	current := task.Version
	_, err = service.UpdateTask(context.Background(), adminIdent, task.ID, UpdateTaskInput{
		Title:           &title,
		ExpectedVersion: &current,
	})
	assert.NoError(t, err)
}

// -------------------- AssignTask --------------------

func TestAssignTask_Success(t *testing.T) {
	service, _, assignments, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	a, returnedTask, err := service.AssignTask(context.Background(), adminIdent, task.ID, "member-1", "member@example.com")
	require.NoError(t, err)
	assert.Equal(t, task.ID.String()+"#member-1", a.ID)
	assert.Equal(t, task.ID, returnedTask.ID)
	assert.Len(t, assignments.Outbox, 1)
}

func TestAssignTask_DuplicateReturnsExisting(t *testing.T) {
	service, _, assignments, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	first, _, err := service.AssignTask(context.Background(), adminIdent, task.ID, "member-1", "member@example.com")
	require.NoError(t, err)

	dup, _, err := service.AssignTask(context.Background(), adminIdent, task.ID, "member-1", "member@example.com")
	assert.ErrorIs(t, err, taskDomain.ErrAssignmentExists)
	require.NotNil(t, dup)
	assert.Equal(t, first.ID, dup.ID)
	assert.Equal(t, first.AssignedAt.Unix(), dup.AssignedAt.Unix()) // la original se conserva

	// El duplicado no emite un segundo evento
	assert.Len(t, assignments.Outbox, 1)
}

func TestAssignTask_MemberForbidden(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	_, _, err := service.AssignTask(context.Background(), memberIdent, task.ID, "member-2", "other@example.com")
	assert.ErrorIs(t, err, identityDomain.ErrPermissionDenied)
}

func TestAssignTask_TaskNotFound(t *testing.T) {
	service, _, _, _ := newService(t)

	_, _, err := service.AssignTask(context.Background(), adminIdent, uuid.New(), "member-1", "member@example.com")
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
}

// -------------------- CloseTask --------------------

func TestCloseTask_FullLifecycle(t *testing.T) {
	service, tasks, _, notifier := newService(t)

	// Ciclo completo: crear → asignar → progreso del member → cierre.
	task, _, err := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{
		Title:      "Lifecycle",
		AssignedTo: []AssigneeRef{{SubjectID: "member-1", Email: "member@example.com"}},
	})
	require.NoError(t, err)

	status := "IN_PROGRESS"
	_, err = service.UpdateTask(context.Background(), memberIdent, task.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)

	closed, count, err := service.CloseTask(context.Background(), adminIdent, task.ID, "done in sprint 12")
	require.NoError(t, err)

	assert.Equal(t, taskDomain.TaskClosed, closed.Status)
	assert.Equal(t, "admin-1", closed.ClosedBy)
	assert.Equal(t, "done in sprint 12", closed.ClosureNotes)
	assert.NotNil(t, closed.ClosedAt)
	assert.Equal(t, 1, count)

	// Evento de cierre con before/after
	last := tasks.Outbox[len(tasks.Outbox)-1]
	assert.Equal(t, taskDomain.TaskClosedEvent, last.EventType)

	// El informe de cierre va al admin que cierra
	require.Len(t, notifier.Sent, 1)
	assert.Equal(t, []string{"admin@example.com"}, notifier.Sent[0].Recipients)

	// El cierre no es idempotente
	_, _, err = service.CloseTask(context.Background(), adminIdent, task.ID, "")
	assert.ErrorIs(t, err, taskDomain.ErrTaskClosed)
}

func TestCloseTask_MemberForbidden(t *testing.T) {
	service, _, _, _ := newService(t)
	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	_, _, err := service.CloseTask(context.Background(), memberIdent, task.ID, "")
	assert.ErrorIs(t, err, identityDomain.ErrPermissionDenied)
}

func TestCloseTask_NotifierFailureDoesNotRevert(t *testing.T) {
	service, tasks, _, notifier := newService(t)
	notifier.Err = assert.AnError

	task, _, _ := service.CreateTask(context.Background(), adminIdent, CreateTaskInput{Title: "T"})

	closed, _, err := service.CloseTask(context.Background(), adminIdent, task.ID, "")
	require.NoError(t, err)
	assert.Equal(t, taskDomain.TaskClosed, closed.Status)

	stored, _ := tasks.GetByID(context.Background(), task.ID)
	assert.True(t, stored.IsClosed())
}
