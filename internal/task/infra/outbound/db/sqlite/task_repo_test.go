package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	sharedQuery "github.com/davicafu/taskboard/internal/shared/infra/platform/query"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Una sola conexión: la BBDD en memoria vive ligada a ella.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitTaskSchema(db))
	return db
}

func newTask() *taskDomain.Task {
	now := time.Now().UTC().Truncate(time.Second)
	return &taskDomain.Task{
		ID:             uuid.New(),
		Title:          "Persisted task",
		Description:    "desc",
		Status:         taskDomain.TaskOpen,
		Priority:       taskDomain.PriorityMedium,
		CreatedBy:      "admin-1",
		CreatedByEmail: "admin@example.com",
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
}

func outboxEvt(eventType, aggregateID string) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "task",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       map[string]interface{}{"k": "v"},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestTaskRepoSQLite_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepoSQLite(db)
	ctx := context.Background()

	task := newTask()
	require.NoError(t, repo.Create(ctx, task, outboxEvt(taskDomain.TaskCreated, task.ID.String())))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, taskDomain.TaskOpen, got.Status)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, int64(1), got.Version)

	// La transacción dejó también la fila de outbox
	outboxRepo := NewOutboxRepoSQLite(db)
	pending, err := outboxRepo.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, taskDomain.TaskCreated, pending[0].EventType)

	require.NoError(t, outboxRepo.MarkOutboxProcessed(ctx, pending[0].ID))
	pending, err = outboxRepo.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTaskRepoSQLite_GetNotFound(t *testing.T) {
	repo := NewTaskRepoSQLite(newTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
}

func TestTaskRepoSQLite_UpdateVersionConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepoSQLite(db)
	ctx := context.Background()

	task := newTask()
	require.NoError(t, repo.Create(ctx, task, outboxEvt(taskDomain.TaskCreated, task.ID.String())))

	// Escritura condicional con la versión correcta
	expected := task.Version
	task.Title = "Edited"
	task.Touch()
	require.NoError(t, repo.Update(ctx, task, &expected, outboxEvt(taskDomain.TaskUpdated, task.ID.String())))

	// Reintento con la versión ya consumida: conflicto
	stale := expected
	task.Touch()
	err := repo.Update(ctx, task, &stale, outboxEvt(taskDomain.TaskUpdated, task.ID.String()))
	assert.ErrorIs(t, err, taskDomain.ErrVersionMismatch)

	// Tarea inexistente: not found, no conflicto
	missing := newTask()
	err = repo.Update(ctx, missing, nil, outboxEvt(taskDomain.TaskUpdated, missing.ID.String()))
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
}

func TestTaskRepoSQLite_ListByCriteria(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepoSQLite(db)
	ctx := context.Background()

	open := newTask()
	require.NoError(t, repo.Create(ctx, open, outboxEvt(taskDomain.TaskCreated, open.ID.String())))

	inProgress := newTask()
	inProgress.Status = taskDomain.TaskInProgress
	require.NoError(t, repo.Create(ctx, inProgress, outboxEvt(taskDomain.TaskCreated, inProgress.ID.String())))

	got, err := repo.ListByCriteria(ctx, taskDomain.StatusCriteria{Status: taskDomain.TaskInProgress}, nil, sharedQuery.Sort{Field: "created_at", Desc: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inProgress.ID, got[0].ID)

	all, err := repo.ListByCriteria(ctx, nil, sharedQuery.OffsetPagination{Limit: 10, Offset: 0}, sharedQuery.Sort{Field: "created_at", Desc: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAssignmentRepoSQLite_ConditionalInsert(t *testing.T) {
	db := newTestDB(t)
	taskRepo := NewTaskRepoSQLite(db)
	repo := NewAssignmentRepoSQLite(db)
	ctx := context.Background()

	task := newTask()
	require.NoError(t, taskRepo.Create(ctx, task, outboxEvt(taskDomain.TaskCreated, task.ID.String())))

	a := &taskDomain.Assignment{
		ID:              taskDomain.AssignmentID(task.ID, "member-1"),
		TaskID:          task.ID,
		AssigneeID:      "member-1",
		AssigneeEmail:   "member@example.com",
		AssignedBy:      "admin-1",
		AssignedByEmail: "admin@example.com",
		AssignedAt:      time.Now().UTC().Truncate(time.Second),
		Status:          taskDomain.AssignmentAssigned,
	}
	require.NoError(t, repo.Create(ctx, a, outboxEvt(taskDomain.AssignmentCreated, a.ID)))

	// El duplicado se detecta por filas afectadas, sin error del driver
	err := repo.Create(ctx, a, outboxEvt(taskDomain.AssignmentCreated, a.ID))
	assert.ErrorIs(t, err, taskDomain.ErrAssignmentExists)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.AssigneeEmail, got.AssigneeEmail)

	byTask, err := repo.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, byTask, 1)

	byAssignee, err := repo.ListByAssignee(ctx, "member-1")
	require.NoError(t, err)
	assert.Len(t, byAssignee, 1)

	_, err = repo.GetByID(ctx, taskDomain.AssignmentID(task.ID, "member-2"))
	assert.ErrorIs(t, err, taskDomain.ErrAssignmentNotFound)
}
