package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"OPEN", "IN_PROGRESS", "COMPLETED", "CLOSED"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, TaskStatus(valid), status)
	}

	// Sin normalización: solo la codificación canónica
	for _, invalid := range []string{"open", "Open", "DONE", ""} {
		_, err := ParseStatus(invalid)
		assert.ErrorIs(t, err, ErrInvalidStatus, "status %q", invalid)
	}
}

func TestParsePriority(t *testing.T) {
	priority, err := ParsePriority("LOW")
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, priority)

	_, err = ParsePriority("URGENT")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestTaskClose(t *testing.T) {
	task := &Task{
		ID:      uuid.New(),
		Title:   "T",
		Status:  TaskInProgress,
		Version: 3,
	}

	err := task.Close("admin-1", "all done")
	require.NoError(t, err)

	assert.Equal(t, TaskClosed, task.Status)
	assert.Equal(t, "admin-1", task.ClosedBy)
	assert.Equal(t, "all done", task.ClosureNotes)
	assert.NotNil(t, task.ClosedAt)
	assert.Equal(t, int64(4), task.Version)
	assert.True(t, task.IsClosed())

	// El cierre no es idempotente
	err = task.Close("admin-2", "")
	assert.ErrorIs(t, err, ErrTaskClosed)
	assert.Equal(t, "admin-1", task.ClosedBy) // el primer cierre se conserva
}

func TestAssignmentID_Canonical(t *testing.T) {
	taskID := uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	id := AssignmentID(taskID, "user-42")
	assert.Equal(t, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d#user-42", id)
}

func TestTouch_AdvancesVersion(t *testing.T) {
	task := &Task{ID: uuid.New(), Version: 1}
	before := task.UpdatedAt

	task.Touch()
	assert.Equal(t, int64(2), task.Version)
	assert.True(t, task.UpdatedAt.After(before))
}
