package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// AssignmentRepoSQLite implementa la interfaz AssignmentRepository para SQLite.
type AssignmentRepoSQLite struct {
	db *sql.DB
}

func NewAssignmentRepoSQLite(db *sql.DB) *AssignmentRepoSQLite {
	return &AssignmentRepoSQLite{db: db}
}

const assignmentColumns = `id, task_id, assignee_id, assignee_email,
    assigned_by, assigned_by_email, assigned_at, status`

// Create inserta la asignación de forma condicional: INSERT OR IGNORE sobre
// la clave primaria compuesta. Cero filas afectadas significa duplicado, sin
// inspeccionar el mensaje de error del driver.
func (r *AssignmentRepoSQLite) Create(ctx context.Context, a *taskDomain.Assignment, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (`+assignmentColumns+`)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.TaskID.String(), a.AssigneeID, a.AssigneeEmail,
		a.AssignedBy, a.AssignedByEmail, a.AssignedAt, string(a.Status),
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return taskDomain.ErrAssignmentExists
	}

	if err := insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID recupera una asignación por su clave compuesta.
func (r *AssignmentRepoSQLite) GetByID(ctx context.Context, id string) (*taskDomain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanAssignment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, taskDomain.ErrAssignmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListByTask recupera las asignaciones de una tarea (índice por task_id).
func (r *AssignmentRepoSQLite) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*taskDomain.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE task_id = ? ORDER BY assigned_at DESC`, taskID.String())
}

// ListByAssignee recupera las asignaciones de un usuario (índice por assignee_id).
func (r *AssignmentRepoSQLite) ListByAssignee(ctx context.Context, assigneeID string) ([]*taskDomain.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE assignee_id = ? ORDER BY assigned_at DESC`, assigneeID)
}

func (r *AssignmentRepoSQLite) list(ctx context.Context, query string, arg interface{}) ([]*taskDomain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*taskDomain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func scanAssignment(row rowScanner) (*taskDomain.Assignment, error) {
	var a taskDomain.Assignment
	var taskIDStr, status string

	if err := row.Scan(
		&a.ID, &taskIDStr, &a.AssigneeID, &a.AssigneeEmail,
		&a.AssignedBy, &a.AssignedByEmail, &a.AssignedAt, &status,
	); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(taskIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	a.TaskID = parsedID
	a.Status = taskDomain.AssignmentStatus(status)

	return &a, nil
}

// Verificación en tiempo de compilación.
var _ taskDomain.AssignmentRepository = (*AssignmentRepoSQLite)(nil)
