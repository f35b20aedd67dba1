package postgres

import (
	"context"
	"database/sql"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// AssignmentRepoPostgres implementa la interfaz AssignmentRepository para PostgreSQL.
type AssignmentRepoPostgres struct {
	db *sql.DB
}

func NewAssignmentRepoPostgres(db *sql.DB) *AssignmentRepoPostgres {
	return &AssignmentRepoPostgres{db: db}
}

const assignmentColumns = `id, task_id, assignee_id, assignee_email,
    assigned_by, assigned_by_email, assigned_at, status`

// Create inserta la asignación condicionalmente: ON CONFLICT DO NOTHING
// sobre la clave primaria compuesta. Cero filas afectadas es duplicado.
func (r *AssignmentRepoPostgres) Create(ctx context.Context, a *taskDomain.Assignment, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	res, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.TaskID, a.AssigneeID, a.AssigneeEmail,
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
func (r *AssignmentRepoPostgres) GetByID(ctx context.Context, id string) (*taskDomain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
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

// ListByTask recupera las asignaciones de una tarea.
func (r *AssignmentRepoPostgres) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*taskDomain.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE task_id = $1 ORDER BY assigned_at DESC`, taskID)
}

// ListByAssignee recupera las asignaciones de un usuario.
func (r *AssignmentRepoPostgres) ListByAssignee(ctx context.Context, assigneeID string) ([]*taskDomain.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE assignee_id = $1 ORDER BY assigned_at DESC`, assigneeID)
}

func (r *AssignmentRepoPostgres) list(ctx context.Context, query string, arg interface{}) ([]*taskDomain.Assignment, error) {
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
	var status string

	if err := row.Scan(
		&a.ID, &a.TaskID, &a.AssigneeID, &a.AssigneeEmail,
		&a.AssignedBy, &a.AssignedByEmail, &a.AssignedAt, &status,
	); err != nil {
		return nil, err
	}
	a.Status = taskDomain.AssignmentStatus(status)

	return &a, nil
}

// Verificación en tiempo de compilación.
var _ taskDomain.AssignmentRepository = (*AssignmentRepoPostgres)(nil)
