package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	// --- Importaciones del dominio y compartidas ---
	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	sharedQuery "github.com/davicafu/taskboard/internal/shared/infra/platform/query"
	sharedUtils "github.com/davicafu/taskboard/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL
)

// TaskRepoPostgres implementa la interfaz TaskRepository para PostgreSQL.
type TaskRepoPostgres struct {
	db *sql.DB
}

// NewTaskRepoPostgres es el constructor del repositorio.
func NewTaskRepoPostgres(db *sql.DB) *TaskRepoPostgres {
	return &TaskRepoPostgres{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date,
    created_by, created_by_email, created_at, updated_at,
    closed_at, closed_by, closure_notes, version`

// ------------------ CRUD + Outbox ------------------

// Create inserta una tarea y un evento en una transacción.
func (r *TaskRepoPostgres) Create(ctx context.Context, t *taskDomain.Task, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		t.CreatedBy, t.CreatedByEmail, t.CreatedAt, t.UpdatedAt,
		t.ClosedAt, t.ClosedBy, t.ClosureNotes, t.Version,
	)
	if err != nil {
		return err
	}

	if err := insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza una tarea y crea un evento en una transacción. Si
// expectedVersion no es nil, la escritura es condicional sobre la columna
// version.
func (r *TaskRepoPostgres) Update(ctx context.Context, t *taskDomain.Task, expectedVersion *int64, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, due_date=$5,
	          updated_at=$6, closed_at=$7, closed_by=$8, closure_notes=$9, version=$10
	          WHERE id=$11`
	args := []interface{}{
		t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		t.UpdatedAt, t.ClosedAt, t.ClosedBy, t.ClosureNotes, t.Version,
		t.ID,
	}
	if expectedVersion != nil {
		query += ` AND version=$12`
		args = append(args, *expectedVersion)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE id=$1`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if exists == 0 {
			return taskDomain.ErrTaskNotFound
		}
		return taskDomain.ErrVersionMismatch
	}

	if err := insertOutboxTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to insert outbox: %w", err)
	}

	return tx.Commit()
}

// ------------------ Lectura ------------------

// GetByID recupera una tarea de la base de datos por su ID.
func (r *TaskRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, id)

	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("db scan error: %w", err)
	}
	return t, nil
}

// applyCriteria traduce criterios a SQL para Postgres ($1, $2...).
func (r *TaskRepoPostgres) applyCriteria(criteria sharedDomain.Criteria) (string, []interface{}) {
	if criteria == nil {
		return "", nil
	}
	conds := criteria.ToConditions()
	if len(conds) == 0 {
		return "", nil
	}
	var clauses []string
	var args []interface{}
	for i, c := range conds {
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", c.Field, c.Op, i+1))
		args = append(args, c.Value)
	}
	return strings.Join(clauses, " AND "), args
}

// ListByCriteria recupera una lista de tareas aplicando filtros, paginación y ordenamiento.
func (r *TaskRepoPostgres) ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*taskDomain.Task, error) {
	whereSQL, args := r.applyCriteria(criteria)

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	orderBy := "created_at"
	if sort.Field != "" {
		orderBy = sort.Field
	}
	argOffset := len(args)
	query += fmt.Sprintf(" ORDER BY %s %s", orderBy, sharedUtils.Ternary(sort.Desc, "DESC", "ASC"))

	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argOffset+1, argOffset+2)
		args = append(args, p.Limit, p.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*taskDomain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// ------------------ Inicialización del Esquema ------------------

// InitPostgresTaskSchema crea las tablas 'tasks', 'assignments' y 'outbox' si no existen.
func InitPostgresTaskSchema(db *sql.DB) error {
	_, err := db.Exec(`
    CREATE TABLE IF NOT EXISTS tasks (
        id UUID PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT,
        status TEXT NOT NULL,
        priority TEXT NOT NULL,
        due_date TIMESTAMP WITH TIME ZONE,
        created_by TEXT NOT NULL,
        created_by_email TEXT NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL,
        updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
        closed_at TIMESTAMP WITH TIME ZONE,
        closed_by TEXT NOT NULL DEFAULT '',
        closure_notes TEXT NOT NULL DEFAULT '',
        version BIGINT NOT NULL DEFAULT 1
    )`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`); err != nil {
		return fmt.Errorf("failed to create tasks status index: %w", err)
	}

	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS assignments (
        id TEXT PRIMARY KEY,
        task_id UUID NOT NULL,
        assignee_id TEXT NOT NULL,
        assignee_email TEXT NOT NULL,
        assigned_by TEXT NOT NULL,
        assigned_by_email TEXT NOT NULL,
        assigned_at TIMESTAMP WITH TIME ZONE NOT NULL,
        status TEXT NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("failed to create assignments table: %w", err)
	}
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_assignments_task ON assignments(task_id)`); err != nil {
		return fmt.Errorf("failed to create assignments task index: %w", err)
	}
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_assignments_assignee ON assignments(assignee_id)`); err != nil {
		return fmt.Errorf("failed to create assignments assignee index: %w", err)
	}

	// La tabla Outbox es compartida, pero la definimos aquí por completitud.
	// En una aplicación real, la inicialización del esquema podría estar centralizada.
	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS outbox (
        id UUID PRIMARY KEY,
        aggregate_type TEXT NOT NULL,
        aggregate_id TEXT NOT NULL,
        event_type TEXT NOT NULL,
        payload JSONB NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL,
        processed BOOLEAN NOT NULL DEFAULT FALSE
    )`)
	return err
}

// ------------------ Scan helpers ------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*taskDomain.Task, error) {
	var t taskDomain.Task
	var status, priority string
	var dueDate, closedAt sql.NullTime

	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority, &dueDate,
		&t.CreatedBy, &t.CreatedByEmail, &t.CreatedAt, &t.UpdatedAt,
		&closedAt, &t.ClosedBy, &t.ClosureNotes, &t.Version,
	); err != nil {
		return nil, err
	}

	t.Status = taskDomain.TaskStatus(status)
	t.Priority = taskDomain.TaskPriority(priority)
	if dueDate.Valid {
		v := dueDate.Time
		t.DueDate = &v
	}
	if closedAt.Valid {
		v := closedAt.Time
		t.ClosedAt = &v
	}

	return &t, nil
}

// ------------------ Helper DRY para insertar en outbox ------------------
func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		 VALUES ($1, $2, $3, $4, $5, $6, false)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ taskDomain.TaskRepository = (*TaskRepoPostgres)(nil)
