package sqlite

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
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"
)

// TaskRepoSQLite implementa la interfaz TaskRepository para SQLite.
type TaskRepoSQLite struct {
	db *sql.DB
}

func NewTaskRepoSQLite(db *sql.DB) *TaskRepoSQLite {
	return &TaskRepoSQLite{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date,
    created_by, created_by_email, created_at, updated_at,
    closed_at, closed_by, closure_notes, version`

// ------------------ Helper DRY para insertar en outbox ------------------

func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,created_at,processed)
		 VALUES (?,?,?,?,?,?,0)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, string(payloadBytes), evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// ------------------ CRUD + Outbox ------------------

// Create inserta tarea y evento en transacción
func (r *TaskRepoSQLite) Create(ctx context.Context, t *taskDomain.Task, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Se ignora si el Commit() es exitoso

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID.String(), t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		t.CreatedBy, t.CreatedByEmail, t.CreatedAt, t.UpdatedAt,
		t.ClosedAt, t.ClosedBy, t.ClosureNotes, t.Version,
	); err != nil {
		return err
	}

	if err := insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update persiste la tarea completa y crea el evento Outbox en transacción.
// Si expectedVersion no es nil, la escritura es condicional sobre la columna
// version: cero filas afectadas con la tarea presente significa conflicto.
func (r *TaskRepoSQLite) Update(ctx context.Context, t *taskDomain.Task, expectedVersion *int64, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE tasks SET title=?, description=?, status=?, priority=?, due_date=?,
	          updated_at=?, closed_at=?, closed_by=?, closure_notes=?, version=?
	          WHERE id=?`
	args := []interface{}{
		t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		t.UpdatedAt, t.ClosedAt, t.ClosedBy, t.ClosureNotes, t.Version,
		t.ID.String(),
	}
	if expectedVersion != nil {
		query += ` AND version=?`
		args = append(args, *expectedVersion)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		// Distinguir tarea ausente de conflicto de versión.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE id=?`, t.ID.String()).Scan(&exists); err != nil {
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

// GetByID con manejo de errores en uuid.Parse
func (r *TaskRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	t, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// applyCriteria traduce criterios a SQL para SQLite (?).
func (r *TaskRepoSQLite) applyCriteria(criteria sharedDomain.Criteria) (string, []interface{}) {
	if criteria == nil {
		return "", nil
	}
	conds := criteria.ToConditions()
	if len(conds) == 0 {
		return "", nil
	}
	var clauses []string
	var args []interface{}
	for _, c := range conds {
		op := c.Op
		if op == sharedDomain.OpILike {
			// SQLite: LIKE ya es case-insensitive para ASCII.
			op = sharedDomain.OpLike
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", c.Field, op))

		// Los UUID se almacenan como TEXT.
		if v, ok := c.Value.(uuid.UUID); ok {
			args = append(args, v.String())
		} else {
			args = append(args, c.Value)
		}
	}
	return strings.Join(clauses, " AND "), args
}

// ListByCriteria recupera una lista de tareas aplicando filtros, paginación y ordenamiento.
func (r *TaskRepoSQLite) ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*taskDomain.Task, error) {
	whereSQL, args := r.applyCriteria(criteria)

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	orderBy := "created_at"
	if sort.Field != "" {
		orderBy = sort.Field
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderBy, sharedUtils.Ternary(sort.Desc, "DESC", "ASC"))

	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		query += " LIMIT ? OFFSET ?"
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

// ------------------ Scan helpers ------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*taskDomain.Task, error) {
	var t taskDomain.Task
	var idStr, status, priority string
	var dueDate, closedAt sql.NullTime

	if err := row.Scan(
		&idStr, &t.Title, &t.Description, &status, &priority, &dueDate,
		&t.CreatedBy, &t.CreatedByEmail, &t.CreatedAt, &t.UpdatedAt,
		&closedAt, &t.ClosedBy, &t.ClosureNotes, &t.Version,
	); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	t.ID = parsedID
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

// Verificación en tiempo de compilación.
var _ taskDomain.TaskRepository = (*TaskRepoSQLite)(nil)
