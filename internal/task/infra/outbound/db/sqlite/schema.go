package sqlite

import (
	"database/sql"
	"fmt"
)

// InitTaskSchema crea las tablas 'tasks', 'assignments' y 'outbox' si no
// existen. En una aplicación real, la inicialización del esquema podría
// estar centralizada en migraciones.
func InitTaskSchema(db *sql.DB) error {
	_, err := db.Exec(`
    CREATE TABLE IF NOT EXISTS tasks (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT,
        status TEXT NOT NULL,
        priority TEXT NOT NULL,
        due_date TIMESTAMP,
        created_by TEXT NOT NULL,
        created_by_email TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL,
        closed_at TIMESTAMP,
        closed_by TEXT NOT NULL DEFAULT '',
        closure_notes TEXT NOT NULL DEFAULT '',
        version INTEGER NOT NULL DEFAULT 1
    )`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}

	// Índice secundario para el filtrado por estado.
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`); err != nil {
		return fmt.Errorf("failed to create tasks status index: %w", err)
	}

	// La clave primaria de assignments es la clave compuesta canónica
	// "{taskId}#{assigneeId}": la unicidad del par la garantiza la tabla.
	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS assignments (
        id TEXT PRIMARY KEY,
        task_id TEXT NOT NULL,
        assignee_id TEXT NOT NULL,
        assignee_email TEXT NOT NULL,
        assigned_by TEXT NOT NULL,
        assigned_by_email TEXT NOT NULL,
        assigned_at TIMESTAMP NOT NULL,
        status TEXT NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("failed to create assignments table: %w", err)
	}

	// Índices secundarios: por tarea y por asignado.
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_assignments_task ON assignments(task_id)`); err != nil {
		return fmt.Errorf("failed to create assignments task index: %w", err)
	}
	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_assignments_assignee ON assignments(assignee_id)`); err != nil {
		return fmt.Errorf("failed to create assignments assignee index: %w", err)
	}

	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS outbox (
        id TEXT PRIMARY KEY,
        aggregate_type TEXT NOT NULL,
        aggregate_id TEXT NOT NULL,
        event_type TEXT NOT NULL,
        payload TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL,
        processed INTEGER NOT NULL DEFAULT 0
    )`)
	if err != nil {
		return fmt.Errorf("failed to create outbox table: %w", err)
	}

	return nil
}
