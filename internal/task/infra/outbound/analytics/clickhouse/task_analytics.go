package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	taskDomain "github.com/davicafu/taskboard/internal/task/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// TaskAnalyticsRepo implementa la interfaz TaskAnalyticsRepository para ClickHouse.
// Registra los cierres de tareas fuera de la ruta caliente de las operaciones.
type TaskAnalyticsRepo struct {
	db *sql.DB
}

// NewTaskAnalyticsRepo es el constructor.
func NewTaskAnalyticsRepo(addr string, dbName string) (*TaskAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			// ... tus credenciales si son necesarias
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &TaskAnalyticsRepo{db: conn}, nil
}

// LogClosed inserta un lote de tareas cerradas en ClickHouse.
func (r *TaskAnalyticsRepo) LogClosed(ctx context.Context, tasks []*taskDomain.Task) error {
	// ClickHouse funciona mejor con inserciones en lotes.
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	// Preparamos la sentencia de inserción.
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tasks_closed_log (id, title, status, priority, created_by, closed_by, created_at, closed_at, event_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	eventTime := time.Now()
	for _, task := range tasks {
		closedAt := eventTime
		if task.ClosedAt != nil {
			closedAt = *task.ClosedAt
		}
		if _, err := stmt.ExecContext(
			ctx,
			task.ID,
			task.Title,
			string(task.Status),
			string(task.Priority),
			task.CreatedBy,
			task.ClosedBy,
			task.CreatedAt,
			closedAt,
			eventTime,
		); err != nil {
			// Si un registro falla, hacemos rollback de todo el lote.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for task %s: %w", task.ID, err)
		}
	}

	// Si todos los registros se añadieron al lote, hacemos commit.
	return tx.Commit()
}

// GetDailyTrend devuelve, por día, cuántas tareas registradas se crearon y
// cuántas se cerraron dentro del intervalo.
func (r *TaskAnalyticsRepo) GetDailyTrend(ctx context.Context, start, end time.Time) ([]taskDomain.DailyTaskTrend, error) {
	query := `
		SELECT
			toStartOfDay(event_time) AS day,
			countIf(created_at BETWEEN ? AND ?) AS created,
			countIf(closed_at BETWEEN ? AND ?) AS closed
		FROM tasks_closed_log
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query, start, end, start, end, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []taskDomain.DailyTaskTrend
	for rows.Next() {
		var trend taskDomain.DailyTaskTrend
		if err := rows.Scan(&trend.Day, &trend.CreatedCount, &trend.ClosedCount); err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}

// GetAverageCompletionTime calcula el tiempo medio entre creación y cierre
// de las tareas cerradas en el intervalo.
func (r *TaskAnalyticsRepo) GetAverageCompletionTime(ctx context.Context, start, end time.Time) (time.Duration, error) {
	query := `
		SELECT avg(dateDiff('second', created_at, closed_at)) AS avg_completion_seconds
		FROM tasks_closed_log
		WHERE closed_at BETWEEN ? AND ?
	`
	var avgSeconds sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, start, end).Scan(&avgSeconds)
	if err != nil {
		return 0, err
	}
	if !avgSeconds.Valid {
		return 0, nil // No hay datos para calcular
	}

	return time.Duration(avgSeconds.Float64) * time.Second, nil
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *TaskAnalyticsRepo) InitSchema() error {
	// Esta tabla está optimizada para analítica.
	// Se particiona por mes y se ordena por campos comunes de consulta.
	query := `
		CREATE TABLE IF NOT EXISTS tasks_closed_log (
			id          UUID,
			title       String,
			status      String,
			priority    String,
			created_by  String,
			closed_by   String,
			created_at  DateTime64(3),
			closed_at   DateTime64(3),
			event_time  DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (closed_by, priority, event_time);
	`
	_, err := r.db.Exec(query)
	return err
}

// Verificación estática de la interfaz.
var _ taskDomain.TaskAnalyticsRepository = (*TaskAnalyticsRepo)(nil)
