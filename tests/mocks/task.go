package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	sharedQuery "github.com/davicafu/taskboard/internal/shared/infra/platform/query"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/google/uuid"
)

// InMemoryTaskRepo simula TaskRepository con outbox incluido.
type InMemoryTaskRepo struct {
	Tasks  map[uuid.UUID]*taskDomain.Task
	Outbox []sharedDomain.OutboxEvent
	mu     sync.Mutex

	// FailGet fuerza un error en GetByID para probar reintentos.
	FailGet error
}

func NewInMemoryTaskRepo() *InMemoryTaskRepo {
	return &InMemoryTaskRepo{
		Tasks:  make(map[uuid.UUID]*taskDomain.Task),
		Outbox: []sharedDomain.OutboxEvent{},
	}
}

// Create con outbox
func (r *InMemoryTaskRepo) Create(ctx context.Context, t *taskDomain.Task, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Tasks[t.ID]; ok {
		return taskDomain.ErrTaskAlreadyExists
	}
	cp := *t
	r.Tasks[t.ID] = &cp
	r.Outbox = append(r.Outbox, evt)
	return nil
}

// GetByID devuelve una copia para simular la frontera de persistencia.
func (r *InMemoryTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailGet != nil {
		return nil, r.FailGet
	}
	t, ok := r.Tasks[id]
	if !ok {
		return nil, taskDomain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// Update con outbox y comprobación opcional de versión
func (r *InMemoryTaskRepo) Update(ctx context.Context, t *taskDomain.Task, expectedVersion *int64, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.Tasks[t.ID]
	if !ok {
		return taskDomain.ErrTaskNotFound
	}
	if expectedVersion != nil && stored.Version != *expectedVersion {
		return taskDomain.ErrVersionMismatch
	}
	cp := *t
	r.Tasks[t.ID] = &cp
	r.Outbox = append(r.Outbox, evt)
	return nil
}

// ListByCriteria aplica los criterios soportados por el dominio de tareas.
func (r *InMemoryTaskRepo) ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sortParam sharedQuery.Sort) ([]*taskDomain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conds []sharedDomain.Criterion
	if criteria != nil {
		conds = criteria.ToConditions()
	}

	var out []*taskDomain.Task
	for _, t := range r.Tasks {
		if matchesTask(t, conds) {
			cp := *t
			out = append(out, &cp)
		}
	}

	// Solo soportamos created_at, que es lo que usa el servicio.
	sort.SliceStable(out, func(i, j int) bool {
		if sortParam.Desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		if p.Offset < len(out) {
			out = out[p.Offset:]
		} else {
			out = nil
		}
		if p.Limit > 0 && p.Limit < len(out) {
			out = out[:p.Limit]
		}
	}

	return out, nil
}

func matchesTask(t *taskDomain.Task, conds []sharedDomain.Criterion) bool {
	for _, c := range conds {
		switch c.Field {
		case "id":
			if id, ok := c.Value.(uuid.UUID); !ok || t.ID != id {
				return false
			}
		case "status":
			if string(t.Status) != c.Value.(string) {
				return false
			}
		case "created_by":
			if t.CreatedBy != c.Value.(string) {
				return false
			}
		case "title":
			pattern := strings.Trim(c.Value.(string), "%")
			if !strings.Contains(strings.ToLower(t.Title), strings.ToLower(pattern)) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Verificación en tiempo de compilación.
var _ taskDomain.TaskRepository = (*InMemoryTaskRepo)(nil)
