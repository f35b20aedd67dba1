package mocks

import (
	"context"
	"sort"
	"sync"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/google/uuid"
)

// InMemoryAssignmentRepo simula AssignmentRepository con outbox incluido.
// La inserción es condicional sobre la clave compuesta, igual que en los
// adaptadores reales.
type InMemoryAssignmentRepo struct {
	Assignments map[string]*taskDomain.Assignment
	Outbox      []sharedDomain.OutboxEvent
	mu          sync.Mutex

	// FailList fuerza un error en los listados.
	FailList error
}

func NewInMemoryAssignmentRepo() *InMemoryAssignmentRepo {
	return &InMemoryAssignmentRepo{
		Assignments: make(map[string]*taskDomain.Assignment),
		Outbox:      []sharedDomain.OutboxEvent{},
	}
}

func (r *InMemoryAssignmentRepo) Create(ctx context.Context, a *taskDomain.Assignment, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Assignments[a.ID]; ok {
		return taskDomain.ErrAssignmentExists
	}
	cp := *a
	r.Assignments[a.ID] = &cp
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryAssignmentRepo) GetByID(ctx context.Context, id string) (*taskDomain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.Assignments[id]
	if !ok {
		return nil, taskDomain.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryAssignmentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*taskDomain.Assignment, error) {
	return r.list(func(a *taskDomain.Assignment) bool { return a.TaskID == taskID })
}

func (r *InMemoryAssignmentRepo) ListByAssignee(ctx context.Context, assigneeID string) ([]*taskDomain.Assignment, error) {
	return r.list(func(a *taskDomain.Assignment) bool { return a.AssigneeID == assigneeID })
}

func (r *InMemoryAssignmentRepo) list(match func(*taskDomain.Assignment) bool) ([]*taskDomain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailList != nil {
		return nil, r.FailList
	}
	var out []*taskDomain.Assignment
	for _, a := range r.Assignments {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AssignedAt.After(out[j].AssignedAt)
	})
	return out, nil
}

// Verificación en tiempo de compilación.
var _ taskDomain.AssignmentRepository = (*InMemoryAssignmentRepo)(nil)
