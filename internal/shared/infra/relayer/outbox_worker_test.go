package relayer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	sharedEvents "github.com/davicafu/taskboard/internal/shared/events"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	"github.com/davicafu/taskboard/tests/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func pendingEvent(eventType string) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "task",
		AggregateID:   uuid.New().String(),
		EventType:     eventType,
		// El payload llega del repo como mapa genérico, igual que al leer
		// la fila de la tabla outbox.
		Payload: map[string]interface{}{
			"before": map[string]interface{}{"status": "OPEN"},
			"after":  map[string]interface{}{"status": "IN_PROGRESS"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestOutboxWorker_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := pendingEvent(taskDomain.TaskUpdated)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e interface{}) bool {
		// El worker publica el sobre de integración, no el payload crudo
		integration, ok := e.(sharedEvents.IntegrationEvent)
		if !ok || integration.Type != taskDomain.TaskUpdated {
			return false
		}
		var changed sharedEvents.TaskChanged
		return json.Unmarshal(integration.Data, &changed) == nil &&
			changed.After.Status == "IN_PROGRESS"
	})).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, taskDomain.NewEventRegistry(), 10*time.Millisecond, 10, zap.NewNop())
	worker.ProcessBatch(ctx)

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOutboxWorker_PublishFailureKeepsEventPending(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := pendingEvent(taskDomain.TaskUpdated)

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError).Once()
	// MarkOutboxProcessed NO debe llamarse: el evento queda pendiente

	worker := NewOutboxWorker(repo, publisher, taskDomain.NewEventRegistry(), 10*time.Millisecond, 10, zap.NewNop())
	worker.ProcessBatch(ctx)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
}

func TestOutboxWorker_UnknownEventTypeSkipped(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	evt := pendingEvent("task.renamed") // no registrado

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil).Once()

	worker := NewOutboxWorker(repo, publisher, taskDomain.NewEventRegistry(), 10*time.Millisecond, 10, zap.NewNop())
	worker.ProcessBatch(ctx)

	repo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
