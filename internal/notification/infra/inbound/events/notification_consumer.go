package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/taskboard/internal/notification/application"
	sharedEvents "github.com/davicafu/taskboard/internal/shared/events"
	sharedUtils "github.com/davicafu/taskboard/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
)

// NotificationConsumer escucha el change-feed de tareas y delega en el
// servicio de notificaciones. Un fallo en un registro se registra y se
// descarta: nunca detiene el consumo de los siguientes.
type NotificationConsumer struct {
	service *application.Service
	log     *zap.Logger
}

func NewNotificationConsumer(service *application.Service, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{
		service: service,
		log:     logger,
	}
}

func (c *NotificationConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}

	// ✅ Usamos las constantes en lugar de strings
	switch base.Type {
	case taskDomain.AssignmentCreated:
		sharedUtils.UnmarshalAndHandle[sharedEvents.AssignmentCreated](c.log, base.Data, func(evt sharedEvents.AssignmentCreated) {
			c.withContext(ctx, evt.AssignmentID, func(ctxN context.Context) error {
				return c.service.HandleAssignmentCreated(ctxN, evt)
			}, "Assignment notification sent", evt)
		})

	case taskDomain.TaskUpdated, taskDomain.TaskClosedEvent:
		sharedUtils.UnmarshalAndHandle[sharedEvents.TaskChanged](c.log, base.Data, func(evt sharedEvents.TaskChanged) {
			c.withContext(ctx, evt.After.TaskID.String(), func(ctxN context.Context) error {
				return c.service.HandleTaskChanged(ctxN, evt)
			}, "Status change notification sent", evt)
		})

	case taskDomain.TaskCreated:
		// La creación ya genera su propio evento de asignación cuando toca;
		// no hay destinatarios que avisar aquí.

	default:
		c.log.Warn("Unknown event type", zap.String("type", base.Type))
	}
}

// Helper para ejecutar la acción con contexto limitado y log
func (c *NotificationConsumer) withContext(ctx context.Context, id string, action func(ctx context.Context) error, successMsg string, evt interface{}) {
	ctxN, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := action(ctxN); err != nil {
		c.log.Warn("Failed to process notification event",
			zap.String("aggregate_id", id),
			zap.Any("event", evt),
			zap.Error(err),
		)
	} else {
		c.log.Info(successMsg, zap.String("aggregate_id", id))
	}
}

// BackgroundConsumerChan conecta el consumidor a un canal del bus en memoria.
func BackgroundConsumerChan(ctx context.Context, ch <-chan interface{}, consumer *NotificationConsumer) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				consumer.log.Info("NotificationConsumer stopped")
				return
			case msg := <-ch:
				// ✅ Esperamos recibir []byte, que es lo que el bus envía.
				if payload, ok := msg.([]byte); ok {
					consumer.HandleMessage(ctx, "", payload)
				}
			}
		}
	}()
}
