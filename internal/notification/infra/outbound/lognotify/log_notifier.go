package lognotify

import (
	"context"

	notificationDomain "github.com/davicafu/taskboard/internal/notification/domain"
	"go.uber.org/zap"
)

// LogNotifier es el sustituto del correo en despliegues locales: vuelca la
// notificación al log en lugar de entregarla.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, kind notificationDomain.Kind, recipients []string, payload interface{}) error {
	n.log.Info("📧 Notificación (solo log)",
		zap.String("kind", string(kind)),
		zap.Strings("recipients", recipients),
		zap.Any("payload", payload),
	)
	return nil
}

// Verificación en tiempo de compilación.
var _ notificationDomain.Notifier = (*LogNotifier)(nil)
