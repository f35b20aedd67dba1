package mocks

import (
	"context"
	"sync"

	notificationDomain "github.com/davicafu/taskboard/internal/notification/domain"
)

// SentNotification guarda una notificación capturada por el mock.
type SentNotification struct {
	Kind       notificationDomain.Kind
	Recipients []string
	Payload    interface{}
}

// RecordingNotifier captura las notificaciones en lugar de entregarlas.
type RecordingNotifier struct {
	Sent []SentNotification
	mu   sync.Mutex

	// Err, si no es nil, se devuelve en cada Notify.
	Err error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(ctx context.Context, kind notificationDomain.Kind, recipients []string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, SentNotification{Kind: kind, Recipients: recipients, Payload: payload})
	return nil
}

// Verificación en tiempo de compilación.
var _ notificationDomain.Notifier = (*RecordingNotifier)(nil)

// StaticAdminDirectory devuelve siempre la misma lista de admins.
type StaticAdminDirectory struct {
	Emails []string
	Err    error
}

func (d *StaticAdminDirectory) AdminEmails(ctx context.Context) ([]string, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Emails, nil
}

var _ notificationDomain.AdminDirectory = (*StaticAdminDirectory)(nil)
