// en internal/notification/infra/outbound/mail/smtp_notifier.go
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	notificationDomain "github.com/davicafu/taskboard/internal/notification/domain"
	"go.uber.org/zap"
)

// SMTPNotifier entrega notificaciones por correo usando un relay SMTP.
type SMTPNotifier struct {
	addr string // host:port del relay
	from string
	auth smtp.Auth
	log  *zap.Logger
}

// NewSMTPNotifier es el constructor. user y pass pueden ser vacíos si el
// relay no requiere autenticación (p. ej. un relay local).
func NewSMTPNotifier(addr, from, user, pass string, log *zap.Logger) *SMTPNotifier {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPNotifier{addr: addr, from: from, auth: auth, log: log}
}

// Notify compone el mensaje según el tipo y lo envía a los destinatarios.
func (n *SMTPNotifier) Notify(ctx context.Context, kind notificationDomain.Kind, recipients []string, payload interface{}) error {
	if len(recipients) == 0 {
		return nil
	}

	subject, body, err := render(kind, payload)
	if err != nil {
		return err
	}

	msg := buildMessage(n.from, recipients, subject, body)

	// net/smtp no acepta contexto; respetamos al menos la cancelación previa.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(n.addr, n.auth, n.from, recipients, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	n.log.Info("📧 Notificación enviada",
		zap.String("kind", string(kind)),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}

// ---------------- Plantillas ----------------

func render(kind notificationDomain.Kind, payload interface{}) (string, string, error) {
	switch kind {
	case notificationDomain.KindTaskAssigned:
		p, ok := payload.(notificationDomain.AssignedPayload)
		if !ok {
			return "", "", fmt.Errorf("unexpected payload for %s", kind)
		}
		subject := fmt.Sprintf("New Task Assigned: %s", p.TaskTitle)
		body := fmt.Sprintf(
			"You have been assigned a new task.\n\nTask: %s\nPriority: %s\nStatus: %s\nAssigned by: %s\nTask ID: %s\n",
			p.TaskTitle, p.TaskPriority, p.TaskStatus, p.AssignedBy, p.TaskID,
		)
		return subject, body, nil

	case notificationDomain.KindStatusChanged:
		p, ok := payload.(notificationDomain.StatusChangedPayload)
		if !ok {
			return "", "", fmt.Errorf("unexpected payload for %s", kind)
		}
		subject := fmt.Sprintf("Task Status Updated: %s", p.TaskTitle)
		body := fmt.Sprintf(
			"The status of a task has changed.\n\nTask: %s\nStatus: %s -> %s\nPriority: %s\nTask ID: %s\n",
			p.TaskTitle, p.OldStatus, p.NewStatus, p.Priority, p.TaskID,
		)
		return subject, body, nil

	case notificationDomain.KindClosedReport:
		p, ok := payload.(notificationDomain.ClosedReportPayload)
		if !ok {
			return "", "", fmt.Errorf("unexpected payload for %s", kind)
		}
		subject := fmt.Sprintf("Task Closed: %s", p.TaskTitle)
		body := fmt.Sprintf(
			"The task has been closed.\n\nTask: %s\nClosed by: %s\nAssigned users: %d\nNotes: %s\nTask ID: %s\n",
			p.TaskTitle, p.ClosedBy, p.AssignedUsers, p.ClosureNotes, p.TaskID,
		)
		return subject, body, nil
	}

	return "", "", fmt.Errorf("unknown notification kind: %s", kind)
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Verificación en tiempo de compilación.
var _ notificationDomain.Notifier = (*SMTPNotifier)(nil)
