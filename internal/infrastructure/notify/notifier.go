// Package notify delivers approval notifications. Delivery is best-effort:
// the engine records every intent in the notification log and never fails an
// operation on a delivery error.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// SMTPConfig holds the outbound mail settings. An empty Host switches the
// notifier to log-only delivery, which keeps local development quiet.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Notifier implements port.Notifier over SMTP, resolving recipient addresses
// through the user directory.
type Notifier struct {
	users  port.UserRepository
	cfg    SMTPConfig
	logger *zap.Logger

	// send is swappable for tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewNotifier creates a notifier.
func NewNotifier(users port.UserRepository, cfg SMTPConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		users:  users,
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// Notify delivers one notification intent.
func (n *Notifier) Notify(ctx context.Context, intent port.NotificationIntent) error {
	recipient, err := n.users.GetByID(ctx, intent.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", intent.RecipientID, err)
	}
	if recipient == nil {
		return fmt.Errorf("recipient %s not found", intent.RecipientID)
	}

	subject, body := render(intent)

	if n.cfg.Host == "" {
		n.logger.Info("Notification (log-only delivery)",
			zap.String("recipient", recipient.Email),
			zap.String("kind", intent.Kind),
			zap.String("instance_id", intent.InstanceID),
			zap.String("subject", subject),
		)
		return nil
	}

	if recipient.Email == "" {
		return fmt.Errorf("recipient %s has no email address", intent.RecipientID)
	}

	msg := buildMessage(n.cfg.From, recipient.Email, subject, body)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.From, []string{recipient.Email}, msg); err != nil {
		return fmt.Errorf("send notification to %s: %w", recipient.Email, err)
	}

	n.logger.Info("Notification sent",
		zap.String("recipient", recipient.Email),
		zap.String("kind", intent.Kind),
		zap.String("instance_id", intent.InstanceID),
	)
	return nil
}

func render(intent port.NotificationIntent) (subject, body string) {
	switch intent.Kind {
	case entity.NotificationKindPending:
		subject = "Approval required"
		body = fmt.Sprintf("An approval request (%s) is waiting for your decision.", intent.InstanceID)
	case entity.NotificationKindEscalation:
		subject = "Approval overdue"
		body = fmt.Sprintf("An approval request (%s) assigned to you is past its deadline.", intent.InstanceID)
	case entity.NotificationKindApproved:
		subject = "Request approved"
		body = fmt.Sprintf("Your request (%s) has been approved.", intent.InstanceID)
	case entity.NotificationKindRejected:
		subject = "Request rejected"
		body = fmt.Sprintf("Your request (%s) has been rejected.", intent.InstanceID)
	default:
		subject = "Approval update"
		body = fmt.Sprintf("There is an update on approval request %s.", intent.InstanceID)
	}
	return subject, body
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
