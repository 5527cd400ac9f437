package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/medifast/claims-api/pkg/logger"
)

// Sender delivers email copies of claim notifications. In-app delivery
// happens through the notification store regardless; email is an
// additional channel the outbox worker fans out to.
type Sender interface {
	SendNotification(ctx context.Context, to, subject, body string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPSender(cfg Config, l *logger.Logger) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: l,
	}
}

func (s *SMTPSender) SendNotification(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	s.logger.Debug("notification email sent", "to", to, "subject", subject)
	return nil
}

// NoopSender drops emails. Used when SMTP is disabled; notifications
// then reach users in-app only.
type NoopSender struct{}

func (NoopSender) SendNotification(context.Context, string, string, string) error {
	return nil
}
