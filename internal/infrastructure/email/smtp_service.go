package email

import (
	"fmt"
	"net/smtp"

	"marketplace-backend/internal/config"
)

// Sender is the synchronous email transport: deliver one message and
// report the outcome to the calling task.
type Sender interface {
	Send(to, subject, body string) error
}

type smtpSender struct {
	addr string
	from string
}

// NewSMTPSender talks plain SMTP; in development this points at a local
// mailcatcher.
func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{
		addr: cfg.Host + ":" + cfg.Port,
		from: cfg.From,
	}
}

func (s *smtpSender) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.from, to, subject, body))

	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
