package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends plain-text mail through an SMTP relay.
type Mailer struct {
	cfg Config
}

// New returns a mailer for the provided relay configuration.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers a message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address required")
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
