package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
)

// Mailer sends notification emails. The scheduler only depends on this
// interface, which is what the tests fake.
type Mailer interface {
	Send(to []string, subject, body string) error
}

const sendTimeout = 10 * time.Second

// SMTPMailer talks plain SMTP with optional AUTH PLAIN. No third-party
// mail library exists in this stack; the stdlib client is enough for a
// relay with a fixed sender.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer creates a mailer from the MAIL_* configuration
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. The dial carries a hard timeout so a dead
// relay cannot stall a scheduler tick.
func (m *SMTPMailer) Send(to []string, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("mail relay not configured")
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, sendTimeout)
	if err != nil {
		return fmt.Errorf("dial mail relay: %w", err)
	}
	conn.SetDeadline(time.Now().Add(sendTimeout))

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.cfg.Sender, strings.Join(to, ", "), subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}
