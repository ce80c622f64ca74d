package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// EmailConfig configures the SMTP notifier.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Email sends plain-text messages over SMTP.
type Email struct {
	cfg  EmailConfig
	addr string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates an Email notifier. Authentication is PLAIN when a username
// is configured.
func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("notify: email needs host, from and at least one recipient")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	e := &Email{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		e.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return e, nil
}

// Notify sends msg. net/smtp has no context support; ctx is only checked
// before dialing.
func (e *Email) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.send(e.addr, e.auth, e.cfg.From, e.cfg.To, e.compose(msg)); err != nil {
		return fmt.Errorf("notify: email: %w", err)
	}
	return nil
}

func (e *Email) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject())
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text(), "\n", "\r\n"))
	return []byte(b.String())
}
