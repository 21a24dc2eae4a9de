// Package mail sends transactional email over SMTP.
//
//	m := mail.NewSMTPMailer(mail.ConfigFromEnv())
//	err := m.Send(ctx, mail.Message{
//	    To:      []string{"buyer@example.com"},
//	    Subject: "Your PlantNet receipt",
//	    Body:    html,
//	    HTML:    true,
//	})
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/plantnet/plantnet-server/config"
	"github.com/plantnet/plantnet-server/pkg/logger"
)

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func ConfigFromEnv() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", "smtp.mailtrap.io"),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "orders@plantnet.app"),
		FromName: config.Get("MAIL_FROM_NAME", "PlantNet"),
	}
}

// Configured reports whether credentials are present.
func (c SMTP) Configured() bool { return c.Username != "" }

type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
	HTML    bool
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Render executes tmpl with data into an HTML body.
func Render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// ─── SMTP ─────────────────────────────────────────────────────────────────────

type SMTPMailer struct {
	cfg SMTP
}

func NewSMTPMailer(cfg SMTP) *SMTPMailer { return &SMTPMailer{cfg: cfg} }

// Send delivers m. Port 465 uses implicit TLS, other ports STARTTLS when
// the server offers it.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	cfg := s.cfg
	if !cfg.Configured() {
		return fmt.Errorf("mail: MAIL_USERNAME not configured")
	}
	if len(m.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if cfg.Port == "465" {
		conn = tls.Client(conn, &tls.Config{ServerName: cfg.Host})
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	for _, rcpt := range append(append([]string{}, m.To...), m.Cc...) {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.Raw(fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From))); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// Raw renders the RFC 5322 message.
func (m Message) Raw(from string) []byte {
	contentType := "text/plain"
	if m.HTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + headerSafe(from) + "\r\n")
	b.WriteString("To: " + headerSafe(strings.Join(m.To, ", ")) + "\r\n")
	if len(m.Cc) > 0 {
		b.WriteString("Cc: " + headerSafe(strings.Join(m.Cc, ", ")) + "\r\n")
	}
	b.WriteString("Subject: " + headerSafe(m.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return []byte(b.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// ─── Log ──────────────────────────────────────────────────────────────────────

// LogMailer writes messages to the log instead of sending them. Used when
// SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, m Message) error {
	logger.WithCtx(ctx).Info("mail: not sent (SMTP not configured)", "to", m.To, "subject", m.Subject)
	return nil
}
