package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/report"
	"go.uber.org/zap"
)

// MailConfig holds the SMTP settings for report delivery.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
	To       string // comma-separated recipient list
	Timeout  time.Duration
}

// SMTPMailer delivers daily reports by email.
type SMTPMailer struct {
	config MailConfig
	log    *zap.Logger
}

// NewSMTPMailer creates a mailer. The config is validated on every delivery
// rather than at construction so that a half-configured appliance still
// starts and surfaces the problem through the scheduler.
func NewSMTPMailer(config MailConfig, log *zap.Logger) *SMTPMailer {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPMailer{config: config, log: log}
}

// MissingFields lists the settings still required before mail can be sent.
func (m *SMTPMailer) MissingFields() []string {
	var missing []string
	if m.config.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if m.config.Port == 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if m.config.Username == "" {
		missing = append(missing, "SMTP_USER")
	}
	if m.config.Password == "" {
		missing = append(missing, "SMTP_PASS")
	}
	if m.config.From == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if len(m.Recipients()) == 0 {
		missing = append(missing, "EMAIL_TO")
	}
	return missing
}

// Recipients parses the comma-separated EMAIL_TO list.
func (m *SMTPMailer) Recipients() []string {
	var out []string
	for _, r := range strings.Split(m.config.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Deliver renders the payload and sends it to the configured recipients.
// The context bounds the whole exchange.
func (m *SMTPMailer) Deliver(ctx context.Context, p report.Payload) (string, error) {
	if missing := m.MissingFields(); len(missing) > 0 {
		return "", &DeliveryError{
			Permanent: true,
			Err:       fmt.Errorf("mail config incomplete, missing %s", strings.Join(missing, ", ")),
		}
	}

	recipients := m.Recipients()
	subject := fmt.Sprintf("fnOS Overseer daily report %s", p.Date)
	body := RenderText(p)
	msg := buildMessage(m.config.From, recipients, subject, body)

	if err := m.send(ctx, recipients, msg); err != nil {
		return "", &DeliveryError{Err: err}
	}

	ref := fmt.Sprintf("mail:%s:%s", p.Date, strings.Join(recipients, ","))
	m.log.Info("daily report delivered", zap.String("date", p.Date), zap.Int("recipients", len(recipients)))
	return ref, nil
}

func (m *SMTPMailer) send(ctx context.Context, recipients []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	dialer := &net.Dialer{Timeout: m.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.config.Timeout))
	}

	// Port 465 speaks TLS from the first byte; other ports upgrade via
	// STARTTLS when enabled.
	if m.config.UseTLS && m.config.Port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: m.config.Host})
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.config.UseTLS && m.config.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, r := range recipients {
		if err := client.Rcpt(r); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", r, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}

	return client.Quit()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: fnOS Overseer <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
