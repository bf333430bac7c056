package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// ErrNoRecipients is returned when the recipient list resolves to nothing.
var ErrNoRecipients = errors.New("notify: no recipients")

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`

	// To is a comma or semicolon separated recipient list.
	To string `yaml:"to"`

	// SubjectPrefix leads every subject line.
	SubjectPrefix string `yaml:"subject_prefix"`

	// AlwaysNotify sends a report even when nothing changed.
	AlwaysNotify bool `yaml:"always_notify"`
}

func (c *MailConfig) defaults() {
	if c.Port == 0 {
		c.Port = 587
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "Doc Monitor"
	}
}

// Enabled reports whether delivery is configured at all.
func (c *MailConfig) Enabled() bool {
	return c.Host != "" && c.To != ""
}

// SplitRecipients parses a comma or semicolon separated address list.
func SplitRecipients(s string) []string {
	s = strings.ReplaceAll(s, ";", ",")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// sendFunc matches smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers run reports over SMTP.
type Mailer struct {
	cfg    MailConfig
	logger *slog.Logger
	send   sendFunc
}

// NewMailer builds a Mailer. A nil logger falls back to slog.Default.
func NewMailer(cfg MailConfig, logger *slog.Logger) *Mailer {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Notify renders and delivers the report. Unchanged runs are skipped
// unless AlwaysNotify is set.
func (m *Mailer) Notify(ctx context.Context, r *RunReport) error {
	if !m.cfg.Enabled() {
		m.logger.Info("email delivery not configured, skipping notification")
		return nil
	}
	if !r.HasChanges() && !m.cfg.AlwaysNotify {
		m.logger.Info("no changes and always_notify disabled, skipping notification")
		return nil
	}
	return m.Send(ctx, r.Subject(m.cfg.SubjectPrefix), BuildText(r), BuildHTML(r))
}

// Send delivers a multipart/alternative message with plain and HTML parts.
func (m *Mailer) Send(ctx context.Context, subject, textBody, htmlBody string) error {
	recipients := SplitRecipients(m.cfg.To)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(m.cfg.From, recipients, subject, textBody, htmlBody)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	// smtp.SendMail upgrades to STARTTLS when the server offers it.
	if err := m.send(addr, auth, m.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("notify: send via %s: %w", addr, err)
	}
	m.logger.Info("notification sent",
		slog.String("subject", subject),
		slog.Int("recipients", len(recipients)))
	return nil
}

func buildMessage(from string, to []string, subject, textBody, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	// Plain part first: clients prefer the last alternative they support.
	for _, part := range []struct {
		ctype string
		body  string
	}{
		{"text/plain; charset=utf-8", textBody},
		{"text/html; charset=utf-8", htmlBody},
	} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", part.ctype)
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("notify: build message: %w", err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("notify: build message: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("notify: build message: %w", err)
	}
	return buf.Bytes(), nil
}
