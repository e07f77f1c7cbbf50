// Package mailer sends notification email over SMTP.
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by Send when no SMTP host or sender is set.
var ErrNotConfigured = errors.New("mailer: smtp host not configured")

// Sender is what features depend on. Tests substitute a fake.
type Sender interface {
	Send(email Email) error
	Enabled() bool
}

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

type Mailer struct {
	cfg Config
	log *zap.Logger

	// smtp.SendMail outside of tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{cfg: cfg, log: log, sendMail: smtp.SendMail}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != "" && m.cfg.From != ""
}

// Email is one outgoing message. HTMLBody is optional; when set the
// message is multipart/alternative with TextBody first.
type Email struct {
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

func (m *Mailer) Send(email Email) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	to := oneLine(email.To)
	if to == "" {
		return errors.New("mailer: empty recipient")
	}

	msg, err := m.compose(email)
	if err != nil {
		return fmt.Errorf("mailer: compose: %w", err)
	}

	var auth smtp.Auth
	if m.cfg.User != "" && m.cfg.Pass != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		m.log.Error("email not sent", zap.String("to", to), zap.String("subject", email.Subject), zap.Error(err))
		return fmt.Errorf("mailer: send: %w", err)
	}
	m.log.Info("email sent", zap.String("to", to), zap.String("subject", email.Subject))
	return nil
}

// compose renders the RFC 5322 message. Header values are flattened to one
// line so visitor-supplied text cannot add headers.
func (m *Mailer) compose(email Email) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }

	from := (&mail.Address{Name: oneLine(m.cfg.FromName), Address: m.cfg.From}).String()
	header("From", from)
	header("To", oneLine(email.To))
	if rt := oneLine(email.ReplyTo); rt != "" {
		header("Reply-To", rt)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", oneLine(email.Subject)))
	header("MIME-Version", "1.0")

	if email.HTMLBody == "" {
		header("Content-Type", "text/plain; charset=UTF-8")
		buf.WriteString("\r\n")
		buf.WriteString(email.TextBody)
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	for _, part := range []struct{ ctype, content string }{
		{"text/plain; charset=UTF-8", email.TextBody},
		{"text/html; charset=UTF-8", email.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

func oneLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}
