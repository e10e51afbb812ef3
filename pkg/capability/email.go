package capability

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/cobaltgrid/axon/pkg/config"
)

// EmailAdapter sends plain-text mail over authenticated SMTP.
type EmailAdapter struct {
	cfg config.EmailConfig
}

func NewEmailAdapter(cfg config.EmailConfig) *EmailAdapter {
	return &EmailAdapter{cfg: cfg}
}

func (a *EmailAdapter) Name() string {
	return "EmailAdapter"
}

func (a *EmailAdapter) Actions() []string {
	return []string{"send"}
}

func (a *EmailAdapter) Invoke(_ context.Context, action string, params map[string]any) (string, error) {
	switch action {
	case "send":
		to, err := StringParam(params, "to")
		if err != nil {
			return "", err
		}
		subject, err := StringParam(params, "subject")
		if err != nil {
			return "", err
		}
		body, err := StringParam(params, "body")
		if err != nil {
			return "", err
		}
		if err := a.send(to, subject, body); err != nil {
			return "", err
		}
		return fmt.Sprintf("sent to %s", to), nil
	default:
		return "", fmt.Errorf("%w: %s.%s", ErrActionNotFound, a.Name(), action)
	}
}

// sanitizeHeaderValue removes CR/LF to prevent SMTP header injection.
func sanitizeHeaderValue(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

func (a *EmailAdapter) send(to, subject, body string) error {
	if strings.TrimSpace(a.cfg.SMTPServer) == "" {
		return fmt.Errorf("email send: SMTP not configured (set smtp_server)")
	}

	from := a.cfg.From
	if from == "" {
		from = a.cfg.Username
	}
	to = sanitizeHeaderValue(strings.TrimSpace(to))
	if to == "" {
		return fmt.Errorf("email send: missing recipient")
	}

	msg := strings.Join([]string{
		"From: " + sanitizeHeaderValue(from),
		"To: " + to,
		"Subject: " + sanitizeHeaderValue(subject),
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	port := a.cfg.SMTPPort
	if port <= 0 {
		port = 587
	}
	addr := net.JoinHostPort(a.cfg.SMTPServer, strconv.Itoa(port))

	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPServer)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
