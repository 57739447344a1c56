// Package mail renders notification templates and delivers them over SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/bazaarhq/bazaar/internal/config"
	"gopkg.in/gomail.v2"
)

// Template names.
const (
	TemplateOrderReceived    = "order_received"
	TemplatePaymentConfirmed = "payment_confirmed"
	TemplateOTP              = "otp"
)

// ErrTemplate marks a message that can never be rendered, so retrying it is pointless.
var ErrTemplate = errors.New("mail template error")

//go:embed templates/*
var templateFS embed.FS

// Message is one email to send.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     any
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer delivers rendered messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var _ Sender = (*SMTPSender)(nil)

// SMTPSender sends multipart (plain text and HTML) messages.
type SMTPSender struct {
	from   string
	dialer Dialer
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

// NewSMTPSender creates a sender for the configured server. Port 465 uses implicit TLS.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Port == 465
	return newSender(cfg.From, d)
}

func newSender(from string, dialer Dialer) (*SMTPSender, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	return &SMTPSender{from: from, dialer: dialer, html: html, text: text}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var plain, rich bytes.Buffer
	if err := s.text.ExecuteTemplate(&plain, msg.Template+".txt", msg.Data); err != nil {
		return fmt.Errorf("%w: render %s.txt: %w", ErrTemplate, msg.Template, err)
	}
	if err := s.html.ExecuteTemplate(&rich, msg.Template+".html", msg.Data); err != nil {
		return fmt.Errorf("%w: render %s.html: %w", ErrTemplate, msg.Template, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", plain.String())
	m.AddAlternative("text/html", rich.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}
