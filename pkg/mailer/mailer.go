// Package mailer renders transactional email templates and delivers them over SMTP.
package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names, matching models.EmailType values.
const (
	TemplateOrganizerApproved = "organizer_approved"
	TemplatePasswordReset     = "password_reset"
	TemplateEmailVerification = "email_verification"
)

var subjects = map[string]string{
	TemplateOrganizerApproved: "You're approved as an organizer",
	TemplatePasswordReset:     "Reset your password",
	TemplateEmailVerification: "Verify your email address",
}

// Message is a rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(msg Message) error
}

// Renderer turns a template name plus data into a Message.
type Renderer struct {
	tmpl    *template.Template
	appName string
}

// NewRenderer parses the embedded templates.
func NewRenderer(appName string) (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t, appName: appName}, nil
}

// Render executes the named template. data is exposed as .Data, plus .AppName and .Name.
func (r *Renderer) Render(name, to, toName string, data map[string]string) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, name+".html", map[string]interface{}{
		"AppName": r.appName,
		"Name":    toName,
		"Data":    data,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, ToName: toName, Subject: subject, HTML: buf.String()}, nil
}

// SMTPConfig holds dialer settings.
type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Pass        string
	FromAddress string
	FromName    string
}

// SMTPSender sends through gomail.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender builds a gomail dialer from cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)}
}

// Send dials and sends one message.
func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromAddress, s.cfg.FromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}

// LogSender logs messages instead of sending them. Used when SMTP is not configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(msg Message) error {
	s.Logger.Info("email (smtp disabled)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
