package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"learnhub/config"

	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when a host is configured, otherwise a console sender.
func New(cfg config.MailConfig) Sender {
	if cfg.Host == "" {
		return NewConsoleSender()
	}
	return NewSMTPSender(cfg)
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		slog.ErrorContext(ctx, "smtp send failed", "to", msg.To, "error", err)
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// ConsoleSender logs messages instead of delivering them. Sent messages are
// kept so tests can inspect them.
type ConsoleSender struct {
	mu   sync.Mutex
	sent []Message
}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail (console)", "to", msg.To, "subject", msg.Subject, "body", msg.HTML)
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// OTPMessage renders the one-time code email.
func OTPMessage(to, code, purpose string) Message {
	subject := "Your verification code"
	intro := "Use this code to verify your email address:"
	if purpose == "reset_password" {
		subject = "Reset your password"
		intro = "Use this code to reset your password:"
	}
	body := fmt.Sprintf(`
		<p>%s</p>
		<h2>%s</h2>
		<p>The code expires shortly. If you did not request it, ignore this email.</p>
	`, intro, code)
	return Message{To: to, Subject: subject, HTML: body}
}
