// Package mailer delivers transactional email such as verification codes.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

// New returns an SMTP sender when a host is configured, otherwise a sender
// that only logs the message.
func New(cfg config.SMTPConfig, logg *logger.Logger) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return &LogSender{logg: logg}
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPSender{dialer: d, from: cfg.From}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(buildMessage(s.from, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func buildMessage(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	return m
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail recipient required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("mail subject required")
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used when
// SMTP is not configured.
type LogSender struct {
	logg *logger.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"mail_to": msg.To, "mail_subject": msg.Subject})
		s.logg.Info(ctx, "mailer.smtp_disabled")
	}
	return nil
}
