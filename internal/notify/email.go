package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"
)

const defaultSMTPPort = 587

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Server       string   `mapstructure:"smtp-server" validate:"required_if=Enabled true"`
	Port         int      `mapstructure:"smtp-port" validate:"omitempty,min=1,max=65535"`
	User         string   `mapstructure:"smtp-user"`
	PasswordFile string   `mapstructure:"smtp-password-file"`
	From         string   `mapstructure:"from" validate:"omitempty,email"`
	To           []string `mapstructure:"to" validate:"omitempty,dive,email"`
}

// Notifier delivers a rendered digest.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends messages over SMTP.
type Email struct {
	cfg    EmailConfig
	sender sender
	logger *zap.Logger
}

// NewEmail creates an SMTP notifier. password is the already loaded secret.
func NewEmail(cfg EmailConfig, password string, logger *zap.Logger) (*Email, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, errors.New("smtp server is required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("sender and at least one recipient are required")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := gomail.NewDialer(cfg.Server, cfg.Port, cfg.User, password)
	dialer.Timeout = 10 * time.Second

	return &Email{cfg: cfg, sender: dialer, logger: logger}, nil
}

// Send delivers msg with an HTML body and a plain text alternative.
func (e *Email) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", e.cfg.To...)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTML != "" && msg.Text != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send digest to %s: %w", strings.Join(e.cfg.To, ","), err)
	}

	e.logger.Info("digest sent",
		zap.String("subject", msg.Subject),
		zap.Strings("to", e.cfg.To),
	)
	return nil
}
