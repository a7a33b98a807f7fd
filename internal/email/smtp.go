package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendWelcome(ctx context.Context, to string, orgName string) error {
	content := fmt.Sprintf(
		"Your organization %s has been registered with a trial subscription.\n"+
			"Sign in with this email address to start uploading videos.", orgName)
	return s.SendCustom(ctx, to, "Welcome to "+orgName, content)
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// Noop is used when SMTP is not configured; sends succeed without effect.
type Noop struct{}

func (Noop) SendWelcome(context.Context, string, string) error         { return nil }
func (Noop) SendCustom(context.Context, string, string, string) error { return nil }
