package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/preassess/portal-api/internal/model"
)

// Service notifies the care team. Used by the worker only; patient-facing
// delivery goes over SMS.
type Service interface {
	SendCompletionNotice(ctx context.Context, to string, payload *model.AssessmentCompletedPayload) error
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" required:"true"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" required:"true"`
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

func (s *smtpService) SendCompletionNotice(_ context.Context, to string, payload *model.AssessmentCompletedPayload) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Pre-assessment completed: %s", payload.PatientName))

	body := fmt.Sprintf(
		"Patient %s has completed the pre-anesthesia assessment for %s on %s.",
		payload.PatientName,
		payload.Procedure,
		payload.CompletedAt.Format("2006-01-02 15:04"),
	)
	if payload.Summary != "" {
		body += "\n\nConversation summary:\n" + payload.Summary
	} else {
		body += "\n\nNo automatic summary is available for this assessment."
	}
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send completion notice: %w", err)
	}
	return nil
}
