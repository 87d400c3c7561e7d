package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/preassess/portal-api/internal/config"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	"github.com/preassess/portal-api/internal/sms"
	"github.com/preassess/portal-api/pkg/metrics"
	"github.com/preassess/portal-api/pkg/security"
)

const bcryptCost = 10

// SessionIssuer issues a bearer token for a verified patient.
type SessionIssuer interface {
	Issue(ctx context.Context, patientID uuid.UUID) (string, error)
}

// Service is the identity verification gateway. Every credential failure is
// reported as model.ErrInvalidCredentials so a caller cannot learn whether
// the national id, the code, or the phone was the wrong part.
type Service struct {
	patients repository.PatientRepository
	codes    repository.SecurityCodeRepository
	sessions SessionIssuer
	smsSvc   sms.Service
	cfg      config.SecurityCodeConfig
	metrics  *metrics.Metrics
}

func NewService(
	patients repository.PatientRepository,
	codes repository.SecurityCodeRepository,
	sessions SessionIssuer,
	smsSvc sms.Service,
	cfg config.SecurityCodeConfig,
	m *metrics.Metrics,
) *Service {
	return &Service{
		patients: patients,
		codes:    codes,
		sessions: sessions,
		smsSvc:   smsSvc,
		cfg:      cfg,
		metrics:  m,
	}
}

// Verify checks the national id plus the current security code and, on an
// exact match, consumes the code and issues a session token.
func (s *Service) Verify(ctx context.Context, nationalID, code string) (string, error) {
	patient, err := s.patients.GetByNationalID(ctx, nationalID)
	if err != nil {
		return "", model.ErrInvalidCredentials
	}

	current, err := s.codes.GetCurrent(ctx, patient.ID)
	if err != nil {
		return "", model.ErrInvalidCredentials
	}

	if !current.Usable(time.Now()) {
		return "", model.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(current.CodeHash), []byte(code)) != nil {
		return "", model.ErrInvalidCredentials
	}

	// A concurrent verify may have consumed the code first; the loser of
	// that race is indistinguishable from a wrong code.
	if err := s.codes.Consume(ctx, current.ID); err != nil {
		return "", model.ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, patient.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue session: %w", err)
	}

	log.Info().Str("patient_id", patient.ID.String()).Msg("patient verified")
	return token, nil
}

// Resend issues a fresh security code and dispatches it by SMS. The
// caller-supplied phone must match the registered one; the replacement
// invalidates any previous code.
func (s *Service) Resend(ctx context.Context, nationalID, phone string) error {
	patient, err := s.patients.GetByNationalID(ctx, nationalID)
	if err != nil {
		return model.ErrInvalidCredentials
	}

	if patient.Phone == "" || normalizePhone(patient.Phone) != normalizePhone(phone) {
		return model.ErrInvalidCredentials
	}

	code, err := security.GenerateSecurityCode(s.cfg.Length)
	if err != nil {
		return fmt.Errorf("failed to generate security code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash security code: %w", err)
	}

	record := &model.SecurityCode{
		ID:        uuid.New(),
		PatientID: patient.ID,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(s.cfg.Expiry),
	}
	if err := s.codes.Replace(ctx, record); err != nil {
		return fmt.Errorf("failed to store security code: %w", err)
	}

	sid, err := s.smsSvc.Send(ctx, patient.Phone, s.composeSMS(patient, code))
	if err != nil {
		s.metrics.SMSFailed.Inc()
		log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("security code SMS dispatch failed")
		return fmt.Errorf("failed to send security code: %w", err)
	}

	s.metrics.SMSDispatched.Inc()
	log.Info().Str("patient_id", patient.ID.String()).Str("message_sid", sid).Msg("security code resent")
	return nil
}

func (s *Service) composeSMS(patient *model.Patient, code string) string {
	procedure := patient.Procedure
	if procedure == "" {
		procedure = "your procedure"
	}

	msg := fmt.Sprintf(
		"Hello %s! Your new access code for the pre-anesthesia assessment of %s is %s.",
		patient.Name, procedure, code,
	)
	if patient.ProcedureDate != nil {
		msg += fmt.Sprintf(" Scheduled surgery: %s.", patient.ProcedureDate.Format("Monday, January 2, 2006"))
	}
	msg += " This SMS was sent automatically on your request."
	return msg
}

func normalizePhone(phone string) string {
	out := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			out = append(out, c)
		}
	}
	return string(out)
}
