package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
)

// Greeting is the fixed assistant message that opens every conversation.
const Greeting = "Welcome to the pre-anesthesia assessment platform. Our AI agent " +
	"will now take you through a questionnaire collecting information that is " +
	"essential for your upcoming procedure.\n" +
	"We recommend you have ready:\n" +
	"- Your regular medication, if any (names and doses).\n" +
	"- The referral reports from your doctor (consultation report and informed consent).\n" +
	"- Any previous specialist reports (cardiology, pneumology, neurology, etc.).\n\n" +
	"At the end of the questionnaire you will be able to upload files or photos " +
	"with the information requested.\n\n" +
	"Shall we begin?"

// Service owns the append-only conversation log.
type Service struct {
	messages repository.ConversationRepository
	patients repository.PatientRepository
}

func NewService(messages repository.ConversationRepository, patients repository.PatientRepository) *Service {
	return &Service{
		messages: messages,
		patients: patients,
	}
}

// Bootstrap seeds the greeting when, and only when, the log is empty, then
// returns the patient's full conversation. Safe to call any number of times.
func (s *Service) Bootstrap(ctx context.Context, patientID uuid.UUID) ([]*model.ConversationMessage, error) {
	inserted, err := s.messages.InsertGreetingIfEmpty(ctx, patientID, Greeting)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap conversation: %w", err)
	}
	if inserted {
		log.Debug().Str("patient_id", patientID.String()).Msg("conversation bootstrapped")
	}
	return s.messages.List(ctx, patientID)
}

// List returns the ordered conversation log.
func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*model.ConversationMessage, error) {
	return s.messages.List(ctx, patientID)
}

// ensureGreeting seeds the greeting before any other write, so the first
// row of a log is always the assistant greeting no matter which endpoint a
// client calls first.
func (s *Service) ensureGreeting(ctx context.Context, patientID uuid.UUID) error {
	if _, err := s.messages.InsertGreetingIfEmpty(ctx, patientID, Greeting); err != nil {
		return fmt.Errorf("failed to bootstrap conversation: %w", err)
	}
	return nil
}

// AppendUser persists a patient-authored message. The first user message
// moves the patient from Pending to InProgress; that transition is
// fire-and-forget relative to the message write.
func (s *Service) AppendUser(ctx context.Context, patient *model.Patient, content string) (*model.ConversationMessage, error) {
	if err := s.ensureGreeting(ctx, patient.ID); err != nil {
		return nil, err
	}

	msg := &model.ConversationMessage{
		PatientID: patient.ID,
		Role:      model.RoleUser,
		Content:   content,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	if patient.Status == model.PatientStatusPending {
		changed, err := s.patients.UpdateStatusTx(ctx, nil, patient.ID, model.PatientStatusPending, model.PatientStatusInProgress)
		if err != nil {
			log.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("failed to mark assessment in progress")
		} else if changed {
			patient.Status = model.PatientStatusInProgress
		}
	}

	return msg, nil
}

// AppendAssistant persists an agent-authored message.
func (s *Service) AppendAssistant(ctx context.Context, patientID uuid.UUID, content string) (*model.ConversationMessage, error) {
	if err := s.ensureGreeting(ctx, patientID); err != nil {
		return nil, err
	}

	msg := &model.ConversationMessage{
		PatientID: patientID,
		Role:      model.RoleAssistant,
		Content:   content,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}
	return msg, nil
}
