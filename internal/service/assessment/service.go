package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	"github.com/preassess/portal-api/internal/service/conversation"
	"github.com/preassess/portal-api/internal/service/relay"
	"github.com/preassess/portal-api/internal/summary"
	"github.com/preassess/portal-api/pkg/metrics"
)

// Directive is the clinician-authored instruction used to force
// recommendation synthesis from the collected history.
const Directive = "Based on all the information collected during this " +
	"pre-anesthesia assessment, please generate specific medical " +
	"recommendations for this patient."

// Service is the completion gate: it tracks recommendation evidence and
// decides when an assessment may transition to Completed.
type Service struct {
	recs          repository.RecommendationRepository
	summaries     repository.SummaryRepository
	patients      repository.PatientRepository
	outbox        repository.OutboxRepository
	tx            repository.TxRunner
	conversations *conversation.Service
	relay         *relay.Service
	summarizer    summary.Service
	metrics       *metrics.Metrics
}

func NewService(
	recs repository.RecommendationRepository,
	summaries repository.SummaryRepository,
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	txRunner repository.TxRunner,
	conversations *conversation.Service,
	relaySvc *relay.Service,
	summarizer summary.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		recs:          recs,
		summaries:     summaries,
		patients:      patients,
		outbox:        outbox,
		tx:            txRunner,
		conversations: conversations,
		relay:         relaySvc,
		summarizer:    summarizer,
		metrics:       m,
	}
}

// CheckRecommendations reports whether the agent has produced actionable
// output for the patient.
func (s *Service) CheckRecommendations(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return s.recs.Exists(ctx, patientID)
}

// ListRecommendations returns all recommendation records for the patient.
func (s *Service) ListRecommendations(ctx context.Context, patientID uuid.UUID) ([]*model.Recommendation, error) {
	return s.recs.List(ctx, patientID)
}

// ForceGenerate pushes the directive through the relay and records the
// reply as a recommendation, whether or not the agent flagged it as one.
func (s *Service) ForceGenerate(ctx context.Context, patient *model.Patient, sessionID string) (*model.Recommendation, error) {
	msg, err := s.relay.Instruct(ctx, patient, sessionID, Directive)
	if err != nil {
		return nil, err
	}

	rec := &model.Recommendation{
		PatientID: patient.ID,
		Content:   msg.Content,
	}
	if err := s.recs.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record recommendation: %w", err)
	}
	return rec, nil
}

// Complete closes the assessment. Blocked while no recommendation exists.
// Summarization is best-effort: its failure degrades to "completed without
// summary" and never blocks the transition. The status transition and the
// completion event share one transaction, so a notification is enqueued
// exactly when the patient actually completed.
func (s *Service) Complete(ctx context.Context, patient *model.Patient) error {
	if patient.Status == model.PatientStatusCompleted {
		return nil
	}

	ready, err := s.CheckRecommendations(ctx, patient.ID)
	if err != nil {
		return fmt.Errorf("failed to check recommendations: %w", err)
	}
	if !ready {
		return model.ErrAssessmentIncomplete
	}

	summaryText := s.generateSummary(ctx, patient.ID)

	var completed bool
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		completed, txErr = s.transitionToCompleted(ctx, tx, patient)
		if txErr != nil {
			return txErr
		}
		if !completed {
			return nil
		}
		return s.publishCompletion(ctx, tx, patient, summaryText)
	})
	if err != nil {
		return err
	}

	if completed {
		patient.Status = model.PatientStatusCompleted
		log.Info().Str("patient_id", patient.ID.String()).Msg("assessment completed")
	}
	return nil
}

func (s *Service) generateSummary(ctx context.Context, patientID uuid.UUID) string {
	messages, err := s.conversations.List(ctx, patientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("skipping summary, could not load transcript")
		return ""
	}

	text, err := s.summarizer.Summarize(ctx, messages)
	if err != nil {
		s.metrics.SummariesFailed.Inc()
		log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("assessment completed without summary")
		return ""
	}

	if err := s.summaries.Create(ctx, &model.AssessmentSummary{
		PatientID: patientID,
		Content:   text,
	}); err != nil {
		log.Error().Err(err).Str("patient_id", patientID.String()).Msg("failed to persist summary")
	}

	s.metrics.SummariesGenerated.Inc()
	return text
}

// transitionToCompleted moves the patient forward from whichever active
// status it holds. A force-generated recommendation can complete a session
// where the patient never typed a message, hence the Pending fallback.
func (s *Service) transitionToCompleted(ctx context.Context, tx *sqlx.Tx, patient *model.Patient) (bool, error) {
	changed, err := s.patients.UpdateStatusTx(ctx, tx, patient.ID, model.PatientStatusInProgress, model.PatientStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to complete assessment: %w", err)
	}
	if !changed {
		changed, err = s.patients.UpdateStatusTx(ctx, tx, patient.ID, model.PatientStatusPending, model.PatientStatusCompleted)
		if err != nil {
			return false, fmt.Errorf("failed to complete assessment: %w", err)
		}
	}
	return changed, nil
}

func (s *Service) publishCompletion(ctx context.Context, tx *sqlx.Tx, patient *model.Patient, summaryText string) error {
	payload, err := json.Marshal(model.AssessmentCompletedPayload{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Procedure:   patient.Procedure,
		Summary:     summaryText,
		CompletedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}

	if err := s.outbox.CreateTx(ctx, tx, &model.OutboxEvent{
		EventType: model.EventAssessmentCompleted,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("failed to enqueue completion event: %w", err)
	}
	return nil
}
