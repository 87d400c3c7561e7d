package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/agent"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	"github.com/preassess/portal-api/internal/service/conversation"
	"github.com/preassess/portal-api/pkg/metrics"
)

// ErrAgentUnavailable wraps agent failures. By the time it is returned the
// user's message is already durable, so the caller only has to retry the
// exchange, never re-enter the text.
type ErrAgentUnavailable struct {
	Err error
}

func (e *ErrAgentUnavailable) Error() string {
	return fmt.Sprintf("agent unavailable: %v", e.Err)
}

func (e *ErrAgentUnavailable) Unwrap() error {
	return e.Err
}

// Service forwards patient messages to the external agent and normalizes
// its replies into conversation messages and recommendation records.
type Service struct {
	conversations *conversation.Service
	recs          repository.RecommendationRepository
	agent         agent.Client
	metrics       *metrics.Metrics
}

func NewService(
	conversations *conversation.Service,
	recs repository.RecommendationRepository,
	agentClient agent.Client,
	m *metrics.Metrics,
) *Service {
	return &Service{
		conversations: conversations,
		recs:          recs,
		agent:         agentClient,
		metrics:       m,
	}
}

// Exchange runs one full user turn: persist the user message, ask the
// agent, persist its reply. The user message is written before the agent
// call so a collaborator failure never loses patient input.
func (s *Service) Exchange(ctx context.Context, patient *model.Patient, sessionID, message string) (*model.ConversationMessage, error) {
	if _, err := s.conversations.AppendUser(ctx, patient, message); err != nil {
		return nil, err
	}

	reply, err := s.ask(ctx, sessionID, message)
	if err != nil {
		return nil, &ErrAgentUnavailable{Err: err}
	}

	s.recordRecommendation(ctx, patient.ID, reply)

	return s.conversations.AppendAssistant(ctx, patient.ID, reply.Answer)
}

// Instruct sends a system directive through the agent without appending it
// to the patient's log; only the reply is persisted. Recommendation storage
// is left to the caller, which records the reply text itself.
func (s *Service) Instruct(ctx context.Context, patient *model.Patient, sessionID, directive string) (*model.ConversationMessage, error) {
	reply, err := s.ask(ctx, sessionID, directive)
	if err != nil {
		return nil, &ErrAgentUnavailable{Err: err}
	}

	return s.conversations.AppendAssistant(ctx, patient.ID, reply.Answer)
}

func (s *Service) ask(ctx context.Context, sessionID, message string) (*agent.Reply, error) {
	start := time.Now()
	reply, err := s.agent.Ask(ctx, sessionID, message)
	s.metrics.AgentRelayLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.AgentRelayFailures.Inc()
		return nil, err
	}
	return reply, nil
}

// recordRecommendation stores agent-flagged recommendations. Failures are
// logged, not propagated: the reply itself must still reach the patient.
func (s *Service) recordRecommendation(ctx context.Context, patientID uuid.UUID, reply *agent.Reply) {
	if reply.Recommendations == "" {
		return
	}
	rec := &model.Recommendation{
		PatientID: patientID,
		Content:   reply.Recommendations,
	}
	if err := s.recs.Create(ctx, rec); err != nil {
		log.Error().Err(err).Str("patient_id", patientID.String()).Msg("failed to record recommendation")
	}
}
