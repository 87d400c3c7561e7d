package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preassess/portal-api/internal/agent"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/service/conversation"
	"github.com/preassess/portal-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "relay")

type fakeConversationRepo struct {
	messages map[uuid.UUID][]*model.ConversationMessage
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{messages: map[uuid.UUID][]*model.ConversationMessage{}}
}

func (f *fakeConversationRepo) InsertGreetingIfEmpty(_ context.Context, patientID uuid.UUID, content string) (bool, error) {
	if len(f.messages[patientID]) > 0 {
		return false, nil
	}
	f.messages[patientID] = append(f.messages[patientID], &model.ConversationMessage{
		ID: uuid.New(), PatientID: patientID, Role: model.RoleAssistant, Content: content, CreatedAt: time.Now(),
	})
	return true, nil
}

func (f *fakeConversationRepo) Append(_ context.Context, msg *model.ConversationMessage) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.messages[msg.PatientID] = append(f.messages[msg.PatientID], msg)
	return nil
}

func (f *fakeConversationRepo) List(_ context.Context, patientID uuid.UUID) ([]*model.ConversationMessage, error) {
	return f.messages[patientID], nil
}

type fakePatientRepo struct{}

func (fakePatientRepo) Get(_ context.Context, _ uuid.UUID) (*model.Patient, error) {
	return nil, errors.New("not found")
}

func (fakePatientRepo) GetByNationalID(_ context.Context, _ string) (*model.Patient, error) {
	return nil, errors.New("not found")
}

func (fakePatientRepo) UpdateStatusTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, _, _ model.PatientStatus) (bool, error) {
	return true, nil
}

type fakeRecRepo struct {
	recs      []*model.Recommendation
	createErr error
}

func (f *fakeRecRepo) Create(_ context.Context, rec *model.Recommendation) error {
	if f.createErr != nil {
		return f.createErr
	}
	rec.ID = uuid.New()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeRecRepo) List(_ context.Context, patientID uuid.UUID) ([]*model.Recommendation, error) {
	var out []*model.Recommendation
	for _, r := range f.recs {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecRepo) Exists(_ context.Context, patientID uuid.UUID) (bool, error) {
	for _, r := range f.recs {
		if r.PatientID == patientID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAgent struct {
	reply    *agent.Reply
	err      error
	received []string
}

func (f *fakeAgent) Ask(_ context.Context, _ string, message string) (*agent.Reply, error) {
	f.received = append(f.received, message)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func newTestRelay(agentClient agent.Client, recs *fakeRecRepo) (*Service, *fakeConversationRepo) {
	convRepo := newFakeConversationRepo()
	convSvc := conversation.NewService(convRepo, fakePatientRepo{})
	return NewService(convSvc, recs, agentClient, testMetrics), convRepo
}

func testPatient() *model.Patient {
	p := &model.Patient{Status: model.PatientStatusInProgress}
	p.ID = uuid.New()
	return p
}

func TestExchangePersistsBothSides(t *testing.T) {
	ag := &fakeAgent{reply: &agent.Reply{Answer: "How are you feeling?"}}
	svc, convRepo := newTestRelay(ag, &fakeRecRepo{})
	p := testPatient()

	reply, err := svc.Exchange(context.Background(), p, "sid-1", "I am ready")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "How are you feeling?", reply.Content)

	messages := convRepo.messages[p.ID]
	require.Len(t, messages, 3)
	assert.Equal(t, model.RoleAssistant, messages[0].Role)
	assert.Equal(t, model.RoleUser, messages[1].Role)
	assert.Equal(t, "I am ready", messages[1].Content)
	assert.Equal(t, model.RoleAssistant, messages[2].Role)
}

func TestExchangeKeepsUserMessageOnAgentFailure(t *testing.T) {
	ag := &fakeAgent{err: errors.New("agent timeout")}
	svc, convRepo := newTestRelay(ag, &fakeRecRepo{})
	p := testPatient()

	_, err := svc.Exchange(context.Background(), p, "sid-1", "I am ready")
	require.Error(t, err)

	var unavailable *ErrAgentUnavailable
	assert.ErrorAs(t, err, &unavailable)

	// The patient's input is persisted; only the reply is missing.
	messages := convRepo.messages[p.ID]
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[1].Role)
}

func TestExchangeRecordsFlaggedRecommendations(t *testing.T) {
	ag := &fakeAgent{reply: &agent.Reply{
		Answer:          "Here is my assessment.",
		Recommendations: "Suspend anticoagulants 48h before surgery.",
	}}
	recs := &fakeRecRepo{}
	svc, _ := newTestRelay(ag, recs)
	p := testPatient()

	_, err := svc.Exchange(context.Background(), p, "sid-1", "anything else?")
	require.NoError(t, err)
	require.Len(t, recs.recs, 1)
	assert.Equal(t, p.ID, recs.recs[0].PatientID)
	assert.Equal(t, "Suspend anticoagulants 48h before surgery.", recs.recs[0].Content)
}

func TestExchangeToleratesRecommendationWriteFailure(t *testing.T) {
	ag := &fakeAgent{reply: &agent.Reply{Answer: "noted", Recommendations: "rest"}}
	recs := &fakeRecRepo{createErr: errors.New("insert failed")}
	svc, convRepo := newTestRelay(ag, recs)
	p := testPatient()

	reply, err := svc.Exchange(context.Background(), p, "sid-1", "ok")
	require.NoError(t, err)
	assert.Equal(t, "noted", reply.Content)
	assert.Len(t, convRepo.messages[p.ID], 3)
}

func TestInstructDoesNotPersistDirective(t *testing.T) {
	ag := &fakeAgent{reply: &agent.Reply{Answer: "1. Fast from midnight."}}
	svc, convRepo := newTestRelay(ag, &fakeRecRepo{})
	p := testPatient()

	reply, err := svc.Instruct(context.Background(), p, "sid-1", "generate recommendations")
	require.NoError(t, err)
	assert.Equal(t, "1. Fast from midnight.", reply.Content)
	require.Equal(t, []string{"generate recommendations"}, ag.received)

	// The directive never lands in the patient-visible log; only the
	// greeting and the generated reply do.
	messages := convRepo.messages[p.ID]
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleAssistant, messages[0].Role)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.Equal(t, "1. Fast from midnight.", messages[1].Content)
}
