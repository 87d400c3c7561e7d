package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preassess/portal-api/internal/model"
)

type fakeConversationRepo struct {
	messages  map[uuid.UUID][]*model.ConversationMessage
	appendErr error
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{messages: map[uuid.UUID][]*model.ConversationMessage{}}
}

func (f *fakeConversationRepo) InsertGreetingIfEmpty(_ context.Context, patientID uuid.UUID, content string) (bool, error) {
	if len(f.messages[patientID]) > 0 {
		return false, nil
	}
	f.messages[patientID] = append(f.messages[patientID], &model.ConversationMessage{
		ID:        uuid.New(),
		PatientID: patientID,
		Role:      model.RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return true, nil
}

func (f *fakeConversationRepo) Append(_ context.Context, msg *model.ConversationMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.messages[msg.PatientID] = append(f.messages[msg.PatientID], msg)
	return nil
}

func (f *fakeConversationRepo) List(_ context.Context, patientID uuid.UUID) ([]*model.ConversationMessage, error) {
	return f.messages[patientID], nil
}

type fakePatientRepo struct {
	patients    map[uuid.UUID]*model.Patient
	transitions []string
	updateErr   error
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *fakePatientRepo) GetByNationalID(_ context.Context, _ string) (*model.Patient, error) {
	return nil, errors.New("not found")
}

func (f *fakePatientRepo) UpdateStatusTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, from, to model.PatientStatus) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.transitions = append(f.transitions, string(from)+"->"+string(to))
	p, ok := f.patients[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func seedPatient(patients *fakePatientRepo, status model.PatientStatus) *model.Patient {
	p := &model.Patient{Status: status}
	p.ID = uuid.New()
	patients.patients[p.ID] = p
	return p
}

func TestBootstrapSeedsGreetingOnce(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewService(repo, newFakePatientRepo())
	patientID := uuid.New()

	for i := 0; i < 3; i++ {
		messages, err := svc.Bootstrap(context.Background(), patientID)
		require.NoError(t, err)
		require.Len(t, messages, 1, "bootstrap %d duplicated the greeting", i)
		assert.Equal(t, model.RoleAssistant, messages[0].Role)
		assert.Equal(t, Greeting, messages[0].Content)
	}
}

func TestBootstrapPreservesExistingLog(t *testing.T) {
	repo := newFakeConversationRepo()
	patients := newFakePatientRepo()
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusInProgress)

	_, err := svc.Bootstrap(context.Background(), p.ID)
	require.NoError(t, err)
	_, err = svc.AppendUser(context.Background(), p, "I take anticoagulants")
	require.NoError(t, err)

	messages, err := svc.Bootstrap(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, Greeting, messages[0].Content)
	assert.Equal(t, "I take anticoagulants", messages[1].Content)
}

func TestGreetingLeadsLogWhenUserWritesFirst(t *testing.T) {
	repo := newFakeConversationRepo()
	patients := newFakePatientRepo()
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusPending)

	// A client may post before ever listing; the greeting must still open the log.
	_, err := svc.AppendUser(context.Background(), p, "hello")
	require.NoError(t, err)

	messages, err := svc.List(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleAssistant, messages[0].Role)
	assert.Equal(t, Greeting, messages[0].Content)
	assert.Equal(t, model.RoleUser, messages[1].Role)
}

func TestFirstUserMessageStartsAssessment(t *testing.T) {
	repo := newFakeConversationRepo()
	patients := newFakePatientRepo()
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusPending)

	msg, err := svc.AppendUser(context.Background(), p, "hello")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, msg.Role)
	assert.Equal(t, model.PatientStatusInProgress, p.Status)
}

func TestLaterUserMessagesDoNotTouchStatus(t *testing.T) {
	repo := newFakeConversationRepo()
	patients := newFakePatientRepo()
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusPending)

	_, err := svc.AppendUser(context.Background(), p, "first")
	require.NoError(t, err)
	_, err = svc.AppendUser(context.Background(), p, "second")
	require.NoError(t, err)

	assert.Equal(t, []string{"pending->in_progress"}, patients.transitions)
}

func TestUserMessageSurvivesStatusFailure(t *testing.T) {
	repo := newFakeConversationRepo()
	patients := newFakePatientRepo()
	patients.updateErr = errors.New("db down")
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusPending)

	// The transition is best-effort; the message write must not fail.
	msg, err := svc.AppendUser(context.Background(), p, "hello")
	require.NoError(t, err)
	assert.NotNil(t, msg)

	messages, err := svc.List(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestCompletedStatusNeverRegresses(t *testing.T) {
	repo := newFakeConversationRepo()
	patients := newFakePatientRepo()
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusCompleted)

	_, err := svc.AppendUser(context.Background(), p, "one more thing")
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusCompleted, p.Status)
	assert.Empty(t, patients.transitions)
}

func TestAppendFailureSurfaces(t *testing.T) {
	repo := newFakeConversationRepo()
	repo.appendErr = errors.New("insert failed")
	patients := newFakePatientRepo()
	svc := NewService(repo, patients)
	p := seedPatient(patients, model.PatientStatusInProgress)

	_, err := svc.AppendUser(context.Background(), p, "hello")
	assert.Error(t, err)
}
