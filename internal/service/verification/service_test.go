package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/preassess/portal-api/internal/config"
	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "verification")

type fakePatientRepo struct {
	patients map[string]*model.Patient
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range f.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakePatientRepo) GetByNationalID(_ context.Context, nationalID string) (*model.Patient, error) {
	p, ok := f.patients[nationalID]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *fakePatientRepo) UpdateStatusTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, from, to model.PatientStatus) (bool, error) {
	for _, p := range f.patients {
		if p.ID == id && p.Status == from {
			p.Status = to
			return true, nil
		}
	}
	return false, nil
}

type fakeCodeRepo struct {
	codes map[uuid.UUID]*model.SecurityCode
}

func (f *fakeCodeRepo) Replace(_ context.Context, code *model.SecurityCode) error {
	f.codes[code.PatientID] = code
	return nil
}

func (f *fakeCodeRepo) GetCurrent(_ context.Context, patientID uuid.UUID) (*model.SecurityCode, error) {
	c, ok := f.codes[patientID]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

func (f *fakeCodeRepo) Consume(_ context.Context, id uuid.UUID) error {
	for _, c := range f.codes {
		if c.ID == id {
			now := time.Now()
			c.ConsumedAt = &now
			return nil
		}
	}
	return errors.New("not found")
}

type fakeIssuer struct {
	issued []uuid.UUID
	err    error
}

func (f *fakeIssuer) Issue(_ context.Context, patientID uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, patientID)
	return "token-" + patientID.String(), nil
}

type fakeSMS struct {
	sent []string
	body string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, phone, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, phone)
	f.body = body
	return "SM123", nil
}

func newTestService(t *testing.T) (*Service, *fakePatientRepo, *fakeCodeRepo, *fakeIssuer, *fakeSMS) {
	t.Helper()
	patients := &fakePatientRepo{patients: map[string]*model.Patient{}}
	codes := &fakeCodeRepo{codes: map[uuid.UUID]*model.SecurityCode{}}
	issuer := &fakeIssuer{}
	smsSvc := &fakeSMS{}
	svc := NewService(patients, codes, issuer, smsSvc, config.SecurityCodeConfig{
		Length: 6,
		Expiry: 15 * time.Minute,
	}, testMetrics)
	return svc, patients, codes, issuer, smsSvc
}

func seedPatient(patients *fakePatientRepo) *model.Patient {
	p := &model.Patient{
		NationalID: "12345678A",
		Name:       "Maria Lopez",
		Phone:      "+34600111222",
		Procedure:  "knee arthroscopy",
		Status:     model.PatientStatusPending,
	}
	p.ID = uuid.New()
	patients.patients[p.NationalID] = p
	return p
}

func seedCode(codes *fakeCodeRepo, patientID uuid.UUID, plaintext string, expiresAt time.Time) *model.SecurityCode {
	hash, _ := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	c := &model.SecurityCode{
		ID:        uuid.New(),
		PatientID: patientID,
		CodeHash:  string(hash),
		ExpiresAt: expiresAt,
	}
	codes.codes[patientID] = c
	return c
}

func TestVerifySuccess(t *testing.T) {
	svc, patients, codes, issuer, _ := newTestService(t)
	p := seedPatient(patients)
	seedCode(codes, p.ID, "123456", time.Now().Add(10*time.Minute))

	token, err := svc.Verify(context.Background(), p.NationalID, "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.Len(t, issuer.issued, 1)
	assert.Equal(t, p.ID, issuer.issued[0])
}

func TestVerifyConsumesCode(t *testing.T) {
	svc, patients, codes, _, _ := newTestService(t)
	p := seedPatient(patients)
	seedCode(codes, p.ID, "123456", time.Now().Add(10*time.Minute))

	_, err := svc.Verify(context.Background(), p.NationalID, "123456")
	require.NoError(t, err)

	// The same code must not work twice.
	_, err = svc.Verify(context.Background(), p.NationalID, "123456")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestVerifyFailuresAreIndistinguishable(t *testing.T) {
	svc, patients, codes, _, _ := newTestService(t)
	p := seedPatient(patients)
	seedCode(codes, p.ID, "123456", time.Now().Add(10*time.Minute))

	cases := map[string]struct {
		nationalID string
		code       string
	}{
		"unknown national id": {"99999999Z", "123456"},
		"wrong code":          {p.NationalID, "000000"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), tc.nationalID, tc.code)
			// Exactly the same error regardless of which part was wrong.
			assert.Equal(t, model.ErrInvalidCredentials, err)
		})
	}
}

func TestVerifyRejectsExpiredCode(t *testing.T) {
	svc, patients, codes, _, _ := newTestService(t)
	p := seedPatient(patients)
	seedCode(codes, p.ID, "123456", time.Now().Add(-time.Minute))

	_, err := svc.Verify(context.Background(), p.NationalID, "123456")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestVerifyRejectsConsumedCode(t *testing.T) {
	svc, patients, codes, _, _ := newTestService(t)
	p := seedPatient(patients)
	c := seedCode(codes, p.ID, "123456", time.Now().Add(10*time.Minute))
	now := time.Now()
	c.ConsumedAt = &now

	_, err := svc.Verify(context.Background(), p.NationalID, "123456")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestResendDispatchesSMS(t *testing.T) {
	svc, patients, codes, _, smsSvc := newTestService(t)
	p := seedPatient(patients)

	err := svc.Resend(context.Background(), p.NationalID, p.Phone)
	require.NoError(t, err)
	require.Len(t, smsSvc.sent, 1)
	assert.Equal(t, p.Phone, smsSvc.sent[0])
	assert.Contains(t, smsSvc.body, p.Name)
	assert.Contains(t, smsSvc.body, p.Procedure)

	stored, err := codes.GetCurrent(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Usable(time.Now()))
	// Only the hash is stored; the plaintext code travels in the SMS.
	assert.True(t, strings.HasPrefix(stored.CodeHash, "$2"))
}

func TestResendAcceptsFormattedPhone(t *testing.T) {
	svc, patients, _, _, smsSvc := newTestService(t)
	p := seedPatient(patients)

	err := svc.Resend(context.Background(), p.NationalID, "34 600 111 222")
	require.NoError(t, err)
	assert.Len(t, smsSvc.sent, 1)
}

func TestResendRejectsPhoneMismatch(t *testing.T) {
	svc, patients, _, _, smsSvc := newTestService(t)
	p := seedPatient(patients)

	err := svc.Resend(context.Background(), p.NationalID, "+34699999999")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Empty(t, smsSvc.sent)
}

func TestResendInvalidatesPreviousCode(t *testing.T) {
	svc, patients, codes, _, smsSvc := newTestService(t)
	p := seedPatient(patients)
	seedCode(codes, p.ID, "123456", time.Now().Add(10*time.Minute))

	err := svc.Resend(context.Background(), p.NationalID, p.Phone)
	require.NoError(t, err)
	require.Len(t, smsSvc.sent, 1)

	// The old code is gone; only the freshly issued one verifies.
	_, err = svc.Verify(context.Background(), p.NationalID, "123456")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestResendSMSFailureSurfaces(t *testing.T) {
	svc, patients, _, _, smsSvc := newTestService(t)
	p := seedPatient(patients)
	smsSvc.err = errors.New("twilio is down")

	err := svc.Resend(context.Background(), p.NationalID, p.Phone)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
}
