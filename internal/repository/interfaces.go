package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/preassess/portal-api/internal/model"
)

// All repository interfaces in one file
type (
	// TxRunner executes a function inside a single database transaction,
	// rolling back when the function errors.
	TxRunner interface {
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	}

	// PatientRepository reads patients created by administrative import and
	// advances their status. Patients are never deleted here.
	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByNationalID(ctx context.Context, nationalID string) (*model.Patient, error)
		// UpdateStatusTx transitions from -> to and reports whether a row
		// changed. The guarded query makes regressions impossible. A nil tx
		// runs against the plain connection.
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to model.PatientStatus) (bool, error)
	}

	// SecurityCodeRepository keeps at most one live code per patient.
	SecurityCodeRepository interface {
		Replace(ctx context.Context, code *model.SecurityCode) error
		GetCurrent(ctx context.Context, patientID uuid.UUID) (*model.SecurityCode, error)
		Consume(ctx context.Context, id uuid.UUID) error
	}

	// SessionRepository keeps at most one session per patient.
	SessionRepository interface {
		Replace(ctx context.Context, session *model.Session) error
		GetBySID(ctx context.Context, sid string) (*model.Session, error)
	}

	ConversationRepository interface {
		// InsertGreetingIfEmpty atomically appends the greeting only when the
		// patient has no messages. Reports whether a row was inserted.
		InsertGreetingIfEmpty(ctx context.Context, patientID uuid.UUID, content string) (bool, error)
		Append(ctx context.Context, msg *model.ConversationMessage) error
		List(ctx context.Context, patientID uuid.UUID) ([]*model.ConversationMessage, error)
	}

	RecommendationRepository interface {
		Create(ctx context.Context, rec *model.Recommendation) error
		List(ctx context.Context, patientID uuid.UUID) ([]*model.Recommendation, error)
		Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
	}

	SummaryRepository interface {
		Create(ctx context.Context, summary *model.AssessmentSummary) error
	}

	ConsentRepository interface {
		Create(ctx context.Context, consent *model.Consent) error
		Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
	}

	OutboxRepository interface {
		// CreateTx enqueues an event, joining the caller's transaction when
		// tx is non-nil.
		CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	}
)
