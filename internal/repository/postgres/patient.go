package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
	apperrors "github.com/preassess/portal-api/pkg/errors"
)

// ErrNotFound is returned when a queried row does not exist. It maps to
// 404 if it ever reaches the error middleware unhandled.
var ErrNotFound = apperrors.NewNotFound("record", nil)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByNationalID(ctx context.Context, nationalID string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE national_id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, nationalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by national id: %w", err)
	}
	return &patient, nil
}

// UpdateStatusTx only fires when the row is still in the expected prior
// status, so concurrent callers cannot move a patient backwards.
func (r *patientRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to model.PatientStatus) (bool, error) {
	query := `UPDATE patients SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	var (
		result sql.Result
		err    error
	)
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, to, time.Now(), id, from)
	} else {
		result, err = r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update patient status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
