package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
)

type securityCodeRepository struct {
	BaseRepository
}

func NewSecurityCodeRepository(base BaseRepository) repository.SecurityCodeRepository {
	return &securityCodeRepository{base}
}

// Replace upserts on patient_id, so issuing a new code invalidates the
// previous one in the same statement.
func (r *securityCodeRepository) Replace(ctx context.Context, code *model.SecurityCode) error {
	query := `
		INSERT INTO security_codes (id, patient_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (patient_id) DO UPDATE
		SET id = $1, code_hash = $3, expires_at = $4, consumed_at = NULL, created_at = NOW()
	`
	_, err := r.GetDB().ExecContext(ctx, query, code.ID, code.PatientID, code.CodeHash, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to store security code: %w", err)
	}
	return nil
}

func (r *securityCodeRepository) GetCurrent(ctx context.Context, patientID uuid.UUID) (*model.SecurityCode, error) {
	query := `SELECT * FROM security_codes WHERE patient_id = $1`
	var code model.SecurityCode
	err := r.GetDB().GetContext(ctx, &code, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security code: %w", err)
	}
	return &code, nil
}

func (r *securityCodeRepository) Consume(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE security_codes SET consumed_at = NOW() WHERE id = $1 AND consumed_at IS NULL`
	result, err := r.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to consume security code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("security code already consumed")
	}
	return nil
}
