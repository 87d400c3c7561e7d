package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
)

type consentRepository struct {
	BaseRepository
}

func NewConsentRepository(base BaseRepository) repository.ConsentRepository {
	return &consentRepository{base}
}

// Create is idempotent per patient: accepting again refreshes the version
// and timestamp rather than adding rows.
func (r *consentRepository) Create(ctx context.Context, consent *model.Consent) error {
	if consent.ID == uuid.Nil {
		consent.ID = uuid.New()
	}
	consent.AcceptedAt = time.Now()

	query := `
		INSERT INTO consents (id, patient_id, version, accepted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE
		SET version = $3, accepted_at = $4
	`
	_, err := r.GetDB().ExecContext(ctx, query, consent.ID, consent.PatientID, consent.Version, consent.AcceptedAt)
	if err != nil {
		return fmt.Errorf("failed to record consent: %w", err)
	}
	return nil
}

func (r *consentRepository) Exists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM consents WHERE patient_id = $1)`
	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, patientID); err != nil {
		return false, fmt.Errorf("failed to check consent: %w", err)
	}
	return exists, nil
}
