package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(base BaseRepository) repository.SessionRepository {
	return &sessionRepository{base}
}

// Replace upserts on patient_id: one session per patient, replaced on each
// successful verification.
func (r *sessionRepository) Replace(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO patient_sessions (sid, patient_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (patient_id) DO UPDATE
		SET sid = $1, expires_at = $3, created_at = NOW()
	`
	_, err := r.GetDB().ExecContext(ctx, query, session.SID, session.PatientID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetBySID(ctx context.Context, sid string) (*model.Session, error) {
	query := `SELECT * FROM patient_sessions WHERE sid = $1 AND expires_at > NOW()`
	var session model.Session
	err := r.GetDB().GetContext(ctx, &session, query, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}
