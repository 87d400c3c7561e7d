package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/preassess/portal-api/internal/model"
	"github.com/preassess/portal-api/internal/repository"
)

type recommendationRepository struct {
	BaseRepository
}

func NewRecommendationRepository(base BaseRepository) repository.RecommendationRepository {
	return &recommendationRepository{base}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *model.Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()

	query := `
		INSERT INTO recommendations (id, patient_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.GetDB().ExecContext(ctx, query, rec.ID, rec.PatientID, rec.Content, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

func (r *recommendationRepository) List(ctx context.Context, patientID uuid.UUID) ([]*model.Recommendation, error) {
	query := `SELECT * FROM recommendations WHERE patient_id = $1 ORDER BY created_at`
	var recs []*model.Recommendation
	if err := r.GetDB().SelectContext(ctx, &recs, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

func (r *recommendationRepository) Exists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM recommendations WHERE patient_id = $1)`
	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, patientID); err != nil {
		return false, fmt.Errorf("failed to check recommendations: %w", err)
	}
	return exists, nil
}

type summaryRepository struct {
	BaseRepository
}

func NewSummaryRepository(base BaseRepository) repository.SummaryRepository {
	return &summaryRepository{base}
}

func (r *summaryRepository) Create(ctx context.Context, summary *model.AssessmentSummary) error {
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	summary.CreatedAt = time.Now()

	query := `
		INSERT INTO assessment_summaries (id, patient_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.GetDB().ExecContext(ctx, query, summary.ID, summary.PatientID, summary.Content, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	return nil
}
