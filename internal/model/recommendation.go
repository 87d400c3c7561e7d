package model

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation is durable evidence that the agent produced actionable
// output for a patient. Existence of at least one row unlocks completion.
type Recommendation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssessmentSummary is the post-completion transcript summary. Best-effort:
// a completed assessment may have none.
type AssessmentSummary struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
