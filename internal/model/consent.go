package model

import (
	"time"

	"github.com/google/uuid"
)

// Consent records the patient's acceptance of data-processing terms.
// Conversation endpoints require a recorded consent.
type Consent struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Version    string    `db:"version" json:"version"`
	AcceptedAt time.Time `db:"accepted_at" json:"accepted_at"`
}

type ConsentRequest struct {
	Version string `json:"version" binding:"required,max=32"`
}
