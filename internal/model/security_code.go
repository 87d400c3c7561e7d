package model

import (
	"time"

	"github.com/google/uuid"
)

// SecurityCode is a short-lived credential bound to a patient. Only the
// bcrypt hash is stored; at most one live code exists per patient (enforced
// by upsert on patient_id).
type SecurityCode struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	CodeHash   string     `db:"code_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

func (c *SecurityCode) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
