package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session maps an opaque session id to a patient. One row per patient,
// replaced on every successful verification.
type Session struct {
	SID       string    `db:"sid" json:"sid"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionClaims is the signed envelope around the session id. The signature
// and expiry are checked before the sid ever reaches the database.
type SessionClaims struct {
	jwt.RegisteredClaims
	SID string `json:"sid"`
}
