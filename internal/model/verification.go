package model

import "errors"

// Verification request/response types
type VerifyRequest struct {
	NationalID   string `json:"national_id" binding:"required,national_id"`
	SecurityCode string `json:"security_code" binding:"required,len=6,numeric"`
}

type VerifyResponse struct {
	Token string `json:"token"`
}

type ResendRequest struct {
	NationalID string `json:"national_id" binding:"required,national_id"`
	Phone      string `json:"phone" binding:"required,phone"`
}

type ResendResponse struct {
	Accepted bool `json:"accepted"`
}

// Gateway errors. Every credential failure collapses into
// ErrInvalidCredentials so callers cannot probe which field was wrong.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidSession       = errors.New("invalid or expired session")
	ErrConsentRequired      = errors.New("data processing consent required")
	ErrAssessmentIncomplete = errors.New("assessment has no recommendations yet")
)
