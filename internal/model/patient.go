package model

import (
	"time"
)

type PatientStatus string

const (
	PatientStatusPending    PatientStatus = "pending"
	PatientStatusInProgress PatientStatus = "in_progress"
	PatientStatusCompleted  PatientStatus = "completed"
)

// rank orders statuses so transitions can only move forward. See
// PatientRepository.UpdateStatus for the enforcing query.
func (s PatientStatus) Rank() int {
	switch s {
	case PatientStatusPending:
		return 0
	case PatientStatusInProgress:
		return 1
	case PatientStatusCompleted:
		return 2
	default:
		return -1
	}
}

func (s PatientStatus) Valid() bool {
	return s.Rank() >= 0
}

// Patient is created by administrative import and never deleted here.
// NationalID is unique; Phone receives security-code SMS.
type Patient struct {
	Base
	NationalID    string        `db:"national_id" json:"national_id"`
	Name          string        `db:"name" json:"name"`
	Phone         string        `db:"phone" json:"phone"`
	Procedure     string        `db:"procedure" json:"procedure"`
	ProcedureDate *time.Time    `db:"procedure_date" json:"procedure_date,omitempty"`
	Status        PatientStatus `db:"status" json:"status"`
}
