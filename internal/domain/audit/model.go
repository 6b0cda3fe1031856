// Package audit records report-production events for compliance review.
// Emission is fire-and-forget from the caller's perspective: a failed
// insert is queued and retried in the background, never surfaced.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one report-generated audit record.
type Event struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ConsultID   uuid.UUID  `db:"consult_id" json:"consultId"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patientId"`
	ReportType  string     `db:"report_type" json:"reportType"`
	InputMode   string     `db:"input_mode" json:"inputMode,omitempty"`
	SectionKeys []string   `db:"section_keys" json:"sectionKeys"`
	FinalizedAt *time.Time `db:"finalized_at" json:"finalizedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}
