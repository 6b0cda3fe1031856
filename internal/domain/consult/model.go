package consult

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft     = "draft"
	StatusFinalized = "finalized"
)

const (
	ReportTypeSOAP      = "soap"
	ReportTypeWellness  = "wellness"
	ReportTypeProcedure = "procedure"
)

const (
	InputModeRecording = "recording"
	InputModeTyped     = "typed"
	InputModeContinue  = "continue"
)

// Consult is one documentation episode for a patient. It accumulates raw
// input, holds the working report sections, and is finalized exactly once.
type Consult struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	PatientID     uuid.UUID         `db:"patient_id" json:"patientId"`
	Status        string            `db:"status" json:"status"`
	ReportType    string            `db:"report_type" json:"reportType"`
	InputMode     *string           `db:"input_mode" json:"inputMode,omitempty"`
	OriginalInput *string           `db:"original_input" json:"originalInput,omitempty"`
	Sections      map[string]string `db:"sections" json:"sections"`
	VersionID     *uuid.UUID        `db:"version_id" json:"versionId,omitempty"`
	StartedAt     time.Time         `db:"started_at" json:"startedAt"`
	FinalizedAt   *time.Time        `db:"finalized_at" json:"finalizedAt,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updatedAt"`
}

// TranscriptionSegment is one append-only span of transcribed speech.
// Seq is assigned at append time and orders segments within a consult.
type TranscriptionSegment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ConsultID uuid.UUID `db:"consult_id" json:"consultId"`
	Seq       int       `db:"seq" json:"seq"`
	Text      string    `db:"text" json:"text"`
	Speaker   *string   `db:"speaker" json:"speaker,omitempty"`
	StartSec  *float64  `db:"start_sec" json:"startSec,omitempty"`
	EndSec    *float64  `db:"end_sec" json:"endSec,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RegenerationLineage records one step in a consult's linear regeneration
// history: the sections as they stood when a regeneration was requested,
// the instruction that drove it, and the entry it supersedes.
type RegenerationLineage struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	ConsultID   uuid.UUID         `db:"consult_id" json:"consultId"`
	Supersedes  *uuid.UUID        `db:"supersedes" json:"supersedes,omitempty"`
	Instruction *string           `db:"instruction" json:"instruction,omitempty"`
	Sections    map[string]string `db:"sections" json:"sections"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
}

func validReportType(t string) bool {
	switch t {
	case ReportTypeSOAP, ReportTypeWellness, ReportTypeProcedure:
		return true
	}
	return false
}
