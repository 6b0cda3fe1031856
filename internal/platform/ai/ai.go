// Package ai holds the collaborator interfaces for the external AI
// functions the documentation pipeline consumes: speech-to-text,
// structured-report generation, section rewriting, and document analysis.
// The core never talks to a model vendor directly; it depends on these
// interfaces and the server wires in a concrete client.
package ai

import (
	"context"
	"errors"
)

// ErrInsufficientData is returned by report generation when the model
// declines to structure the input. Callers degrade to an empty, editable
// report rather than failing.
var ErrInsufficientData = errors.New("insufficient clinical data")

// Segment is one speaker-attributed span of a transcription.
type Segment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker,omitempty"`
	SpeakerID int     `json:"speaker_id,omitempty"`
}

// Transcript is the result of transcribing one audio capture.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// PatientContext is the patient summary threaded into generation prompts.
type PatientContext struct {
	PatientID string `json:"patientId,omitempty"`
	Name      string `json:"name,omitempty"`
	Species   string `json:"species,omitempty"`
	Breed     string `json:"breed,omitempty"`
	Sex       string `json:"sex,omitempty"`
	Age       string `json:"age,omitempty"`
	WeightKG  string `json:"weightKg,omitempty"`
}

// DocumentAnalysis is the result of analyzing an uploaded record.
type DocumentAnalysis struct {
	Summary       string            `json:"summary"`
	PatientFields map[string]string `json:"patientFields,omitempty"`
	Diagnoses     []string          `json:"diagnoses,omitempty"`
}

// Transcriber converts captured audio into text plus optional segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error)
}

// ReportGenerator produces a structured report from raw clinical input.
// The returned map may be keyed loosely; callers normalize it to the
// enabled section set. A decline is reported as ErrInsufficientData.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, rawInput string, patient PatientContext, sections []string, instruction string) (map[string]string, error)
}

// SectionRewriter rewrites a single report section under an instruction.
type SectionRewriter interface {
	RewriteSection(ctx context.Context, content, title, instruction, caseContext string) (string, error)
}

// DocumentAnalyzer extracts a narrative summary and patient fields from
// an uploaded historical document.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, file []byte, mimeType string, extractPatientInfo bool) (*DocumentAnalysis, error)
}
