package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetscribe/vetscribe/internal/domain/consult"
	"github.com/vetscribe/vetscribe/internal/domain/patient"
	"github.com/vetscribe/vetscribe/internal/platform/ai"
)

// Result is the outcome of one capture attempt. Warning carries a
// non-blocking notice (a failed transcription, an unreadable upload); the
// capture itself still completes so the clinician can type instead.
type Result struct {
	RawInput      string   `json:"rawInput"`
	Merged        bool     `json:"merged"`
	Warning       string   `json:"warning,omitempty"`
	SegmentCount  int      `json:"segmentCount,omitempty"`
	AppliedFields []string `json:"appliedFields,omitempty"`
}

type Service struct {
	transcriber ai.Transcriber
	analyzer    ai.DocumentAnalyzer
	consults    *consult.Service
	patients    *patient.Service
	log         zerolog.Logger
}

func NewService(transcriber ai.Transcriber, analyzer ai.DocumentAnalyzer, consults *consult.Service, patients *patient.Service, log zerolog.Logger) *Service {
	return &Service{
		transcriber: transcriber,
		analyzer:    analyzer,
		consults:    consults,
		patients:    patients,
		log:         log,
	}
}

// CaptureRecording transcribes captured audio and merges the transcript as
// the consult's raw input. A transcription failure or an empty transcript
// does not fail the capture; the consult continues with empty raw input
// and the result carries a warning.
func (s *Service) CaptureRecording(ctx context.Context, consultID uuid.UUID, audio []byte, mimeType string) (*Result, error) {
	if err := s.consults.SetInputMode(ctx, consultID, consult.InputModeRecording); err != nil {
		return nil, err
	}

	result := &Result{}
	transcript, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		s.log.Warn().Err(err).Str("consult_id", consultID.String()).Msg("transcription failed, continuing with empty input")
		result.Warning = "transcription unavailable, continue by typing"
		return result, nil
	}
	if strings.TrimSpace(transcript.Text) == "" {
		result.Warning = "no speech detected in recording"
		return result, nil
	}

	segments := make([]*consult.TranscriptionSegment, 0, len(transcript.Segments))
	for _, seg := range transcript.Segments {
		seg := seg
		segments = append(segments, &consult.TranscriptionSegment{
			Text:     seg.Text,
			Speaker:  optional(seg.Speaker),
			StartSec: &seg.Start,
			EndSec:   &seg.End,
		})
	}
	if err := s.consults.AppendTranscriptionSegments(ctx, consultID, segments); err != nil {
		return nil, fmt.Errorf("append segments: %w", err)
	}
	result.SegmentCount = len(segments)

	result.RawInput = transcript.Text
	result.Merged, err = s.consults.MergeOriginalInput(ctx, consultID, transcript.Text)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CaptureTyped assembles the typed fields into canonical raw input and
// merges it into the consult.
func (s *Service) CaptureTyped(ctx context.Context, consultID uuid.UUID, fields TypedFields) (*Result, error) {
	if err := s.consults.SetInputMode(ctx, consultID, consult.InputModeTyped); err != nil {
		return nil, err
	}

	raw := BuildRawInput(fields)
	result := &Result{RawInput: raw}
	if raw == "" {
		return result, nil
	}
	merged, err := s.consults.MergeOriginalInput(ctx, consultID, raw)
	if err != nil {
		return nil, err
	}
	result.Merged = merged
	return result, nil
}

// CaptureUpload analyzes an uploaded historical record. The narrative
// summary becomes the raw-input contribution and any extracted patient
// fields are normalized and applied to the patient record. Analysis
// failure degrades to a warning; a failed patient update is logged and
// never blocks the capture.
func (s *Service) CaptureUpload(ctx context.Context, consultID, patientID uuid.UUID, file []byte, mimeType string) (*Result, error) {
	if err := s.consults.SetInputMode(ctx, consultID, consult.InputModeContinue); err != nil {
		return nil, err
	}

	result := &Result{}
	analysis, err := s.analyzer.AnalyzeDocument(ctx, file, mimeType, true)
	if err != nil {
		s.log.Warn().Err(err).Str("consult_id", consultID.String()).Msg("document analysis failed, continuing with empty input")
		result.Warning = "document could not be analyzed"
		return result, nil
	}

	if strings.TrimSpace(analysis.Summary) != "" {
		result.RawInput = analysis.Summary
		result.Merged, err = s.consults.MergeOriginalInput(ctx, consultID, analysis.Summary)
		if err != nil {
			return nil, err
		}
	}

	if len(analysis.PatientFields) > 0 && patientID != uuid.Nil {
		applied, err := s.patients.ApplyExtracted(ctx, patientID, analysis.PatientFields)
		if err != nil {
			s.log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("extracted patient fields not applied")
		} else {
			result.AppliedFields = applied
		}
	}
	return result, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
