package consult

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Auditor records that a consult's report was finalized. Implementations
// must absorb downstream failures; finalization never waits on them.
type Auditor interface {
	ReportFinalized(ctx context.Context, c *Consult)
}

// DraftPurger clears session drafts scoped to a consult once the consult
// no longer needs them.
type DraftPurger interface {
	Clear(consultID uuid.UUID)
}

type Service struct {
	repo    Repository
	auditor Auditor
	drafts  DraftPurger
	log     zerolog.Logger
}

func NewService(repo Repository, auditor Auditor, drafts DraftPurger, log zerolog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, drafts: drafts, log: log}
}

func (s *Service) CreateConsult(ctx context.Context, patientID uuid.UUID, reportType string) (*Consult, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient id is required")
	}
	if reportType == "" {
		reportType = ReportTypeSOAP
	}
	if !validReportType(reportType) {
		return nil, fmt.Errorf("unknown report type %q", reportType)
	}
	c := &Consult{
		PatientID:  patientID,
		Status:     StatusDraft,
		ReportType: reportType,
		Sections:   map[string]string{},
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetConsult(ctx context.Context, id uuid.UUID) (*Consult, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consult, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Autosave persists the working sections. It never changes consult status
// and is rejected with ErrFinalized once the consult is finalized, so a
// write scheduled before finalization cannot land after it. Callers that
// treat autosave as best-effort log and swallow the error.
func (s *Service) Autosave(ctx context.Context, id uuid.UUID, sections map[string]string) error {
	if sections == nil {
		sections = map[string]string{}
	}
	return s.repo.UpdateSections(ctx, id, sections)
}

// MergeOriginalInput persists raw into the consult's original input. The
// first capture sets it; later captures are appended after a blank line,
// never replacing what is already stored. Blank input is a no-op.
func (s *Service) MergeOriginalInput(ctx context.Context, id uuid.UUID, raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	appended, err := s.repo.MergeOriginalInput(ctx, id, raw)
	if err != nil {
		return false, err
	}
	if appended {
		s.log.Debug().Str("consult_id", id.String()).Msg("appended capture to existing original input")
	}
	return true, nil
}

func (s *Service) SetInputMode(ctx context.Context, id uuid.UUID, mode string) error {
	switch mode {
	case InputModeRecording, InputModeTyped, InputModeContinue:
	default:
		return fmt.Errorf("unknown input mode %q", mode)
	}
	return s.repo.SetInputMode(ctx, id, mode)
}

// Finalize commits the sections as the consult's permanent report. The
// durable write is a single statement so a failure leaves the draft fully
// intact and retryable. Audit emission and draft cleanup run after the
// write and cannot fail it. An empty section map is a valid final report.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, sections map[string]string) (*Consult, error) {
	if sections == nil {
		sections = map[string]string{}
	}
	c, err := s.repo.Finalize(ctx, id, sections)
	if err != nil {
		return nil, fmt.Errorf("finalize consult: %w", err)
	}

	if s.auditor != nil {
		s.auditor.ReportFinalized(ctx, c)
	}
	if s.drafts != nil {
		s.drafts.Clear(c.ID)
	}
	s.log.Info().
		Str("consult_id", c.ID.String()).
		Str("report_type", c.ReportType).
		Int("sections", len(c.Sections)).
		Msg("consult finalized")
	return c, nil
}

// AppendTranscriptionSegments appends segments in order, assigning each a
// sequence number after the consult's current maximum.
func (s *Service) AppendTranscriptionSegments(ctx context.Context, consultID uuid.UUID, segments []*TranscriptionSegment) error {
	if len(segments) == 0 {
		return nil
	}
	return s.repo.AppendSegments(ctx, consultID, segments)
}

func (s *Service) ListSegments(ctx context.Context, consultID uuid.UUID) ([]*TranscriptionSegment, error) {
	return s.repo.ListSegments(ctx, consultID)
}

// RecordRegeneration snapshots the sections being superseded and chains the
// new entry to the latest one. It is called before the regeneration call
// goes out, so history is captured even if the caller dies mid-flight.
func (s *Service) RecordRegeneration(ctx context.Context, consultID uuid.UUID, instruction string, sections map[string]string) (*RegenerationLineage, error) {
	latest, err := s.repo.LatestLineage(ctx, consultID)
	if err != nil {
		return nil, fmt.Errorf("load latest lineage: %w", err)
	}
	l := &RegenerationLineage{
		ConsultID: consultID,
		Sections:  sections,
	}
	if instruction != "" {
		l.Instruction = &instruction
	}
	if latest != nil {
		l.Supersedes = &latest.ID
	}
	if err := s.repo.AddLineage(ctx, l); err != nil {
		return nil, fmt.Errorf("record regeneration: %w", err)
	}
	return l, nil
}

func (s *Service) ListLineage(ctx context.Context, consultID uuid.UUID) ([]*RegenerationLineage, error) {
	return s.repo.ListLineage(ctx, consultID)
}
