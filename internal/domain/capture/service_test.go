package capture

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetscribe/vetscribe/internal/domain/consult"
	"github.com/vetscribe/vetscribe/internal/domain/patient"
	"github.com/vetscribe/vetscribe/internal/platform/ai"
)

// -- Collaborator mocks --

type mockTranscriber struct {
	transcript *ai.Transcript
	err        error
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (*ai.Transcript, error) {
	return m.transcript, m.err
}

type mockAnalyzer struct {
	analysis *ai.DocumentAnalysis
	err      error
}

func (m *mockAnalyzer) AnalyzeDocument(_ context.Context, _ []byte, _ string, _ bool) (*ai.DocumentAnalysis, error) {
	return m.analysis, m.err
}

// -- Storage mocks --

type consultRepo struct {
	consults map[uuid.UUID]*consult.Consult
	segments map[uuid.UUID][]*consult.TranscriptionSegment
}

func newConsultRepo() *consultRepo {
	return &consultRepo{
		consults: make(map[uuid.UUID]*consult.Consult),
		segments: make(map[uuid.UUID][]*consult.TranscriptionSegment),
	}
}

func (m *consultRepo) Create(_ context.Context, c *consult.Consult) error {
	c.ID = uuid.New()
	m.consults[c.ID] = c
	return nil
}

func (m *consultRepo) GetByID(_ context.Context, id uuid.UUID) (*consult.Consult, error) {
	c, ok := m.consults[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func (m *consultRepo) ListByPatient(_ context.Context, _ uuid.UUID, _, _ int) ([]*consult.Consult, int, error) {
	return nil, 0, nil
}

func (m *consultRepo) UpdateSections(_ context.Context, id uuid.UUID, sections map[string]string) error {
	c, ok := m.consults[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	if c.Status == consult.StatusFinalized {
		return consult.ErrFinalized
	}
	c.Sections = sections
	return nil
}

func (m *consultRepo) MergeOriginalInput(_ context.Context, id uuid.UUID, raw string) (bool, error) {
	c, ok := m.consults[id]
	if !ok {
		return false, fmt.Errorf("not found")
	}
	if c.OriginalInput != nil && *c.OriginalInput != "" {
		merged := *c.OriginalInput + "\n\n" + raw
		c.OriginalInput = &merged
		return true, nil
	}
	c.OriginalInput = &raw
	return false, nil
}

func (m *consultRepo) SetInputMode(_ context.Context, id uuid.UUID, mode string) error {
	c, ok := m.consults[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	c.InputMode = &mode
	return nil
}

func (m *consultRepo) Finalize(_ context.Context, id uuid.UUID, sections map[string]string) (*consult.Consult, error) {
	c := m.consults[id]
	now := time.Now()
	c.Sections = sections
	c.FinalizedAt = &now
	c.Status = consult.StatusFinalized
	return c, nil
}

func (m *consultRepo) AppendSegments(_ context.Context, consultID uuid.UUID, segments []*consult.TranscriptionSegment) error {
	base := len(m.segments[consultID])
	for i, s := range segments {
		s.Seq = base + i + 1
		m.segments[consultID] = append(m.segments[consultID], s)
	}
	return nil
}

func (m *consultRepo) ListSegments(_ context.Context, consultID uuid.UUID) ([]*consult.TranscriptionSegment, error) {
	return m.segments[consultID], nil
}

func (m *consultRepo) AddLineage(_ context.Context, _ *consult.RegenerationLineage) error { return nil }

func (m *consultRepo) ListLineage(_ context.Context, _ uuid.UUID) ([]*consult.RegenerationLineage, error) {
	return nil, nil
}

func (m *consultRepo) LatestLineage(_ context.Context, _ uuid.UUID) (*consult.RegenerationLineage, error) {
	return nil, nil
}

type patientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *patientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *patientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *patientRepo) Update(_ context.Context, p *patient.Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *patientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *patientRepo) List(_ context.Context, _, _ int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

// -- Fixture --

type fixture struct {
	svc       *Service
	consults  *consultRepo
	patients  *patientRepo
	consultID uuid.UUID
	patientID uuid.UUID
}

func newFixture(t *testing.T, transcriber ai.Transcriber, analyzer ai.DocumentAnalyzer) *fixture {
	t.Helper()
	consults := newConsultRepo()
	patients := &patientRepo{patients: make(map[uuid.UUID]*patient.Patient)}

	patientSvc := patient.NewService(patients)
	p := &patient.Patient{Name: "Rex"}
	if err := patientSvc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	consultSvc := consult.NewService(consults, nil, nil, zerolog.Nop())
	c, err := consultSvc.CreateConsult(context.Background(), p.ID, consult.ReportTypeSOAP)
	if err != nil {
		t.Fatalf("create consult: %v", err)
	}

	return &fixture{
		svc:       NewService(transcriber, analyzer, consultSvc, patientSvc, zerolog.Nop()),
		consults:  consults,
		patients:  patients,
		consultID: c.ID,
		patientID: p.ID,
	}
}

// -- Tests --

func TestCaptureRecordingMergesTranscript(t *testing.T) {
	transcriber := &mockTranscriber{transcript: &ai.Transcript{
		Text: "owner reports coughing for three days",
		Segments: []ai.Segment{
			{Start: 0, End: 4.2, Text: "owner reports coughing"},
			{Start: 4.2, End: 6.8, Text: "for three days"},
		},
	}}
	fx := newFixture(t, transcriber, nil)

	result, err := fx.svc.CaptureRecording(context.Background(), fx.consultID, []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Merged || result.Warning != "" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.SegmentCount != 2 {
		t.Errorf("expected 2 segments, got %d", result.SegmentCount)
	}

	c := fx.consults.consults[fx.consultID]
	if c.OriginalInput == nil || *c.OriginalInput != "owner reports coughing for three days" {
		t.Errorf("transcript not merged: %v", c.OriginalInput)
	}
	if c.InputMode == nil || *c.InputMode != consult.InputModeRecording {
		t.Errorf("input mode not set: %v", c.InputMode)
	}
	segs := fx.consults.segments[fx.consultID]
	if len(segs) != 2 || segs[0].Seq != 1 || segs[1].Seq != 2 {
		t.Errorf("segments not appended in order: %+v", segs)
	}
}

func TestCaptureRecordingFailureWarnsAndContinues(t *testing.T) {
	fx := newFixture(t, &mockTranscriber{err: fmt.Errorf("upstream timeout")}, nil)

	result, err := fx.svc.CaptureRecording(context.Background(), fx.consultID, []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("transcription failure must not fail the capture: %v", err)
	}
	if result.Warning == "" {
		t.Error("expected a warning")
	}
	if result.RawInput != "" || result.Merged {
		t.Errorf("expected empty un-merged input, got %+v", result)
	}
	// The consult remains usable for a typed follow-up.
	if fx.consults.consults[fx.consultID].OriginalInput != nil {
		t.Error("original input written despite failed transcription")
	}
}

func TestCaptureRecordingEmptyTranscriptWarns(t *testing.T) {
	fx := newFixture(t, &mockTranscriber{transcript: &ai.Transcript{Text: "  "}}, nil)

	result, err := fx.svc.CaptureRecording(context.Background(), fx.consultID, []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Warning == "" || result.Merged {
		t.Errorf("expected warning without merge, got %+v", result)
	}
}

func TestCaptureTypedMergesBuiltInput(t *testing.T) {
	fx := newFixture(t, nil, nil)

	result, err := fx.svc.CaptureTyped(context.Background(), fx.consultID, TypedFields{
		Complaint: "itchy ears",
		Exam:      "erythematous ear canals",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Merged {
		t.Error("expected typed input to merge")
	}
	c := fx.consults.consults[fx.consultID]
	if c.InputMode == nil || *c.InputMode != consult.InputModeTyped {
		t.Errorf("input mode not set: %v", c.InputMode)
	}
}

func TestCaptureTypedAppendsToEarlierCapture(t *testing.T) {
	fx := newFixture(t, nil, nil)

	first, _ := fx.svc.CaptureTyped(context.Background(), fx.consultID, TypedFields{Complaint: "first"})
	if !first.Merged {
		t.Fatal("first capture should merge")
	}
	second, err := fx.svc.CaptureTyped(context.Background(), fx.consultID, TypedFields{Complaint: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Merged {
		t.Error("second capture must still persist")
	}
	if got := *fx.consults.consults[fx.consultID].OriginalInput; got != "first\n\nsecond" {
		t.Errorf("second capture must append, not replace: %q", got)
	}
}

func TestCaptureUploadAppliesPatientFields(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: &ai.DocumentAnalysis{
		Summary: "Previous visit for otitis externa, treated with topical therapy.",
		PatientFields: map[string]string{
			"species": "canine",
			"sex":     "mn",
			"weight":  "22 lb",
		},
	}}
	fx := newFixture(t, nil, analyzer)

	result, err := fx.svc.CaptureUpload(context.Background(), fx.consultID, fx.patientID, []byte("pdf"), "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Merged {
		t.Error("expected summary to merge as raw input")
	}
	if len(result.AppliedFields) != 3 {
		t.Errorf("expected 3 applied fields, got %v", result.AppliedFields)
	}

	p := fx.patients.patients[fx.patientID]
	if p.Species == nil || *p.Species != "Canine" {
		t.Errorf("species not applied: %v", p.Species)
	}
	if p.WeightKG == nil || *p.WeightKG < 9.9 || *p.WeightKG > 10.1 {
		t.Errorf("weight not converted: %v", p.WeightKG)
	}
	c := fx.consults.consults[fx.consultID]
	if c.InputMode == nil || *c.InputMode != consult.InputModeContinue {
		t.Errorf("input mode not set: %v", c.InputMode)
	}
}

func TestCaptureUploadAnalysisFailureWarns(t *testing.T) {
	fx := newFixture(t, nil, &mockAnalyzer{err: fmt.Errorf("unreadable scan")})

	result, err := fx.svc.CaptureUpload(context.Background(), fx.consultID, fx.patientID, []byte("pdf"), "application/pdf")
	if err != nil {
		t.Fatalf("analysis failure must not fail the capture: %v", err)
	}
	if result.Warning == "" || result.Merged {
		t.Errorf("expected warning without merge, got %+v", result)
	}
}

func TestCaptureUploadSkipsUnrecognizedFields(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: &ai.DocumentAnalysis{
		Summary:       "Record of prior vaccination.",
		PatientFields: map[string]string{"species": "chimera", "sex": "???"},
	}}
	fx := newFixture(t, nil, analyzer)

	result, err := fx.svc.CaptureUpload(context.Background(), fx.consultID, fx.patientID, []byte("pdf"), "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.AppliedFields) != 0 {
		t.Errorf("expected nothing applied, got %v", result.AppliedFields)
	}
}
