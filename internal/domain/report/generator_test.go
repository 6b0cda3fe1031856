package report

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetscribe/vetscribe/internal/domain/consult"
	"github.com/vetscribe/vetscribe/internal/platform/ai"
)

// -- Fakes --

type fakeStore struct {
	mu           sync.Mutex
	consults     map[uuid.UUID]*consult.Consult
	saves        []map[string]string
	lineage      []*consult.RegenerationLineage
	failAutosave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{consults: make(map[uuid.UUID]*consult.Consult)}
}

func (s *fakeStore) GetConsult(_ context.Context, id uuid.UUID) (*consult.Consult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consults[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func (s *fakeStore) Autosave(_ context.Context, id uuid.UUID, sections map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAutosave {
		return fmt.Errorf("storage unavailable")
	}
	if c, ok := s.consults[id]; ok && c.Status == consult.StatusFinalized {
		return consult.ErrFinalized
	}
	s.saves = append(s.saves, sections)
	return nil
}

func (s *fakeStore) RecordRegeneration(_ context.Context, consultID uuid.UUID, instruction string, sections map[string]string) (*consult.RegenerationLineage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &consult.RegenerationLineage{
		ID:        uuid.New(),
		ConsultID: consultID,
		Sections:  sections,
	}
	if instruction != "" {
		l.Instruction = &instruction
	}
	if n := len(s.lineage); n > 0 {
		l.Supersedes = &s.lineage[n-1].ID
	}
	s.lineage = append(s.lineage, l)
	return l, nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

type fakeRemote struct {
	mu       sync.Mutex
	calls    int
	lastRaw  string
	sections map[string]string
	err      error
	onCall   func()
}

func (r *fakeRemote) GenerateReport(_ context.Context, raw string, _ ai.PatientContext, _ []string, _ string) (map[string]string, error) {
	r.mu.Lock()
	r.calls++
	r.lastRaw = raw
	hook := r.onCall
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.sections, r.err
}

func (r *fakeRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeRemote) lastRawInput() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRaw
}

// -- Tests --

func TestGenerateShortInputSkipsRemote(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	g := NewGenerator(remote, store, nil, zerolog.Nop())

	result, err := g.Generate(context.Background(), Request{
		ConsultID:  uuid.New(),
		RawInput:   "  cough  ",
		ReportType: "soap",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeTooShort {
		t.Errorf("expected too_short outcome, got %s", result.Outcome)
	}
	if remote.callCount() != 0 {
		t.Error("remote must not be called for short input")
	}
	if len(result.Sections) != 4 {
		t.Errorf("expected full empty key set, got %v", result.Sections)
	}
	for k, v := range result.Sections {
		if v != "" {
			t.Errorf("section %s not empty: %q", k, v)
		}
	}
	if store.saveCount() != 1 {
		t.Errorf("expected 1 autosave, got %d", store.saveCount())
	}
}

func TestGenerateInsufficientData(t *testing.T) {
	remote := &fakeRemote{err: ai.ErrInsufficientData}
	store := newFakeStore()
	g := NewGenerator(remote, store, nil, zerolog.Nop())

	result, err := g.Generate(context.Background(), Request{
		ConsultID:  uuid.New(),
		RawInput:   "hello hello hello hello",
		ReportType: "soap",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeInsufficientData {
		t.Errorf("expected insufficient_data outcome, got %s", result.Outcome)
	}
	if store.saveCount() != 1 {
		t.Errorf("expected 1 autosave, got %d", store.saveCount())
	}
}

func TestGenerateHardFailureSkipsAutosave(t *testing.T) {
	remote := &fakeRemote{err: fmt.Errorf("upstream 500")}
	store := newFakeStore()
	g := NewGenerator(remote, store, nil, zerolog.Nop())

	result, err := g.Generate(context.Background(), Request{
		ConsultID:  uuid.New(),
		RawInput:   "vomiting and lethargy since monday",
		ReportType: "soap",
	})
	if err != nil {
		t.Fatalf("hard failure must still yield a result: %v", err)
	}
	if result.Outcome != OutcomeFailure {
		t.Errorf("expected failure outcome, got %s", result.Outcome)
	}
	if store.saveCount() != 0 {
		t.Error("failed generation must not overwrite the stored draft")
	}
}

func TestGenerateNormalizesToTemplate(t *testing.T) {
	remote := &fakeRemote{sections: map[string]string{
		"Subjective":   "owner reports vomiting",
		"objective":    "T 39.0C",
		"differential": "dropped",
	}}
	store := newFakeStore()
	g := NewGenerator(remote, store, nil, zerolog.Nop())

	result, err := g.Generate(context.Background(), Request{
		ConsultID:  uuid.New(),
		RawInput:   "vomiting and lethargy since monday",
		ReportType: "soap",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", result.Outcome)
	}
	if len(result.Sections) != 4 {
		t.Errorf("expected exactly 4 sections, got %v", result.Sections)
	}
	if result.Sections["subjective"] != "owner reports vomiting" {
		t.Errorf("loose key not matched: %v", result.Sections)
	}
	if _, ok := result.Sections["differential"]; ok {
		t.Error("extraneous section survived")
	}
	if result.Sections["assessment"] != "" || result.Sections["plan"] != "" {
		t.Error("missing sections must be present and empty")
	}
}

func TestGenerateStaleResultDiscarded(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{sections: map[string]string{"subjective": "old"}}
	g := NewGenerator(remote, store, nil, zerolog.Nop())

	consultID := uuid.New()
	// The first call's remote round trip overlaps a second request for the
	// same consult, so its token is stale by the time it completes.
	first := true
	remote.onCall = func() {
		if first {
			first = false
			g.nextToken(consultID)
		}
	}

	result, err := g.Generate(context.Background(), Request{
		ConsultID:  consultID,
		RawInput:   "vomiting and lethargy since monday",
		ReportType: "soap",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Stale {
		t.Error("expected stale result")
	}
	if store.saveCount() != 0 {
		t.Error("stale result must not be persisted")
	}
}

func TestGenerateAutosaveFailureSwallowed(t *testing.T) {
	remote := &fakeRemote{sections: map[string]string{"subjective": "x"}}
	store := newFakeStore()
	store.failAutosave = true
	g := NewGenerator(remote, store, nil, zerolog.Nop())

	result, err := g.Generate(context.Background(), Request{
		ConsultID:  uuid.New(),
		RawInput:   "vomiting and lethargy since monday",
		ReportType: "soap",
	})
	if err != nil {
		t.Fatalf("autosave failure must not fail generation: %v", err)
	}
	if result.Outcome != OutcomeSuccess {
		t.Errorf("expected success, got %s", result.Outcome)
	}
}

func TestGenerateUsesConfiguredSections(t *testing.T) {
	remote := &fakeRemote{sections: map[string]string{"subjective": "x"}}
	store := newFakeStore()
	g := NewGenerator(remote, store, []string{"subjective", "plan"}, zerolog.Nop())

	result, _ := g.Generate(context.Background(), Request{
		ConsultID:  uuid.New(),
		RawInput:   "vomiting and lethargy since monday",
		ReportType: "soap",
	})
	if len(result.Sections) != 2 {
		t.Errorf("configured section list not honored: %v", result.Sections)
	}
}
