package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetscribe/vetscribe/internal/platform/ai"
)

const defaultAutosaveDelay = 2 * time.Second

// Manager hands out one Editor per consult and owns their lifecycle.
type Manager struct {
	generator *Generator
	rewriter  ai.SectionRewriter
	consults  ConsultStore
	delay     time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	editors map[uuid.UUID]*Editor
}

func NewManager(generator *Generator, rewriter ai.SectionRewriter, consults ConsultStore, log zerolog.Logger) *Manager {
	return &Manager{
		generator: generator,
		rewriter:  rewriter,
		consults:  consults,
		delay:     defaultAutosaveDelay,
		log:       log,
		editors:   make(map[uuid.UUID]*Editor),
	}
}

// Editor returns the live editor for a consult, loading the stored draft
// on first use.
func (m *Manager) Editor(ctx context.Context, consultID uuid.UUID) (*Editor, error) {
	m.mu.Lock()
	if e, ok := m.editors[consultID]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	c, err := m.consults.GetConsult(ctx, consultID)
	if err != nil {
		return nil, fmt.Errorf("load consult: %w", err)
	}
	tpl := m.generator.templateFor(c.ReportType)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.editors[consultID]; ok {
		return e, nil
	}
	e := &Editor{
		consultID:   consultID,
		reportType:  c.ReportType,
		rawInput:    deref(c.OriginalInput),
		sections:    tpl.Normalize(c.Sections),
		template:    tpl,
		manager:     m,
		autosaveDue: m.delay,
	}
	m.editors[consultID] = e
	return e, nil
}

// Close flushes any pending autosave and drops the editor.
func (m *Manager) Close(ctx context.Context, consultID uuid.UUID) {
	m.mu.Lock()
	e, ok := m.editors[consultID]
	delete(m.editors, consultID)
	m.mu.Unlock()
	if ok {
		e.Flush(ctx)
	}
}

// Discard drops a consult's editor and cancels any pending autosave
// without flushing. Used when the consult stops accepting section writes,
// such as after finalization.
func (m *Manager) Discard(consultID uuid.UUID) {
	m.mu.Lock()
	e, ok := m.editors[consultID]
	delete(m.editors, consultID)
	m.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
}

// Generate runs full report generation and keeps any open editor in step
// with the persisted result, so a later flush of older working state
// cannot overwrite it.
func (m *Manager) Generate(ctx context.Context, req Request) (*GenerateResult, error) {
	result, err := m.generator.Generate(ctx, req)
	if err != nil || result.Stale || result.Outcome == OutcomeFailure {
		return result, err
	}
	m.mu.Lock()
	e, ok := m.editors[req.ConsultID]
	m.mu.Unlock()
	if ok {
		e.adoptSections(result.Sections, req.RawInput)
	}
	return result, nil
}

// Editor holds the in-memory working state of one consult's report. All
// mutations are local and cheap; persistence happens through debounced
// autosaves so rapid typing produces one write, not one per keystroke.
type Editor struct {
	consultID   uuid.UUID
	reportType  string
	template    Template
	manager     *Manager
	autosaveDue time.Duration

	mu       sync.Mutex
	rawInput string
	sections map[string]string
	timer    *time.Timer
}

// Sections returns a copy of the current working sections.
func (e *Editor) Sections() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Editor) snapshotLocked() map[string]string {
	out := make(map[string]string, len(e.sections))
	for k, v := range e.sections {
		out[k] = v
	}
	return out
}

// SetSection replaces one section's text and schedules a debounced
// autosave. The autosave snapshots whatever the sections hold when the
// timer fires, so the latest of a burst of edits always wins.
func (e *Editor) SetSection(key, text string) error {
	if !e.template.Has(key) {
		return fmt.Errorf("unknown section %q", key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sections[canonicalKey(key)] = text
	e.scheduleAutosaveLocked()
	return nil
}

func (e *Editor) scheduleAutosaveLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.autosaveDue, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.Flush(ctx)
	})
}

// Flush persists the current sections immediately and cancels any pending
// autosave. Failures are logged and swallowed; the working state is the
// source of truth and a later flush retries.
func (e *Editor) Flush(ctx context.Context) {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	if err := e.manager.consults.Autosave(ctx, e.consultID, snapshot); err != nil {
		e.manager.log.Warn().Err(err).Str("consult_id", e.consultID.String()).Msg("autosave failed")
	}
}

// RegenerateSection rewrites a single section under an instruction. On
// any failure the working state is left completely untouched.
func (e *Editor) RegenerateSection(ctx context.Context, key, instruction string) (string, error) {
	if !e.template.Has(key) {
		return "", fmt.Errorf("unknown section %q", key)
	}
	key = canonicalKey(key)

	e.mu.Lock()
	current := e.sections[key]
	raw := e.rawInput
	e.mu.Unlock()

	rewritten, err := e.manager.rewriter.RewriteSection(ctx, current, Title(key), instruction, raw)
	if err != nil {
		return "", fmt.Errorf("rewrite section: %w", err)
	}

	e.mu.Lock()
	e.sections[key] = rewritten
	e.scheduleAutosaveLocked()
	e.mu.Unlock()
	return rewritten, nil
}

// RegenerateDocument re-runs full generation under an instruction. The
// lineage snapshot of the outgoing sections is recorded before the model
// call goes out, so the history entry exists even if the call dies
// mid-flight. A failed or stale generation leaves the working state
// untouched.
func (e *Editor) RegenerateDocument(ctx context.Context, instruction string) (*GenerateResult, error) {
	// Re-read the stored input so a capture made after the editor opened
	// still feeds the regeneration.
	if c, err := e.manager.consults.GetConsult(ctx, e.consultID); err == nil {
		if raw := deref(c.OriginalInput); raw != "" {
			e.mu.Lock()
			e.rawInput = raw
			e.mu.Unlock()
		}
	}

	e.mu.Lock()
	snapshot := e.snapshotLocked()
	raw := e.rawInput
	e.mu.Unlock()

	if _, err := e.manager.consults.RecordRegeneration(ctx, e.consultID, instruction, snapshot); err != nil {
		return nil, fmt.Errorf("record lineage: %w", err)
	}

	return e.manager.Generate(ctx, Request{
		ConsultID:   e.consultID,
		RawInput:    raw,
		ReportType:  e.reportType,
		Instruction: instruction,
	})
}

// adoptSections replaces the working state with freshly persisted
// sections and cancels any autosave still pending for the superseded
// state.
func (e *Editor) adoptSections(sections map[string]string, rawInput string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.sections = make(map[string]string, len(sections))
	for k, v := range sections {
		e.sections[k] = v
	}
	if rawInput != "" {
		e.rawInput = rawInput
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
