package report

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetscribe/vetscribe/internal/domain/consult"
	"github.com/vetscribe/vetscribe/internal/platform/ai"
)

// Outcome classifies how a generation run ended. Every outcome except
// OutcomeFailure still yields a usable (possibly empty) report.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeTooShort         Outcome = "too_short"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeFailure          Outcome = "failure"
)

// Raw input shorter than this never reaches the model; there is nothing
// to structure, so an empty editable report is synthesized locally.
const minRawInputLen = 10

// ConsultStore is the slice of the consult service generation needs.
type ConsultStore interface {
	GetConsult(ctx context.Context, id uuid.UUID) (*consult.Consult, error)
	Autosave(ctx context.Context, id uuid.UUID, sections map[string]string) error
	RecordRegeneration(ctx context.Context, consultID uuid.UUID, instruction string, sections map[string]string) (*consult.RegenerationLineage, error)
}

type Request struct {
	ConsultID   uuid.UUID
	RawInput    string
	ReportType  string
	Patient     ai.PatientContext
	Instruction string
}

type GenerateResult struct {
	Sections map[string]string `json:"sections"`
	Outcome  Outcome           `json:"outcome"`
	// Stale marks a completion that lost to a newer request for the same
	// consult. Stale results are never persisted.
	Stale bool `json:"stale,omitempty"`
}

type Generator struct {
	remote   ai.ReportGenerator
	consults ConsultStore
	sections []string
	log      zerolog.Logger

	mu     sync.Mutex
	tokens map[uuid.UUID]uint64
}

// NewGenerator builds a report generator. configuredSections is the SOAP
// section list from configuration; wellness and procedure layouts are
// fixed by the template.
func NewGenerator(remote ai.ReportGenerator, consults ConsultStore, configuredSections []string, log zerolog.Logger) *Generator {
	return &Generator{
		remote:   remote,
		consults: consults,
		sections: configuredSections,
		log:      log,
		tokens:   make(map[uuid.UUID]uint64),
	}
}

func (g *Generator) templateFor(reportType string) Template {
	return ForType(reportType, g.sections)
}

func (g *Generator) nextToken(consultID uuid.UUID) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[consultID]++
	return g.tokens[consultID]
}

func (g *Generator) isStale(consultID uuid.UUID, token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokens[consultID] != token
}

// Generate produces a structured report for the request. Short input is
// handled locally, a model decline and a hard failure both degrade to an
// empty report keyed by the full template, and a successful result is
// normalized to exactly the template key set. The resulting sections are
// autosaved unless the run failed hard or lost to a newer request;
// autosave errors are logged and swallowed.
func (g *Generator) Generate(ctx context.Context, req Request) (*GenerateResult, error) {
	tpl := g.templateFor(req.ReportType)
	token := g.nextToken(req.ConsultID)

	result := &GenerateResult{}
	switch {
	case len(strings.TrimSpace(req.RawInput)) < minRawInputLen:
		result.Sections = tpl.Empty()
		result.Outcome = OutcomeTooShort
	default:
		raw, err := g.remote.GenerateReport(ctx, req.RawInput, req.Patient, tpl.Keys(), req.Instruction)
		switch {
		case errors.Is(err, ai.ErrInsufficientData):
			result.Sections = tpl.Empty()
			result.Outcome = OutcomeInsufficientData
		case err != nil:
			g.log.Error().Err(err).Str("consult_id", req.ConsultID.String()).Msg("report generation failed")
			result.Sections = tpl.Empty()
			result.Outcome = OutcomeFailure
		default:
			result.Sections = tpl.Normalize(raw)
			result.Outcome = OutcomeSuccess
		}
	}

	if g.isStale(req.ConsultID, token) {
		result.Stale = true
		return result, nil
	}

	// A hard failure keeps the stored draft untouched so a retry starts
	// from the clinician's last state.
	if result.Outcome != OutcomeFailure {
		if err := g.consults.Autosave(ctx, req.ConsultID, result.Sections); err != nil {
			g.log.Warn().Err(err).Str("consult_id", req.ConsultID.String()).Msg("autosave after generation failed")
		}
	}
	return result, nil
}
