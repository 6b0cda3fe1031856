package consult

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrFinalized is returned by writes that only apply to draft consults.
var ErrFinalized = errors.New("consult is finalized")

type Repository interface {
	Create(ctx context.Context, c *Consult) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consult, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consult, int, error)

	// UpdateSections writes the working report sections of a draft. It
	// never touches status or finalized_at and returns ErrFinalized once
	// the consult has been finalized.
	UpdateSections(ctx context.Context, id uuid.UUID, sections map[string]string) error

	// MergeOriginalInput stores raw as the consult's original input when
	// none exists and appends it after a blank line otherwise. Returns
	// whether an existing input was extended.
	MergeOriginalInput(ctx context.Context, id uuid.UUID, raw string) (bool, error)

	SetInputMode(ctx context.Context, id uuid.UUID, mode string) error

	// Finalize writes sections, finalized_at and status in one statement so
	// a failure leaves the consult fully untouched.
	Finalize(ctx context.Context, id uuid.UUID, sections map[string]string) (*Consult, error)

	AppendSegments(ctx context.Context, consultID uuid.UUID, segments []*TranscriptionSegment) error
	ListSegments(ctx context.Context, consultID uuid.UUID) ([]*TranscriptionSegment, error)

	AddLineage(ctx context.Context, l *RegenerationLineage) error
	ListLineage(ctx context.Context, consultID uuid.UUID) ([]*RegenerationLineage, error)
	// LatestLineage returns the newest lineage entry, or nil when the
	// consult has never been regenerated.
	LatestLineage(ctx context.Context, consultID uuid.UUID) (*RegenerationLineage, error)
}
