package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *Event) error
	ListByConsult(ctx context.Context, consultID uuid.UUID) ([]*Event, error)
}
