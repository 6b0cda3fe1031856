package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const retryInterval = 30 * time.Second

type Service struct {
	repo Repository
	log  zerolog.Logger

	mu      sync.Mutex
	pending []*Event
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// LogReportGenerated records the event. A failed insert is queued for the
// background retry loop; the caller never sees the failure.
func (s *Service) LogReportGenerated(ctx context.Context, e *Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("consult_id", e.ConsultID.String()).Msg("audit insert failed, queued for retry")
		s.mu.Lock()
		s.pending = append(s.pending, e)
		s.mu.Unlock()
	}
}

// Start runs the retry loop until ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

func (s *Service) drain(ctx context.Context) {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range queued {
		if err := s.repo.Insert(ctx, e); err != nil {
			s.mu.Lock()
			s.pending = append(s.pending, e)
			s.mu.Unlock()
		}
	}
}

func (s *Service) ListByConsult(ctx context.Context, consultID uuid.UUID) ([]*Event, error) {
	return s.repo.ListByConsult(ctx, consultID)
}

// PendingCount reports queued events awaiting retry.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
