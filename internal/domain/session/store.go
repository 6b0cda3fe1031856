// Package session holds short-lived, consult-scoped draft state: the
// hand-off surface between the consult creation flow and the report
// editor. Everything here is best effort; the database remains the source
// of truth and an absent read is a normal outcome.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 12 * time.Hour

type entry struct {
	value     string
	expiresAt time.Time
}

// Store is an in-memory draft store. Keys are composed as
// "{logicalKey}_{consultID}" so two consults can never read each other's
// drafts. Bare logical keys written by older clients are deleted on
// sight and never served.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func composeKey(logicalKey string, consultID uuid.UUID) string {
	return logicalKey + "_" + consultID.String()
}

// Get returns the draft stored under the consult-scoped key. If a legacy
// bare key exists for the same logical name it is deleted as a side
// effect, whether or not the scoped key is present.
func (s *Store) Get(consultID uuid.UUID, logicalKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, logicalKey)

	e, ok := s.entries[composeKey(logicalKey, consultID)]
	if !ok {
		return "", false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, composeKey(logicalKey, consultID))
		return "", false
	}
	return e.value, true
}

func (s *Store) Set(consultID uuid.UUID, logicalKey, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[composeKey(logicalKey, consultID)] = entry{
		value:     value,
		expiresAt: s.now().Add(s.ttl),
	}
}

// Clear removes every draft scoped to the consult.
func (s *Store) Clear(consultID uuid.UUID) {
	suffix := "_" + consultID.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if strings.HasSuffix(k, suffix) {
			delete(s.entries, k)
		}
	}
}

// PurgeOthers removes every draft not scoped to the current consult,
// including legacy bare keys. Called on entry to an editing session so
// state from an abandoned consult can never leak into this one.
func (s *Store) PurgeOthers(current uuid.UUID) {
	suffix := "_" + current.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if !strings.HasSuffix(k, suffix) {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of live entries, expired ones included until
// their next read.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
