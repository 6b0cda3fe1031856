package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSetGetScopedToConsult(t *testing.T) {
	s := NewStore(time.Hour)
	a, b := uuid.New(), uuid.New()

	s.Set(a, "generated_report", `{"subjective":"x"}`)

	if v, ok := s.Get(a, "generated_report"); !ok || v != `{"subjective":"x"}` {
		t.Errorf("expected draft for consult a, got (%q, %v)", v, ok)
	}
	if _, ok := s.Get(b, "generated_report"); ok {
		t.Error("consult b must not see consult a's draft")
	}
}

func TestPurgeOthersIsolation(t *testing.T) {
	s := NewStore(time.Hour)
	current, abandoned := uuid.New(), uuid.New()

	s.Set(abandoned, "generated_report", "stale report")
	s.Set(abandoned, "case_context", "stale context")
	s.Set(current, "generated_report", "fresh report")

	s.PurgeOthers(current)

	if _, ok := s.Get(abandoned, "generated_report"); ok {
		t.Error("abandoned consult draft survived purge")
	}
	if _, ok := s.Get(abandoned, "case_context"); ok {
		t.Error("abandoned consult context survived purge")
	}
	if v, ok := s.Get(current, "generated_report"); !ok || v != "fresh report" {
		t.Errorf("current consult draft lost: (%q, %v)", v, ok)
	}
}

func TestLegacyBareKeyDeletedNeverRead(t *testing.T) {
	s := NewStore(time.Hour)
	id := uuid.New()

	// A bare key as an old client would have written it.
	s.mu.Lock()
	s.entries["generated_report"] = entry{value: "legacy", expiresAt: time.Now().Add(time.Hour)}
	s.mu.Unlock()

	if v, ok := s.Get(id, "generated_report"); ok {
		t.Errorf("legacy bare key must never be served, got %q", v)
	}
	if s.Len() != 0 {
		t.Error("legacy bare key must be deleted on load")
	}
}

func TestPurgeOthersRemovesLegacyKeys(t *testing.T) {
	s := NewStore(time.Hour)
	id := uuid.New()

	s.mu.Lock()
	s.entries["generated_report"] = entry{value: "legacy", expiresAt: time.Now().Add(time.Hour)}
	s.mu.Unlock()
	s.Set(id, "generated_report", "scoped")

	s.PurgeOthers(id)
	if s.Len() != 1 {
		t.Errorf("expected only the scoped entry to survive, have %d", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := NewStore(time.Hour)
	a, b := uuid.New(), uuid.New()
	s.Set(a, "generated_report", "x")
	s.Set(a, "case_context", "y")
	s.Set(b, "generated_report", "z")

	s.Clear(a)

	if _, ok := s.Get(a, "generated_report"); ok {
		t.Error("cleared draft still readable")
	}
	if _, ok := s.Get(b, "generated_report"); !ok {
		t.Error("clear must not touch other consults")
	}
}

func TestExpiry(t *testing.T) {
	s := NewStore(time.Hour)
	id := uuid.New()
	base := time.Now()
	s.now = func() time.Time { return base }

	s.Set(id, "generated_report", "x")
	s.now = func() time.Time { return base.Add(2 * time.Hour) }

	if _, ok := s.Get(id, "generated_report"); ok {
		t.Error("expired draft served")
	}
}

func TestSetOverwrites(t *testing.T) {
	s := NewStore(time.Hour)
	id := uuid.New()
	s.Set(id, "generated_report", "v1")
	s.Set(id, "generated_report", "v2")
	if v, _ := s.Get(id, "generated_report"); v != "v2" {
		t.Errorf("expected latest value, got %q", v)
	}
}
