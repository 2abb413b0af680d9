package dashboard

import (
	"testing"
	"time"
)

func TestSessionsGet(t *testing.T) {
	store := NewSessions(time.Hour)

	s1, created := store.Get("")
	if !created || s1.ID == "" {
		t.Fatalf("expected a new session, got %+v created=%v", s1, created)
	}
	if s1.State() != AwaitingIndexSelection {
		t.Errorf("new session state = %s", s1.State())
	}

	again, created := store.Get(s1.ID)
	if created || again != s1 {
		t.Error("known id should return the same session")
	}

	other, created := store.Get("no-such-id")
	if !created || other.ID == "no-such-id" || other == s1 {
		t.Error("unknown id should create a fresh session with its own id")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestSessionsPrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessions(30 * time.Minute)
	store.now = func() time.Time { return now }

	old, _ := store.Get("")
	now = now.Add(20 * time.Minute)
	fresh, _ := store.Get("")

	now = now.Add(15 * time.Minute)
	if n := store.Prune(); n != 1 {
		t.Fatalf("Prune() = %d, want 1", n)
	}
	if _, created := store.Get(fresh.ID); created {
		t.Error("recently used session should survive")
	}
	if _, created := store.Get(old.ID); !created {
		t.Error("idle session should have been dropped")
	}
}

func TestSessionsNoIdleLimit(t *testing.T) {
	store := NewSessions(0)
	store.Get("")
	store.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if n := store.Prune(); n != 0 {
		t.Errorf("Prune() = %d, want 0 with no idle limit", n)
	}
}
