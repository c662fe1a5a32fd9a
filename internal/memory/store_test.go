package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anbose/studiodesk/internal/models"
)

func newTestStore(t *testing.T, cfg StoreConfig) *Store {
	t.Helper()
	if cfg.SweepInterval <= 0 {
		// Keep the sweeper out of the way; tests drive expiry directly.
		cfg.SweepInterval = time.Hour
	}
	s := NewStore(cfg)
	t.Cleanup(s.Close)
	return s
}

func TestStoreInteraction_TruncatesHistory(t *testing.T) {
	s := newTestStore(t, StoreConfig{MaxInteractions: 20})

	id := s.CreateNewSession()
	for i := 0; i < 25; i++ {
		s.StoreInteraction(id, models.AgentSupport, fmt.Sprintf("query %d", i), "ok", nil, "unknown")
	}

	got := s.GetRecentInteractions(id, 0)
	if len(got) != 20 {
		t.Fatalf("expected 20 interactions after truncation, got %d", len(got))
	}
	if got[0].Query != "query 5" {
		t.Errorf("expected oldest surviving query to be %q, got %q", "query 5", got[0].Query)
	}
	if got[19].Query != "query 24" {
		t.Errorf("expected newest query to be %q, got %q", "query 24", got[19].Query)
	}
}

func TestStoreInteraction_EmptySessionIDUsesActiveSession(t *testing.T) {
	s := newTestStore(t, StoreConfig{})

	first := s.StoreInteraction("", models.AgentSupport, "hello", "hi", nil, "unknown")
	if first == "" {
		t.Fatal("expected a session id to be minted")
	}

	second := s.StoreInteraction("", models.AgentSupport, "again", "hi", nil, "unknown")
	if second != first {
		t.Errorf("expected follow-up to land in session %s, got %s", first, second)
	}
	if n := s.GetSessionStats(first).TotalInteractions; n != 2 {
		t.Errorf("expected 2 interactions, got %d", n)
	}
}

func TestFoldContext_LastWriteWins(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	id := s.CreateNewSession()

	s.StoreInteraction(id, models.AgentSupport, "find a", "ok",
		map[string]string{"email": "a@example.com", "orderId": "ORD-1"}, "search_client")
	s.StoreInteraction(id, models.AgentSupport, "find b", "ok",
		map[string]string{"email": "b@example.com"}, "search_client")

	c := s.ClientContextFor(id)
	if c == nil || c.Email != "b@example.com" {
		t.Fatalf("expected client context email b@example.com, got %+v", c)
	}

	// The order id was not mentioned again; it must survive the overwrite.
	sc := s.ServiceContextFor(id)
	if sc == nil || sc.OrderID != "ORD-1" {
		t.Fatalf("expected service context to keep order ORD-1, got %+v", sc)
	}
}

func TestGetContext_RendersSessionState(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	id := s.CreateNewSession()

	s.StoreInteraction(id, models.AgentSupport, "find john", "ok",
		map[string]string{"email": "john@example.com", "serviceName": "Yoga Course"}, "search_client")

	ctx := s.GetContext(id)
	for _, want := range []string{
		"Last searched client: john@example.com",
		"Last service: Yoga Course",
		"Recent queries:",
		"- find john",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}

	if got := s.GetContext("session_nope"); got != "" {
		t.Errorf("expected empty context for unknown session, got %q", got)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := newTestStore(t, StoreConfig{SessionTimeout: 30 * time.Minute})

	id := s.CreateNewSession()
	s.StoreInteraction(id, models.AgentSupport, "hello", "hi", nil, "unknown")

	backdate(s, id, 29*time.Minute)
	if !s.IsSessionActive(id) {
		t.Fatal("session 29 minutes old should still be active")
	}

	backdate(s, id, 31*time.Minute)
	if s.IsSessionActive(id) {
		t.Fatal("session 31 minutes old should be inactive")
	}

	s.sweepExpired()
	if s.GetSessionStats(id) != nil {
		t.Error("expected swept session to be gone")
	}
	if next := s.GetOrCreateActiveSession(); next == id {
		t.Error("expected a fresh session after the current one expired")
	}
}

func TestClearSession(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	id := s.CreateNewSession()

	if !s.ClearSession(id) {
		t.Fatal("expected ClearSession to report the session existed")
	}
	if s.ClearSession(id) {
		t.Error("expected second ClearSession to report not found")
	}
	if s.CurrentSessionID() != "" {
		t.Error("clearing the current session should reset the active pointer")
	}
}

func TestStoreInteraction_Snapshots(t *testing.T) {
	snap := &recordingSnapshotter{saved: make(chan *Session, 1)}
	s := newTestStore(t, StoreConfig{Snapshotter: snap})

	id := s.CreateNewSession()
	s.StoreInteraction(id, models.AgentSupport, "hello", "hi",
		map[string]string{"email": "a@example.com"}, "search_client")

	select {
	case sess := <-snap.saved:
		if sess.ID != id {
			t.Errorf("snapshot for wrong session: %s", sess.ID)
		}
		if len(sess.Interactions) != 1 || sess.ClientContext == nil {
			t.Errorf("snapshot missing state: %+v", sess)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t, StoreConfig{})
	id := s.CreateNewSession()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.StoreInteraction(id, models.AgentSupport, "q", "r",
					map[string]string{"email": "a@example.com"}, "search_client")
				s.GetContext(id)
				s.GetRecentInteractions(id, 5)
				s.IsSessionActive(id)
			}
		}()
	}
	wg.Wait()

	if stats := s.GetSessionStats(id); stats == nil || stats.TotalInteractions == 0 {
		t.Fatalf("expected interactions to be recorded, got %+v", stats)
	}
}

func TestStoreInteraction_DetachesExtractedData(t *testing.T) {
	snap := &recordingSnapshotter{saved: make(chan *Session, 1)}
	s := newTestStore(t, StoreConfig{Snapshotter: snap})

	id := s.CreateNewSession()
	extracted := map[string]string{"email": "a@example.com"}
	s.StoreInteraction(id, models.AgentSupport, "hello", "hi", extracted, "search_client")

	// The caller keeps ownership of its map; mutating it afterwards must not
	// leak into the stored history or the async snapshot.
	extracted["email"] = "tampered@example.com"

	recent := s.GetRecentInteractions(id, 1)
	if len(recent) != 1 || recent[0].ExtractedData["email"] != "a@example.com" {
		t.Errorf("stored interaction aliases caller map: %+v", recent)
	}

	select {
	case sess := <-snap.saved:
		if got := sess.Interactions[0].ExtractedData["email"]; got != "a@example.com" {
			t.Errorf("snapshot aliases caller map: got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

type recordingSnapshotter struct {
	saved chan *Session
}

func (r *recordingSnapshotter) Save(_ context.Context, session *Session) error {
	select {
	case r.saved <- session:
	default:
	}
	return nil
}

func (r *recordingSnapshotter) Delete(context.Context, string) error { return nil }

func backdate(s *Store, sessionID string, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.LastActiveAt = time.Now().Add(-age)
	}
}
