package session

import (
	"testing"

	"github.com/scobuck/CastKit/internal/types"
)

func TestSetStatusDeduplicates(t *testing.T) {
	s := New()
	calls := 0
	s.OnStatus(func(types.CastStatus) { calls++ })

	v := types.CastStatus{Volume: 0.5, Muted: false}
	s.SetStatus(v)
	s.SetStatus(v)
	s.SetStatus(v)

	if calls != 1 {
		t.Fatalf("expected 1 notification for repeated identical status, got %d", calls)
	}

	s.SetStatus(types.CastStatus{Volume: 0.6, Muted: false})
	if calls != 2 {
		t.Fatalf("expected notification on actual change, got %d calls", calls)
	}
}

func TestSetMediaStatusDeduplicates(t *testing.T) {
	s := New()
	calls := 0
	s.OnMediaStatus(func(types.CastMediaStatus) { calls++ })

	v := types.CastMediaStatus{MediaSessionID: 7, PlayerState: types.PlayerStatePlaying}
	s.SetMediaStatus(v)
	s.SetMediaStatus(v)
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}

	v.CurrentTime = 1.5
	s.SetMediaStatus(v)
	if calls != 2 {
		t.Fatalf("expected notification on field change, got %d", calls)
	}
}

// TestSetMediaStatusDeduplicatesAcrossDistinctObservations reproduces a
// rebroadcast where only ObservedAtUnixNano (stamped fresh per receipt
// by internal/channel/media.go, not by this package) differs: the
// receiver's status is otherwise unchanged, so it must still dedup.
func TestSetMediaStatusDeduplicatesAcrossDistinctObservations(t *testing.T) {
	s := New()
	calls := 0
	s.OnMediaStatus(func(types.CastMediaStatus) { calls++ })

	first := types.CastMediaStatus{MediaSessionID: 7, PlayerState: types.PlayerStatePlaying, ObservedAtUnixNano: 100}
	second := first
	second.ObservedAtUnixNano = 200

	s.SetMediaStatus(first)
	s.SetMediaStatus(second)
	if calls != 1 {
		t.Fatalf("expected ObservedAtUnixNano alone not to defeat dedup, got %d calls", calls)
	}
}

func TestSetMultizoneStatusDeduplicates(t *testing.T) {
	s := New()
	calls := 0
	s.OnMultizoneStatus(func(types.CastMultizoneStatus) { calls++ })

	v := types.CastMultizoneStatus{Devices: []types.CastMultizoneDevice{{ID: "a", Volume: 0.3}}}
	s.SetMultizoneStatus(v)
	s.SetMultizoneStatus(v)
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}
}

func TestSetConnectedAppEqualitySessionID(t *testing.T) {
	s := New()
	calls := 0
	s.OnConnectedApp(func(*types.CastApp) { calls++ })

	app := &types.CastApp{ID: "CC1AD845", SessionID: "sess-1", TransportID: "t1"}
	s.SetConnectedApp(app)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	// Same SessionID, different (irrelevant) fields: still "equal" per
	// CastApp.Equal, so this should not notify again.
	same := &types.CastApp{ID: "CC1AD845", SessionID: "sess-1", TransportID: "t1", StatusText: "now playing"}
	s.SetConnectedApp(same)
	if calls != 1 {
		t.Fatalf("expected no notification for same session id, got %d calls", calls)
	}

	other := &types.CastApp{ID: "CC1AD845", SessionID: "sess-2", TransportID: "t2"}
	s.SetConnectedApp(other)
	if calls != 2 {
		t.Fatalf("expected notification for different session id, got %d calls", calls)
	}
}

func TestClearResetsWithoutNotifying(t *testing.T) {
	s := New()
	calls := 0
	s.OnStatus(func(types.CastStatus) { calls++ })
	s.OnConnectedApp(func(*types.CastApp) { calls++ })

	s.SetStatus(types.CastStatus{Volume: 1})
	s.SetConnectedApp(&types.CastApp{SessionID: "s1"})
	if calls != 2 {
		t.Fatalf("expected 2 calls before Clear, got %d", calls)
	}

	s.Clear()
	if calls != 2 {
		t.Fatalf("Clear must not invoke observers, got %d calls", calls)
	}

	if _, ok := s.Status(); ok {
		t.Fatal("expected Status to be unobserved after Clear")
	}
	if app := s.ConnectedApp(); app != nil {
		t.Fatalf("expected ConnectedApp nil after Clear, got %+v", app)
	}

	// After Clear, setting the same status again must notify, since the
	// "previous value" is now unobserved.
	s.SetStatus(types.CastStatus{Volume: 1})
	if calls != 3 {
		t.Fatalf("expected notification after Clear + re-set, got %d calls", calls)
	}
}
