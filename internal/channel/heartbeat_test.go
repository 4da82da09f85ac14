package channel

import (
	"context"
	"testing"
	"time"
)

func TestHeartbeatRepliesPongToPing(t *testing.T) {
	s := &fakeSender{}
	h := NewHeartbeat(s, ReceiverDestination)
	h.HandleJSON(map[string]any{"type": "PING"}, ReceiverDestination)

	call := s.lastMessage()
	if call.payload["type"] != "PONG" {
		t.Fatalf("expected PONG reply, got %v", call.payload["type"])
	}
	if call.destination != ReceiverDestination {
		t.Fatalf("expected reply to %s, got %s", ReceiverDestination, call.destination)
	}
}

func TestHeartbeatFiresConnectedOnceOnFirstPong(t *testing.T) {
	s := &fakeSender{}
	h := NewHeartbeat(s, ReceiverDestination)
	calls := 0
	h.OnConnected(func() { calls++ })

	h.HandleJSON(map[string]any{"type": "PONG"}, ReceiverDestination)
	h.HandleJSON(map[string]any{"type": "PONG"}, ReceiverDestination)
	h.HandleJSON(map[string]any{"type": "PONG"}, ReceiverDestination)

	if calls != 1 {
		t.Fatalf("expected OnConnected to fire exactly once, got %d", calls)
	}
}

func TestHeartbeatTouchResetsWatchdog(t *testing.T) {
	s := &fakeSender{}
	h := NewHeartbeat(s, ReceiverDestination)
	fired := false
	h.OnTimeout(func() { fired = true })

	h.mu.Lock()
	h.lastActivity = time.Now().Add(-WatchdogTimeout * 2)
	h.mu.Unlock()

	h.Touch()
	if err := h.checkExpired(); err != nil {
		t.Fatalf("expected watchdog not to fire right after Touch, got %v", err)
	}
	if fired {
		t.Fatal("OnTimeout must not fire when activity is recent")
	}
}

func TestHeartbeatWatchdogFiresAfterSilence(t *testing.T) {
	s := &fakeSender{}
	h := NewHeartbeat(s, ReceiverDestination)
	fired := 0
	h.OnTimeout(func() { fired++ })

	h.mu.Lock()
	h.lastActivity = time.Now().Add(-WatchdogTimeout * 2)
	h.mu.Unlock()

	if err := h.checkExpired(); err == nil {
		t.Fatal("expected watchdog to report expired")
	}
	if fired != 1 {
		t.Fatalf("expected OnTimeout to fire once, got %d", fired)
	}
}

func TestHeartbeatRunReturnsNilOnContextCancel(t *testing.T) {
	s := &fakeSender{}
	h := NewHeartbeat(s, ReceiverDestination)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected Run to return nil on context cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHeartbeatRunReturnsErrorOnWatchdogExpiry(t *testing.T) {
	s := &fakeSender{}
	h := NewHeartbeat(s, ReceiverDestination)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	// Run stamps lastActivity when it starts; wait for that before
	// backdating it, or Run's own stamp would overwrite the backdate.
	for {
		h.mu.Lock()
		started := !h.lastActivity.IsZero()
		if started {
			h.lastActivity = time.Now().Add(-WatchdogTimeout * 2)
		}
		h.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return an error once the watchdog trips")
		}
	case <-time.After(PingInterval + time.Second):
		t.Fatal("Run did not report watchdog expiry within one ping interval")
	}
}
