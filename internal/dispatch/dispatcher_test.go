package dispatch

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scobuck/CastKit/internal/wire"
)

// syncRun executes callbacks immediately on the calling goroutine —
// fine for tests that don't care about dispatch-context threading. A
// couple of the tests here exercise genuine concurrency using a queued
// run func (below).
func syncRun(fn func()) { fn() }

// queuedRun models the "single serialized dispatch context": all
// callbacks land on one channel drained by one goroutine, so ordering
// is deterministic without serializing the whole test.
func newQueuedRun(t *testing.T) (run RunFunc, stop func()) {
	t.Helper()
	ch := make(chan func(), 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for fn := range ch {
			fn()
		}
	}()
	return func(fn func()) { ch <- fn }, func() { close(ch); <-done }
}

func noopWrite([]byte) error { return nil }

func TestBuildJSONRequestInjectsRequestID(t *testing.T) {
	d := New("sender-0", noopWrite, syncRun, 1)
	msg, id, err := d.BuildJSONRequest("urn:x-cast:com.google.cast.receiver", "receiver-0", map[string]any{"type": "GET_STATUS"})
	if err != nil {
		t.Fatalf("BuildJSONRequest: %v", err)
	}
	if msg.PayloadType != wire.PayloadTypeString {
		t.Fatalf("expected string payload type")
	}
	want := `"requestId":` + strconv.FormatUint(uint64(id), 10)
	if !strings.Contains(msg.PayloadUTF8, want) {
		t.Fatalf("payload %q does not contain injected requestId %d", msg.PayloadUTF8, id)
	}
}

func TestBuildJSONRequestOverwritesExistingRequestID(t *testing.T) {
	d := New("sender-0", noopWrite, syncRun, 1)
	msg, id, err := d.BuildJSONRequest("ns", "dest", map[string]any{"requestId": 999999})
	if err != nil {
		t.Fatalf("BuildJSONRequest: %v", err)
	}
	if strings.Contains(msg.PayloadUTF8, "999999") {
		t.Fatalf("stale requestId not overwritten: %q", msg.PayloadUTF8)
	}
	if !strings.Contains(msg.PayloadUTF8, strconv.FormatUint(uint64(id), 10)) {
		t.Fatalf("expected injected id %d in %q", id, msg.PayloadUTF8)
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	d := New("sender-0", noopWrite, syncRun, 42)
	seen := make(map[uint32]bool)
	for i := 0; i < 1000; i++ {
		id := d.NextID()
		if seen[id] {
			t.Fatalf("duplicate request id %d", id)
		}
		seen[id] = true
	}
}

func TestSendRegistersBeforeWrite(t *testing.T) {
	// A write func that synchronously calls back into Complete, simulating
	// a response that "arrives" before Send returns.
	var d *Dispatcher
	var completedID uint32
	write := func(frame []byte) error {
		d.Complete(completedID, Result{JSON: map[string]any{"ok": true}})
		return nil
	}
	d = New("sender-0", write, syncRun, 1)

	msg, id, err := d.BuildJSONRequest("ns", "dest", map[string]any{"type": "X"})
	if err != nil {
		t.Fatalf("BuildJSONRequest: %v", err)
	}
	completedID = id

	var got Result
	var called int
	err = d.Send(id, msg, func(r Result) { called++; got = r })
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if called != 1 {
		t.Fatalf("expected handler called exactly once, got %d", called)
	}
	if got.Err != nil || got.JSON["ok"] != true {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestCompleteDeliversExactlyOnce(t *testing.T) {
	run, stop := newQueuedRun(t)
	defer stop()

	d := New("sender-0", noopWrite, run, 1)
	msg, id, _ := d.BuildJSONRequest("ns", "dest", map[string]any{"type": "X"})

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	if err := d.Send(id, msg, func(r Result) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(done)
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	d.Complete(id, Result{JSON: map[string]any{"a": 1}})
	// A second, stray completion for the same ID (e.g. a duplicate
	// broadcast) must not re-invoke the handler.
	second := d.Complete(id, Result{JSON: map[string]any{"a": 2}})
	if second {
		t.Fatal("expected second Complete for the same id to report no match")
	}

	<-done
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestCompleteUnknownIDIsNoop(t *testing.T) {
	d := New("sender-0", noopWrite, syncRun, 1)
	if d.Complete(12345, Result{}) {
		t.Fatal("expected Complete for unknown id to report no match")
	}
}

func TestRequestTimeoutFiresAtMostOnce(t *testing.T) {
	run, stop := newQueuedRun(t)
	defer stop()

	d := New("sender-0", noopWrite, run, 1)
	msg, id, _ := d.BuildJSONRequest("ns", "dest", map[string]any{"type": "X"})

	// Force a short timeout for the test instead of waiting 30s.
	d.mu.Lock()
	d.pending = make(map[uint32]*pendingEntry)
	d.mu.Unlock()

	done := make(chan Result, 1)
	d.mu.Lock()
	timer := time.AfterFunc(10*time.Millisecond, func() { d.timeout(id) })
	d.pending[id] = &pendingEntry{handler: func(r Result) { done <- r }, timer: timer}
	d.mu.Unlock()
	_ = msg

	select {
	case r := <-done:
		if r.Err != ErrTimeout {
			t.Fatalf("expected ErrTimeout, got %v", r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout handler never fired")
	}

	if d.Pending() != 0 {
		t.Fatalf("expected pending table empty after timeout, got %d", d.Pending())
	}

	// A late Complete for the same id must be a no-op now.
	if d.Complete(id, Result{JSON: map[string]any{}}) {
		t.Fatal("expected Complete after timeout to report no match")
	}
}

func TestDrainRemovesPendingWithoutCallingHandlers(t *testing.T) {
	d := New("sender-0", noopWrite, syncRun, 1)

	called := false
	msg, id, _ := d.BuildJSONRequest("ns", "dest", map[string]any{"type": "X"})
	if err := d.Send(id, msg, func(Result) { called = true }); err != nil {
		t.Fatalf("Send: %v", err)
	}

	d.Drain()

	if called {
		t.Fatal("handler must not be invoked on drain")
	}
	if d.Pending() != 0 {
		t.Fatalf("expected empty pending table after drain, got %d", d.Pending())
	}

	d.Reopen()
	msg2, id2, _ := d.BuildJSONRequest("ns", "dest", map[string]any{"type": "Y"})
	if err := d.Send(id2, msg2, func(Result) {}); err != nil {
		t.Fatalf("Send after Reopen: %v", err)
	}
}

func TestSendRefusedAfterDrain(t *testing.T) {
	d := New("sender-0", noopWrite, syncRun, 1)
	d.Drain()
	msg, id, _ := d.BuildJSONRequest("ns", "dest", map[string]any{"type": "X"})
	if err := d.Send(id, msg, func(Result) {}); err == nil {
		t.Fatal("expected Send to fail after Drain")
	}
}


