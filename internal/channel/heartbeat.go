package channel

import (
	"context"
	"sync"
	"time"
)

// PingInterval is how often Heartbeat sends PING while running.
const PingInterval = 5 * time.Second

// WatchdogTimeout is the maximum time allowed since the last inbound
// activity of any kind (not just on this namespace) before Heartbeat
// declares the connection dead.
const WatchdogTimeout = 20 * time.Second

// Heartbeat implements urn:x-cast:com.google.cast.tp.heartbeat: it
// sends PING on an interval, answers inbound PING with PONG, and
// raises a timeout once no traffic at all has been observed for
// WatchdogTimeout. Touch must be called by the Message Router on every
// inbound frame, regardless of namespace, so the watchdog tracks
// overall link liveness rather than just heartbeat traffic.
type Heartbeat struct {
	sender        Sender
	destinationID string

	mu             sync.Mutex
	lastActivity   time.Time
	connectedFired bool

	onConnected func()
	onTimeout   func()
}

// NewHeartbeat constructs a Heartbeat channel that pings destinationID
// (conventionally ReceiverDestination).
func NewHeartbeat(sender Sender, destinationID string) *Heartbeat {
	return &Heartbeat{sender: sender, destinationID: destinationID}
}

// Namespace implements JSONHandler.
func (h *Heartbeat) Namespace() string { return NamespaceHeartbeat }

// OnConnected registers the callback fired the first time a PONG is
// observed — the signal the transport is alive end to end, not just
// open.
func (h *Heartbeat) OnConnected(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnected = fn
}

// OnTimeout registers the callback fired once the watchdog trips.
func (h *Heartbeat) OnTimeout(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTimeout = fn
}

// Touch records inbound activity, resetting the watchdog window. The
// Message Router calls this for every decoded frame on any namespace.
func (h *Heartbeat) Touch() {
	h.mu.Lock()
	h.lastActivity = time.Now()
	h.mu.Unlock()
}

// Run sends PING every PingInterval and checks the watchdog on the
// same tick, until ctx is cancelled or the watchdog trips. It is meant
// to be driven by an errgroup alongside the rest of a connection's
// goroutines, so a watchdog timeout's returned error propagates to
// whatever is waiting on the group.
func (h *Heartbeat) Run(ctx context.Context) error {
	h.mu.Lock()
	h.lastActivity = time.Now()
	h.connectedFired = false
	h.mu.Unlock()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = h.sender.SendJSONMessage(NamespaceHeartbeat, h.destinationID, map[string]any{"type": "PING"})
			if err := h.checkExpired(); err != nil {
				return err
			}
		}
	}
}

// checkExpired reports an error and fires OnTimeout exactly once if
// WatchdogTimeout has elapsed since the last observed activity. Split
// out from Run so it can be exercised without waiting on a real ticker.
func (h *Heartbeat) checkExpired() error {
	h.mu.Lock()
	expired := time.Since(h.lastActivity) >= WatchdogTimeout
	cb := h.onTimeout
	h.mu.Unlock()
	if !expired {
		return nil
	}
	if cb != nil {
		cb()
	}
	return errHeartbeatTimeout
}

var errHeartbeatTimeout = errTimeout("channel: heartbeat watchdog timeout")

type errTimeout string

func (e errTimeout) Error() string { return string(e) }

// HandleJSON answers inbound PING with PONG and fires OnConnected the
// first time a PONG is observed.
func (h *Heartbeat) HandleJSON(payload map[string]any, sourceID string) {
	h.Touch()
	switch getString(payload, "type") {
	case "PING":
		_ = h.sender.SendJSONMessage(NamespaceHeartbeat, sourceID, map[string]any{"type": "PONG"})
	case "PONG":
		h.mu.Lock()
		first := !h.connectedFired
		h.connectedFired = true
		cb := h.onConnected
		h.mu.Unlock()
		if first && cb != nil {
			cb()
		}
	}
}
