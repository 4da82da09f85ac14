// Package cast implements a Google Cast V2 sender client: TLS
// transport, multi-channel message dispatch, request/response
// correlation, session state, and heartbeat liveness.
package cast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/scobuck/CastKit/internal/channel"
	"github.com/scobuck/CastKit/internal/dispatch"
	"github.com/scobuck/CastKit/internal/session"
	"github.com/scobuck/CastKit/internal/transport"
	"github.com/scobuck/CastKit/internal/types"
	"github.com/scobuck/CastKit/internal/wire"
)

// runQueueDepth bounds the serialized dispatch context's backlog. Once
// the backlog is full, run blocks its caller, including the transport
// read loop's frame callback, until the observer catches up.
const runQueueDepth = 256

var _ transportLink = (*transport.Transport)(nil)

// Client is a Cast V2 sender session to one receiver. All exported
// methods are safe for concurrent use. Observer callbacks are always
// delivered from the client's own serialized dispatch goroutine, never
// from the transport's read-loop goroutine directly.
type Client struct {
	device   types.CastDevice
	senderID string

	mu    sync.Mutex
	state ConnectionState

	transport  transportLink
	dispatcher *dispatch.Dispatcher
	session    *session.State

	connection *channel.Connection
	heartbeat  *channel.Heartbeat
	receiver   *channel.Receiver
	media      *channel.Media
	multizone  *channel.Multizone
	auth       *channel.Auth
	discovery  *channel.Discovery
	setup      *channel.Setup
	handlers   map[string]channel.JSONHandler

	observer Observer

	runCh    chan func()
	runDone  chan struct{}
	eg       *errgroup.Group
	egCancel context.CancelFunc

	logger zerolog.Logger
}

// New constructs a Client for device, ready to Connect. The sender ID
// is a fresh UUID per the public protocol's sender-<uuid> convention.
func New(device types.CastDevice) *Client {
	return newClient(device, transport.New(), time.Now().UnixNano())
}

// newClient is the shared constructor used by New and by tests, which
// substitute a fake transportLink and a fixed seed for deterministic
// request IDs.
func newClient(device types.CastDevice, link transportLink, seed int64) *Client {
	c := &Client{
		device:   device,
		senderID: "sender-" + uuid.NewString(),
		state:    StateDisconnected,
		transport: link,
		session:  session.New(),
		logger:   log.With().Str("component", "cast.Client").Str("device", device.Name).Logger(),
	}
	c.dispatcher = dispatch.New(c.senderID, c.transport.Write, c.run, seed)

	c.connection = channel.NewConnection(c.dispatcher)
	c.heartbeat = channel.NewHeartbeat(c.dispatcher, channel.ReceiverDestination)
	c.receiver = channel.NewReceiver(c.dispatcher)
	c.media = channel.NewMedia(c.dispatcher)
	c.multizone = channel.NewMultizone(c.dispatcher)
	c.auth = channel.NewAuth(c.dispatcher)
	c.discovery = channel.NewDiscovery(c.dispatcher)
	c.setup = channel.NewSetup(c.dispatcher)

	c.handlers = map[string]channel.JSONHandler{
		channel.NamespaceConnection: c.connection,
		channel.NamespaceHeartbeat:  c.heartbeat,
		channel.NamespaceReceiver:   c.receiver,
		channel.NamespaceMedia:      c.media,
		channel.NamespaceMultizone:  c.multizone,
		channel.NamespaceDiscovery:  c.discovery,
		channel.NamespaceSetup:      c.setup,
	}

	c.wireChannelCallbacks()
	c.transport.OnFrame(func(m *wire.CastMessage) { c.run(func() { c.routeFrame(m) }) })
	c.transport.OnClosed(func(err error) { c.run(func() { c.handleTransportClosed(err) }) })

	return c
}

// wireChannelCallbacks connects each channel's status observer to the
// session store, which deduplicates before this Client forwards
// anything to its own Observer. Mirrors the corpus's
// wireSessionCallbacks pattern: one place registers every callback a
// transport-like dependency exposes.
func (c *Client) wireChannelCallbacks() {
	c.receiver.OnStatus(func(status types.CastStatus) {
		c.session.SetStatus(status)
		c.reconcileConnectedApp(status)
	})
	c.media.OnStatus(c.session.SetMediaStatus)
	c.multizone.OnStatus(c.session.SetMultizoneStatus)

	c.session.OnStatus(func(status types.CastStatus) {
		if o := c.Observer(); o != nil {
			o.OnStatus(status)
		}
	})
	c.session.OnMediaStatus(func(status types.CastMediaStatus) {
		if o := c.Observer(); o != nil {
			o.OnMediaStatus(status)
		}
	})
	c.session.OnMultizoneStatus(func(status types.CastMultizoneStatus) {
		if o := c.Observer(); o != nil {
			o.OnMultizoneStatus(status)
		}
	})
	c.session.OnConnectedApp(func(app *types.CastApp) {
		if o := c.Observer(); o != nil {
			o.OnConnectedApp(app)
		}
	})
	c.auth.OnError(func() { c.logger.Warn().Msg("device auth challenge returned an error response; continuing anyway") })
	// HandleJSON already runs on the serialized dispatch context (it is
	// invoked from routeFrame inside c.run), so promoting state here
	// needs no further c.run wrapping.
	c.heartbeat.OnConnected(func() {
		if c.State() == StateAuthenticating {
			c.setState(StateConnected)
		}
	})
}

// reconcileConnectedApp keeps the connected app's cached fields (e.g.
// StatusText) fresh whenever a new RECEIVER_STATUS arrives, without
// changing which app is considered connected — that only changes via
// Launch, Join, Leave, and StopCurrentApp.
func (c *Client) reconcileConnectedApp(status types.CastStatus) {
	current := c.session.ConnectedApp()
	if current == nil {
		return
	}
	if app, ok := status.AppWithID(current.ID); ok && app.SessionID == current.SessionID {
		c.session.SetConnectedApp(&app)
	}
}

// SetObserver registers the Observer that receives all status and
// lifecycle events. Pass nil to stop receiving events.
func (c *Client) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

// Observer returns the currently registered Observer, or nil.
func (c *Client) Observer() Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observer
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingCallbacks reports the number of requests awaiting a response,
// for introspection and tests.
func (c *Client) PendingCallbacks() int {
	return c.dispatcher.Pending()
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if o := c.Observer(); o != nil {
		o.OnStateChanged(s)
	}
}

// run delivers fn on the client's serialized dispatch context. It is
// the single RunFunc shared by the dispatcher, the transport's frame
// and close callbacks, and channel observers, so an Observer method
// never races with another.
func (c *Client) run(fn func()) {
	c.mu.Lock()
	ch := c.runCh
	c.mu.Unlock()
	if ch == nil {
		// Not connected (or already torn down): deliver inline rather
		// than drop, since a caller may still be waiting on this
		// callback (e.g. Drain's own late callers never reach here —
		// only used before Connect or after Disconnect).
		fn()
		return
	}
	ch <- fn
}

func (c *Client) startRunLoop() {
	ch := make(chan func(), runQueueDepth)
	done := make(chan struct{})
	c.mu.Lock()
	c.runCh = ch
	c.runDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for fn := range ch {
			fn()
		}
	}()
}

func (c *Client) stopRunLoop() {
	c.mu.Lock()
	ch := c.runCh
	done := c.runDone
	c.runCh = nil
	c.runDone = nil
	c.mu.Unlock()
	if ch == nil {
		return
	}
	close(ch)
	<-done
}

// Connect opens the TLS transport, performs the (non-blocking) device
// auth formality, opens the platform virtual connection, requests an
// initial status, and starts the heartbeat. It returns once the
// sequence has been issued — the state only reaches StateConnected
// once the first PONG is observed, reported via Observer.OnStateChanged.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		s := c.state
		c.mu.Unlock()
		return newError(ErrorKindConnection, "Connect", fmt.Errorf("already %s", s))
	}
	c.state = StateConnecting
	c.mu.Unlock()
	if o := c.Observer(); o != nil {
		o.OnStateChanged(StateConnecting)
	}

	c.startRunLoop()
	c.dispatcher.Reopen()

	egCtx, cancel := context.WithCancel(context.Background())
	eg, _ := errgroup.WithContext(egCtx)
	c.eg = eg
	c.egCancel = cancel

	port := c.device.Port
	if port == 0 {
		port = types.DefaultPort
	}
	if err := c.transport.Open(ctx, c.device.HostName, port); err != nil {
		c.stopRunLoop()
		c.setState(StateDisconnected)
		return newError(ErrorKindConnection, "Connect", err)
	}

	c.setState(StateAuthenticating)
	if err := c.auth.SendChallenge(channel.ReceiverDestination); err != nil {
		c.logger.Warn().Err(err).Msg("failed to send device auth challenge; continuing, auth is not enforced")
	}
	if err := c.connection.Open(channel.ReceiverDestination); err != nil {
		_ = c.transport.Close()
		c.stopRunLoop()
		c.setState(StateDisconnected)
		return newError(ErrorKindWrite, "Connect", err)
	}
	if err := c.receiver.GetStatus(func(types.CastStatus, error) {}); err != nil {
		c.logger.Warn().Err(err).Msg("failed to request initial receiver status")
	}

	c.eg.Go(func() error { return c.heartbeat.Run(egCtx) })
	go c.watchHeartbeat()

	return nil
}

// watchHeartbeat waits for the heartbeat goroutine launched in Connect
// to exit. It only exits early with an error on watchdog expiry — a
// clean shutdown cancels egCtx first, which Heartbeat.Run treats as
// nil, so this never fires fail() after a deliberate Disconnect.
func (c *Client) watchHeartbeat() {
	if err := c.eg.Wait(); err != nil {
		c.run(func() { c.fail(newError(ErrorKindConnection, "heartbeat", err)) })
	}
}

// Disconnect closes the virtual connection, the transport, and clears
// all session state. It is idempotent: calling it while already
// disconnected is a no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDisconnecting
	c.mu.Unlock()
	if o := c.Observer(); o != nil {
		o.OnStateChanged(StateDisconnecting)
	}

	if app := c.session.ConnectedApp(); app != nil {
		_ = c.connection.Close(app.TransportID)
	}
	if c.egCancel != nil {
		c.egCancel()
	}
	if c.eg != nil {
		_ = c.eg.Wait()
	}
	c.dispatcher.Drain()
	_ = c.transport.Close()
	c.session.Clear()
	c.stopRunLoop()
	c.setState(StateDisconnected)
	return nil
}

// fail reports a fatal connection-level error to the Observer and
// disconnects. Always called from the serialized dispatch context.
func (c *Client) fail(err *Error) {
	if o := c.Observer(); o != nil {
		o.OnError(err)
	}
	go c.Disconnect()
}

func (c *Client) handleTransportClosed(err error) {
	if c.State() == StateDisconnecting || c.State() == StateDisconnected {
		return
	}
	if err == nil {
		err = fmt.Errorf("transport closed")
	}
	c.fail(newError(ErrorKindConnection, "transport", err))
}

// routeFrame implements the Message Router: it updates heartbeat
// liveness on every frame regardless of namespace, decodes the JSON or
// binary payload, completes any correlated pending request, and hands
// the payload to the channel registered for the frame's namespace. A
// frame on a namespace with no registered channel is dropped and
// processing continues — namespaces this client doesn't understand
// are not a protocol error.
func (c *Client) routeFrame(msg *wire.CastMessage) {
	c.heartbeat.Touch()

	if msg.PayloadType == wire.PayloadTypeBinary {
		if msg.Namespace == channel.NamespaceAuth {
			c.auth.HandleBinary(msg.PayloadBinary, msg.SourceID)
		}
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(msg.PayloadUTF8), &payload); err != nil {
		c.logger.Debug().Err(err).Str("namespace", msg.Namespace).Msg("dropping frame with invalid JSON payload")
		return
	}

	if rawID, ok := payload["requestId"]; ok {
		if id, ok := toRequestID(rawID); ok {
			c.dispatcher.Complete(id, dispatch.Result{JSON: payload})
		}
	}

	h, ok := c.handlers[msg.Namespace]
	if !ok {
		return
	}
	h.HandleJSON(payload, msg.SourceID)
}

func toRequestID(v any) (uint32, bool) {
	switch n := v.(type) {
	case float64:
		return uint32(n), true
	case int:
		return uint32(n), true
	default:
		return 0, false
	}
}
