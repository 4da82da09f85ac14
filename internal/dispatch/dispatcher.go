// Package dispatch allocates Cast V2 request IDs, serializes outbound
// CastMessages, and correlates inbound responses with the request that
// triggered them.
package dispatch

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/scobuck/CastKit/internal/wire"
)

// RequestTimeout is the maximum time a pending request waits for a
// response before its handler is completed with ErrTimeout.
const RequestTimeout = 30 * time.Second

// initialIDCeiling bounds the randomly seeded starting request ID. A
// random start reduces the chance of ID collision if a receiver replays
// buffered frames from a prior session against a new connection.
const initialIDCeiling = 800

// ErrTimeout is delivered to a pending request's handler when no
// response arrives within RequestTimeout.
var ErrTimeout = fmt.Errorf("dispatch: request timed out")

// Result is delivered to a request's handler exactly once.
type Result struct {
	JSON map[string]any
	Err  error
}

// Handler receives the outcome of a single outbound request.
type Handler func(Result)

// WriteFunc writes a fully framed message to the transport. It must
// write the whole frame or return an error; Dispatcher never retries a
// partial write itself.
type WriteFunc func(frame []byte) error

// RunFunc delivers a callback on the caller's serialized dispatch
// context. Handlers are never invoked while Dispatcher's internal lock
// is held, and Dispatcher never calls a handler directly — it always
// goes through RunFunc, so a single context (e.g. one drain goroutine)
// can own all observer-visible ordering.
type RunFunc func(func())

type pendingEntry struct {
	handler Handler
	timer   *time.Timer
}

// Dispatcher owns request-ID allocation and the pending-response table
// for one connection. It is safe for concurrent use.
type Dispatcher struct {
	sourceID string
	write    WriteFunc
	run      RunFunc

	mu      sync.Mutex
	nextID  uint32
	pending map[uint32]*pendingEntry
	closed  bool
}

// New creates a Dispatcher. seed deterministically selects the random
// starting request ID — production callers should pass a
// time-derived seed; tests should pass a fixed one so request IDs are
// reproducible.
func New(sourceID string, write WriteFunc, run RunFunc, seed int64) *Dispatcher {
	r := rand.New(rand.NewSource(seed))
	return &Dispatcher{
		sourceID: sourceID,
		write:    write,
		run:      run,
		nextID:   uint32(r.Intn(initialIDCeiling)),
		pending:  make(map[uint32]*pendingEntry),
	}
}

// NextID allocates and returns the next request ID. IDs are unique for
// the lifetime of the Dispatcher (wraparound after 2^32 requests is not
// guarded against, matching the reference protocol's own assumption
// that a single session never issues that many requests).
func (d *Dispatcher) NextID() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	return id
}

// BuildJSONRequest allocates a request ID, injects it into payload as
// "requestId" (overwriting any existing value), and returns the framed
// CastMessage alongside the ID.
func (d *Dispatcher) BuildJSONRequest(namespace, destinationID string, payload map[string]any) (*wire.CastMessage, uint32, error) {
	id := d.NextID()
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["requestId"] = id
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("dispatch: marshal payload: %w", err)
	}
	msg := &wire.CastMessage{
		ProtocolVersion: wire.ProtocolVersionCASTV2_1_0,
		SourceID:        d.sourceID,
		DestinationID:   destinationID,
		Namespace:       namespace,
		PayloadType:     wire.PayloadTypeString,
		PayloadUTF8:     string(body),
	}
	return msg, id, nil
}

// BuildBinaryRequest builds a binary-payload CastMessage. Binary
// payloads (the auth challenge) carry no requestId and are never
// correlated through the pending-response table.
func (d *Dispatcher) BuildBinaryRequest(namespace, destinationID string, payload []byte) *wire.CastMessage {
	return &wire.CastMessage{
		ProtocolVersion: wire.ProtocolVersionCASTV2_1_0,
		SourceID:        d.sourceID,
		DestinationID:   destinationID,
		Namespace:       namespace,
		PayloadType:     wire.PayloadTypeBinary,
		PayloadBinary:   payload,
	}
}

// Send writes msg. If handler is non-nil, it is registered under id
// before the write is performed, so a response arriving before Send
// returns is still matched; it fires at most once, either with the
// correlated response (via Complete) or ErrTimeout after
// RequestTimeout.
func (d *Dispatcher) Send(id uint32, msg *wire.CastMessage, handler Handler) error {
	if handler != nil {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return fmt.Errorf("dispatch: dispatcher closed")
		}
		timer := time.AfterFunc(RequestTimeout, func() { d.timeout(id) })
		d.pending[id] = &pendingEntry{handler: handler, timer: timer}
		d.mu.Unlock()
	}

	if err := d.write(wire.EncodeFrame(msg)); err != nil {
		if handler != nil {
			d.mu.Lock()
			if entry, ok := d.pending[id]; ok {
				entry.timer.Stop()
				delete(d.pending, id)
			}
			d.mu.Unlock()
		}
		return fmt.Errorf("dispatch: write: %w", err)
	}
	return nil
}

// Complete matches a correlated response to its pending request and
// delivers Result to the handler on the dispatch context. It reports
// whether a pending entry was found. A timeout that fires concurrently
// with a late Complete is resolved by whichever removes the map entry
// first, under the single mutex — the loser is a no-op, so the handler
// still fires exactly once.
func (d *Dispatcher) Complete(id uint32, result Result) bool {
	d.mu.Lock()
	entry, ok := d.pending[id]
	if ok {
		entry.timer.Stop()
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	d.run(func() { entry.handler(result) })
	return true
}

func (d *Dispatcher) timeout(id uint32) {
	d.mu.Lock()
	entry, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	d.run(func() { entry.handler(Result{Err: ErrTimeout}) })
}

// Drain removes every pending entry and cancels its timer without
// invoking any handler — the Client Facade's disconnection event is the
// user-visible signal in that case, not individual request failures.
// After Drain, Send refuses new registrations until Reopen is called.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, id)
	}
	d.closed = true
}

// Reopen clears the closed flag set by Drain so the Dispatcher can be
// reused across a reconnect without reallocating it.
func (d *Dispatcher) Reopen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = false
}

// Pending reports the number of in-flight requests. Intended for tests
// and introspection only.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// SendJSON builds and sends a correlated JSON request in one step. It
// satisfies channel.Sender without internal/channel importing this
// package's concrete type.
func (d *Dispatcher) SendJSON(namespace, destinationID string, payload map[string]any, handler Handler) error {
	msg, id, err := d.BuildJSONRequest(namespace, destinationID, payload)
	if err != nil {
		return err
	}
	return d.Send(id, msg, handler)
}

// SendJSONMessage writes a JSON payload with no requestId and no
// correlated response, for namespaces (connection, heartbeat) whose
// messages are never matched to a pending request.
func (d *Dispatcher) SendJSONMessage(namespace, destinationID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dispatch: marshal payload: %w", err)
	}
	msg := &wire.CastMessage{
		ProtocolVersion: wire.ProtocolVersionCASTV2_1_0,
		SourceID:        d.sourceID,
		DestinationID:   destinationID,
		Namespace:       namespace,
		PayloadType:     wire.PayloadTypeString,
		PayloadUTF8:     string(body),
	}
	return d.write(wire.EncodeFrame(msg))
}

// SendBinary writes a binary payload with no requestId, e.g. the
// device-auth challenge.
func (d *Dispatcher) SendBinary(namespace, destinationID string, payload []byte) error {
	return d.write(wire.EncodeFrame(d.BuildBinaryRequest(namespace, destinationID, payload)))
}
