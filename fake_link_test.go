package cast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/scobuck/CastKit/internal/wire"
)

// fakeLink is a transportLink test double: Write decodes each frame so
// tests can inspect what the Client sent, and deliver/replyTo simulate a
// receiver response by invoking the registered OnFrame callback, the
// same way the real transport's read loop would.
type fakeLink struct {
	mu        sync.Mutex
	opened    bool
	closed    bool
	sent      []*wire.CastMessage
	openErr   error
	writeErr  error
	onFrame   func(*wire.CastMessage)
	onClosed  func(error)
	senderID  string
}

var _ transportLink = (*fakeLink)(nil)

func newFakeLink() *fakeLink {
	return &fakeLink{senderID: "sender-fake"}
}

func (f *fakeLink) Open(ctx context.Context, host string, port int) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.mu.Lock()
	f.opened = true
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	already := f.closed
	f.closed = true
	f.opened = false
	f.mu.Unlock()
	if !already {
		f.fireClosed(nil)
	}
	return nil
}

func (f *fakeLink) Write(frame []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	dec := wire.NewDecoder()
	msgs, err := dec.Feed(frame)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, msgs...)
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) OnFrame(fn func(*wire.CastMessage)) {
	f.mu.Lock()
	f.onFrame = fn
	f.mu.Unlock()
}

func (f *fakeLink) OnClosed(fn func(error)) {
	f.mu.Lock()
	f.onClosed = fn
	f.mu.Unlock()
}

func (f *fakeLink) fireClosed(err error) {
	f.mu.Lock()
	cb := f.onClosed
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// lastSent returns the most recently written message on namespace, or
// nil if none was sent.
func (f *fakeLink) lastSent(namespace string) *wire.CastMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Namespace == namespace {
			return f.sent[i]
		}
	}
	return nil
}

// lastRequestID decodes the most recently written message on namespace
// and returns its requestId field.
func (f *fakeLink) lastRequestID(namespace string) (uint32, bool) {
	msg := f.lastSent(namespace)
	if msg == nil {
		return 0, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(msg.PayloadUTF8), &payload); err != nil {
		return 0, false
	}
	id, ok := toRequestID(payload["requestId"])
	return id, ok
}

// deliver simulates an inbound frame from the receiver on namespace,
// from sourceID, with the given JSON payload.
func (f *fakeLink) deliver(namespace, sourceID string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("fakeLink.deliver: marshal: %v", err))
	}
	msg := &wire.CastMessage{
		ProtocolVersion: wire.ProtocolVersionCASTV2_1_0,
		SourceID:        sourceID,
		DestinationID:   f.senderID,
		Namespace:       namespace,
		PayloadType:     wire.PayloadTypeString,
		PayloadUTF8:     string(body),
	}
	f.mu.Lock()
	cb := f.onFrame
	f.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

// replyTo answers the most recent request on namespace with payload,
// injecting that request's requestId so Dispatcher correlates it.
func (f *fakeLink) replyTo(namespace, sourceID string, payload map[string]any) {
	id, ok := f.lastRequestID(namespace)
	if !ok {
		panic(fmt.Sprintf("fakeLink.replyTo: no pending request on %s", namespace))
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["requestId"] = id
	f.deliver(namespace, sourceID, payload)
}
