// Package transport owns the single TLS socket a Client speaks Cast V2
// over: dialing, the one read loop, and serialized writes. Nothing
// above this package touches net.Conn directly.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scobuck/CastKit/internal/wire"
)

// DialTimeout bounds the TLS handshake. It does not bound the
// connection's subsequent lifetime.
const DialTimeout = 10 * time.Second

// readBufferSize is the chunk size read per conn.Read call; actual
// CastMessage frames are reassembled by wire.Decoder across reads.
const readBufferSize = 32 * 1024

// Transport owns one TLS connection to a receiver. It is the sole
// writer and sole reader of the socket: Write serializes concurrent
// callers, and the read loop is the only goroutine that ever calls
// conn.Read. Certificate validation is disabled — Cast receivers
// present self-signed certificates with no public CA chain, and device
// identity is instead established (loosely) by the device-auth
// challenge/response over this same connection, not by the TLS
// handshake.
type Transport struct {
	mu     sync.Mutex
	conn   net.Conn
	cancel context.CancelFunc
	closed bool

	writeMu sync.Mutex

	onFrame func(*wire.CastMessage)
	onClose func(error)
}

// New returns an unopened Transport.
func New() *Transport {
	return &Transport{}
}

// OnFrame registers the callback invoked from the read loop for every
// successfully decoded CastMessage, in arrival order.
func (t *Transport) OnFrame(fn func(*wire.CastMessage)) {
	t.mu.Lock()
	t.onFrame = fn
	t.mu.Unlock()
}

// OnClosed registers the callback invoked once the connection ends,
// whether by local Close, a remote close, or a read/decode error. err
// is nil only for a local, intentional Close.
func (t *Transport) OnClosed(fn func(error)) {
	t.mu.Lock()
	t.onClose = fn
	t.mu.Unlock()
}

// Open dials host:port over TLS and starts the read loop. It returns
// once the handshake completes; inbound frames arrive later via
// OnFrame.
func (t *Transport) Open(ctx context.Context, host string, port int) error {
	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	dialer := tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    &tls.Config{InsecureSkipVerify: true}, //nolint:gosec — self-signed receiver certs are the norm
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("transport: dial %s:%d: %w", host, port, err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.conn = conn
	t.cancel = runCancel
	t.closed = false
	t.mu.Unlock()

	go t.readLoop(runCtx, conn)
	return nil
}

// Write sends a fully framed message, blocking until the whole frame
// has been written or an error occurs. Concurrent Write calls are
// serialized; none interleave their bytes on the wire. A write error
// terminates the connection, the same as a read error.
func (t *Transport) Write(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport: not open")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for written := 0; written < len(frame); {
		n, err := conn.Write(frame[written:])
		if err != nil {
			wrapped := fmt.Errorf("transport: write: %w", err)
			t.close(wrapped)
			return wrapped
		}
		written += n
	}
	return nil
}

// Close ends the connection idempotently. The first caller's result
// wins; later calls are no-ops returning nil.
func (t *Transport) Close() error {
	return t.close(nil)
}

func (t *Transport) close(causeErr error) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	onClose := t.onClose
	t.conn = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if onClose != nil {
		onClose(causeErr)
	}
	return err
}

func (t *Transport) readLoop(ctx context.Context, conn net.Conn) {
	dec := wire.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := conn.Read(buf)
		if n > 0 {
			msgs, decErr := dec.Feed(buf[:n])
			t.mu.Lock()
			onFrame := t.onFrame
			t.mu.Unlock()
			if onFrame != nil {
				for _, m := range msgs {
					onFrame(m)
				}
			}
			if decErr != nil {
				// A desynced frame is dropped, not fatal: the decoder has
				// already discarded its buffer and resyncs on the next
				// frame boundary. The heartbeat tears down the session if
				// the stream is truly corrupted.
				log.Warn().Err(decErr).Msg("transport: dropping desynchronized frame")
			}
		}
		if err != nil {
			t.close(err)
			return
		}
	}
}
