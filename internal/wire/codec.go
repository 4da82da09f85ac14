package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxFrameSize is the largest declared frame length this decoder will
// accept. A larger declared length indicates desynchronization; the
// decoder recovers by discarding the entire read buffer rather than
// trying to resync byte-by-byte.
const MaxFrameSize = 1 << 20 // 1 MiB

const headerSize = 4

// ErrFrameTooLarge is returned by Decoder.Feed when a frame declares a
// length over MaxFrameSize. The decoder has already discarded its
// buffer by the time this is returned; the caller should log it and
// keep feeding — the connection is not torn down by this alone (the
// heartbeat handles genuine corruption).
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// EncodeFrame serializes msg as a length-prefixed frame: a 4-byte
// big-endian length followed by the protobuf-encoded CastMessage.
func EncodeFrame(msg *CastMessage) []byte {
	body := Encode(msg)
	frame := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(frame[:headerSize], uint32(len(body)))
	copy(frame[headerSize:], body)
	return frame
}

// Decoder incrementally reassembles CastMessages from a byte stream
// that may deliver data in arbitrary chunks — one byte or many frames
// at a time. It is single-consumer: the transport's read loop is the
// only caller, so there is no mutex around stream reads.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a ready-to-use Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends data to the internal buffer and extracts every complete
// frame currently available. A partial trailing frame is retained for
// the next call.
//
// If a frame declares a length over MaxFrameSize, the entire buffer
// (including any bytes already queued in the oversized frame's body)
// is discarded, any messages decoded earlier in this call are still
// returned, and ErrFrameTooLarge is returned alongside them. The
// decoder is immediately usable again: the next Feed call starts from
// an empty buffer.
func (d *Decoder) Feed(data []byte) ([]*CastMessage, error) {
	d.buf = append(d.buf, data...)

	var out []*CastMessage
	for {
		if len(d.buf) < headerSize {
			return out, nil // awaiting_header
		}
		length := binary.BigEndian.Uint32(d.buf[:headerSize])
		if length > MaxFrameSize {
			d.buf = nil
			return out, fmt.Errorf("%w: declared length %d", ErrFrameTooLarge, length)
		}
		total := headerSize + int(length)
		if len(d.buf) < total {
			return out, nil // awaiting_body
		}

		body := d.buf[headerSize:total]
		msg, err := Decode(body)
		d.buf = d.buf[total:]
		if err != nil {
			// A malformed frame body is dropped; the stream resyncs at
			// the next frame boundary since we already consumed exactly
			// `total` bytes.
			continue
		}
		out = append(out, msg)
	}
}

// Reset clears any buffered partial frame.
func (d *Decoder) Reset() {
	d.buf = nil
}
