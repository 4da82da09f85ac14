// Package wire implements the Cast V2 byte-level protocol: the
// protobuf wire encoding of CastMessage and the length-prefixed framing
// that carries it over a TLS stream.
//
// CastMessage is encoded directly against the public
// extensions.api.cast_channel.CastMessage schema using raw protobuf
// wire-format primitives instead of protoc-generated bindings — see
// DESIGN.md for why. The schema has seven scalar fields and no nested
// or repeated messages, which keeps a hand-written codec small and easy
// to keep correct.
package wire

import (
	"fmt"
)

// PayloadType mirrors cast_channel.CastMessage.PayloadType.
type PayloadType int32

const (
	PayloadTypeString PayloadType = 0
	PayloadTypeBinary PayloadType = 1
)

// ProtocolVersion mirrors cast_channel.CastMessage.ProtocolVersion.
type ProtocolVersion int32

const (
	ProtocolVersionCASTV2_1_0 ProtocolVersion = 0
)

// CastMessage is the wire envelope carried by every Cast V2 frame.
type CastMessage struct {
	ProtocolVersion ProtocolVersion
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
	PayloadBinary   []byte
}

// protobuf field numbers for CastMessage, per the public schema.
const (
	fieldProtocolVersion = 1
	fieldSourceID        = 2
	fieldDestinationID   = 3
	fieldNamespace       = 4
	fieldPayloadType     = 5
	fieldPayloadUTF8     = 6
	fieldPayloadBinary   = 7
)

const (
	wireVarint = 0
	wireBytes  = 2
)

// Encode serializes msg as a protobuf CastMessage.
func Encode(msg *CastMessage) []byte {
	buf := make([]byte, 0, 64+len(msg.SourceID)+len(msg.DestinationID)+len(msg.Namespace)+len(msg.PayloadUTF8)+len(msg.PayloadBinary))
	buf = appendVarintField(buf, fieldProtocolVersion, uint64(msg.ProtocolVersion))
	buf = appendStringField(buf, fieldSourceID, msg.SourceID)
	buf = appendStringField(buf, fieldDestinationID, msg.DestinationID)
	buf = appendStringField(buf, fieldNamespace, msg.Namespace)
	buf = appendVarintField(buf, fieldPayloadType, uint64(msg.PayloadType))
	if msg.PayloadType == PayloadTypeString {
		buf = appendStringField(buf, fieldPayloadUTF8, msg.PayloadUTF8)
	} else if len(msg.PayloadBinary) > 0 {
		buf = appendBytesField(buf, fieldPayloadBinary, msg.PayloadBinary)
	}
	return buf
}

// Decode parses a protobuf CastMessage from raw bytes.
func Decode(data []byte) (*CastMessage, error) {
	msg := &CastMessage{}
	for len(data) > 0 {
		fieldNum, wireType, n, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		data = data[n:]

		switch wireType {
		case wireVarint:
			v, n, err := decodeVarint(data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			switch fieldNum {
			case fieldProtocolVersion:
				msg.ProtocolVersion = ProtocolVersion(v)
			case fieldPayloadType:
				msg.PayloadType = PayloadType(v)
			}
		case wireBytes:
			l, n, err := decodeVarint(data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			if uint64(len(data)) < l {
				return nil, fmt.Errorf("wire: truncated field %d: need %d bytes, have %d", fieldNum, l, len(data))
			}
			val := data[:l]
			data = data[l:]
			switch fieldNum {
			case fieldSourceID:
				msg.SourceID = string(val)
			case fieldDestinationID:
				msg.DestinationID = string(val)
			case fieldNamespace:
				msg.Namespace = string(val)
			case fieldPayloadUTF8:
				msg.PayloadUTF8 = string(val)
			case fieldPayloadBinary:
				msg.PayloadBinary = append([]byte(nil), val...)
			}
		default:
			return nil, fmt.Errorf("wire: unsupported wire type %d for field %d", wireType, fieldNum)
		}
	}
	return msg, nil
}

func appendVarintField(buf []byte, fieldNum int, v uint64) []byte {
	buf = appendTag(buf, fieldNum, wireVarint)
	return appendVarint(buf, v)
}

func appendStringField(buf []byte, fieldNum int, s string) []byte {
	buf = appendTag(buf, fieldNum, wireBytes)
	buf = appendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendBytesField(buf []byte, fieldNum int, b []byte) []byte {
	buf = appendTag(buf, fieldNum, wireBytes)
	buf = appendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendTag(buf []byte, fieldNum, wireType int) []byte {
	return appendVarint(buf, uint64(fieldNum)<<3|uint64(wireType))
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func decodeVarint(data []byte) (v uint64, n int, err error) {
	var shift uint
	for n < len(data) {
		b := data[n]
		n++
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, n, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("wire: varint overflow")
		}
	}
	return 0, 0, fmt.Errorf("wire: truncated varint")
}

func decodeTag(data []byte) (fieldNum, wireType, n int, err error) {
	v, n, err := decodeVarint(data)
	if err != nil {
		return 0, 0, 0, err
	}
	return int(v >> 3), int(v & 0x7), n, nil
}
