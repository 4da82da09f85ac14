package wire

import "fmt"

// RawField holds one top-level decoded protobuf field: either a varint
// value or a length-delimited byte slice (a string, bytes, or an
// embedded message left unparsed).
type RawField struct {
	Varint uint64
	Bytes  []byte
	IsVarint bool
}

// DecodeFields parses the top-level fields of an arbitrary flat
// protobuf message into a field-number-keyed map, without needing a
// generated schema. It does not recurse into embedded messages — a
// caller that expects an embedded message gets its raw bytes back in
// RawField.Bytes and can decode those independently with DecodeFields.
//
// This is deliberately general (unlike the fixed CastMessage codec in
// message.go) because DeviceAuthMessage and its nested AuthChallenge /
// AuthError are small, rarely used, and not worth a second hand-written
// fixed-schema encoder.
func DecodeFields(data []byte) (map[int]RawField, error) {
	out := make(map[int]RawField)
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
			out[fieldNum] = RawField{Varint: v, IsVarint: true}
		case wireBytes:
			l, n, err := decodeVarint(data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
			if uint64(len(data)) < l {
				return nil, fmt.Errorf("wire: truncated field %d: need %d bytes, have %d", fieldNum, l, len(data))
			}
			out[fieldNum] = RawField{Bytes: append([]byte(nil), data[:l]...)}
			data = data[l:]
		default:
			return nil, fmt.Errorf("wire: unsupported wire type %d for field %d", wireType, fieldNum)
		}
	}
	return out, nil
}

// EncodeEmbeddedMessage wraps an already-encoded embedded message's
// bytes as a length-delimited field, for composing nested messages out
// of smaller encoders.
func EncodeEmbeddedMessage(buf []byte, fieldNum int, encoded []byte) []byte {
	return appendBytesField(buf, fieldNum, encoded)
}
