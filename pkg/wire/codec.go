package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/valyala/bytebufferpool"
)

// ErrPayloadTooLarge is returned when a payload does not fit the 32-bit size
// field or an enforced ceiling.
var ErrPayloadTooLarge = errors.New("payload too large")

type decodeFunc func(region []byte) (Value, error)

var decoders = [...]decodeFunc{
	TagBool:            decodeBool,
	TagInt32:           decodeInt32,
	TagFloat64:         decodeFloat64,
	TagUtf8String:      decodeString,
	TagFloat64Array:    decodeFloat64Array,
	TagUtf8StringArray: decodeStringArray,
	TagJSONDocument:    decodeJSON,
}

// FrameSize is the total segment size needed to carry v.
func FrameSize(v Value) (int, error) {
	size := v.PayloadSize()
	if uint64(size) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s payload of %d bytes exceeds the 32-bit size field", ErrPayloadTooLarge, v.Tag(), size)
	}
	return HeaderSize + size, nil
}

// Encode returns the payload bytes of v, without header.
func Encode(v Value) []byte {
	return v.AppendPayload(make([]byte, 0, v.PayloadSize()))
}

// EncodeInto writes header and payload of v to the start of dst and returns
// the number of bytes written. dst must hold at least FrameSize(v) bytes.
func EncodeInto(dst []byte, v Value) (int, error) {
	n, err := FrameSize(v)
	if err != nil {
		return 0, err
	}
	if len(dst) < n {
		return 0, fmt.Errorf("encode %s: %w: have %d bytes, need %d", v.Tag(), io.ErrShortBuffer, len(dst), n)
	}
	size := n - HeaderSize
	EncodeHeader(dst, Header{Tag: v.Tag(), Size: uint32(size)})
	// capped so an oversized append cannot silently reallocate
	if out := v.AppendPayload(dst[HeaderSize:HeaderSize:n]); len(out) != size {
		return 0, fmt.Errorf("encode %s: wrote %d payload bytes, declared %d", v.Tag(), len(out), size)
	}
	return n, nil
}

// Marshal returns header and payload of v in a new slice.
func Marshal(v Value) ([]byte, error) {
	n, err := FrameSize(v)
	if err != nil {
		return nil, err
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = AppendHeader(buf.B, Header{Tag: v.Tag(), Size: uint32(n - HeaderSize)})
	buf.B = v.AppendPayload(buf.B)
	return append(make([]byte, 0, n), buf.B...), nil
}

// Unmarshal decodes a frame produced by Marshal or EncodeInto. Bytes past the
// declared payload are ignored.
func Unmarshal(frame []byte) (Value, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	return Decode(h.Tag, frame[HeaderSize:], h.Size)
}

// Decode decodes the first declared bytes of payload as a value of kind tag.
// The result never aliases payload.
func Decode(tag TypeTag, payload []byte, declared uint32) (Value, error) {
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedHeader, uint32(tag))
	}
	if uint64(len(payload)) < uint64(declared) {
		return nil, fmt.Errorf("%w: %s declares %d bytes, %d available", ErrTruncatedPayload, tag, declared, len(payload))
	}
	region := payload[:declared]
	if width := tag.fixedSize(); width > 0 {
		switch {
		case len(region) < width:
			return nil, fmt.Errorf("%w: %s needs %d bytes, declared %d", ErrTruncatedPayload, tag, width, declared)
		case len(region) > width:
			return nil, fmt.Errorf("%w: %s needs %d bytes, declared %d", ErrTrailingBytes, tag, width, declared)
		}
	}
	return decoders[tag](region)
}

func decodeBool(b []byte) (Value, error) {
	switch b[0] {
	case 0:
		return Bool(false), nil
	case 1:
		return Bool(true), nil
	}
	return nil, fmt.Errorf("%w: bool byte 0x%02x", ErrMalformedPayload, b[0])
}

func decodeInt32(b []byte) (Value, error) {
	return Int32(int32(binary.LittleEndian.Uint32(b))), nil
}

func decodeFloat64(b []byte) (Value, error) {
	return Float64(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
}

func decodeString(b []byte) (Value, error) {
	return String(b), nil
}

func decodeFloat64Array(b []byte) (Value, error) {
	if rem := len(b) % 8; rem != 0 {
		return nil, fmt.Errorf("%w: %d bytes after the last Float64Array element", ErrTrailingBytes, rem)
	}
	out := make(Float64Array, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

func decodeStringArray(b []byte) (Value, error) {
	out := StringArray{}
	for off := 0; off < len(b); {
		if len(b)-off < 4 {
			return nil, fmt.Errorf("%w: length prefix at offset %d needs 4 bytes, %d remain", ErrTruncatedPayload, off, len(b)-off)
		}
		n := uint64(binary.LittleEndian.Uint32(b[off:]))
		off += 4
		if n > uint64(len(b)-off) {
			return nil, fmt.Errorf("%w: element %d claims %d bytes, %d remain", ErrTruncatedPayload, len(out), n, len(b)-off)
		}
		out = append(out, string(b[off:off+int(n)]))
		off += int(n)
	}
	return out, nil
}

func decodeJSON(b []byte) (Value, error) {
	return ParseJSONDocument(b)
}
