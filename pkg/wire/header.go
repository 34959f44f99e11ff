package wire

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the segment prefix.
const HeaderSize = 8

// Header is the fixed prefix of every segment.
type Header struct {
	Tag  TypeTag
	Size uint32 // payload byte length
}

// EncodeHeader writes h into dst[:HeaderSize]. It panics if dst is shorter.
func EncodeHeader(dst []byte, h Header) {
	_ = dst[HeaderSize-1]
	binary.LittleEndian.PutUint32(dst[0:4], uint32(h.Tag))
	binary.LittleEndian.PutUint32(dst[4:8], h.Size)
}

// AppendHeader appends the encoding of h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.Tag))
	return binary.LittleEndian.AppendUint32(dst, h.Size)
}

// DecodeHeader reads a header from the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes available, need %d", ErrMalformedHeader, len(b), HeaderSize)
	}
	h := Header{
		Tag:  TypeTag(binary.LittleEndian.Uint32(b[0:4])),
		Size: binary.LittleEndian.Uint32(b[4:8]),
	}
	if !h.Tag.Valid() {
		return Header{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedHeader, uint32(h.Tag))
	}
	return h, nil
}
