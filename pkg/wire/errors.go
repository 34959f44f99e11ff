package wire

import "errors"

var (
	// ErrMalformedHeader is returned when fewer than HeaderSize bytes are
	// available or the header names an unknown kind.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrTruncatedPayload is returned when the payload is shorter than its
	// header or a length prefix claims more bytes than remain.
	ErrTruncatedPayload = errors.New("truncated payload")
	// ErrTrailingBytes is returned when decoding does not end exactly at the
	// end of the declared region.
	ErrTrailingBytes = errors.New("trailing bytes after payload")
	// ErrMalformedPayload is returned for payload bytes that are not a valid
	// encoding of their kind.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnsupportedType is returned by Wrap for Go types with no kind.
	ErrUnsupportedType = errors.New("unsupported value type")
)
