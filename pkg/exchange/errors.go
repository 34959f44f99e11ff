package exchange

import (
	"errors"
	"fmt"

	"github.com/srediag/shmx/pkg/wire"
)

var (
	// ErrPayloadTooLarge is returned when a value does not fit the configured
	// segment ceiling or the 32-bit size field.
	ErrPayloadTooLarge = wire.ErrPayloadTooLarge
	// ErrTypeMismatch is matched by every *MismatchError.
	ErrTypeMismatch = errors.New("type mismatch")
)

// MismatchError reports a segment whose kind differs from the expected one.
// The value is never coerced.
type MismatchError struct {
	Channel  string
	Expected wire.TypeTag
	Actual   wire.TypeTag
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s on %s: expected %s, segment holds %s", ErrTypeMismatch, e.Channel, e.Expected, e.Actual)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
