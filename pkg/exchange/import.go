package exchange

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shmx/pkg/shm"
	"github.com/srediag/shmx/pkg/wire"
)

// Import reads the value held by the channel segment, checks that it is of
// kind expected and destroys the segment, so each exported value is consumed
// at most once.
//
// A segment with an unreadable header or payload is destroyed as well. A
// segment of another kind is destroyed unless Config.KeepOnMismatch is set.
// A segment whose declared size exceeds Config.MaxSegmentSize is left alone.
//
// When two consumers race for one segment, only the one whose destroy
// succeeds gets the value; the other gets an error matching
// shm.ErrSegmentNotFound.
func (c *Channel) Import(ctx context.Context, expected wire.TypeTag) (v wire.Value, err error) {
	if !expected.Valid() {
		return nil, fmt.Errorf("%w: expected kind %d", wire.ErrUnsupportedType, uint32(expected))
	}
	ctx, span := c.tracer.Start(ctx, "exchange.import", trace.WithAttributes(
		attribute.String("shmx.channel", c.name),
		attribute.String("shmx.kind", expected.String()),
	))
	st := newTransitions("import "+c.name, span, c.logger)
	var payload int
	defer func() {
		if err != nil {
			v = nil
			st.enter(StateFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if !segmentGone(err) {
				c.logger.Warnf("import %s from %s failed: %v", expected, c.name, err)
			}
		}
		c.metrics.observeImport(c.name, expected, payload, err)
		span.End()
	}()

	var destroy bool
	err = c.mgr.WithReadOnly(ctx, c.name, func(seg *shm.Segment) error {
		st.enter(StateOpened)
		st.enter(StateMapped)
		data := seg.Bytes()
		h, err := wire.DecodeHeader(data)
		if err != nil {
			destroy = true
			return err
		}
		st.enter(StateHeaderRead)
		if h.Tag != expected {
			destroy = !c.config.KeepOnMismatch
			return &MismatchError{Channel: c.name, Expected: expected, Actual: h.Tag}
		}
		st.enter(StateTagVerified)
		if limit := c.config.MaxSegmentSize; limit > 0 && uint64(wire.HeaderSize)+uint64(h.Size) > uint64(limit) {
			return fmt.Errorf("%w: %s declares %d payload bytes, %s limit is %d", ErrPayloadTooLarge, h.Tag, h.Size, c.name, limit)
		}
		destroy = true
		val, err := wire.Decode(h.Tag, data[wire.HeaderSize:], h.Size)
		if err != nil {
			return err
		}
		st.enter(StatePayloadRead)
		v, payload = val, int(h.Size)
		return nil
	})
	if !destroy {
		return v, err
	}

	derr := c.mgr.Destroy(ctx, c.name)
	switch {
	case derr == nil:
		if err == nil {
			st.enter(StateDestroyed)
		}
		c.tracker.Consumed(c.mgr, c.name)
	case err == nil:
		// another consumer destroyed it first and owns the value
		err = fmt.Errorf("%s consumed concurrently: %w", c.name, derr)
	default:
		err = errors.Join(err, derr)
	}
	if err == nil {
		c.logger.Debugf("imported %s (%d payload bytes) from %s", expected, payload, c.name)
	}
	return v, err
}

// ImportNative imports a value of kind expected and returns it as a native Go
// value, see wire.Unwrap.
func (c *Channel) ImportNative(ctx context.Context, expected wire.TypeTag) (any, error) {
	v, err := c.Import(ctx, expected)
	if err != nil {
		return nil, err
	}
	return wire.Unwrap(v), nil
}

// ImportAs imports a value of kind T.
func ImportAs[T wire.Kind](ctx context.Context, c *Channel) (T, error) {
	var zero T
	v, err := c.Import(ctx, zero.Tag())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
