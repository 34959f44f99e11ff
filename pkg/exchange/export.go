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

// Export writes v to the channel segment, replacing any value that was not
// consumed yet. The segment is sized to exactly header plus payload and stays
// in place after Export returns, for the consumer to import and destroy.
func (c *Channel) Export(ctx context.Context, v wire.Value) (err error) {
	if v == nil {
		return fmt.Errorf("%w: nil value", wire.ErrUnsupportedType)
	}
	ctx, span := c.tracer.Start(ctx, "exchange.export", trace.WithAttributes(
		attribute.String("shmx.channel", c.name),
		attribute.String("shmx.kind", v.Tag().String()),
	))
	st := newTransitions("export "+c.name, span, c.logger)
	payload := v.PayloadSize()
	defer func() {
		if err != nil {
			st.enter(StateFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Warnf("export %s of %s failed: %v", v.Tag(), c.name, err)
		}
		c.metrics.observeExport(c.name, v.Tag(), payload, err)
		span.End()
	}()

	st.enter(StateSizing)
	size, err := c.frameSize(v)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("shmx.payload_bytes", payload))

	seg, err := c.mgr.Create(ctx, c.name, size)
	if err != nil {
		return err
	}
	st.enter(StateMapped)
	_, werr := wire.EncodeInto(seg.Bytes(), v)
	if werr == nil {
		st.enter(StateWritten)
	}
	cerr := seg.Close()
	if werr != nil || cerr != nil {
		// A half-written segment must not be consumed.
		err = errors.Join(werr, cerr)
		if derr := c.mgr.Destroy(ctx, c.name); derr != nil {
			c.logger.Warnf("discarding partial segment %s: %v", c.name, derr)
		}
		return err
	}
	st.enter(StateClosed)
	c.tracker.Published(c.mgr, c.name)
	c.logger.Debugf("exported %s (%d payload bytes) to %s", v.Tag(), payload, c.name)
	return nil
}

// ExportNative wraps v with wire.Wrap and exports it.
func (c *Channel) ExportNative(ctx context.Context, v any) error {
	val, err := wire.Wrap(v)
	if err != nil {
		return err
	}
	return c.Export(ctx, val)
}

func (c *Channel) frameSize(v wire.Value) (int, error) {
	size, err := wire.FrameSize(v)
	if err != nil {
		return 0, err
	}
	if limit := c.config.MaxSegmentSize; limit > 0 && size > limit {
		return 0, fmt.Errorf("%w: %s needs %d bytes, %s limit is %d", ErrPayloadTooLarge, v.Tag(), size, c.name, limit)
	}
	return size, nil
}

// segmentGone reports whether err means another party already removed the
// segment.
func segmentGone(err error) bool {
	return errors.Is(err, shm.ErrSegmentNotFound)
}
