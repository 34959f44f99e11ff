package exchange

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/shmx/pkg/wire"
)

// Await imports a value of kind expected, retrying with b while the segment
// does not exist yet. Any other failure ends the wait at once. A nil b means
// backoff.NewExponentialBackOff. The wait also ends when ctx is done.
func Await(ctx context.Context, c *Channel, expected wire.TypeTag, b backoff.BackOff) (wire.Value, error) {
	if b == nil {
		b = backoff.NewExponentialBackOff()
	}
	attempt := func() (wire.Value, error) {
		v, err := c.Import(ctx, expected)
		if err != nil && !segmentGone(err) {
			return nil, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Tracef("waiting %v for %s: %v", wait, c.name, err)
	}
	return backoff.RetryNotifyWithData(attempt, backoff.WithContext(b, ctx), notify)
}

// AwaitAs is Await for a value of kind T.
func AwaitAs[T wire.Kind](ctx context.Context, c *Channel, b backoff.BackOff) (T, error) {
	var zero T
	v, err := Await(ctx, c, zero.Tag(), b)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
