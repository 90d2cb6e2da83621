// Package retry runs gateway calls under a bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry sequence. Attempts counts the first call, so
// Attempts 3 means two retries.
type Policy struct {
	Attempts int
	Initial  time.Duration
}

var (
	// Image requests get two retries starting at 700ms.
	ImagePolicy = Policy{Attempts: 3, Initial: 700 * time.Millisecond}
	// Text requests get one retry after 400ms.
	TextPolicy = Policy{Attempts: 2, Initial: 400 * time.Millisecond}
)

// NotifyFunc observes a failed attempt before the wait. attempt is 1-based.
type NotifyFunc func(err error, attempt int, wait time.Duration)

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.Multiplier = 2.0
	b.RandomizationFactor = 0
	b.MaxInterval = p.Initial << 4
	b.MaxElapsedTime = 0
	b.Reset()

	retries := max(0, p.Attempts-1)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do calls fn until it succeeds, the attempts run out, fn returns a
// Permanent error, or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, notify NotifyFunc, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		return fn(ctx)
	}
	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) {
			notify(err, attempt, wait)
		}
	}
	return backoff.RetryNotifyWithData(op, p.backOff(ctx), n)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
