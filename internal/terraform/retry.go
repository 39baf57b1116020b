package terraform

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
	"github.com/rs/zerolog"
)

// RetryPolicy bounds retries of an apply blocked by the state lock.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	Clock    clock.Clock
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 5,
		Delay:    5 * time.Second,
		MaxDelay: time.Minute,
		Clock:    clock.WallClock,
	}
}

// RetryOnStateLock calls fn until it succeeds, fails with an error other
// than [ErrStateLocked], or the policy's attempts are exhausted. The last
// error from fn is returned.
func RetryOnStateLock(ctx context.Context, policy RetryPolicy, logger zerolog.Logger, fn func() error) error {
	clk := policy.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	err := retry.Call(retry.CallArgs{
		Func: fn,
		IsFatalError: func(err error) bool {
			return !errors.Is(err, ErrStateLocked)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("Terraform state locked, retrying")
		},
		Attempts:    policy.Attempts,
		Delay:       policy.Delay,
		MaxDelay:    policy.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       clk,
		Stop:        ctx.Done(),
	})
	return retry.LastError(err)
}
