package client

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

type RetryOptions struct {
	MaxRetryTimes uint
	RetryInterval time.Duration
}

// CallWithRetry repeats call with exponential backoff while it fails with a
// retryable error.
func CallWithRetry[T any](ctx context.Context, call retry.RetryableFuncWithData[T], opts RetryOptions) (T, error) {
	attempts := opts.MaxRetryTimes
	if attempts == 0 {
		attempts = 1
	}

	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(opts.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", attempts).
				Err(err).
				Msg("request failed, retrying with exponential backoff")
		}))
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
